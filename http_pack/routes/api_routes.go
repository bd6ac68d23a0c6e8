package routes

import (
	"encoding/json"
	"strconv"

	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/valyala/fasthttp"
)

func GetTaskByIndex(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")

	taskIndexRaw := ctx.UserValue("index")
	taskIndexStr, ok := taskIndexRaw.(string)

	if !ok {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		ctx.Write([]byte(`{"err": "Invalid value"}`))
		return
	}

	taskIndex, convErr := strconv.ParseUint(taskIndexStr, 10, 64)

	if convErr != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		ctx.Write([]byte(`{"err": "Invalid value"}`))
		return
	}

	task, err := handlers.CONSENSUS_ENGINE.GetTask(taskIndex)

	if err == nil {
		payload, _ := json.Marshal(task)
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.Write(payload)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.Write([]byte(`{"err": "Not found"}`))
}

func GetAggregatedResultByIndex(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")

	taskIndexRaw := ctx.UserValue("index")
	taskIndexStr, ok := taskIndexRaw.(string)

	if !ok {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		ctx.Write([]byte(`{"err": "Invalid value"}`))
		return
	}

	taskIndex, convErr := strconv.ParseUint(taskIndexStr, 10, 64)

	if convErr != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		ctx.Write([]byte(`{"err": "Invalid value"}`))
		return
	}

	result, canonicalPayload, err := handlers.CONSENSUS_ENGINE.GetAggregatedResult(taskIndex)

	if err == nil {
		payload, _ := json.Marshal(structures.AggregatedResultResponse{Result: result, Payload: canonicalPayload})
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.Write(payload)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.Write([]byte(`{"err": "Not found"}`))
}

func GetFinalizedResultByKind(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")

	kindRaw := ctx.UserValue("kind")
	kind, ok := kindRaw.(string)

	if !ok || kind == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		ctx.Write([]byte(`{"err": "Invalid value"}`))
		return
	}

	finalizedResult := handlers.CONSENSUS_ENGINE.GetFinalizedResult(kind)

	if finalizedResult.Valid {
		payload, _ := json.Marshal(structures.FinalizedResultResponse{
			TaskIndex:   finalizedResult.TaskIndex,
			Payload:     finalizedResult.Payload,
			FinalizedAt: finalizedResult.FinalizedAt,
		})
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.Write(payload)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.Write([]byte(`{"err": "Not found"}`))
}

func GetValidators(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	payload, _ := json.Marshal(structures.ValidatorsResponse{
		Validators:       handlers.CONSENSUS_ENGINE.AllValidators(),
		TotalActiveStake: handlers.CONSENSUS_ENGINE.TotalActiveStake(),
	})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}

func GetNodeInfo(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	statusCounts := handlers.CONSENSUS_ENGINE.TaskStatusCounts()

	payload, _ := json.Marshal(structures.NodeInfoResponse{
		NodeId:           globals.CONFIGURATION.PublicKey,
		NetworkId:        globals.GENESIS.NetworkId,
		ActiveValidators: handlers.CONSENSUS_ENGINE.ActiveValidatorCount(),
		TotalActiveStake: handlers.CONSENSUS_ENGINE.TotalActiveStake(),
		NextTaskIndex:    handlers.CONSENSUS_ENGINE.NextTaskIndex(),
		PendingTasks:     int(statusCounts[engine.TaskPending]),
		CompletedTasks:   int(statusCounts[engine.TaskCompleted]),
		FailedTasks:      int(statusCounts[engine.TaskFailed]),
		ChallengedTasks:  int(statusCounts[engine.TaskChallenged]),
	})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}
