package routes

import (
	"encoding/json"

	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/structures"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/valyala/fasthttp"
)

// SubmitResponse runs the same submission pipeline as the websocket route,
// so a validator behind a broken websocket can still get its response in
// before the timeout window closes.
func SubmitResponse(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.SubmitResponseRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	err := handlers.CONSENSUS_ENGINE.SubmitResponse(req.TaskIndex, req.ValidatorId, req.Payload, req.Sig)

	if err != nil {
		metrics_pack.RESPONSES_REJECTED.WithLabelValues(metrics_pack.RejectionReason(err)).Inc()
		writeEngineError(ctx, err)
		return
	}

	// A validator that just submitted is clearly reachable again
	utils.ClearValidatorUnreachable(req.ValidatorId)

	payload, _ := json.Marshal(structures.StatusResponse{Status: "OK"})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}
