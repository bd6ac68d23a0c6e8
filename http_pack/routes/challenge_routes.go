package routes

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/valyala/fasthttp"
)

// ChallengeTask opens a dispute against a completed task. The challenger
// signs the request with its own validator key; the engine checks that the
// challenger is active, so no controller involvement is needed here.
func ChallengeTask(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.ChallengeTaskRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{
		"CHALLENGE",
		strconv.FormatUint(req.TaskIndex, 10),
		req.ChallengerId,
		req.Reason,
	}, ":")

	if !cryptography.VerifySignature(dataToVerify, req.ChallengerId, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid challenger signature"}`))
		return
	}

	challenge, err := handlers.CONSENSUS_ENGINE.ChallengeTask(req.TaskIndex, req.ChallengerId, req.Reason)

	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.ChallengeTaskResponse{Status: "OK", ChallengeId: challenge.ChallengeId})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}
