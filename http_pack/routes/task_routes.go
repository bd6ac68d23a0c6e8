package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/valyala/fasthttp"
)

// CreateTask is controller-only: the request must be signed by the genesis
// controller key over the canonical field join. The payload enters the join
// through its blake3 hash so arbitrarily large payloads stay cheap to sign.
func CreateTask(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.CreateTaskRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{
		"CREATE_TASK",
		req.Kind,
		engine.CanonicalPayloadHash(req.Payload),
		strconv.FormatUint(req.QuorumNumerator, 10),
		strconv.FormatUint(req.QuorumDenominator, 10),
		strings.Join(req.QuorumIdentifiers, ","),
	}, ":")

	if !cryptography.VerifySignature(dataToVerify, globals.GENESIS.ControllerPubKey, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid controller signature"}`))
		return
	}

	taskIndex, err := handlers.CONSENSUS_ENGINE.CreateTask(req.Kind, req.Payload, req.QuorumNumerator, req.QuorumDenominator, req.QuorumIdentifiers)

	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.CreateTaskResponse{Status: "OK", TaskIndex: taskIndex})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}

// engineErrorStatusCode maps the engine sentinels onto HTTP statuses. The
// sentinel messages contain no quotes, so they can be inlined into the
// response body as-is.
func engineErrorStatusCode(err error) int {

	switch {

	case errors.Is(err, engine.ErrTaskNotFound):
		return fasthttp.StatusNotFound

	case errors.Is(err, engine.ErrTaskAlreadyFinalized),
		errors.Is(err, engine.ErrDuplicateResponse),
		errors.Is(err, engine.ErrTaskNotCompleted),
		errors.Is(err, engine.ErrAlreadyRegistered):
		return fasthttp.StatusConflict

	case errors.Is(err, engine.ErrTaskTimedOut):
		return fasthttp.StatusGone

	case errors.Is(err, engine.ErrNotRegistered),
		errors.Is(err, engine.ErrInsufficientStake),
		errors.Is(err, engine.ErrInvalidSignature):
		return fasthttp.StatusForbidden

	case errors.Is(err, engine.ErrInvalidQuorumFraction),
		errors.Is(err, engine.ErrEmptyPayload),
		errors.Is(err, engine.ErrStakeOverflow):
		return fasthttp.StatusBadRequest

	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeEngineError(ctx *fasthttp.RequestCtx, err error) {
	ctx.SetStatusCode(engineErrorStatusCode(err))
	ctx.Write([]byte(fmt.Sprintf(`{"err":"%s"}`, err.Error())))
}
