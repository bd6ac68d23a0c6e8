package routes

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/valyala/fasthttp"
)

// Registry mutations mirror the external staking ledger: the controller key
// signs register/add_stake/slash, a validator signs its own deregistration.
// Each join gets a distinct verb prefix so a signature for one operation can
// never be replayed as another one with the same field shape.

func RegisterValidator(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.RegisterValidatorRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{
		"REGISTER",
		req.ValidatorPubKey,
		strconv.FormatUint(req.Stake, 10),
		req.ValidatorUrl,
		req.WssValidatorUrl,
	}, ":")

	if !cryptography.VerifySignature(dataToVerify, globals.GENESIS.ControllerPubKey, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid controller signature"}`))
		return
	}

	if _, err := handlers.CONSENSUS_ENGINE.RegisterValidator(req.ValidatorPubKey, req.Stake, req.ValidatorUrl, req.WssValidatorUrl); err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.StatusResponse{Status: "OK"})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}

func AddStake(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.AddStakeRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{
		"ADD_STAKE",
		req.ValidatorPubKey,
		strconv.FormatUint(req.Amount, 10),
	}, ":")

	if !cryptography.VerifySignature(dataToVerify, globals.GENESIS.ControllerPubKey, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid controller signature"}`))
		return
	}

	if _, err := handlers.CONSENSUS_ENGINE.AddStake(req.ValidatorPubKey, req.Amount); err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.StatusResponse{Status: "OK"})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}

func SlashValidator(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.SlashValidatorRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{
		"SLASH",
		req.ValidatorPubKey,
		strconv.FormatUint(req.Amount, 10),
		req.Reason,
	}, ":")

	if !cryptography.VerifySignature(dataToVerify, globals.GENESIS.ControllerPubKey, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid controller signature"}`))
		return
	}

	outcome, err := handlers.CONSENSUS_ENGINE.SlashValidator(req.ValidatorPubKey, req.Amount, req.Reason)

	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.SlashValidatorResponse{
		Status:         "OK",
		SlashedAmount:  outcome.SlashedAmount,
		RemainingStake: outcome.RemainingStake,
		Deactivated:    outcome.Deactivated,
	})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}

func DeregisterValidator(ctx *fasthttp.RequestCtx) {

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")

	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Write([]byte(`{"err":"method not allowed"}`))
		return
	}

	var req structures.DeregisterValidatorRequest

	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.Write([]byte(`{"err":"invalid payload"}`))
		return
	}

	dataToVerify := strings.Join([]string{"DEREGISTER", req.ValidatorPubKey}, ":")

	// Leaving is the validator's own decision, signed with its own key
	if !cryptography.VerifySignature(dataToVerify, req.ValidatorPubKey, req.Sig) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.Write([]byte(`{"err":"invalid validator signature"}`))
		return
	}

	if _, err := handlers.CONSENSUS_ENGINE.DeregisterValidator(req.ValidatorPubKey); err != nil {
		writeEngineError(ctx, err)
		return
	}

	payload, _ := json.Marshal(structures.StatusResponse{Status: "OK"})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(payload)
}
