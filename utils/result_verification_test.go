package utils

import (
	"testing"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/engine"

	"github.com/stretchr/testify/require"
)

type signingValidator struct {
	publicKey  string
	privateKey string
}

func newSigningValidator(t *testing.T) signingValidator {

	t.Helper()

	publicKey, privateKey, err := cryptography.GenerateKeyPair()
	require.NoError(t, err)

	return signingValidator{publicKey: publicKey, privateKey: privateKey}
}

func (v signingValidator) signedResponse(taskIndex uint64, payload []byte, seq uint64) engine.Response {

	return engine.Response{
		TaskIndex: taskIndex,
		Validator: v.publicKey,
		Payload:   payload,
		Signature: cryptography.GenerateSignature(v.privateKey, engine.ResponseSigningDigest(taskIndex, payload)),
		Seq:       seq,
	}
}

func TestVerifyAggregatedResultIntegrity(t *testing.T) {

	alpha := newSigningValidator(t)
	beta := newSigningValidator(t)

	payload := []byte(`{"pair":"MOD/USDT","price":"1.2345"}`)

	responses := []engine.Response{
		alpha.signedResponse(7, payload, 0),
		beta.signedResponse(7, payload, 1),
	}

	result := engine.AggregatedResult{
		TaskIndex:     7,
		CanonicalHash: engine.CanonicalPayloadHash(payload),
		StakeSigned:   850000,
		Signers:       []string{alpha.publicKey, beta.publicKey},
		FinalizedAt:   1724580000000,
	}

	require.NoError(t, VerifyAggregatedResultIntegrity(result, payload, responses))
}

func TestVerifyAggregatedResultIntegrityFailures(t *testing.T) {

	alpha := newSigningValidator(t)
	beta := newSigningValidator(t)

	payload := []byte(`{"pair":"MOD/USDT","price":"1.2345"}`)
	otherPayload := []byte(`{"pair":"MOD/USDT","price":"9.9999"}`)

	validResult := engine.AggregatedResult{
		TaskIndex:     7,
		CanonicalHash: engine.CanonicalPayloadHash(payload),
		Signers:       []string{alpha.publicKey},
	}

	t.Run("no signers", func(t *testing.T) {
		result := validResult
		result.Signers = nil
		err := VerifyAggregatedResultIntegrity(result, payload, []engine.Response{alpha.signedResponse(7, payload, 0)})
		require.ErrorContains(t, err, "no signers")
	})

	t.Run("payload does not match canonical hash", func(t *testing.T) {
		err := VerifyAggregatedResultIntegrity(validResult, otherPayload, []engine.Response{alpha.signedResponse(7, payload, 0)})
		require.ErrorContains(t, err, "canonical hash")
	})

	t.Run("duplicate signer", func(t *testing.T) {
		result := validResult
		result.Signers = []string{alpha.publicKey, alpha.publicKey}
		err := VerifyAggregatedResultIntegrity(result, payload, []engine.Response{alpha.signedResponse(7, payload, 0)})
		require.ErrorContains(t, err, "duplicate signer")
	})

	t.Run("signer without stored response", func(t *testing.T) {
		result := validResult
		result.Signers = []string{alpha.publicKey, beta.publicKey}
		err := VerifyAggregatedResultIntegrity(result, payload, []engine.Response{alpha.signedResponse(7, payload, 0)})
		require.ErrorContains(t, err, "no stored response")
	})

	t.Run("signer voted for a different payload", func(t *testing.T) {
		result := validResult
		result.Signers = []string{alpha.publicKey, beta.publicKey}
		responses := []engine.Response{
			alpha.signedResponse(7, payload, 0),
			beta.signedResponse(7, otherPayload, 1),
		}
		err := VerifyAggregatedResultIntegrity(result, payload, responses)
		require.ErrorContains(t, err, "different payload")
	})

	t.Run("forged signature", func(t *testing.T) {
		forged := alpha.signedResponse(7, payload, 0)
		forged.Signature = beta.signedResponse(7, payload, 0).Signature
		err := VerifyAggregatedResultIntegrity(validResult, payload, []engine.Response{forged})
		require.ErrorContains(t, err, "invalid signature")
	})

	t.Run("signature over the wrong task index", func(t *testing.T) {
		crossTask := alpha.signedResponse(8, payload, 0)
		crossTask.TaskIndex = 7
		err := VerifyAggregatedResultIntegrity(validResult, payload, []engine.Response{crossTask})
		require.ErrorContains(t, err, "invalid signature")
	})
}
