package utils

import (
	"fmt"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/engine"
)

// VerifyAggregatedResultIntegrity re-checks a finalized result against the
// stored responses before it leaves the node. Every signer listed in the
// result must have a stored response carrying the canonical payload and a
// valid signature over the response signing digest.
func VerifyAggregatedResultIntegrity(result engine.AggregatedResult, payload []byte, responses []engine.Response) error {

	if len(result.Signers) == 0 {
		return fmt.Errorf("result has no signers")
	}

	if engine.CanonicalPayloadHash(payload) != result.CanonicalHash {
		return fmt.Errorf("payload does not match canonical hash")
	}

	responseBySigner := make(map[string]engine.Response, len(responses))

	for _, response := range responses {
		responseBySigner[response.Validator] = response
	}

	digest := engine.ResponseSigningDigest(result.TaskIndex, payload)

	seen := make(map[string]struct{}, len(result.Signers))

	for _, signer := range result.Signers {

		if _, dup := seen[signer]; dup {
			return fmt.Errorf("duplicate signer %s", signer)
		}
		seen[signer] = struct{}{}

		response, ok := responseBySigner[signer]
		if !ok {
			return fmt.Errorf("no stored response from signer %s", signer)
		}

		if engine.CanonicalPayloadHash(response.Payload) != result.CanonicalHash {
			return fmt.Errorf("signer %s responded with a different payload", signer)
		}

		if !cryptography.VerifySignature(digest, signer, response.Signature) {
			return fmt.Errorf("invalid signature from signer %s", signer)
		}
	}

	return nil
}
