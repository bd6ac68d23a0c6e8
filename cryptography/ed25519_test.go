package cryptography

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakequorum/stakequorum-core/engine"
)

func TestSignatureRoundTrip(t *testing.T) {

	publicKey, privateKey, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotEmpty(t, publicKey)
	require.NotEmpty(t, privateKey)

	message := engine.ResponseSigningDigest(7, []byte(`{"price":"1.2345"}`))

	signature := GenerateSignature(privateKey, message)
	require.NotEmpty(t, signature)

	require.True(t, VerifySignature(message, publicKey, signature))

	// any drift in the signed digest breaks verification
	require.False(t, VerifySignature(engine.ResponseSigningDigest(8, []byte(`{"price":"1.2345"}`)), publicKey, signature))
	require.False(t, VerifySignature(engine.ResponseSigningDigest(7, []byte(`{"price":"1.2346"}`)), publicKey, signature))

	otherPublicKey, _, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, VerifySignature(message, otherPublicKey, signature))
}

func TestVerifySignatureRejectsGarbageInput(t *testing.T) {

	require.False(t, VerifySignature("message", "not-a-valid-key", "not-a-signature"))
	require.False(t, VerifySignature("message", "", ""))
}

func TestGenerateSignatureWithBrokenKey(t *testing.T) {

	require.Empty(t, GenerateSignature("not-base64-pkcs8", "message"))
}

func TestEd25519VerifierAdapter(t *testing.T) {

	publicKey, privateKey, err := GenerateKeyPair()
	require.NoError(t, err)

	var verifier engine.Verifier = Ed25519Verifier{}

	message := engine.ResponseSigningDigest(0, []byte("observed-value"))

	require.True(t, verifier.Verify(message, publicKey, GenerateSignature(privateKey, message)))
	require.False(t, verifier.Verify(message, publicKey, GenerateSignature(privateKey, "different message")))
}
