package cryptography

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"

	"github.com/btcsuite/btcutil/base58"
)

// ed25519 identity scheme: a validator id is the base58-encoded raw public
// key, private keys travel as base64 PKCS8, signatures as base64.

func GenerateKeyPair() (string, string, error) {

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)

	if err != nil {
		return "", "", err
	}

	pkcs8PrivateKey, err := x509.MarshalPKCS8PrivateKey(privateKey)

	if err != nil {
		return "", "", err
	}

	return base58.Encode(publicKey), base64.StdEncoding.EncodeToString(pkcs8PrivateKey), nil
}

func GenerateSignature(base64PrivateKey, msg string) string {

	// Decode private key from base64 to raw bytes
	privateKeyAsBytes, _ := base64.StdEncoding.DecodeString(base64PrivateKey)

	// Deserialize private key
	privKeyInterface, err := x509.ParsePKCS8PrivateKey(privateKeyAsBytes)

	if err != nil {
		return ""
	}

	finalPrivateKey, ok := privKeyInterface.(ed25519.PrivateKey)

	if !ok {
		return ""
	}

	msgAsBytes := []byte(msg)
	signature, _ := finalPrivateKey.Sign(rand.Reader, msgAsBytes, crypto.Hash(0))

	return base64.StdEncoding.EncodeToString(signature)
}

func VerifySignature(message, base58PubKey, base64Signature string) bool {

	// Decode everything
	msgAsBytes := []byte(message)
	publicKeyAsBytesWithNoAsnPrefix := base58.Decode(base58PubKey)

	// Add ASN.1 prefix
	pubKeyAsBytesWithAsnPrefix := append([]byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}, publicKeyAsBytesWithNoAsnPrefix...)
	pubKeyInterface, err := x509.ParsePKIXPublicKey(pubKeyAsBytesWithAsnPrefix)

	if err != nil {
		return false
	}

	finalPubKey, ok := pubKeyInterface.(ed25519.PublicKey)

	if !ok {
		return false
	}

	signature, _ := base64.StdEncoding.DecodeString(base64Signature)

	return ed25519.Verify(finalPubKey, msgAsBytes, signature)
}

// Ed25519Verifier plugs the scheme into the engine's verifier capability:
// the signer identity is the base58 public key itself, so verification needs
// no key directory.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(message, signerId, signature string) bool {
	return VerifySignature(message, signerId, signature)
}
