package engine

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// CanonicalPayloadHash keys response groups: responses with the same hash
// are votes for the same answer.
func CanonicalPayloadHash(payload []byte) string {

	digest := blake3.Sum256(payload)

	return hex.EncodeToString(digest[:])
}

// ResponseSigningDigest is the fixed message construction validators sign:
// blake3 over the 8-byte big-endian task index concatenated with the raw
// payload bytes, hex-encoded. Independent implementations must match this
// byte-for-byte to interoperate.
func ResponseSigningDigest(taskIndex uint64, payload []byte) string {

	message := make([]byte, 8+len(payload))

	binary.BigEndian.PutUint64(message[:8], taskIndex)

	copy(message[8:], payload)

	digest := blake3.Sum256(message)

	return hex.EncodeToString(digest[:])
}
