package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher turns an arbitrary byte sequence into a fixed width textual digest.
type Hasher interface {
	Hash(data []byte) string
}

type sha256Hasher struct{}

// SHA256 is the Hasher used for every hash stored in the chain.
var SHA256 Hasher = sha256Hasher{}

func (sha256Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
