package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Genesis is the previous-record hash of sequence 0. It stands in for the
// record hash of a notional record -1; record 0's own hash covers its payload.
const Genesis = "0000000000000000000000000000000000000000000000000000000000000000"

const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBLAKE2b = "blake2b-256"
)

// Hasher computes the chain's hex-encoded digests.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

func NewHasher(algorithm string) (Hasher, error) {
	switch algorithm {
	case AlgorithmSHA256, "":
		return Hasher{algorithm: AlgorithmSHA256, newHash: sha256.New}, nil
	case AlgorithmBLAKE2b:
		return Hasher{algorithm: AlgorithmBLAKE2b, newHash: func() hash.Hash {
			h, _ := blake2b.New256(nil) // only fails for oversized keys
			return h
		}}, nil
	default:
		return Hasher{}, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

func (h Hasher) Algorithm() string {
	return h.algorithm
}

// PayloadHash digests the canonical payload bytes.
func (h Hasher) PayloadHash(payload []byte) string {
	d := h.newHash()
	d.Write(payload)
	return hex.EncodeToString(d.Sum(nil))
}

// RecordHash is H(prevHash || payloadHash) over the hex strings.
func (h Hasher) RecordHash(prevHash, payloadHash string) string {
	d := h.newHash()
	d.Write([]byte(prevHash))
	d.Write([]byte(payloadHash))
	return hex.EncodeToString(d.Sum(nil))
}
