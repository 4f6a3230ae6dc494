package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes. The version suffix allows a
// future algorithm migration.
const (
	DomainValue = "deltasim/value/v1"
	DomainModel = "deltasim/model/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator removes domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of v. Structurally equal values have equal
// hashes.
func Hash(v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash value: %w", err)
	}
	return hashWithDomain(DomainValue, data), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when v is known to be encodable.
func MustHash(v Value) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// HashBytes hashes arbitrary canonical bytes under the given domain.
// Used to identify compiled models.
func HashBytes(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}
