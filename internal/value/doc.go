// Package value provides the immutable value structures carried by signals.
//
// This package contains data types only. Every other internal package may
// import value; value imports nothing internal.
//
// Key design constraints:
//   - Values are sealed variants; only this package implements Value
//   - Values are never mutated after construction; a change is a new Value
//   - Equality is structural (see Equal)
//   - Real numbers are exact decimals (apd), never binary floats
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only encoding
//     used for hashing and for the trace store
package value
