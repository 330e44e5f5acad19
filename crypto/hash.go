// Package crypto provides Keccak-256 hashing helpers. It holds no signing
// code: the Ed25519 signatures over the tower file are made and checked by
// package signerstore.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/towerbft/consensus-core/types"
)

// Keccak256 hashes the concatenation of data with Keccak-256. cmd/towerd's
// synthetic bank uses it (through Keccak256Hash) to derive bank hashes; it
// is not part of the tower file's signature computation.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash hashes data and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
