// Package signerstore manages the Ed25519 validator identity keypair used to
// sign the persisted tower file. A validator has exactly one identity, so
// this store holds a single keypair rather than a directory of accounts.
package signerstore

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/towerbft/consensus-core/types"
)

// Store holds a validator's Ed25519 identity keypair in memory and signs on
// its behalf. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	pubkey  types.Pubkey
	private ed25519.PrivateKey
}

// Generate creates a fresh random validator identity.
func Generate() (*Store, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signerstore: generate key: %w", err)
	}
	return FromPrivateKey(priv), nil
}

// FromPrivateKey wraps an existing Ed25519 private key (e.g. loaded from a
// validator identity file) in a Store.
func FromPrivateKey(priv ed25519.PrivateKey) *Store {
	pub := priv.Public().(ed25519.PublicKey)
	return &Store{
		pubkey:  types.BytesToPubkey(pub),
		private: priv,
	}
}

// Pubkey returns the validator identity's public key.
func (s *Store) Pubkey() types.Pubkey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pubkey
}

// Sign signs data with the held identity and returns a 64-byte Ed25519
// signature.
func (s *Store) Sign(data []byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ed25519.Sign(s.private, data)
}

// Verify reports whether sig is a valid Ed25519 signature over data under
// pubkey.
func Verify(pubkey types.Pubkey, data, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pubkey.Bytes()), data, sig)
}
