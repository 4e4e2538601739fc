/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto holds the identity key material used by simulated clients
// and storage nodes, and the deterministic derivation of network addresses
// from public keys.  All generation is driven by caller supplied random
// streams so that a whole run replays from a single seed.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// XorNameLen is the byte length of a network address.
const XorNameLen = 32

// XorName is an address in the network's xor keyspace.
type XorName [XorNameLen]byte

func (n XorName) String() string {
	return hex.EncodeToString(n[:4]) + ".."
}

// CloserToTarget reports whether x is strictly closer to target than y,
// comparing xor distances bytewise from the most significant byte.
func CloserToTarget(x, y, target XorName) bool {
	for i := 0; i < XorNameLen; i++ {
		dx := x[i] ^ target[i]
		dy := y[i] ^ target[i]
		if dx != dy {
			return dx < dy
		}
	}

	return false
}

// RandomXorName draws an address uniformly from the keyspace.
func RandomXorName(rng *rand.Rand) XorName {
	var name XorName
	// rand.Rand.Read is documented never to fail.
	_, _ = rng.Read(name[:])
	return name
}

// PublicKey is an ed25519 verification key.
type PublicKey [ed25519.PublicKeySize]byte

func (k PublicKey) String() string {
	return hex.EncodeToString(k[:4]) + ".."
}

// XorNameFromKey derives the network address of the given public key.  The
// derivation is fixed network-wide, so every participant computes the same
// address from the public key alone.
func XorNameFromKey(key PublicKey) XorName {
	return blake3.Sum256(key[:])
}

// PublicID is the public half of a participant identity.
type PublicID struct {
	signKey PublicKey
}

// SigningKey returns the identity's verification key.
func (p PublicID) SigningKey() PublicKey {
	return p.signKey
}

// Name returns the network address derived from the identity.
func (p PublicID) Name() XorName {
	return XorNameFromKey(p.signKey)
}

// Verify checks sig over msg against the identity's verification key.
func (p PublicID) Verify(msg, sig []byte) bool {
	return ed25519.Verify(p.signKey[:], msg, sig)
}

// FullID is a complete participant identity including the secret signing key.
type FullID struct {
	public PublicID
	secret ed25519.PrivateKey
}

// NewFullID generates a fresh identity from the given random stream.
func NewFullID(rng *rand.Rand) FullID {
	pub, sec, err := ed25519.GenerateKey(rng)
	if err != nil {
		// The stream backed generator cannot fail.
		panic(errors.WithMessage(err, "could not generate identity key pair"))
	}

	var key PublicKey
	copy(key[:], pub)

	return FullID{
		public: PublicID{signKey: key},
		secret: sec,
	}
}

// Public returns the shareable half of the identity.
func (f FullID) Public() PublicID {
	return f.public
}

// Sign signs msg with the identity's secret key.
func (f FullID) Sign(msg []byte) []byte {
	return ed25519.Sign(f.secret, msg)
}
