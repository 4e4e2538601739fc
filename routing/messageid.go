/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"encoding/hex"
	"math/rand"
)

// MessageIDLen is the byte length of a message identifier.
const MessageIDLen = 16

// MessageID correlates a response event with the request that caused it.
// Correlation is by equality only; no ordering is implied.
type MessageID [MessageIDLen]byte

// NewMessageID draws a fresh identifier from the given random stream.
func NewMessageID(rng *rand.Rand) MessageID {
	var id MessageID
	_, _ = rng.Read(id[:])
	return id
}

func (id MessageID) String() string {
	return hex.EncodeToString(id[:4]) + ".."
}

// Bytes returns the identifier as a byte slice, e.g. for signing.
func (id MessageID) Bytes() []byte {
	out := make([]byte, MessageIDLen)
	copy(out, id[:])
	return out
}
