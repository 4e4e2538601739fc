/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package data defines the value types stored on the simulated network:
// content addressed immutable blobs and versioned mutable records, together
// with the entry action batches that mutate them and the typed failures a
// request can come back with.
package data

import (
	"vaultsim/crypto"

	"github.com/zeebo/blake3"
)

// MaxImmutableDataBytes caps the content of a single immutable chunk.
// Larger payloads are dropped by the routing layer before they leave the
// client.
const MaxImmutableDataBytes = 1024 * 1024

// ImmutableData is a content addressed blob.  Its name is a fixed function
// of its content, so two blobs with identical bytes are the same record.
type ImmutableData struct {
	name    crypto.XorName
	content []byte
}

// NewImmutableData wraps content as an immutable record.  The content is not
// copied; callers must not mutate it afterwards.
func NewImmutableData(content []byte) ImmutableData {
	return ImmutableData{
		name:    blake3.Sum256(content),
		content: content,
	}
}

// Name returns the content derived address of the record.
func (d ImmutableData) Name() crypto.XorName {
	return d.name
}

// Content returns the record's bytes.
func (d ImmutableData) Content() []byte {
	return d.content
}

// Len returns the content length in bytes.
func (d ImmutableData) Len() int {
	return len(d.content)
}
