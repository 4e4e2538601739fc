/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"vaultsim/crypto"
)

// ChunkStore persists immutable chunks, keyed by their content derived
// name.  The backing db lives in memory; chunks only need to survive for
// the duration of a simulation run.
type ChunkStore struct {
	db *badger.DB
}

// OpenChunkStore opens a fresh in-memory chunk store.
func OpenChunkStore() (*ChunkStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open backing db")
	}

	return &ChunkStore{db: db}, nil
}

// Put stores content under name.  Storing the same name twice is a no-op
// as long as chunks are content addressed.
func (s *ChunkStore) Put(name crypto.XorName, content []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(name[:], content)
	})
}

// Get returns the chunk stored under name, if any.
func (s *ChunkStore) Get(name crypto.XorName) ([]byte, bool, error) {
	var content []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(name[:])
		if err != nil {
			return err
		}

		content, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithMessagef(err, "could not read chunk %s", name)
	}

	return content, true, nil
}

// Has reports whether a chunk is stored under name.
func (s *ChunkStore) Has(name crypto.XorName) (bool, error) {
	_, ok, err := s.Get(name)
	return ok, err
}

// Close releases the backing db.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}
