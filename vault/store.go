/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vault implements the simulated storage node: a network
// participant that holds immutable chunks, versioned mutable records and
// client accounts, and answers the request kinds the routing layer
// delivers to group authorities.  One Store is shared by all nodes of a
// simulated network, standing in for the converged state of a storage
// group.
package vault

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"vaultsim/crypto"
	"vaultsim/data"
)

// DefaultAccountSize is the mutation allowance granted to a new account.
const DefaultAccountSize = 1000

type mdataKey struct {
	name crypto.XorName
	tag  uint64
}

type account struct {
	info        data.AccountInfo
	authKeys    map[crypto.PublicKey]struct{}
	keysVersion uint64
}

// Store holds the converged state of the simulated storage group.
type Store struct {
	logger   *zap.Logger
	chunks   *ChunkStore
	mutlog   *MutationLog
	mdata    map[mdataKey]*data.MutableData
	accounts map[crypto.XorName]*account
}

// NewStore opens a store whose mutation journal lives under dirPath.
func NewStore(dirPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chunks, err := OpenChunkStore()
	if err != nil {
		return nil, err
	}

	mutlog, err := OpenMutationLog(filepath.Join(dirPath, "mutations"))
	if err != nil {
		chunks.Close()
		return nil, err
	}

	return &Store{
		logger:   logger,
		chunks:   chunks,
		mutlog:   mutlog,
		mdata:    map[mdataKey]*data.MutableData{},
		accounts: map[crypto.XorName]*account{},
	}, nil
}

// Close releases the store's chunk db and journal.
func (s *Store) Close() error {
	err := s.chunks.Close()
	if logErr := s.mutlog.Close(); err == nil {
		err = logErr
	}

	return err
}

// MutationLog exposes the journal of applied mutations.
func (s *Store) MutationLog() *MutationLog {
	return s.mutlog
}

// AccountAt returns the account info registered at the given manager name.
func (s *Store) AccountAt(name crypto.XorName) (data.AccountInfo, bool) {
	acc, ok := s.accounts[name]
	if !ok {
		return data.AccountInfo{}, false
	}

	return acc.info, true
}

// spend charges one mutation against the account, which must exist and
// have balance; callers check both beforehand via requireSpendable.
func (s *Store) spend(acc *account) {
	acc.info.MutationsDone++
	acc.info.MutationsAvailable--
}

func (s *Store) requireSpendable(managerName crypto.XorName) (*account, *data.ClientError) {
	acc, ok := s.accounts[managerName]
	if !ok {
		return nil, data.NewClientError(data.NoSuchAccount)
	}

	if acc.info.MutationsAvailable == 0 {
		return nil, data.NewClientError(data.LowBalance)
	}

	return acc, nil
}

// authorizeMutation checks that requester may mutate through the account at
// managerName: either it is the account owner, or it is a registered app
// key.
func (s *Store) authorizeMutation(managerName crypto.XorName, requester crypto.PublicKey) *data.ClientError {
	if crypto.XorNameFromKey(requester) == managerName {
		return nil
	}

	acc, ok := s.accounts[managerName]
	if !ok {
		return data.NewClientError(data.NoSuchAccount)
	}

	if _, ok := acc.authKeys[requester]; !ok {
		return data.NewClientError(data.AccessDenied)
	}

	return nil
}

// putIData stores an immutable chunk.  Re-storing an existing chunk
// succeeds: content addressing makes the two writes the same record.
func (s *Store) putIData(managerName crypto.XorName, d data.ImmutableData) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	if err := s.chunks.Put(d.Name(), d.Content()); err != nil {
		s.logger.Error("chunk write failed", zap.Error(err))
		return data.NewClientErrorf(data.NetworkOther, "%s", err)
	}

	s.spend(acc)

	return nil
}

// getIData fetches an immutable chunk by name.
func (s *Store) getIData(name crypto.XorName) (data.ImmutableData, *data.ClientError) {
	content, ok, err := s.chunks.Get(name)
	if err != nil {
		s.logger.Error("chunk read failed", zap.Error(err))
		return data.ImmutableData{}, data.NewClientErrorf(data.NetworkOther, "%s", err)
	}
	if !ok {
		return data.ImmutableData{}, data.NewClientError(data.NoSuchData)
	}

	return data.NewImmutableData(content), nil
}

// putMData stores a new mutable record.  A session packet record also
// registers the account at managerName; its put is the account's first
// charged mutation.
func (s *Store) putMData(managerName crypto.XorName, md *data.MutableData, requester crypto.PublicKey) *data.ClientError {
	key := mdataKey{name: md.Name(), tag: md.Tag()}
	if _, ok := s.mdata[key]; ok {
		return data.NewClientError(data.DataExists)
	}

	if md.Tag() == data.TypeTagSessionPacket {
		if crypto.XorNameFromKey(requester) != managerName {
			return data.NewClientError(data.AccessDenied)
		}
		if _, ok := s.accounts[managerName]; ok {
			return data.NewClientError(data.AccountExists)
		}

		s.accounts[managerName] = &account{
			info: data.AccountInfo{
				MutationsDone:      1,
				MutationsAvailable: DefaultAccountSize - 1,
			},
			authKeys: map[crypto.PublicKey]struct{}{},
		}
		s.mdata[key] = md.Clone()

		return nil
	}

	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	s.mdata[key] = md.Clone()
	s.spend(acc)

	return nil
}

func (s *Store) getMData(name crypto.XorName, tag uint64) (*data.MutableData, *data.ClientError) {
	md, ok := s.mdata[mdataKey{name: name, tag: tag}]
	if !ok {
		return nil, data.NewClientError(data.NoSuchData)
	}

	return md, nil
}

// mutateEntries applies an action batch to a stored record.
func (s *Store) mutateEntries(managerName crypto.XorName, name crypto.XorName, tag uint64, actions data.EntryActions, requester crypto.PublicKey) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	md, cerr := s.getMData(name, tag)
	if cerr != nil {
		return cerr
	}

	if cerr := md.MutateEntries(actions, requester); cerr != nil {
		return cerr
	}

	s.spend(acc)

	return nil
}

func (s *Store) setUserPermissions(managerName crypto.XorName, req permissionChange) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	md, cerr := s.getMData(req.name, req.tag)
	if cerr != nil {
		return cerr
	}

	if req.del {
		cerr = md.DelUserPermissions(req.user, req.version, req.requester)
	} else {
		cerr = md.SetUserPermissions(req.user, req.permissions, req.version, req.requester)
	}
	if cerr != nil {
		return cerr
	}

	s.spend(acc)

	return nil
}

type permissionChange struct {
	name        crypto.XorName
	tag         uint64
	user        data.User
	permissions data.PermissionSet
	version     uint64
	requester   crypto.PublicKey
	del         bool
}

func (s *Store) changeOwner(managerName crypto.XorName, name crypto.XorName, tag uint64, newOwners []crypto.PublicKey, version uint64, requester crypto.PublicKey) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	md, cerr := s.getMData(name, tag)
	if cerr != nil {
		return cerr
	}

	if cerr := md.ChangeOwner(newOwners, version, requester); cerr != nil {
		return cerr
	}

	s.spend(acc)

	return nil
}

func (s *Store) accountInfo(managerName crypto.XorName) (data.AccountInfo, *data.ClientError) {
	acc, ok := s.accounts[managerName]
	if !ok {
		return data.AccountInfo{}, data.NewClientError(data.NoSuchAccount)
	}

	return acc.info, nil
}

func (s *Store) listAuthKeys(managerName crypto.XorName) ([]crypto.PublicKey, uint64, *data.ClientError) {
	acc, ok := s.accounts[managerName]
	if !ok {
		return nil, 0, data.NewClientError(data.NoSuchAccount)
	}

	keys := make([]crypto.PublicKey, 0, len(acc.authKeys))
	for key := range acc.authKeys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return crypto.CloserToTarget(crypto.XorNameFromKey(keys[i]), crypto.XorNameFromKey(keys[j]), crypto.XorName{})
	})

	return keys, acc.keysVersion, nil
}

func (s *Store) insAuthKey(managerName crypto.XorName, key crypto.PublicKey, version uint64) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	if version != acc.keysVersion+1 {
		return data.NewClientErrorf(data.InvalidSuccessor, "expected keys version %d, got %d", acc.keysVersion+1, version)
	}
	if _, ok := acc.authKeys[key]; ok {
		return data.NewClientError(data.KeyExists)
	}

	acc.authKeys[key] = struct{}{}
	acc.keysVersion = version
	s.spend(acc)

	return nil
}

func (s *Store) delAuthKey(managerName crypto.XorName, key crypto.PublicKey, version uint64) *data.ClientError {
	acc, cerr := s.requireSpendable(managerName)
	if cerr != nil {
		return cerr
	}

	if version != acc.keysVersion+1 {
		return data.NewClientErrorf(data.InvalidSuccessor, "expected keys version %d, got %d", acc.keysVersion+1, version)
	}
	if _, ok := acc.authKeys[key]; !ok {
		return data.NewClientError(data.NoSuchKey)
	}

	delete(acc.authKeys, key)
	acc.keysVersion = version
	s.spend(acc)

	return nil
}

func (s *Store) journal(rec MutationRecord) {
	if err := s.mutlog.Append(rec); err != nil {
		// The journal is diagnostic; a write failure must not change the
		// protocol outcome, but it is loud in the logs.
		s.logger.Error("mutation journal append failed", zap.Error(errors.WithMessage(err, rec.Op)))
	}
}
