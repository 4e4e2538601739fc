/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package data

import (
	"sort"

	"vaultsim/crypto"
)

const (
	// MaxMutableDataEntries caps the number of entries in one record.
	MaxMutableDataEntries = 100

	// MaxMutableDataBytes caps the total size of all entry content.
	MaxMutableDataBytes = 1024 * 1024
)

// Value is a single versioned entry.  EntryVersion starts at 0 and bumps by
// exactly 1 on every successful mutation of the key.
type Value struct {
	Content      []byte
	EntryVersion uint64
}

// User identifies a permission subject: either any requester, or a specific
// signing key.
type User struct {
	Anyone bool
	Key    crypto.PublicKey
}

// AnyoneUser is the wildcard permission subject.
func AnyoneUser() User {
	return User{Anyone: true}
}

// KeyUser is the permission subject for a specific signing key.
func KeyUser(key crypto.PublicKey) User {
	return User{Key: key}
}

// Action is a permission controlled operation class on a mutable record.
type Action int

const (
	ActionInsert Action = iota
	ActionUpdate
	ActionDelete
	ActionManagePermissions
)

// Perm is a tri-state permission: unset falls through to the next applicable
// rule, allow and deny are definitive.
type Perm int8

const (
	PermUnset Perm = iota
	PermAllow
	PermDeny
)

// PermissionSet holds the per-action rules for one user.
type PermissionSet struct {
	Insert            Perm
	Update            Perm
	Delete            Perm
	ManagePermissions Perm
}

// Allow returns a copy of the set with the given action allowed.
func (s PermissionSet) Allow(action Action) PermissionSet {
	s.set(action, PermAllow)
	return s
}

// Deny returns a copy of the set with the given action denied.
func (s PermissionSet) Deny(action Action) PermissionSet {
	s.set(action, PermDeny)
	return s
}

func (s *PermissionSet) set(action Action, perm Perm) {
	switch action {
	case ActionInsert:
		s.Insert = perm
	case ActionUpdate:
		s.Update = perm
	case ActionDelete:
		s.Delete = perm
	case ActionManagePermissions:
		s.ManagePermissions = perm
	}
}

func (s PermissionSet) get(action Action) Perm {
	switch action {
	case ActionInsert:
		return s.Insert
	case ActionUpdate:
		return s.Update
	case ActionDelete:
		return s.Delete
	case ActionManagePermissions:
		return s.ManagePermissions
	default:
		return PermUnset
	}
}

// EntryActionKind discriminates the three entry mutations.
type EntryActionKind int

const (
	// InsertAction adds a key that must be absent, at version 0.
	InsertAction EntryActionKind = iota
	// UpdateAction replaces the content of a present key.
	UpdateAction
	// DeleteAction removes a present key.
	DeleteAction
)

// EntryAction is one mutation against one key.  For updates and deletes,
// EntryVersion must equal the key's current version + 1.
type EntryAction struct {
	Kind         EntryActionKind
	Content      []byte
	EntryVersion uint64
}

// EntryActions is a batch of entry mutations keyed by entry key.  The map
// form guarantees no key is targeted twice.
type EntryActions map[string]EntryAction

// NewEntryActions returns an empty batch.
func NewEntryActions() EntryActions {
	return EntryActions{}
}

// Ins adds an insert action for key.
func (a EntryActions) Ins(key, content []byte, version uint64) EntryActions {
	a[string(key)] = EntryAction{Kind: InsertAction, Content: content, EntryVersion: version}
	return a
}

// Update adds an update action for key.
func (a EntryActions) Update(key, content []byte, version uint64) EntryActions {
	a[string(key)] = EntryAction{Kind: UpdateAction, Content: content, EntryVersion: version}
	return a
}

// Del adds a delete action for key.
func (a EntryActions) Del(key []byte, version uint64) EntryActions {
	a[string(key)] = EntryAction{Kind: DeleteAction, EntryVersion: version}
	return a
}

// MutableData is a versioned key/value record identified by (name, tag).
// The shell version covers permission and ownership changes; each entry
// carries its own version.
type MutableData struct {
	name        crypto.XorName
	tag         uint64
	version     uint64
	entries     map[string]Value
	permissions map[User]PermissionSet
	owners      map[crypto.PublicKey]struct{}
}

// NewMutableData validates and builds a record.  Exactly one owner is
// required; the entry count and total size caps are enforced.
func NewMutableData(
	name crypto.XorName,
	tag uint64,
	permissions map[User]PermissionSet,
	entries map[string]Value,
	owners []crypto.PublicKey,
) (*MutableData, *ClientError) {
	if len(owners) != 1 {
		return nil, NewClientErrorf(InvalidOwners, "expected exactly 1 owner, got %d", len(owners))
	}

	md := &MutableData{
		name:        name,
		tag:         tag,
		entries:     map[string]Value{},
		permissions: map[User]PermissionSet{},
		owners:      map[crypto.PublicKey]struct{}{},
	}

	for key, value := range entries {
		md.entries[key] = value
	}
	for user, set := range permissions {
		md.permissions[user] = set
	}
	for _, owner := range owners {
		md.owners[owner] = struct{}{}
	}

	if err := md.validate(); err != nil {
		return nil, err
	}

	return md, nil
}

func (md *MutableData) validate() *ClientError {
	if len(md.entries) > MaxMutableDataEntries {
		return NewClientErrorf(TooManyEntries, "%d entries exceed the cap of %d", len(md.entries), MaxMutableDataEntries)
	}

	if md.SerialisedSize() > MaxMutableDataBytes {
		return NewClientErrorf(InvalidOperation, "record exceeds %d bytes", MaxMutableDataBytes)
	}

	return nil
}

// Name returns the record's address.
func (md *MutableData) Name() crypto.XorName {
	return md.name
}

// Tag returns the record's type tag.
func (md *MutableData) Tag() uint64 {
	return md.tag
}

// Version returns the shell version.
func (md *MutableData) Version() uint64 {
	return md.version
}

// SerialisedSize approximates the record's wire size as the sum of entry key
// and content lengths.  Used only against the size cap.
func (md *MutableData) SerialisedSize() int {
	size := 0
	for key, value := range md.entries {
		size += len(key) + len(value.Content)
	}

	return size
}

// Keys returns the entry keys in sorted order.
func (md *MutableData) Keys() [][]byte {
	keys := make([]string, 0, len(md.entries))
	for key := range md.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([][]byte, len(keys))
	for i, key := range keys {
		out[i] = []byte(key)
	}

	return out
}

// Get returns the value for key, if present.
func (md *MutableData) Get(key []byte) (Value, bool) {
	value, ok := md.entries[string(key)]
	return value, ok
}

// Entries returns a copy of the entry map.
func (md *MutableData) Entries() map[string]Value {
	out := make(map[string]Value, len(md.entries))
	for key, value := range md.entries {
		out[key] = value
	}

	return out
}

// EntryCount returns the number of entries.
func (md *MutableData) EntryCount() int {
	return len(md.entries)
}

// Owners returns the owner keys.
func (md *MutableData) Owners() []crypto.PublicKey {
	out := make([]crypto.PublicKey, 0, len(md.owners))
	for owner := range md.owners {
		out = append(out, owner)
	}

	return out
}

// IsOwner reports whether key is in the owner set.
func (md *MutableData) IsOwner(key crypto.PublicKey) bool {
	_, ok := md.owners[key]
	return ok
}

// Permissions returns a copy of the permission map.
func (md *MutableData) Permissions() map[User]PermissionSet {
	out := make(map[User]PermissionSet, len(md.permissions))
	for user, set := range md.permissions {
		out[user] = set
	}

	return out
}

// UserPermissions returns the permission set for user, if any.
func (md *MutableData) UserPermissions(user User) (PermissionSet, bool) {
	set, ok := md.permissions[user]
	return set, ok
}

// IsActionAllowed decides whether requester may perform action.  Owners may
// do anything.  Otherwise the requester's own rule applies if set, then the
// wildcard rule, then deny.
func (md *MutableData) IsActionAllowed(requester crypto.PublicKey, action Action) bool {
	if md.IsOwner(requester) {
		return true
	}

	if set, ok := md.permissions[KeyUser(requester)]; ok {
		if perm := set.get(action); perm != PermUnset {
			return perm == PermAllow
		}
	}

	if set, ok := md.permissions[AnyoneUser()]; ok {
		if perm := set.get(action); perm != PermUnset {
			return perm == PermAllow
		}
	}

	return false
}

// MutateEntries applies a batch atomically.  Every action is validated
// first; on any failure nothing is applied and the per-key failures are
// reported.  On success, updated keys carry the action's version and
// inserted keys version 0.
func (md *MutableData) MutateEntries(actions EntryActions, requester crypto.PublicKey) *ClientError {
	entryErrors := map[string]EntryError{}

	for key, action := range actions {
		current, exists := md.entries[key]

		switch action.Kind {
		case InsertAction:
			if exists {
				entryErrors[key] = EntryError{Kind: EntryExists, CurrentVersion: current.EntryVersion}
			}
		case UpdateAction, DeleteAction:
			if !exists {
				entryErrors[key] = EntryError{Kind: EntryNoSuchEntry}
			} else if action.EntryVersion != current.EntryVersion+1 {
				entryErrors[key] = EntryError{Kind: EntryInvalidSuccessor, CurrentVersion: current.EntryVersion}
			}
		}

		if !md.IsActionAllowed(requester, permissionClass(action.Kind)) {
			return NewClientError(AccessDenied)
		}
	}

	if len(entryErrors) > 0 {
		return &ClientError{Kind: InvalidEntryActions, EntryErrors: entryErrors}
	}

	applied := md.Entries()
	for key, action := range actions {
		switch action.Kind {
		case InsertAction:
			applied[key] = Value{Content: action.Content, EntryVersion: 0}
		case UpdateAction:
			applied[key] = Value{Content: action.Content, EntryVersion: action.EntryVersion}
		case DeleteAction:
			delete(applied, key)
		}
	}

	if len(applied) > MaxMutableDataEntries {
		return NewClientErrorf(TooManyEntries, "%d entries exceed the cap of %d", len(applied), MaxMutableDataEntries)
	}

	md.entries = applied

	return nil
}

func permissionClass(kind EntryActionKind) Action {
	switch kind {
	case InsertAction:
		return ActionInsert
	case UpdateAction:
		return ActionUpdate
	default:
		return ActionDelete
	}
}

// SetUserPermissions installs the permission set for user.  version must be
// the successor of the shell version.
func (md *MutableData) SetUserPermissions(user User, set PermissionSet, version uint64, requester crypto.PublicKey) *ClientError {
	if !md.IsActionAllowed(requester, ActionManagePermissions) {
		return NewClientError(AccessDenied)
	}

	if version != md.version+1 {
		return NewClientErrorf(InvalidSuccessor, "expected shell version %d, got %d", md.version+1, version)
	}

	md.permissions[user] = set
	md.version = version

	return nil
}

// DelUserPermissions removes the permission set for user.  version must be
// the successor of the shell version.
func (md *MutableData) DelUserPermissions(user User, version uint64, requester crypto.PublicKey) *ClientError {
	if !md.IsActionAllowed(requester, ActionManagePermissions) {
		return NewClientError(AccessDenied)
	}

	if version != md.version+1 {
		return NewClientErrorf(InvalidSuccessor, "expected shell version %d, got %d", md.version+1, version)
	}

	if _, ok := md.permissions[user]; !ok {
		return NewClientError(NoSuchKey)
	}

	delete(md.permissions, user)
	md.version = version

	return nil
}

// ChangeOwner replaces the owner set.  Only a current owner may do this,
// and version must be the successor of the shell version.
func (md *MutableData) ChangeOwner(newOwners []crypto.PublicKey, version uint64, requester crypto.PublicKey) *ClientError {
	if !md.IsOwner(requester) {
		return NewClientError(AccessDenied)
	}

	if len(newOwners) != 1 {
		return NewClientErrorf(InvalidOwners, "expected exactly 1 owner, got %d", len(newOwners))
	}

	if version != md.version+1 {
		return NewClientErrorf(InvalidSuccessor, "expected shell version %d, got %d", md.version+1, version)
	}

	md.owners = map[crypto.PublicKey]struct{}{}
	for _, owner := range newOwners {
		md.owners[owner] = struct{}{}
	}
	md.version = version

	return nil
}

// Shell returns a copy of the record with its entries stripped, keeping
// name, tag, shell version, permissions and owners.
func (md *MutableData) Shell() *MutableData {
	shell := &MutableData{
		name:        md.name,
		tag:         md.tag,
		version:     md.version,
		entries:     map[string]Value{},
		permissions: md.Permissions(),
		owners:      map[crypto.PublicKey]struct{}{},
	}
	for owner := range md.owners {
		shell.owners[owner] = struct{}{}
	}

	return shell
}

// Clone returns a deep copy of the record.
func (md *MutableData) Clone() *MutableData {
	clone := md.Shell()
	clone.entries = md.Entries()

	return clone
}
