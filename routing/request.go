/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"vaultsim/crypto"
	"vaultsim/data"
)

// Request is one of the operations a client can address to a group
// authority.  Kind names the request for logging and diagnostics.
type Request interface {
	Kind() string
}

// Connect is the bootstrap handshake sent to the client's proxy node.
type Connect struct{}

func (Connect) Kind() string { return "Connect" }

// PutIData stores an immutable chunk.
type PutIData struct {
	Data data.ImmutableData
}

func (PutIData) Kind() string { return "PutIData" }

// GetIData fetches an immutable chunk by name.
type GetIData struct {
	Name crypto.XorName
}

func (GetIData) Kind() string { return "GetIData" }

// PutMData stores a new mutable record.
type PutMData struct {
	Data      *data.MutableData
	Requester crypto.PublicKey
}

func (PutMData) Kind() string { return "PutMData" }

// GetMDataVersion fetches a record's shell version.
type GetMDataVersion struct {
	Name crypto.XorName
	Tag  uint64
}

func (GetMDataVersion) Kind() string { return "GetMDataVersion" }

// GetMDataShell fetches a record with its entries stripped.
type GetMDataShell struct {
	Name crypto.XorName
	Tag  uint64
}

func (GetMDataShell) Kind() string { return "GetMDataShell" }

// ListMDataEntries fetches all entries of a record.
type ListMDataEntries struct {
	Name crypto.XorName
	Tag  uint64
}

func (ListMDataEntries) Kind() string { return "ListMDataEntries" }

// GetMDataValue fetches a single entry of a record.
type GetMDataValue struct {
	Name crypto.XorName
	Tag  uint64
	Key  []byte
}

func (GetMDataValue) Kind() string { return "GetMDataValue" }

// MutateMDataEntries applies an entry action batch to a record.
type MutateMDataEntries struct {
	Name      crypto.XorName
	Tag       uint64
	Actions   data.EntryActions
	Requester crypto.PublicKey
}

func (MutateMDataEntries) Kind() string { return "MutateMDataEntries" }

// ListMDataPermissions fetches a record's full permission map.
type ListMDataPermissions struct {
	Name crypto.XorName
	Tag  uint64
}

func (ListMDataPermissions) Kind() string { return "ListMDataPermissions" }

// ListMDataUserPermissions fetches one user's permission set.
type ListMDataUserPermissions struct {
	Name crypto.XorName
	Tag  uint64
	User data.User
}

func (ListMDataUserPermissions) Kind() string { return "ListMDataUserPermissions" }

// SetMDataUserPermissions installs one user's permission set.
type SetMDataUserPermissions struct {
	Name        crypto.XorName
	Tag         uint64
	User        data.User
	Permissions data.PermissionSet
	Version     uint64
	Requester   crypto.PublicKey
}

func (SetMDataUserPermissions) Kind() string { return "SetMDataUserPermissions" }

// DelMDataUserPermissions removes one user's permission set.
type DelMDataUserPermissions struct {
	Name      crypto.XorName
	Tag       uint64
	User      data.User
	Version   uint64
	Requester crypto.PublicKey
}

func (DelMDataUserPermissions) Kind() string { return "DelMDataUserPermissions" }

// ChangeMDataOwner replaces a record's owner set.
type ChangeMDataOwner struct {
	Name      crypto.XorName
	Tag       uint64
	NewOwners []crypto.PublicKey
	Version   uint64
}

func (ChangeMDataOwner) Kind() string { return "ChangeMDataOwner" }

// GetAccountInfo fetches the account's mutation budget.
type GetAccountInfo struct{}

func (GetAccountInfo) Kind() string { return "GetAccountInfo" }

// ListAuthKeysAndVersion fetches the account's authorised keys and their
// version.
type ListAuthKeysAndVersion struct{}

func (ListAuthKeysAndVersion) Kind() string { return "ListAuthKeysAndVersion" }

// InsAuthKey registers an authorised application key.
type InsAuthKey struct {
	Key     crypto.PublicKey
	Version uint64
}

func (InsAuthKey) Kind() string { return "InsAuthKey" }

// DelAuthKey removes an authorised application key.
type DelAuthKey struct {
	Key     crypto.PublicKey
	Version uint64
}

func (DelAuthKey) Kind() string { return "DelAuthKey" }
