/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"vaultsim/crypto"
	"vaultsim/data"
)

// Response is the discriminated result a group authority sends back for one
// request.  Every response carries the identifier of the request it answers;
// a protocol level failure travels in the response's Err field.
type Response interface {
	Kind() string
	ResponseMsgID() MessageID
}

// ConnectAck confirms the bootstrap handshake.  The client translates it
// into a Connected event rather than surfacing it as a response.
type ConnectAck struct {
	MsgID MessageID
}

func (ConnectAck) Kind() string               { return "ConnectAck" }
func (r ConnectAck) ResponseMsgID() MessageID { return r.MsgID }

// PutIDataResponse answers PutIData.
type PutIDataResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (PutIDataResponse) Kind() string               { return "PutIData" }
func (r PutIDataResponse) ResponseMsgID() MessageID { return r.MsgID }

// GetIDataResponse answers GetIData.
type GetIDataResponse struct {
	MsgID MessageID
	Data  data.ImmutableData
	Err   *data.ClientError
}

func (GetIDataResponse) Kind() string               { return "GetIData" }
func (r GetIDataResponse) ResponseMsgID() MessageID { return r.MsgID }

// PutMDataResponse answers PutMData.
type PutMDataResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (PutMDataResponse) Kind() string               { return "PutMData" }
func (r PutMDataResponse) ResponseMsgID() MessageID { return r.MsgID }

// GetMDataVersionResponse answers GetMDataVersion.
type GetMDataVersionResponse struct {
	MsgID   MessageID
	Version uint64
	Err     *data.ClientError
}

func (GetMDataVersionResponse) Kind() string               { return "GetMDataVersion" }
func (r GetMDataVersionResponse) ResponseMsgID() MessageID { return r.MsgID }

// GetMDataShellResponse answers GetMDataShell.
type GetMDataShellResponse struct {
	MsgID MessageID
	Shell *data.MutableData
	Err   *data.ClientError
}

func (GetMDataShellResponse) Kind() string               { return "GetMDataShell" }
func (r GetMDataShellResponse) ResponseMsgID() MessageID { return r.MsgID }

// ListMDataEntriesResponse answers ListMDataEntries.
type ListMDataEntriesResponse struct {
	MsgID   MessageID
	Entries map[string]data.Value
	Err     *data.ClientError
}

func (ListMDataEntriesResponse) Kind() string               { return "ListMDataEntries" }
func (r ListMDataEntriesResponse) ResponseMsgID() MessageID { return r.MsgID }

// GetMDataValueResponse answers GetMDataValue.
type GetMDataValueResponse struct {
	MsgID MessageID
	Value data.Value
	Err   *data.ClientError
}

func (GetMDataValueResponse) Kind() string               { return "GetMDataValue" }
func (r GetMDataValueResponse) ResponseMsgID() MessageID { return r.MsgID }

// MutateMDataEntriesResponse answers MutateMDataEntries.
type MutateMDataEntriesResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (MutateMDataEntriesResponse) Kind() string               { return "MutateMDataEntries" }
func (r MutateMDataEntriesResponse) ResponseMsgID() MessageID { return r.MsgID }

// ListMDataPermissionsResponse answers ListMDataPermissions.
type ListMDataPermissionsResponse struct {
	MsgID       MessageID
	Permissions map[data.User]data.PermissionSet
	Err         *data.ClientError
}

func (ListMDataPermissionsResponse) Kind() string               { return "ListMDataPermissions" }
func (r ListMDataPermissionsResponse) ResponseMsgID() MessageID { return r.MsgID }

// ListMDataUserPermissionsResponse answers ListMDataUserPermissions.
type ListMDataUserPermissionsResponse struct {
	MsgID       MessageID
	Permissions data.PermissionSet
	Err         *data.ClientError
}

func (ListMDataUserPermissionsResponse) Kind() string               { return "ListMDataUserPermissions" }
func (r ListMDataUserPermissionsResponse) ResponseMsgID() MessageID { return r.MsgID }

// SetMDataUserPermissionsResponse answers SetMDataUserPermissions.
type SetMDataUserPermissionsResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (SetMDataUserPermissionsResponse) Kind() string               { return "SetMDataUserPermissions" }
func (r SetMDataUserPermissionsResponse) ResponseMsgID() MessageID { return r.MsgID }

// DelMDataUserPermissionsResponse answers DelMDataUserPermissions.
type DelMDataUserPermissionsResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (DelMDataUserPermissionsResponse) Kind() string               { return "DelMDataUserPermissions" }
func (r DelMDataUserPermissionsResponse) ResponseMsgID() MessageID { return r.MsgID }

// ChangeMDataOwnerResponse answers ChangeMDataOwner.
type ChangeMDataOwnerResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (ChangeMDataOwnerResponse) Kind() string               { return "ChangeMDataOwner" }
func (r ChangeMDataOwnerResponse) ResponseMsgID() MessageID { return r.MsgID }

// GetAccountInfoResponse answers GetAccountInfo.
type GetAccountInfoResponse struct {
	MsgID MessageID
	Info  data.AccountInfo
	Err   *data.ClientError
}

func (GetAccountInfoResponse) Kind() string               { return "GetAccountInfo" }
func (r GetAccountInfoResponse) ResponseMsgID() MessageID { return r.MsgID }

// ListAuthKeysAndVersionResponse answers ListAuthKeysAndVersion.
type ListAuthKeysAndVersionResponse struct {
	MsgID   MessageID
	Keys    []crypto.PublicKey
	Version uint64
	Err     *data.ClientError
}

func (ListAuthKeysAndVersionResponse) Kind() string               { return "ListAuthKeysAndVersion" }
func (r ListAuthKeysAndVersionResponse) ResponseMsgID() MessageID { return r.MsgID }

// InsAuthKeyResponse answers InsAuthKey.
type InsAuthKeyResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (InsAuthKeyResponse) Kind() string               { return "InsAuthKey" }
func (r InsAuthKeyResponse) ResponseMsgID() MessageID { return r.MsgID }

// DelAuthKeyResponse answers DelAuthKey.
type DelAuthKeyResponse struct {
	MsgID MessageID
	Err   *data.ClientError
}

func (DelAuthKeyResponse) Kind() string               { return "DelAuthKey" }
func (r DelAuthKeyResponse) ResponseMsgID() MessageID { return r.MsgID }
