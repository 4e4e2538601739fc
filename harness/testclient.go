/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package harness bridges the asynchronous simulated network into the
// blocking request/response calls sequential test code wants to make.
// Every wait-for-result operation sends one request, drives the network to
// quiescence, and demands exactly one correlated response; anything else
// observed is a contract violation and aborts the test loudly.
package harness

import (
	"fmt"
	"math/rand"
	"time"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
	"vaultsim/routing"
)

// ClientMsgExpiry is the nominal duration clients expect a response by.
// The protocol layer carries it on every request; the polling loop itself
// is bounded by quiescence, not time.
const ClientMsgExpiry = 90 * time.Second

// TestClient wraps an asynchronous routing client so tests can issue
// requests synchronously.  Requests are issued one at a time; correlation
// is by message identifier alone.
//
// Drain rule: read-style operations drain stale queued events before
// sending, so a leftover event from an earlier operation can never be
// mistaken for the response.  Write-style operations do not drain; their
// own response is the next event expected.
type TestClient struct {
	network       *routing.Network
	client        *routing.Client
	fullID        crypto.FullID
	clientManager authority.Authority
	rng           *rand.Rand
}

// New creates a test client with a fresh identity.
func New(net *routing.Network, bootstrap *routing.BootstrapConfig) *TestClient {
	return WithID(net, bootstrap, crypto.NewFullID(net.NewRand()))
}

// WithID creates a test client with the given identity.
func WithID(net *routing.Network, bootstrap *routing.BootstrapConfig, fullID crypto.FullID) *TestClient {
	client := routing.NewClient(net, fullID, bootstrap, ClientMsgExpiry)

	return &TestClient{
		network:       net,
		client:        client,
		fullID:        fullID,
		clientManager: authority.ClientManagerFor(fullID.Public().SigningKey()).ToAuthority(),
		rng:           net.NewRand(),
	}
}

// SetClientManager rebinds the manager authority all mutation requests are
// sent to.  By default it is this client's own manager; rebinding lets one
// client emulate an app acting on behalf of a different account owner.
// Purely a local addressing change.
func (c *TestClient) SetClientManager(name crypto.XorName) {
	c.clientManager = authority.ClientManager(name)
}

// FullID returns the client's identity.
func (c *TestClient) FullID() crypto.FullID {
	return c.fullID
}

// SigningPublicKey returns the client's public signing key.
func (c *TestClient) SigningPublicKey() crypto.PublicKey {
	return c.fullID.Public().SigningKey()
}

// Name returns the client's network name.
func (c *TestClient) Name() crypto.XorName {
	return c.fullID.Public().Name()
}

// Authority returns the client's own authority.
func (c *TestClient) Authority() authority.ClientAuthority {
	return c.client.Authority()
}

// TryRecv returns the next event received from routing, if any.
func (c *TestClient) TryRecv() (routing.Event, bool) {
	return c.client.TryNextEvent()
}

// Poll drives the whole simulation to quiescence and returns the number of
// rounds that made progress.
func (c *TestClient) Poll() int {
	return c.network.PollToQuiescence()
}

// PollOnce runs a single simulation round.
func (c *TestClient) PollOnce() bool {
	return c.network.Poll()
}

// Flush discards all queued events and returns how many were dropped.
func (c *TestClient) Flush() int {
	dropped := 0
	for {
		if _, ok := c.TryRecv(); !ok {
			return dropped
		}
		dropped++
	}
}

// EnsureConnected drives the network until quiescent and requires that the
// client observed its connection confirmation.
func (c *TestClient) EnsureConnected() {
	c.Poll()

	ev, ok := c.TryRecv()
	if !ok {
		panic("expected Connected event, got none")
	}
	if _, isConnected := ev.(routing.ConnectedEvent); !isConnected {
		panic(fmt.Sprintf("expected Connected event, got %v", ev))
	}
}

func (c *TestClient) newMsgID() routing.MessageID {
	return routing.NewMessageID(c.rng)
}

// unwrap panics on infrastructure errors from the async client; they mean
// the harness itself is broken, not the operation.
func unwrap(err error) {
	if err != nil {
		panic(fmt.Sprintf("routing send failed: %v", err))
	}
}

// clientErr converts a typed protocol failure into a plain error result,
// preserving nil-ness.
func clientErr(cerr *data.ClientError) error {
	if cerr == nil {
		return nil
	}

	return cerr
}

// expectResponse inspects the next observed event and demands a response
// of type R correlated with requestMsgID.  A Terminated event yields an
// InvalidOperation outcome when the caller expects the oversized edge
// case; every other surprise is fatal.
func expectResponse[R routing.Response](c *TestClient, requestMsgID routing.MessageID, oversized bool) (R, *data.ClientError) {
	var zero R

	ev, ok := c.TryRecv()
	if !ok {
		panic(fmt.Sprintf("no event received for request %s", requestMsgID))
	}

	switch e := ev.(type) {
	case routing.ResponseEvent:
		resp, ok := e.Response.(R)
		if !ok {
			panic(fmt.Sprintf("unexpected response %s to request %s (expecting %T)", e.Response.Kind(), requestMsgID, zero))
		}
		if resp.ResponseMsgID() != requestMsgID {
			panic(fmt.Sprintf("response %s correlates with %s, not the issued request %s", resp.Kind(), resp.ResponseMsgID(), requestMsgID))
		}
		return resp, nil

	case routing.TerminatedEvent:
		if oversized {
			return zero, data.NewClientError(data.InvalidOperation)
		}
		panic("unexpected termination while a request was outstanding")

	default:
		panic(fmt.Sprintf("unexpected event: %v", ev))
	}
}

// firstErr keeps the transport-level outcome when present, otherwise the
// response's own result.
func firstErr(transport, resp *data.ClientError) error {
	if transport != nil {
		return transport
	}

	return clientErr(resp)
}

// PutIData enqueues an immutable data store request and returns its
// message identifier without waiting.
func (c *TestClient) PutIData(d data.ImmutableData) routing.MessageID {
	msgID := c.newMsgID()
	c.PutIDataWithMsgID(d, msgID)
	return msgID
}

// PutIDataWithMsgID enqueues an immutable data store request under the
// given message identifier.
func (c *TestClient) PutIDataWithMsgID(d data.ImmutableData, msgID routing.MessageID) {
	unwrap(c.client.SendPutIData(c.clientManager, d, msgID))
}

// PutIDataResponse stores immutable data and waits for the outcome.
func (c *TestClient) PutIDataResponse(d data.ImmutableData) error {
	msgID := c.PutIData(d)
	c.Poll()

	resp, cerr := expectResponse[routing.PutIDataResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// PutIDataResponseWithMsgID stores immutable data under the given message
// identifier and waits for the outcome.
func (c *TestClient) PutIDataResponseWithMsgID(d data.ImmutableData, msgID routing.MessageID) error {
	c.PutIDataWithMsgID(d, msgID)
	c.Poll()

	resp, cerr := expectResponse[routing.PutIDataResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// PutLargeIData stores an oversized immutable chunk, expecting the routing
// layer to refuse it.
func (c *TestClient) PutLargeIData(d data.ImmutableData) error {
	msgID := c.PutIData(d)
	c.Poll()

	resp, cerr := expectResponse[routing.PutIDataResponse](c, msgID, true)
	return firstErr(cerr, resp.Err)
}

// PutIDataMayResponse stores immutable data and waits, tolerating a
// missing response: unlike PutIDataResponse it reports quiescence without
// an event as an outcome instead of aborting.
func (c *TestClient) PutIDataMayResponse(d data.ImmutableData) error {
	msgID := c.PutIData(d)
	c.Poll()

	ev, ok := c.TryRecv()
	if !ok {
		return data.NewClientErrorf(data.NetworkOther, "no response")
	}

	respEv, ok := ev.(routing.ResponseEvent)
	if !ok {
		panic(fmt.Sprintf("unexpected event: %v", ev))
	}
	resp, ok := respEv.Response.(routing.PutIDataResponse)
	if !ok {
		panic(fmt.Sprintf("unexpected response: %s", respEv.Response.Kind()))
	}
	if resp.MsgID != msgID {
		panic(fmt.Sprintf("response correlates with %s, not the issued request %s", resp.MsgID, msgID))
	}

	return clientErr(resp.Err)
}

// GetIDataResponse fetches immutable data by name.
func (c *TestClient) GetIDataResponse(name crypto.XorName) (data.ImmutableData, error) {
	d, _, err := c.GetIDataResponseWithSrc(name)
	return d, err
}

// GetIDataResponseWithSrc fetches immutable data by name and also returns
// the authority that served it.
func (c *TestClient) GetIDataResponseWithSrc(name crypto.XorName) (data.ImmutableData, authority.Authority, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendGetIData(authority.NaeManager(name), name, msgID))
	c.Poll()

	ev, ok := c.TryRecv()
	if !ok {
		panic(fmt.Sprintf("no event received for request %s", msgID))
	}
	respEv, isResp := ev.(routing.ResponseEvent)
	if !isResp {
		panic(fmt.Sprintf("unexpected event: %v", ev))
	}
	resp, isGet := respEv.Response.(routing.GetIDataResponse)
	if !isGet {
		panic(fmt.Sprintf("unexpected response: %s", respEv.Response.Kind()))
	}
	if resp.MsgID != msgID {
		panic(fmt.Sprintf("response correlates with %s, not the issued request %s", resp.MsgID, msgID))
	}

	return resp.Data, respEv.Src, clientErr(resp.Err)
}

// PutMData enqueues a mutable data store request and returns its message
// identifier without waiting.
func (c *TestClient) PutMData(md *data.MutableData) routing.MessageID {
	msgID := c.newMsgID()
	unwrap(c.client.SendPutMData(c.clientManager, md, msgID, c.SigningPublicKey()))
	return msgID
}

// PutMDataResponse stores mutable data and waits for the outcome.
func (c *TestClient) PutMDataResponse(md *data.MutableData) error {
	msgID := c.PutMData(md)
	c.Poll()

	resp, cerr := expectResponse[routing.PutMDataResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// GetMDataVersionResponse fetches a record's shell version.
func (c *TestClient) GetMDataVersionResponse(name crypto.XorName, tag uint64) (uint64, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendGetMDataVersion(authority.NaeManager(name), name, tag, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.GetMDataVersionResponse](c, msgID, false)
	return resp.Version, firstErr(cerr, resp.Err)
}

// GetMDataShellResponse fetches a record with entries stripped.
func (c *TestClient) GetMDataShellResponse(name crypto.XorName, tag uint64) (*data.MutableData, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendGetMDataShell(authority.NaeManager(name), name, tag, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.GetMDataShellResponse](c, msgID, false)
	return resp.Shell, firstErr(cerr, resp.Err)
}

// ListMDataEntriesResponse fetches all entries of a record.
func (c *TestClient) ListMDataEntriesResponse(name crypto.XorName, tag uint64) (map[string]data.Value, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendListMDataEntries(authority.NaeManager(name), name, tag, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.ListMDataEntriesResponse](c, msgID, false)
	return resp.Entries, firstErr(cerr, resp.Err)
}

// GetMDataValueResponse fetches a single entry of a record.
func (c *TestClient) GetMDataValueResponse(name crypto.XorName, tag uint64, key []byte) (data.Value, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendGetMDataValue(authority.NaeManager(name), name, tag, key, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.GetMDataValueResponse](c, msgID, false)
	return resp.Value, firstErr(cerr, resp.Err)
}

// MutateMDataEntries enqueues an entry mutation request and returns its
// message identifier without waiting.
func (c *TestClient) MutateMDataEntries(name crypto.XorName, tag uint64, actions data.EntryActions) routing.MessageID {
	msgID := c.newMsgID()
	unwrap(c.client.SendMutateMDataEntries(c.clientManager, name, tag, actions, msgID, c.SigningPublicKey()))
	return msgID
}

// MutateMDataEntriesResponse applies an entry action batch and waits for
// the outcome.
func (c *TestClient) MutateMDataEntriesResponse(name crypto.XorName, tag uint64, actions data.EntryActions) error {
	msgID := c.MutateMDataEntries(name, tag, actions)
	c.Poll()

	resp, cerr := expectResponse[routing.MutateMDataEntriesResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// ListMDataPermissionsResponse fetches a record's permission map.
func (c *TestClient) ListMDataPermissionsResponse(name crypto.XorName, tag uint64) (map[data.User]data.PermissionSet, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendListMDataPermissions(authority.NaeManager(name), name, tag, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.ListMDataPermissionsResponse](c, msgID, false)
	return resp.Permissions, firstErr(cerr, resp.Err)
}

// ListMDataUserPermissionsResponse fetches one user's permission set.
func (c *TestClient) ListMDataUserPermissionsResponse(name crypto.XorName, tag uint64, user data.User) (data.PermissionSet, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendListMDataUserPermissions(authority.NaeManager(name), name, tag, user, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.ListMDataUserPermissionsResponse](c, msgID, false)
	return resp.Permissions, firstErr(cerr, resp.Err)
}

// SetMDataUserPermissionsResponse installs one user's permission set and
// waits for the outcome.
func (c *TestClient) SetMDataUserPermissionsResponse(name crypto.XorName, tag uint64, user data.User, permissions data.PermissionSet, version uint64) error {
	msgID := c.newMsgID()
	unwrap(c.client.SendSetMDataUserPermissions(c.clientManager, name, tag, user, permissions, version, msgID, c.SigningPublicKey()))
	c.Poll()

	resp, cerr := expectResponse[routing.SetMDataUserPermissionsResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// DelMDataUserPermissionsResponse removes one user's permission set and
// waits for the outcome.
func (c *TestClient) DelMDataUserPermissionsResponse(name crypto.XorName, tag uint64, user data.User, version uint64) error {
	msgID := c.newMsgID()
	unwrap(c.client.SendDelMDataUserPermissions(c.clientManager, name, tag, user, version, msgID, c.SigningPublicKey()))
	c.Poll()

	resp, cerr := expectResponse[routing.DelMDataUserPermissionsResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// ChangeMDataOwnerResponse replaces a record's owner set and waits for the
// outcome.
func (c *TestClient) ChangeMDataOwnerResponse(name crypto.XorName, tag uint64, newOwners []crypto.PublicKey, version uint64) error {
	msgID := c.newMsgID()
	unwrap(c.client.SendChangeMDataOwner(c.clientManager, name, tag, newOwners, version, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.ChangeMDataOwnerResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// GetAccountInfoResponse fetches the account's mutation budget.
func (c *TestClient) GetAccountInfoResponse() (data.AccountInfo, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendGetAccountInfo(c.clientManager, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.GetAccountInfoResponse](c, msgID, false)
	return resp.Info, firstErr(cerr, resp.Err)
}

// ListAuthKeysAndVersionResponse fetches the account's authorised keys and
// their version.
func (c *TestClient) ListAuthKeysAndVersionResponse() ([]crypto.PublicKey, uint64, error) {
	c.Flush()

	msgID := c.newMsgID()
	unwrap(c.client.SendListAuthKeysAndVersion(c.clientManager, msgID))
	c.Poll()

	resp, cerr := expectResponse[routing.ListAuthKeysAndVersionResponse](c, msgID, false)
	return resp.Keys, resp.Version, firstErr(cerr, resp.Err)
}

// InsAuthKey enqueues an auth key registration and returns its message
// identifier without waiting.
func (c *TestClient) InsAuthKey(key crypto.PublicKey, version uint64) routing.MessageID {
	msgID := c.newMsgID()
	unwrap(c.client.SendInsAuthKey(c.clientManager, key, version, msgID))
	return msgID
}

// InsAuthKeyResponse registers an auth key and waits for the outcome.
func (c *TestClient) InsAuthKeyResponse(key crypto.PublicKey, version uint64) error {
	msgID := c.InsAuthKey(key, version)
	c.Poll()

	resp, cerr := expectResponse[routing.InsAuthKeyResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// DelAuthKey enqueues an auth key removal and returns its message
// identifier without waiting.
func (c *TestClient) DelAuthKey(key crypto.PublicKey, version uint64) routing.MessageID {
	msgID := c.newMsgID()
	unwrap(c.client.SendDelAuthKey(c.clientManager, key, version, msgID))
	return msgID
}

// DelAuthKeyResponse removes an auth key and waits for the outcome.
func (c *TestClient) DelAuthKeyResponse(key crypto.PublicKey, version uint64) error {
	msgID := c.DelAuthKey(key, version)
	c.Poll()

	resp, cerr := expectResponse[routing.DelAuthKeyResponse](c, msgID, false)
	return firstErr(cerr, resp.Err)
}

// CreateAccount creates this client's account by storing an empty session
// packet record.  Account creation is a setup step; failure aborts.
func (c *TestClient) CreateAccount() {
	owner := c.SigningPublicKey()

	md, cerr := data.NewMutableData(
		crypto.RandomXorName(c.rng),
		data.TypeTagSessionPacket,
		nil,
		nil,
		[]crypto.PublicKey{owner},
	)
	if cerr != nil {
		panic(fmt.Sprintf("could not compose session packet: %v", cerr))
	}

	if err := c.PutMDataResponse(md); err != nil {
		panic(fmt.Sprintf("account creation failed: %v", err))
	}
}

// CreateAccountWithInvitation enqueues account creation carrying the given
// invitation code and returns the message identifier without waiting.
func (c *TestClient) CreateAccountWithInvitation(invitationCode string) routing.MessageID {
	return c.PutMData(c.composeAccountData(invitationCode))
}

// CreateAccountWithInvitationResponse creates the account carrying the
// given invitation code and waits for the outcome.
func (c *TestClient) CreateAccountWithInvitationResponse(invitationCode string) error {
	return c.PutMDataResponse(c.composeAccountData(invitationCode))
}

func (c *TestClient) composeAccountData(invitationCode string) *data.MutableData {
	owner := c.SigningPublicKey()

	packet := data.AccountPacket{InvitationString: invitationCode}
	entries := map[string]data.Value{
		string(data.AccLoginEntryKey): {Content: packet.Marshal(), EntryVersion: 0},
	}

	md, cerr := data.NewMutableData(
		crypto.RandomXorName(c.rng),
		data.TypeTagSessionPacket,
		nil,
		entries,
		[]crypto.PublicKey{owner},
	)
	if cerr != nil {
		panic(fmt.Sprintf("could not compose session packet: %v", cerr))
	}

	return md
}
