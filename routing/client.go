/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"time"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
)

// BootstrapConfig names the node a new client relays its traffic through.
// A nil config lets the network pick the node closest to the client's own
// address.
type BootstrapConfig struct {
	ProxyName crypto.XorName
}

// Client is the asynchronous network participant a test client wraps.  All
// send methods only enqueue outbound work; observable effects arrive later
// through the event stream as the network is polled.
type Client struct {
	id        crypto.FullID
	authority authority.ClientAuthority
	expiry    time.Duration

	inbox  []*Message
	outbox []*Message
	events []Event
}

// NewClient attaches a client with the given identity to the network.  The
// bootstrap handshake with the proxy node is enqueued immediately; the
// Connected event arrives once the network has been polled far enough.
func NewClient(net *Network, id crypto.FullID, bootstrap *BootstrapConfig, expiry time.Duration) *Client {
	var proxy crypto.XorName
	if bootstrap != nil {
		proxy = bootstrap.ProxyName
	} else if name, ok := net.ClosestNodeName(id.Public().Name()); ok {
		proxy = name
	}

	c := &Client{
		id: id,
		authority: authority.ClientAuthority{
			ClientPubID:   id.Public(),
			ProxyNodeName: proxy,
		},
		expiry: expiry,
	}

	net.addClient(c)

	// Bootstrap handshake: a direct message to the proxy.  Its MessageID is
	// internal; the client reports the outcome as a Connected event.
	proxyName := proxy
	c.outbox = append(c.outbox, &Message{
		Src:    c.authority.ToAuthority(),
		MsgID:  MessageID{},
		Req:    Connect{},
		Expiry: expiry,
		Direct: &proxyName,
	})

	return c
}

// Authority returns the client's own authority.
func (c *Client) Authority() authority.ClientAuthority {
	return c.authority
}

// ParticipantName implements Participant.
func (c *Client) ParticipantName() crypto.XorName {
	return c.authority.Name()
}

// Deliver implements Participant.
func (c *Client) Deliver(msg *Message) {
	c.inbox = append(c.inbox, msg)
}

// Step implements Participant: one unit of work per round, inbound before
// outbound.
func (c *Client) Step(net *Network) bool {
	if len(c.inbox) > 0 {
		msg := c.inbox[0]
		c.inbox = c.inbox[1:]
		c.observe(msg)
		return true
	}

	if len(c.outbox) > 0 {
		msg := c.outbox[0]
		c.outbox = c.outbox[1:]
		net.Route(msg)
		return true
	}

	return false
}

func (c *Client) observe(msg *Message) {
	if msg.Resp == nil {
		// Clients only ever receive responses.
		return
	}

	if _, ok := msg.Resp.(ConnectAck); ok {
		c.events = append(c.events, ConnectedEvent{})
		return
	}

	c.events = append(c.events, ResponseEvent{
		Response: msg.Resp,
		Src:      msg.Src,
	})
}

// TryNextEvent pops the next queued event, if any.
func (c *Client) TryNextEvent() (Event, bool) {
	if len(c.events) == 0 {
		return nil, false
	}

	ev := c.events[0]
	c.events = c.events[1:]

	return ev, true
}

// send enqueues one signed request.  Oversized payloads never leave the
// client: the routing layer drops them and terminates the event stream,
// which callers observe as a Terminated event.
func (c *Client) send(dst authority.Authority, req Request, msgID MessageID, payloadSize int) error {
	if payloadSize > data.MaxImmutableDataBytes {
		c.events = append(c.events, TerminatedEvent{})
		return nil
	}

	c.outbox = append(c.outbox, &Message{
		Src:    c.authority.ToAuthority(),
		Dst:    dst,
		MsgID:  msgID,
		Req:    req,
		Sig:    c.id.Sign(msgID.Bytes()),
		Expiry: c.expiry,
	})

	return nil
}

// SendPutIData enqueues a PutIData request.
func (c *Client) SendPutIData(dst authority.Authority, d data.ImmutableData, msgID MessageID) error {
	return c.send(dst, PutIData{Data: d}, msgID, d.Len())
}

// SendGetIData enqueues a GetIData request.
func (c *Client) SendGetIData(dst authority.Authority, name crypto.XorName, msgID MessageID) error {
	return c.send(dst, GetIData{Name: name}, msgID, 0)
}

// SendPutMData enqueues a PutMData request.
func (c *Client) SendPutMData(dst authority.Authority, md *data.MutableData, msgID MessageID, requester crypto.PublicKey) error {
	return c.send(dst, PutMData{Data: md, Requester: requester}, msgID, md.SerialisedSize())
}

// SendGetMDataVersion enqueues a GetMDataVersion request.
func (c *Client) SendGetMDataVersion(dst authority.Authority, name crypto.XorName, tag uint64, msgID MessageID) error {
	return c.send(dst, GetMDataVersion{Name: name, Tag: tag}, msgID, 0)
}

// SendGetMDataShell enqueues a GetMDataShell request.
func (c *Client) SendGetMDataShell(dst authority.Authority, name crypto.XorName, tag uint64, msgID MessageID) error {
	return c.send(dst, GetMDataShell{Name: name, Tag: tag}, msgID, 0)
}

// SendListMDataEntries enqueues a ListMDataEntries request.
func (c *Client) SendListMDataEntries(dst authority.Authority, name crypto.XorName, tag uint64, msgID MessageID) error {
	return c.send(dst, ListMDataEntries{Name: name, Tag: tag}, msgID, 0)
}

// SendGetMDataValue enqueues a GetMDataValue request.
func (c *Client) SendGetMDataValue(dst authority.Authority, name crypto.XorName, tag uint64, key []byte, msgID MessageID) error {
	return c.send(dst, GetMDataValue{Name: name, Tag: tag, Key: key}, msgID, 0)
}

// SendMutateMDataEntries enqueues a MutateMDataEntries request.
func (c *Client) SendMutateMDataEntries(dst authority.Authority, name crypto.XorName, tag uint64, actions data.EntryActions, msgID MessageID, requester crypto.PublicKey) error {
	size := 0
	for key, action := range actions {
		size += len(key) + len(action.Content)
	}

	return c.send(dst, MutateMDataEntries{Name: name, Tag: tag, Actions: actions, Requester: requester}, msgID, size)
}

// SendListMDataPermissions enqueues a ListMDataPermissions request.
func (c *Client) SendListMDataPermissions(dst authority.Authority, name crypto.XorName, tag uint64, msgID MessageID) error {
	return c.send(dst, ListMDataPermissions{Name: name, Tag: tag}, msgID, 0)
}

// SendListMDataUserPermissions enqueues a ListMDataUserPermissions request.
func (c *Client) SendListMDataUserPermissions(dst authority.Authority, name crypto.XorName, tag uint64, user data.User, msgID MessageID) error {
	return c.send(dst, ListMDataUserPermissions{Name: name, Tag: tag, User: user}, msgID, 0)
}

// SendSetMDataUserPermissions enqueues a SetMDataUserPermissions request.
func (c *Client) SendSetMDataUserPermissions(dst authority.Authority, name crypto.XorName, tag uint64, user data.User, permissions data.PermissionSet, version uint64, msgID MessageID, requester crypto.PublicKey) error {
	return c.send(dst, SetMDataUserPermissions{
		Name:        name,
		Tag:         tag,
		User:        user,
		Permissions: permissions,
		Version:     version,
		Requester:   requester,
	}, msgID, 0)
}

// SendDelMDataUserPermissions enqueues a DelMDataUserPermissions request.
func (c *Client) SendDelMDataUserPermissions(dst authority.Authority, name crypto.XorName, tag uint64, user data.User, version uint64, msgID MessageID, requester crypto.PublicKey) error {
	return c.send(dst, DelMDataUserPermissions{
		Name:      name,
		Tag:       tag,
		User:      user,
		Version:   version,
		Requester: requester,
	}, msgID, 0)
}

// SendChangeMDataOwner enqueues a ChangeMDataOwner request.
func (c *Client) SendChangeMDataOwner(dst authority.Authority, name crypto.XorName, tag uint64, newOwners []crypto.PublicKey, version uint64, msgID MessageID) error {
	return c.send(dst, ChangeMDataOwner{Name: name, Tag: tag, NewOwners: newOwners, Version: version}, msgID, 0)
}

// SendGetAccountInfo enqueues a GetAccountInfo request.
func (c *Client) SendGetAccountInfo(dst authority.Authority, msgID MessageID) error {
	return c.send(dst, GetAccountInfo{}, msgID, 0)
}

// SendListAuthKeysAndVersion enqueues a ListAuthKeysAndVersion request.
func (c *Client) SendListAuthKeysAndVersion(dst authority.Authority, msgID MessageID) error {
	return c.send(dst, ListAuthKeysAndVersion{}, msgID, 0)
}

// SendInsAuthKey enqueues an InsAuthKey request.
func (c *Client) SendInsAuthKey(dst authority.Authority, key crypto.PublicKey, version uint64, msgID MessageID) error {
	return c.send(dst, InsAuthKey{Key: key, Version: version}, msgID, 0)
}

// SendDelAuthKey enqueues a DelAuthKey request.
func (c *Client) SendDelAuthKey(dst authority.Authority, key crypto.PublicKey, version uint64, msgID MessageID) error {
	return c.send(dst, DelAuthKey{Key: key, Version: version}, msgID, 0)
}
