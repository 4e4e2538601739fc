/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"fmt"
	"time"

	"vaultsim/authority"
	"vaultsim/crypto"
)

// Event is what a client observes from its event stream.
type Event interface {
	isEvent()
}

// ConnectedEvent confirms the client is attached to the network.
type ConnectedEvent struct{}

func (ConnectedEvent) isEvent() {}

func (ConnectedEvent) String() string { return "Connected" }

// TerminatedEvent reports that the routing layer gave up on the client,
// e.g. after it attempted to send an oversized payload.
type TerminatedEvent struct{}

func (TerminatedEvent) isEvent() {}

func (TerminatedEvent) String() string { return "Terminated" }

// ResponseEvent carries one correlated response and the authority that sent
// it.
type ResponseEvent struct {
	Response Response
	Src      authority.Authority
}

func (ResponseEvent) isEvent() {}

func (e ResponseEvent) String() string {
	return fmt.Sprintf("Response{%s %s from %s}", e.Response.Kind(), e.Response.ResponseMsgID(), e.Src)
}

// Message is one request or response in flight between participants.
// Exactly one of Req and Resp is set.  Expiry is the nominal duration the
// sender expects an answer within; the simulation itself never consults
// wall-clock time.
type Message struct {
	Src    authority.Authority
	Dst    authority.Authority
	MsgID  MessageID
	Req    Request
	Resp   Response
	Sig    []byte
	Expiry time.Duration

	// Direct, when set, bypasses authority resolution and delivers to the
	// named node.  Used only by the bootstrap handshake.
	Direct *crypto.XorName
}
