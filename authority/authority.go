/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package authority models "who is asking" and "who must answer" on the
// simulated network.  A ClientAuthority identifies a connected client and
// its relay node; a ClientManagerAuthority identifies the management group
// responsible for that client's mutations, addressed by a name every
// participant derives identically from the client's signing key.
package authority

import (
	"fmt"

	"vaultsim/crypto"
)

// Kind discriminates the address variants of the generic Authority.
type Kind int

const (
	// ClientKind addresses a single connected client.
	ClientKind Kind = iota
	// ClientManagerKind addresses the group managing a client's account.
	ClientManagerKind
	// NaeManagerKind addresses the group managing a piece of named data.
	NaeManagerKind
)

func (k Kind) String() string {
	switch k {
	case ClientKind:
		return "Client"
	case ClientManagerKind:
		return "ClientManager"
	case NaeManagerKind:
		return "NaeManager"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Authority is the network's generic addressing type.  PubID and Proxy are
// populated only for the Client variant.
type Authority struct {
	Kind  Kind
	Name  crypto.XorName
	PubID crypto.PublicID
	Proxy crypto.XorName
}

func (a Authority) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.Name)
}

// ClientManager addresses the management group at name.
func ClientManager(name crypto.XorName) Authority {
	return Authority{Kind: ClientManagerKind, Name: name}
}

// NaeManager addresses the data management group at name.
func NaeManager(name crypto.XorName) Authority {
	return Authority{Kind: NaeManagerKind, Name: name}
}

// ClientAuthority identifies a connected client: its public identity plus
// the node currently relaying its traffic.
type ClientAuthority struct {
	ClientPubID   crypto.PublicID
	ProxyNodeName crypto.XorName
}

// Name returns the address derived from the client's identity.
func (a ClientAuthority) Name() crypto.XorName {
	return a.ClientPubID.Name()
}

// ClientKey returns the client's public signing key.
func (a ClientAuthority) ClientKey() crypto.PublicKey {
	return a.ClientPubID.SigningKey()
}

// ToAuthority converts to the generic addressing type.  The conversion is
// total: both the identity and the proxy are carried.
func (a ClientAuthority) ToAuthority() Authority {
	return Authority{
		Kind:  ClientKind,
		Name:  a.Name(),
		PubID: a.ClientPubID,
		Proxy: a.ProxyNodeName,
	}
}

// ClientManagerAuthority identifies the management group responsible for a
// client's account and mutations.
type ClientManagerAuthority struct {
	name crypto.XorName
}

// ClientManagerFor derives the manager authority of the client with the
// given signing key.  The derivation is the network-wide one, so any
// participant recomputes the same authority from the public key alone.
func ClientManagerFor(clientKey crypto.PublicKey) ClientManagerAuthority {
	return ClientManagerAuthority{name: crypto.XorNameFromKey(clientKey)}
}

// ClientManagerAt wraps an already known manager name.
func ClientManagerAt(name crypto.XorName) ClientManagerAuthority {
	return ClientManagerAuthority{name: name}
}

// Name returns the manager group's address.
func (a ClientManagerAuthority) Name() crypto.XorName {
	return a.name
}

// ToAuthority converts to the generic addressing type.
func (a ClientManagerAuthority) ToAuthority() Authority {
	return ClientManager(a.name)
}
