/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"math/rand"

	"go.uber.org/zap"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
	"vaultsim/routing"
)

// Node is one simulated storage node.  Every node answers for the group
// authorities it is closest to, against the group's shared Store.
type Node struct {
	name   crypto.XorName
	logger *zap.Logger
	store  *Store
	inbox  []*routing.Message
}

// NewNode creates a node at the given address, backed by the shared store.
func NewNode(name crypto.XorName, store *Store, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Node{
		name:   name,
		logger: logger.With(zap.Stringer("node", name)),
		store:  store,
	}
}

// CreateNodes attaches count nodes at random addresses to the network, all
// sharing one store.
func CreateNodes(net *routing.Network, store *Store, count int, rng *rand.Rand, logger *zap.Logger) []*Node {
	nodes := make([]*Node, count)
	for i := range nodes {
		nodes[i] = NewNode(crypto.RandomXorName(rng), store, logger)
		net.AddNode(nodes[i])
	}

	return nodes
}

// Name returns the node's network address.
func (n *Node) Name() crypto.XorName {
	return n.name
}

// ParticipantName implements routing.Participant.
func (n *Node) ParticipantName() crypto.XorName {
	return n.name
}

// Deliver implements routing.Participant.
func (n *Node) Deliver(msg *routing.Message) {
	n.inbox = append(n.inbox, msg)
}

// Step implements routing.Participant: handle one queued request per round.
func (n *Node) Step(net *routing.Network) bool {
	if len(n.inbox) == 0 {
		return false
	}

	msg := n.inbox[0]
	n.inbox = n.inbox[1:]

	resp := n.handle(msg)
	if resp == nil {
		return true
	}

	n.logger.Debug("handled request",
		zap.String("kind", msg.Req.Kind()),
		zap.Stringer("msg_id", msg.MsgID))

	net.Route(&routing.Message{
		Src:   msg.Dst,
		Dst:   msg.Src,
		MsgID: msg.MsgID,
		Resp:  resp,
	})

	return true
}

// verify checks the request signature against the sender's identity.  The
// bootstrap handshake is unsigned.
func (n *Node) verify(msg *routing.Message) bool {
	if _, ok := msg.Req.(routing.Connect); ok {
		return true
	}

	return msg.Src.Kind == authority.ClientKind &&
		msg.Src.PubID.Verify(msg.MsgID.Bytes(), msg.Sig)
}

// requireKind rejects requests addressed to the wrong authority variant.
// The routing layer in a real network would never deliver them; a test
// doing so is exercising the protocol shape deliberately.
func requireKind(msg *routing.Message, kind authority.Kind) *data.ClientError {
	if msg.Dst.Kind != kind {
		return data.NewClientErrorf(data.InvalidOperation, "%s sent to %s", msg.Req.Kind(), msg.Dst.Kind)
	}

	return nil
}

func (n *Node) handle(msg *routing.Message) routing.Response {
	if !n.verify(msg) {
		n.logger.Warn("dropping request with bad signature",
			zap.String("kind", msg.Req.Kind()),
			zap.Stringer("src", msg.Src))
		return nil
	}

	requester := msg.Src.PubID.SigningKey()
	manager := msg.Dst.Name

	switch req := msg.Req.(type) {
	case routing.Connect:
		return routing.ConnectAck{MsgID: msg.MsgID}

	case routing.PutIData:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.putIData(manager, req.Data)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Data.Name(), MsgID: msg.MsgID})
		}
		return routing.PutIDataResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.GetIData:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.GetIDataResponse{MsgID: msg.MsgID, Err: cerr}
		}
		d, cerr := n.store.getIData(req.Name)
		return routing.GetIDataResponse{MsgID: msg.MsgID, Data: d, Err: cerr}

	case routing.PutMData:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && req.Requester != requester {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil && req.Data.Tag() != data.TypeTagSessionPacket {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.putMData(manager, req.Data, req.Requester)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Data.Name(), Tag: req.Data.Tag(), MsgID: msg.MsgID})
		}
		return routing.PutMDataResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.GetMDataVersion:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.GetMDataVersionResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.GetMDataVersionResponse{MsgID: msg.MsgID, Err: cerr}
		}
		return routing.GetMDataVersionResponse{MsgID: msg.MsgID, Version: md.Version()}

	case routing.GetMDataShell:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.GetMDataShellResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.GetMDataShellResponse{MsgID: msg.MsgID, Err: cerr}
		}
		return routing.GetMDataShellResponse{MsgID: msg.MsgID, Shell: md.Shell()}

	case routing.ListMDataEntries:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.ListMDataEntriesResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.ListMDataEntriesResponse{MsgID: msg.MsgID, Err: cerr}
		}
		return routing.ListMDataEntriesResponse{MsgID: msg.MsgID, Entries: md.Entries()}

	case routing.GetMDataValue:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.GetMDataValueResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.GetMDataValueResponse{MsgID: msg.MsgID, Err: cerr}
		}
		value, ok := md.Get(req.Key)
		if !ok {
			return routing.GetMDataValueResponse{MsgID: msg.MsgID, Err: data.NewClientError(data.NoSuchEntry)}
		}
		return routing.GetMDataValueResponse{MsgID: msg.MsgID, Value: value}

	case routing.MutateMDataEntries:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && req.Requester != requester {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.mutateEntries(manager, req.Name, req.Tag, req.Actions, req.Requester)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Name, Tag: req.Tag, MsgID: msg.MsgID})
		}
		return routing.MutateMDataEntriesResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.ListMDataPermissions:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.ListMDataPermissionsResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.ListMDataPermissionsResponse{MsgID: msg.MsgID, Err: cerr}
		}
		return routing.ListMDataPermissionsResponse{MsgID: msg.MsgID, Permissions: md.Permissions()}

	case routing.ListMDataUserPermissions:
		if cerr := requireKind(msg, authority.NaeManagerKind); cerr != nil {
			return routing.ListMDataUserPermissionsResponse{MsgID: msg.MsgID, Err: cerr}
		}
		md, cerr := n.store.getMData(req.Name, req.Tag)
		if cerr != nil {
			return routing.ListMDataUserPermissionsResponse{MsgID: msg.MsgID, Err: cerr}
		}
		set, ok := md.UserPermissions(req.User)
		if !ok {
			return routing.ListMDataUserPermissionsResponse{MsgID: msg.MsgID, Err: data.NewClientError(data.NoSuchKey)}
		}
		return routing.ListMDataUserPermissionsResponse{MsgID: msg.MsgID, Permissions: set}

	case routing.SetMDataUserPermissions:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && req.Requester != requester {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.setUserPermissions(manager, permissionChange{
				name:        req.Name,
				tag:         req.Tag,
				user:        req.User,
				permissions: req.Permissions,
				version:     req.Version,
				requester:   req.Requester,
			})
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Name, Tag: req.Tag, MsgID: msg.MsgID})
		}
		return routing.SetMDataUserPermissionsResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.DelMDataUserPermissions:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && req.Requester != requester {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.setUserPermissions(manager, permissionChange{
				name:      req.Name,
				tag:       req.Tag,
				user:      req.User,
				version:   req.Version,
				requester: req.Requester,
				del:       true,
			})
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Name, Tag: req.Tag, MsgID: msg.MsgID})
		}
		return routing.DelMDataUserPermissionsResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.ChangeMDataOwner:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil {
			cerr = n.store.authorizeMutation(manager, requester)
		}
		if cerr == nil {
			cerr = n.store.changeOwner(manager, req.Name, req.Tag, req.NewOwners, req.Version, requester)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: req.Name, Tag: req.Tag, MsgID: msg.MsgID})
		}
		return routing.ChangeMDataOwnerResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.GetAccountInfo:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && crypto.XorNameFromKey(requester) != manager {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr != nil {
			return routing.GetAccountInfoResponse{MsgID: msg.MsgID, Err: cerr}
		}
		info, cerr := n.store.accountInfo(manager)
		return routing.GetAccountInfoResponse{MsgID: msg.MsgID, Info: info, Err: cerr}

	case routing.ListAuthKeysAndVersion:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && crypto.XorNameFromKey(requester) != manager {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr != nil {
			return routing.ListAuthKeysAndVersionResponse{MsgID: msg.MsgID, Err: cerr}
		}
		keys, version, cerr := n.store.listAuthKeys(manager)
		return routing.ListAuthKeysAndVersionResponse{MsgID: msg.MsgID, Keys: keys, Version: version, Err: cerr}

	case routing.InsAuthKey:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && crypto.XorNameFromKey(requester) != manager {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil {
			cerr = n.store.insAuthKey(manager, req.Key, req.Version)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: manager, MsgID: msg.MsgID})
		}
		return routing.InsAuthKeyResponse{MsgID: msg.MsgID, Err: cerr}

	case routing.DelAuthKey:
		cerr := requireKind(msg, authority.ClientManagerKind)
		if cerr == nil && crypto.XorNameFromKey(requester) != manager {
			cerr = data.NewClientError(data.AccessDenied)
		}
		if cerr == nil {
			cerr = n.store.delAuthKey(manager, req.Key, req.Version)
		}
		if cerr == nil {
			n.store.journal(MutationRecord{Op: req.Kind(), Name: manager, MsgID: msg.MsgID})
		}
		return routing.DelAuthKeyResponse{MsgID: msg.MsgID, Err: cerr}

	default:
		n.logger.Warn("unexpected request kind", zap.String("kind", msg.Req.Kind()))
		return nil
	}
}
