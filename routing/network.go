/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package routing simulates the network layer the test harness drives: an
// addressable set of participants exchanging request and response messages
// in discrete rounds.  There is no real concurrency; each call to Poll lets
// every participant process one unit of pending work and advances in-flight
// traffic one hop.  All scheduling is deterministic given the seed.
package routing

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"vaultsim/authority"
	"vaultsim/crypto"
)

// messageHops is the number of rounds a message spends in flight: one hop
// to the sender's relay, one to the destination group.
const messageHops = 2

// maxPollRounds bounds PollToQuiescence against a livelocked participant.
// A healthy simulation reaches quiescence orders of magnitude sooner.
const maxPollRounds = 100000

// Participant is anything attached to the network that can receive
// messages and do work: storage nodes and clients alike.
type Participant interface {
	// ParticipantName returns the address the participant answers at.
	ParticipantName() crypto.XorName

	// Deliver enqueues an arrived message.  It must not block or process.
	Deliver(msg *Message)

	// Step processes at most one unit of pending work, routing any
	// resulting messages through net.  It reports whether it did anything.
	Step(net *Network) bool
}

type envelope struct {
	msg  *Message
	hops int
}

// Network is the single-threaded round based simulator.  Participants are
// stepped in deterministic order: storage nodes sorted by name, then
// clients in creation order.
type Network struct {
	logger   *zap.Logger
	rng      *rand.Rand
	nodes    []Participant
	clients  []Participant
	byName   map[crypto.XorName]Participant
	inflight []envelope
}

// NewNetwork creates a simulator whose entire behaviour replays from seed.
func NewNetwork(seed int64, logger *zap.Logger) *Network {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Network{
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
		byName: map[crypto.XorName]Participant{},
	}
}

// NewRand derives a child random stream from the network's master stream.
// Handing each participant its own stream keeps runs reproducible while
// decoupling their draw orders.
func (n *Network) NewRand() *rand.Rand {
	return rand.New(rand.NewSource(n.rng.Int63()))
}

// AddNode attaches a storage node.  Nodes are kept sorted by name so that
// stepping order does not depend on insertion order.
func (n *Network) AddNode(node Participant) {
	if _, ok := n.byName[node.ParticipantName()]; ok {
		panic(fmt.Sprintf("participant %s already attached", node.ParticipantName()))
	}

	n.nodes = append(n.nodes, node)
	n.byName[node.ParticipantName()] = node
	sort.Slice(n.nodes, func(i, j int) bool {
		a := n.nodes[i].ParticipantName()
		b := n.nodes[j].ParticipantName()
		return crypto.CloserToTarget(a, b, crypto.XorName{})
	})
}

func (n *Network) addClient(client Participant) {
	if _, ok := n.byName[client.ParticipantName()]; ok {
		panic(fmt.Sprintf("participant %s already attached", client.ParticipantName()))
	}

	n.clients = append(n.clients, client)
	n.byName[client.ParticipantName()] = client
}

// NodeCount returns the number of attached storage nodes.
func (n *Network) NodeCount() int {
	return len(n.nodes)
}

// ClosestNodeName returns the name of the storage node closest to target,
// i.e. the primary of the group authority at that address.
func (n *Network) ClosestNodeName(target crypto.XorName) (crypto.XorName, bool) {
	if len(n.nodes) == 0 {
		return crypto.XorName{}, false
	}

	closest := n.nodes[0]
	for _, node := range n.nodes[1:] {
		if crypto.CloserToTarget(node.ParticipantName(), closest.ParticipantName(), target) {
			closest = node
		}
	}

	return closest.ParticipantName(), true
}

// Route accepts a message for delivery.  The message spends messageHops
// rounds in flight before it reaches its destination's queue.
func (n *Network) Route(msg *Message) {
	n.inflight = append(n.inflight, envelope{msg: msg, hops: messageHops})
}

func (n *Network) deliver(msg *Message) {
	var target Participant

	if msg.Direct != nil {
		target = n.byName[*msg.Direct]
	} else {
		switch msg.Dst.Kind {
		case authority.ClientKind:
			target = n.byName[msg.Dst.Name]
		case authority.ClientManagerKind, authority.NaeManagerKind:
			if name, ok := n.ClosestNodeName(msg.Dst.Name); ok {
				target = n.byName[name]
			}
		}
	}

	if target == nil {
		n.logger.Warn("dropping unroutable message",
			zap.Stringer("dst", msg.Dst),
			zap.Stringer("msg_id", msg.MsgID))
		return
	}

	target.Deliver(msg)
}

// Poll runs one simulation round: in-flight traffic advances one hop,
// arrivals are delivered, and every participant processes one unit of
// pending work.  It reports whether anything at all happened; a false
// return means the network is quiescent.
func (n *Network) Poll() bool {
	progress := false

	if len(n.inflight) > 0 {
		progress = true

		var still []envelope
		for _, env := range n.inflight {
			env.hops--
			if env.hops <= 0 {
				n.deliver(env.msg)
			} else {
				still = append(still, env)
			}
		}
		n.inflight = still
	}

	for _, node := range n.nodes {
		if node.Step(n) {
			progress = true
		}
	}
	for _, client := range n.clients {
		if client.Step(n) {
			progress = true
		}
	}

	return progress
}

// PollToQuiescence polls until a full round makes no progress and returns
// the number of rounds that did.
func (n *Network) PollToQuiescence() int {
	rounds := 0
	for n.Poll() {
		rounds++
		if rounds > maxPollRounds {
			panic(fmt.Sprintf("no quiescence after %d rounds", maxPollRounds))
		}
	}

	return rounds
}
