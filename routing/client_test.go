/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package routing

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
)

var _ = Describe("Client", func() {
	var (
		net *Network
		rng *rand.Rand
	)

	BeforeEach(func() {
		net = NewNetwork(2, nil)
		rng = rand.New(rand.NewSource(2))
	})

	It("bootstraps through the configured proxy", func() {
		proxy := &fakeNode{name: nameAt(0x30), handle: ackConnects}
		other := &fakeNode{name: nameAt(0x60), handle: ackConnects}
		net.AddNode(proxy)
		net.AddNode(other)

		client := NewClient(net, crypto.NewFullID(rng), &BootstrapConfig{ProxyName: proxy.name}, time.Minute)
		net.PollToQuiescence()

		Expect(client.Authority().ProxyNodeName).To(Equal(proxy.name))
		Expect(proxy.handled).To(HaveLen(1))
		Expect(other.handled).To(BeEmpty())

		ev, ok := client.TryNextEvent()
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal(ConnectedEvent{}))
	})

	It("defaults to the node closest to its own address", func() {
		a := &fakeNode{name: nameAt(0x00), handle: ackConnects}
		b := &fakeNode{name: nameAt(0x80), handle: ackConnects}
		net.AddNode(a)
		net.AddNode(b)

		client := NewClient(net, crypto.NewFullID(rng), nil, time.Minute)
		net.PollToQuiescence()

		want, ok := net.ClosestNodeName(client.Authority().Name())
		Expect(ok).To(BeTrue())
		Expect(client.Authority().ProxyNodeName).To(Equal(want))

		_, ok = client.TryNextEvent()
		Expect(ok).To(BeTrue())
	})

	It("signs every request over its message identifier", func() {
		node := &fakeNode{name: nameAt(0x30), handle: ackConnects}
		net.AddNode(node)

		id := crypto.NewFullID(rng)
		client := NewClient(net, id, nil, time.Minute)
		net.PollToQuiescence()
		_, _ = client.TryNextEvent()

		msgID := NewMessageID(rng)
		Expect(client.SendGetIData(authority.NaeManager(nameAt(0x31)), nameAt(0x31), msgID)).To(Succeed())
		net.PollToQuiescence()

		Expect(node.handled).To(HaveLen(2))
		request := node.handled[1]
		Expect(request.MsgID).To(Equal(msgID))
		Expect(request.Src.Kind).To(Equal(authority.ClientKind))
		Expect(id.Public().Verify(msgID.Bytes(), request.Sig)).To(BeTrue())
	})

	It("terminates instead of sending an oversized payload", func() {
		node := &fakeNode{name: nameAt(0x30), handle: ackConnects}
		net.AddNode(node)

		client := NewClient(net, crypto.NewFullID(rng), nil, time.Minute)
		net.PollToQuiescence()
		_, _ = client.TryNextEvent()

		oversized := make([]byte, data.MaxImmutableDataBytes+1)
		d := data.NewImmutableData(oversized)

		Expect(client.SendPutIData(authority.ClientManager(nameAt(0x31)), d, NewMessageID(rng))).To(Succeed())
		net.PollToQuiescence()

		ev, ok := client.TryNextEvent()
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal(TerminatedEvent{}))

		Expect(node.handled).To(HaveLen(1), "only the bootstrap handshake reached the network")
	})

	It("surfaces responses with their source authority", func() {
		responder := func(net *Network, msg *Message) {
			if _, ok := msg.Req.(Connect); ok {
				ackConnects(net, msg)
				return
			}

			net.Route(&Message{
				Src:   msg.Dst,
				Dst:   msg.Src,
				MsgID: msg.MsgID,
				Resp:  GetIDataResponse{MsgID: msg.MsgID, Err: data.NewClientError(data.NoSuchData)},
			})
		}
		node := &fakeNode{name: nameAt(0x30), handle: responder}
		net.AddNode(node)

		client := NewClient(net, crypto.NewFullID(rng), nil, time.Minute)
		net.PollToQuiescence()
		_, _ = client.TryNextEvent()

		dst := authority.NaeManager(nameAt(0x31))
		msgID := NewMessageID(rng)
		Expect(client.SendGetIData(dst, nameAt(0x31), msgID)).To(Succeed())
		net.PollToQuiescence()

		ev, ok := client.TryNextEvent()
		Expect(ok).To(BeTrue())

		respEv, isResp := ev.(ResponseEvent)
		Expect(isResp).To(BeTrue())
		Expect(respEv.Src).To(Equal(dst))
		Expect(respEv.Response.ResponseMsgID()).To(Equal(msgID))
	})
})
