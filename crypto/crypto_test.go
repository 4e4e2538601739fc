/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/crypto"
)

var _ = Describe("XorNameFromKey", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(42))
	})

	It("derives the same address from the same key", func() {
		id := crypto.NewFullID(rng)
		key := id.Public().SigningKey()

		Expect(crypto.XorNameFromKey(key)).To(Equal(crypto.XorNameFromKey(key)))
	})

	It("derives distinct addresses from distinct keys", func() {
		a := crypto.NewFullID(rng).Public().SigningKey()
		b := crypto.NewFullID(rng).Public().SigningKey()

		Expect(a).NotTo(Equal(b))
		Expect(crypto.XorNameFromKey(a)).NotTo(Equal(crypto.XorNameFromKey(b)))
	})

	It("matches the identity's own name", func() {
		id := crypto.NewFullID(rng)

		Expect(id.Public().Name()).To(Equal(crypto.XorNameFromKey(id.Public().SigningKey())))
	})
})

var _ = Describe("CloserToTarget", func() {
	It("orders names by xor distance to the target", func() {
		target := crypto.XorName{0x00}
		near := crypto.XorName{0x01}
		far := crypto.XorName{0xf0}

		Expect(crypto.CloserToTarget(near, far, target)).To(BeTrue())
		Expect(crypto.CloserToTarget(far, near, target)).To(BeFalse())
	})

	It("is irreflexive", func() {
		name := crypto.XorName{0xab, 0xcd}

		Expect(crypto.CloserToTarget(name, name, crypto.XorName{})).To(BeFalse())
	})
})

var _ = Describe("FullID", func() {
	It("generates deterministically from a seeded stream", func() {
		a := crypto.NewFullID(rand.New(rand.NewSource(7)))
		b := crypto.NewFullID(rand.New(rand.NewSource(7)))

		Expect(a.Public().SigningKey()).To(Equal(b.Public().SigningKey()))
	})

	It("signs messages verifiable with the public half", func() {
		id := crypto.NewFullID(rand.New(rand.NewSource(7)))
		msg := []byte("account mutation")

		sig := id.Sign(msg)
		Expect(id.Public().Verify(msg, sig)).To(BeTrue())
		Expect(id.Public().Verify([]byte("tampered"), sig)).To(BeFalse())
	})
})
