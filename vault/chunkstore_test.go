/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/crypto"
)

var _ = Describe("ChunkStore", func() {
	var (
		chunks *ChunkStore
		rng    *rand.Rand
	)

	BeforeEach(func() {
		var err error
		chunks, err = OpenChunkStore()
		Expect(err).NotTo(HaveOccurred())

		rng = rand.New(rand.NewSource(11))
	})

	AfterEach(func() {
		Expect(chunks.Close()).To(Succeed())
	})

	It("round trips content by name", func() {
		name := crypto.RandomXorName(rng)

		Expect(chunks.Put(name, []byte("chunk"))).To(Succeed())

		content, ok, err := chunks.Get(name)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(content).To(Equal([]byte("chunk")))

		has, err := chunks.Has(name)
		Expect(err).NotTo(HaveOccurred())
		Expect(has).To(BeTrue())
	})

	It("misses cleanly", func() {
		_, ok, err := chunks.Get(crypto.RandomXorName(rng))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		has, err := chunks.Has(crypto.RandomXorName(rng))
		Expect(err).NotTo(HaveOccurred())
		Expect(has).To(BeFalse())
	})

	It("overwrites idempotently", func() {
		name := crypto.RandomXorName(rng)

		Expect(chunks.Put(name, []byte("same"))).To(Succeed())
		Expect(chunks.Put(name, []byte("same"))).To(Succeed())

		content, ok, err := chunks.Get(name)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(content).To(Equal([]byte("same")))
	})
})
