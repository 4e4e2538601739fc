/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
	"vaultsim/harness"
)

var _ = Describe("Generators", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(7))
	})

	It("replays identically from the same seed", func() {
		other := rand.New(rand.NewSource(7))

		Expect(harness.GenVec(rng, 32)).To(Equal(harness.GenVec(other, 32)))
		Expect(harness.GenImmutableData(rng, 64)).To(Equal(harness.GenImmutableData(other, 64)))
		Expect(harness.GenMutableDataEntries(rng, 5)).To(Equal(harness.GenMutableDataEntries(other, 5)))
	})

	It("draws the requested number of distinct entries", func() {
		entries := harness.GenMutableDataEntries(rng, 9)

		Expect(entries).To(HaveLen(9))
		for key, value := range entries {
			Expect(len(key)).To(BeNumerically("~", 5, 4))
			Expect(len(value.Content)).To(BeNumerically("~", 5, 4))
			Expect(value.EntryVersion).To(BeZero())
		}
	})

	It("builds records owned by the given key", func() {
		owner := crypto.NewFullID(rng).Public().SigningKey()

		md := harness.GenMutableData(rng, 1000, owner)

		Expect(md.Tag()).To(Equal(uint64(1000)))
		Expect(md.Owners()).To(Equal([]crypto.PublicKey{owner}))
		Expect(md.EntryCount()).To(BeNumerically("<", 10))
	})

	It("draws action batches the record accepts", func() {
		owner := crypto.NewFullID(rng).Public().SigningKey()
		md := harness.GenMutableData(rng, 1000, owner)

		for i := 0; i < 20; i++ {
			actions := harness.GenEntryActions(rng, md, 5)
			Expect(actions).To(HaveLen(5))

			applied := md.Clone()
			Expect(applied.MutateEntries(actions, owner)).To(BeNil())
		}
	})

	It("targets existing keys at their successor versions", func() {
		owner := crypto.NewFullID(rng).Public().SigningKey()
		md := harness.GenMutableData(rng, 1000, owner)

		actions := harness.GenEntryActions(rng, md, 8)
		for key, action := range actions {
			current, exists := md.Get([]byte(key))
			switch action.Kind {
			case data.InsertAction:
				Expect(exists).To(BeFalse())
				Expect(action.EntryVersion).To(BeZero())
			default:
				Expect(exists).To(BeTrue())
				Expect(action.EntryVersion).To(Equal(current.EntryVersion + 1))
			}
		}
	})

	It("derives client authorities from fresh identities", func() {
		auth, key := harness.GenClientAuthority(rng)

		Expect(auth.ClientKey()).To(Equal(key))
		Expect(auth.Name()).To(Equal(crypto.XorNameFromKey(key)))
		Expect(auth.ToAuthority().Kind).To(Equal(authority.ClientKind))
	})

	It("draws manager authorities addressed as managers", func() {
		mgr := harness.GenClientManagerAuthority(rng)

		converted := mgr.ToAuthority()
		Expect(converted.Kind).To(Equal(authority.ClientManagerKind))
		Expect(converted.Name).To(Equal(mgr.Name()))
	})
})
