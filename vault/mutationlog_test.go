/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"math/rand"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/crypto"
	"vaultsim/routing"
)

var _ = Describe("MutationLog", func() {
	var (
		log *MutationLog
		rng *rand.Rand
		dir string
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "vaultsim-mutlog")
		Expect(err).NotTo(HaveOccurred())

		log, err = OpenMutationLog(filepath.Join(dir, "mutations"))
		Expect(err).NotTo(HaveOccurred())

		rng = rand.New(rand.NewSource(3))
	})

	AfterEach(func() {
		Expect(log.Close()).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	record := func(op string) MutationRecord {
		return MutationRecord{
			Op:    op,
			Name:  crypto.RandomXorName(rng),
			Tag:   rng.Uint64(),
			MsgID: routing.NewMessageID(rng),
		}
	}

	It("starts empty", func() {
		Expect(log.Count()).To(BeZero())
	})

	It("replays appended records in order", func() {
		records := []MutationRecord{record("PutIData"), record("PutMData"), record("MutateMDataEntries")}
		for _, rec := range records {
			Expect(log.Append(rec)).To(Succeed())
		}

		Expect(log.Count()).To(Equal(uint64(3)))

		var replayed []MutationRecord
		Expect(log.Replay(func(rec MutationRecord) bool {
			replayed = append(replayed, rec)
			return true
		})).To(Succeed())
		Expect(replayed).To(Equal(records))
	})

	It("stops replay when the callback declines", func() {
		for i := 0; i < 5; i++ {
			Expect(log.Append(record("PutIData"))).To(Succeed())
		}

		seen := 0
		Expect(log.Replay(func(MutationRecord) bool {
			seen++
			return seen < 2
		})).To(Succeed())
		Expect(seen).To(Equal(2))
	})

	It("survives a close and reopen", func() {
		rec := record("ChangeMDataOwner")
		Expect(log.Append(rec)).To(Succeed())
		Expect(log.Close()).To(Succeed())

		var err error
		log, err = OpenMutationLog(filepath.Join(dir, "mutations"))
		Expect(err).NotTo(HaveOccurred())

		Expect(log.Count()).To(Equal(uint64(1)))

		var replayed []MutationRecord
		Expect(log.Replay(func(r MutationRecord) bool {
			replayed = append(replayed, r)
			return true
		})).To(Succeed())
		Expect(replayed).To(ConsistOf(rec))
	})
})
