/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
	"vaultsim/harness"
	"vaultsim/routing"
	"vaultsim/vault"
)

var _ = Describe("TestClient", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv(42, 8)
	})

	AfterEach(func() {
		env.teardown()
	})

	Describe("account creation", func() {
		It("registers the account and charges the first mutation", func() {
			env.client.CreateAccount()

			info, err := env.client.GetAccountInfoResponse()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.MutationsDone).To(Equal(uint64(1)))
			Expect(info.MutationsAvailable).To(Equal(uint64(vault.DefaultAccountSize - 1)))
		})

		It("accepts an invitation code", func() {
			err := env.client.CreateAccountWithInvitationResponse("golden-ticket")
			Expect(err).NotTo(HaveOccurred())

			info, err := env.client.GetAccountInfoResponse()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.MutationsDone).To(Equal(uint64(1)))
		})

		It("stores the invitation under the reserved login entry", func() {
			packet := data.AccountPacket{InvitationString: "golden-ticket"}
			entries := map[string]data.Value{
				string(data.AccLoginEntryKey): {Content: packet.Marshal(), EntryVersion: 0},
			}
			md, cerr := data.NewMutableData(
				crypto.RandomXorName(env.rng), data.TypeTagSessionPacket, nil, entries,
				[]crypto.PublicKey{env.client.SigningPublicKey()},
			)
			Expect(cerr).To(BeNil())

			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			stored, err := env.client.ListMDataEntriesResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))

			decoded, perr := data.UnmarshalAccountPacket(stored[string(data.AccLoginEntryKey)].Content)
			Expect(perr).NotTo(HaveOccurred())
			Expect(decoded.InvitationString).To(Equal("golden-ticket"))
		})

		It("rejects a second account for the same client", func() {
			env.client.CreateAccount()

			err := env.client.CreateAccountWithInvitationResponse("again")
			Expect(data.Is(err, data.AccountExists)).To(BeTrue(), "got %v", err)
		})

		It("only lets a client create its own account", func() {
			env.client.SetClientManager(crypto.RandomXorName(env.rng))

			err := env.client.CreateAccountWithInvitationResponse("stolen")
			Expect(data.Is(err, data.AccessDenied)).To(BeTrue(), "got %v", err)
		})
	})

	Describe("immutable data", func() {
		Context("with an account", func() {
			BeforeEach(func() {
				env.client.CreateAccount()
			})

			It("stores and fetches a chunk", func() {
				d := harness.GenImmutableData(env.rng, 100)

				Expect(env.client.PutIDataResponse(d)).To(Succeed())

				got, err := env.client.GetIDataResponse(d.Name())
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Content()).To(Equal(d.Content()))
				Expect(got.Name()).To(Equal(d.Name()))
			})

			It("reports the authority that served a fetch", func() {
				d := harness.GenImmutableData(env.rng, 64)
				Expect(env.client.PutIDataResponse(d)).To(Succeed())

				_, src, err := env.client.GetIDataResponseWithSrc(d.Name())
				Expect(err).NotTo(HaveOccurred())
				Expect(src.Kind).To(Equal(authority.NaeManagerKind))
				Expect(src.Name).To(Equal(d.Name()))
			})

			It("charges every store, even a repeated one", func() {
				d := harness.GenImmutableData(env.rng, 32)

				Expect(env.client.PutIDataResponse(d)).To(Succeed())
				Expect(env.client.PutIDataResponse(d)).To(Succeed())

				info, err := env.client.GetAccountInfoResponse()
				Expect(err).NotTo(HaveOccurred())
				Expect(info.MutationsDone).To(Equal(uint64(3)))
			})

			It("fails to fetch an absent chunk", func() {
				_, err := env.client.GetIDataResponse(crypto.RandomXorName(env.rng))
				Expect(data.Is(err, data.NoSuchData)).To(BeTrue(), "got %v", err)
			})

			It("refuses an oversized chunk before it reaches the network", func() {
				d := harness.GenImmutableData(env.rng, data.MaxImmutableDataBytes+1)

				err := env.client.PutLargeIData(d)
				Expect(data.Is(err, data.InvalidOperation)).To(BeTrue(), "got %v", err)

				_, err = env.client.GetIDataResponse(d.Name())
				Expect(data.Is(err, data.NoSuchData)).To(BeTrue(), "got %v", err)
			})

			It("survives randomized round trips", func() {
				cfg := harness.QuickConfig()
				for i := 0; i < cfg.Iterations; i++ {
					d := harness.GenImmutableData(env.rng, 1+env.rng.Intn(512))

					Expect(env.client.PutIDataResponse(d)).To(Succeed())

					got, err := env.client.GetIDataResponse(d.Name())
					Expect(err).NotTo(HaveOccurred())
					Expect(got.Content()).To(Equal(d.Content()))
				}
			})
		})

		Context("without an account", func() {
			It("rejects the store", func() {
				d := harness.GenImmutableData(env.rng, 16)

				err := env.client.PutIDataResponse(d)
				Expect(data.Is(err, data.NoSuchAccount)).To(BeTrue(), "got %v", err)
			})
		})
	})

	Describe("mutable data", func() {
		BeforeEach(func() {
			env.client.CreateAccount()
		})

		It("stores a record and lists its entries", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())

			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			entries, err := env.client.ListMDataEntriesResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(Equal(md.Entries()))
		})

		It("rejects a duplicate record", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())

			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			err := env.client.PutMDataResponse(md)
			Expect(data.Is(err, data.DataExists)).To(BeTrue(), "got %v", err)
		})

		It("applies a generated action batch", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			actions := harness.GenEntryActions(env.rng, md, 5)

			expected := md.Clone()
			Expect(expected.MutateEntries(actions, env.client.SigningPublicKey())).To(BeNil())

			Expect(env.client.MutateMDataEntriesResponse(md.Name(), md.Tag(), actions)).To(Succeed())

			entries, err := env.client.ListMDataEntriesResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(Equal(expected.Entries()))
		})

		It("rejects a stale entry version and reports the current one", func() {
			key := []byte("status")
			entries := map[string]data.Value{
				string(key): {Content: []byte("ok"), EntryVersion: 0},
			}
			md, cerr := data.NewMutableData(
				crypto.RandomXorName(env.rng), 1000, nil, entries,
				[]crypto.PublicKey{env.client.SigningPublicKey()},
			)
			Expect(cerr).To(BeNil())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			stale := data.NewEntryActions().Update(key, []byte("late"), 5)
			err := env.client.MutateMDataEntriesResponse(md.Name(), md.Tag(), stale)

			Expect(data.Is(err, data.InvalidEntryActions)).To(BeTrue(), "got %v", err)
			ce := err.(*data.ClientError)
			Expect(ce.EntryErrors).To(HaveKey(string(key)))
			Expect(ce.EntryErrors[string(key)].Kind).To(Equal(data.EntryInvalidSuccessor))
			Expect(ce.EntryErrors[string(key)].CurrentVersion).To(Equal(uint64(0)))
		})

		It("serves the shell without entries and tracks the shell version", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			shell, err := env.client.GetMDataShellResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(shell.EntryCount()).To(BeZero())
			Expect(shell.Version()).To(Equal(uint64(0)))

			perms := data.PermissionSet{}.Allow(data.ActionInsert)
			Expect(env.client.SetMDataUserPermissionsResponse(
				md.Name(), md.Tag(), data.AnyoneUser(), perms, 1,
			)).To(Succeed())

			version, err := env.client.GetMDataVersionResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint64(1)))

			all, err := env.client.ListMDataPermissionsResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveKeyWithValue(data.AnyoneUser(), perms))
		})

		It("removes a user's permissions at the successor version", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			perms := data.PermissionSet{}.Allow(data.ActionUpdate)
			user := data.AnyoneUser()

			Expect(env.client.SetMDataUserPermissionsResponse(md.Name(), md.Tag(), user, perms, 1)).To(Succeed())
			Expect(env.client.DelMDataUserPermissionsResponse(md.Name(), md.Tag(), user, 2)).To(Succeed())

			_, err := env.client.ListMDataUserPermissionsResponse(md.Name(), md.Tag(), user)
			Expect(data.Is(err, data.NoSuchKey)).To(BeTrue(), "got %v", err)
		})

		It("transfers ownership and locks the old owner out", func() {
			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			newOwner := crypto.NewFullID(env.rng).Public().SigningKey()
			Expect(env.client.ChangeMDataOwnerResponse(
				md.Name(), md.Tag(), []crypto.PublicKey{newOwner}, 1,
			)).To(Succeed())

			shell, err := env.client.GetMDataShellResponse(md.Name(), md.Tag())
			Expect(err).NotTo(HaveOccurred())
			Expect(shell.IsOwner(newOwner)).To(BeTrue())
			Expect(shell.IsOwner(env.client.SigningPublicKey())).To(BeFalse())

			err = env.client.ChangeMDataOwnerResponse(
				md.Name(), md.Tag(), []crypto.PublicKey{env.client.SigningPublicKey()}, 2,
			)
			Expect(data.Is(err, data.AccessDenied)).To(BeTrue(), "got %v", err)
		})
	})

	Describe("app authorisation", func() {
		var (
			app *harness.TestClient
			md  *data.MutableData
		)

		BeforeEach(func() {
			env.client.CreateAccount()

			app = env.connectClient()
			app.SetClientManager(env.client.Name())

			perms := map[data.User]data.PermissionSet{
				data.KeyUser(app.SigningPublicKey()): data.PermissionSet{}.
					Allow(data.ActionInsert).
					Allow(data.ActionUpdate),
			}

			var cerr *data.ClientError
			md, cerr = data.NewMutableData(
				crypto.RandomXorName(env.rng), 1000, perms, nil,
				[]crypto.PublicKey{env.client.SigningPublicKey()},
			)
			Expect(cerr).To(BeNil())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())
		})

		It("rejects an app the owner never authorised", func() {
			actions := data.NewEntryActions().Ins([]byte("note"), []byte("hi"), 0)

			err := app.MutateMDataEntriesResponse(md.Name(), md.Tag(), actions)
			Expect(data.Is(err, data.AccessDenied)).To(BeTrue(), "got %v", err)
		})

		It("lets an authorised app mutate through the owner's account", func() {
			Expect(env.client.InsAuthKeyResponse(app.SigningPublicKey(), 1)).To(Succeed())

			before, err := env.client.GetAccountInfoResponse()
			Expect(err).NotTo(HaveOccurred())

			actions := data.NewEntryActions().Ins([]byte("note"), []byte("hi"), 0)
			Expect(app.MutateMDataEntriesResponse(md.Name(), md.Tag(), actions)).To(Succeed())

			value, err := env.client.GetMDataValueResponse(md.Name(), md.Tag(), []byte("note"))
			Expect(err).NotTo(HaveOccurred())
			Expect(value.Content).To(Equal([]byte("hi")))
			Expect(value.EntryVersion).To(Equal(uint64(0)))

			after, err := env.client.GetAccountInfoResponse()
			Expect(err).NotTo(HaveOccurred())
			Expect(after.MutationsDone).To(Equal(before.MutationsDone + 1))
		})

		It("locks an app out once its key is removed", func() {
			Expect(env.client.InsAuthKeyResponse(app.SigningPublicKey(), 1)).To(Succeed())
			Expect(env.client.DelAuthKeyResponse(app.SigningPublicKey(), 2)).To(Succeed())

			actions := data.NewEntryActions().Ins([]byte("note"), []byte("hi"), 0)
			err := app.MutateMDataEntriesResponse(md.Name(), md.Tag(), actions)
			Expect(data.Is(err, data.AccessDenied)).To(BeTrue(), "got %v", err)
		})
	})

	Describe("auth keys", func() {
		BeforeEach(func() {
			env.client.CreateAccount()
		})

		It("starts with no keys at version 0", func() {
			keys, version, err := env.client.ListAuthKeysAndVersionResponse()
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(BeEmpty())
			Expect(version).To(BeZero())
		})

		It("registers and lists a key at the successor version", func() {
			key := crypto.NewFullID(env.rng).Public().SigningKey()

			Expect(env.client.InsAuthKeyResponse(key, 1)).To(Succeed())

			keys, version, err := env.client.ListAuthKeysAndVersionResponse()
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(Equal([]crypto.PublicKey{key}))
			Expect(version).To(Equal(uint64(1)))
		})

		It("rejects a non successor version", func() {
			key := crypto.NewFullID(env.rng).Public().SigningKey()

			err := env.client.InsAuthKeyResponse(key, 3)
			Expect(data.Is(err, data.InvalidSuccessor)).To(BeTrue(), "got %v", err)
		})

		It("rejects a duplicate key", func() {
			key := crypto.NewFullID(env.rng).Public().SigningKey()

			Expect(env.client.InsAuthKeyResponse(key, 1)).To(Succeed())

			err := env.client.InsAuthKeyResponse(key, 2)
			Expect(data.Is(err, data.KeyExists)).To(BeTrue(), "got %v", err)
		})

		It("rejects removing an absent key", func() {
			key := crypto.NewFullID(env.rng).Public().SigningKey()

			err := env.client.DelAuthKeyResponse(key, 1)
			Expect(data.Is(err, data.NoSuchKey)).To(BeTrue(), "got %v", err)
		})
	})

	Describe("response correlation", func() {
		BeforeEach(func() {
			env.client.CreateAccount()
		})

		It("aborts when a stale response is observed instead of the awaited one", func() {
			d := harness.GenImmutableData(env.rng, 16)
			env.client.PutIData(d)
			env.client.Poll()

			key := crypto.NewFullID(env.rng).Public().SigningKey()
			Expect(func() {
				_ = env.client.InsAuthKeyResponse(key, 1)
			}).To(Panic())
		})

		It("aborts when the network yields no connection event", func() {
			empty := routing.NewNetwork(7, nil)
			orphan := harness.New(empty, nil)

			Expect(orphan.EnsureConnected).To(Panic())
		})
	})

	Describe("mutation journal", func() {
		It("records applied mutations in order", func() {
			env.client.CreateAccount()

			d := harness.GenImmutableData(env.rng, 24)
			Expect(env.client.PutIDataResponse(d)).To(Succeed())

			md := harness.GenMutableData(env.rng, 1000, env.client.SigningPublicKey())
			Expect(env.client.PutMDataResponse(md)).To(Succeed())

			Expect(env.store.MutationLog().Count()).To(Equal(uint64(3)))

			var ops []string
			Expect(env.store.MutationLog().Replay(func(rec vault.MutationRecord) bool {
				ops = append(ops, rec.Op)
				return true
			})).To(Succeed())
			Expect(ops).To(Equal([]string{"PutMData", "PutIData", "PutMData"}))
		})

		It("does not record rejected mutations", func() {
			d := harness.GenImmutableData(env.rng, 24)

			err := env.client.PutIDataResponse(d)
			Expect(data.Is(err, data.NoSuchAccount)).To(BeTrue(), "got %v", err)

			Expect(env.store.MutationLog().Count()).To(BeZero())
		})
	})
})
