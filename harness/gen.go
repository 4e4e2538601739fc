/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness

import (
	"math/rand"

	"vaultsim/authority"
	"vaultsim/crypto"
	"vaultsim/data"
)

// maxGenAttempts bounds the rejection sampling loops below.  With 1-9 byte
// random keys a collision streak this long means the generator is broken,
// not unlucky.
const maxGenAttempts = 100

// GenVec draws size random bytes.
func GenVec(rng *rand.Rand, size int) []byte {
	buf := make([]byte, size)
	// rand.Rand.Read is documented never to fail.
	_, _ = rng.Read(buf)
	return buf
}

func genShortVec(rng *rand.Rand) []byte {
	return GenVec(rng, 1+rng.Intn(9))
}

// GenImmutableData draws an immutable chunk with size random content bytes.
func GenImmutableData(rng *rand.Rand, size int) data.ImmutableData {
	return data.NewImmutableData(GenVec(rng, size))
}

// GenMutableDataEntry draws one entry: a 1-9 byte key, 1-9 bytes of
// content, entry version 0.
func GenMutableDataEntry(rng *rand.Rand) ([]byte, data.Value) {
	return genShortVec(rng), data.Value{Content: genShortVec(rng), EntryVersion: 0}
}

// GenMutableDataEntries draws count entries with distinct keys.
func GenMutableDataEntries(rng *rand.Rand, count int) map[string]data.Value {
	entries := make(map[string]data.Value, count)
	attempts := 0
	for len(entries) < count {
		key, value := GenMutableDataEntry(rng)
		if _, dup := entries[string(key)]; dup {
			attempts++
			if attempts > maxGenAttempts {
				panic("could not draw distinct entry keys")
			}
			continue
		}
		entries[string(key)] = value
	}

	return entries
}

// GenMutableData draws a record with the given tag, up to 9 random
// entries, and owner as its sole owner.
func GenMutableData(rng *rand.Rand, tag uint64, owner crypto.PublicKey) *data.MutableData {
	entries := GenMutableDataEntries(rng, rng.Intn(10))

	md, cerr := data.NewMutableData(
		crypto.RandomXorName(rng),
		tag,
		nil,
		entries,
		[]crypto.PublicKey{owner},
	)
	if cerr != nil {
		panic(cerr)
	}

	return md
}

// GenEntryActions draws a batch of up to count valid actions against md:
// a random subset of existing keys is updated or deleted at the correct
// successor version, and the remainder of the batch inserts fresh keys.
func GenEntryActions(rng *rand.Rand, md *data.MutableData, count int) data.EntryActions {
	actions := data.NewEntryActions()

	keys := md.Keys()
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	modifyCount := rng.Intn(count + 1)
	if modifyCount > len(keys) {
		modifyCount = len(keys)
	}

	for _, key := range keys[:modifyCount] {
		current, ok := md.Get(key)
		if !ok {
			panic("listed key vanished from record")
		}

		if rng.Intn(2) == 0 {
			actions.Del(key, current.EntryVersion+1)
		} else {
			actions.Update(key, genShortVec(rng), current.EntryVersion+1)
		}
	}

	attempts := 0
	for inserted := 0; inserted < count-modifyCount; {
		key := genShortVec(rng)
		_, inRecord := md.Get(key)
		_, inBatch := actions[string(key)]
		if inRecord || inBatch {
			attempts++
			if attempts > maxGenAttempts {
				panic("could not draw distinct insert keys")
			}
			continue
		}

		actions.Ins(key, genShortVec(rng), 0)
		inserted++
	}

	return actions
}

// GenClientAuthority draws a client authority with a fresh identity and a
// random proxy, returning its signing key as well.
func GenClientAuthority(rng *rand.Rand) (authority.ClientAuthority, crypto.PublicKey) {
	fullID := crypto.NewFullID(rng)

	auth := authority.ClientAuthority{
		ClientPubID:   fullID.Public(),
		ProxyNodeName: crypto.RandomXorName(rng),
	}

	return auth, fullID.Public().SigningKey()
}

// GenClientManagerAuthority draws a client manager authority at a random
// name.
func GenClientManagerAuthority(rng *rand.Rand) authority.ClientManagerAuthority {
	return authority.ClientManagerAt(crypto.RandomXorName(rng))
}
