/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command vaultsim drives a seeded workload through the simulated network:
// it boots a node group, connects a client, creates its account and runs
// randomized store/fetch/mutate rounds, reporting what happened.  Two runs
// with the same seed produce the same traffic.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"vaultsim/harness"
	"vaultsim/routing"
	"vaultsim/vault"
)

var (
	seed      = kingpin.Flag("seed", "Seed the whole run replays from.").Default("42").Int64()
	nodeCount = kingpin.Flag("nodes", "Number of storage nodes to boot.").Default("8").Int()
	ops       = kingpin.Flag("ops", "Number of randomized rounds; 0 uses the default.").Default("0").Int()
	quick     = kingpin.Flag("quick", "Run fewer randomized rounds.").Bool()
	verbose   = kingpin.Flag("verbose", "Log node and network activity.").Short('v').Bool()
)

func main() {
	kingpin.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "vaultsim: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	dir, err := os.MkdirTemp("", "vaultsim")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	network := routing.NewNetwork(*seed, logger)

	store, err := vault.NewStore(dir, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	vault.CreateNodes(network, store, *nodeCount, network.NewRand(), logger)

	client := harness.New(network, nil)
	client.EnsureConnected()
	client.CreateAccount()

	cfg := harness.DefaultConfig()
	if *quick {
		cfg = harness.QuickConfig()
	}
	if *ops > 0 {
		cfg.Iterations = *ops
	}

	rng := network.NewRand()
	rounds := 0

	for i := 0; i < cfg.Iterations; i++ {
		chunk := harness.GenImmutableData(rng, 1+rng.Intn(1024))
		if err := client.PutIDataResponse(chunk); err != nil {
			return fmt.Errorf("round %d: store chunk: %w", i, err)
		}
		if _, err := client.GetIDataResponse(chunk.Name()); err != nil {
			return fmt.Errorf("round %d: fetch chunk: %w", i, err)
		}

		record := harness.GenMutableData(rng, 1000, client.SigningPublicKey())
		if err := client.PutMDataResponse(record); err != nil {
			return fmt.Errorf("round %d: store record: %w", i, err)
		}

		actions := harness.GenEntryActions(rng, record, 5)
		if len(actions) > 0 {
			if err := client.MutateMDataEntriesResponse(record.Name(), record.Tag(), actions); err != nil {
				return fmt.Errorf("round %d: mutate record: %w", i, err)
			}
		}

		rounds++
	}

	info, err := client.GetAccountInfoResponse()
	if err != nil {
		return fmt.Errorf("account info: %w", err)
	}

	fmt.Printf("seed %d: %d rounds against %d nodes\n", *seed, rounds, *nodeCount)
	fmt.Printf("mutations done %d, available %d, journalled %d\n",
		info.MutationsDone, info.MutationsAvailable, store.MutationLog().Count())

	return nil
}
