/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness

const (
	defaultIterations = 10
	quickIterations   = 4
)

// Config controls the randomized workload driven through a test client.
type Config struct {
	// Iterations is how many times a randomized scenario repeats with
	// fresh draws from the run's seed.
	Iterations int
}

// DefaultConfig is the full-depth workload configuration.
func DefaultConfig() Config {
	return Config{Iterations: defaultIterations}
}

// QuickConfig trades coverage for speed, for use in short test runs.
func QuickConfig() Config {
	return Config{Iterations: quickIterations}
}
