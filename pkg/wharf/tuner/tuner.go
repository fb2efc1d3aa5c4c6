// Package tuner detects system resources and derives worker counts for
// tree walks and content hashing.
package tuner

import "github.com/jamesainslie/wharf/pkg/wharf/types"

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// Worker limits.
const (
	maxWorkers     = 64
	minWalkWorkers = 4
	minHashWorkers = 2
)

// bytesPerHashWorker approximates the memory a hashing worker holds:
// the read buffer plus hasher state.
const bytesPerHashWorker = 256 * types.KiB

// hashMemoryFraction caps hashing buffers to a slice of available RAM.
const hashMemoryFraction = 0.01

// OptimalConfig contains tuned worker counts.
type OptimalConfig struct {
	// WalkWorkers is the number of goroutines reading directories.
	WalkWorkers int

	// HashWorkers is the number of files hashed concurrently.
	HashWorkers int
}

// Calculate returns worker counts for the given resources.
//
//   - WalkWorkers: max(NumCPU, 4), directory reads are metadata heavy
//   - HashWorkers: NumCPU * 2, hashing alternates between disk waits and CPU
//   - both are capped at 64 and HashWorkers is further bounded by memory
func Calculate(resources SystemResources) OptimalConfig {
	walk := max(resources.CPUCores, minWalkWorkers)
	walk = min(walk, maxWorkers)

	hash := max(resources.CPUCores*2, minHashWorkers)
	hash = min(hash, maxWorkers)
	if resources.AvailableRAM > 0 {
		budget := int(float64(resources.AvailableRAM) * hashMemoryFraction / float64(bytesPerHashWorker))
		hash = max(min(hash, budget), minHashWorkers)
	}

	return OptimalConfig{
		WalkWorkers: walk,
		HashWorkers: hash,
	}
}

// CalculateWithOverrides applies a user override to both pools.
// Values <= 0 keep the calculated counts.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	config := Calculate(resources)

	if workerOverride > 0 {
		workers := min(workerOverride, maxWorkers)
		config.WalkWorkers = workers
		config.HashWorkers = workers
	}

	return config
}

// Auto detects resources and returns the resulting configuration, falling
// back to conservative defaults when detection fails.
func Auto(workerOverride int) OptimalConfig {
	resources, err := Detect()
	if err != nil {
		resources = SystemResources{
			CPUCores:     4,
			TotalRAM:     8 * types.GiB,
			AvailableRAM: 4 * types.GiB,
		}
	}
	return CalculateWithOverrides(resources, workerOverride)
}
