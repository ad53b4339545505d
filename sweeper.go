package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// sweeperConfig tunes the probabilistic active-expiration loop.
type sweeperConfig struct {
	Tick          time.Duration
	SampleSize    int
	SuccessFactor int
}

type candidate struct {
	key string
}

// runSweeper ticks every cfg.Tick and runs sweepOnce, logging a debug
// summary for each tick that removed at least one key. It returns when
// ctx is cancelled.
func runSweeper(ctx context.Context, cfg sweeperConfig, store *Store, stats *Stats, log *logrus.Logger) {
	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := sweepOnce(cfg, store)
			if removed > 0 {
				stats.Expired.Add(uint64(removed))
				log.WithField("removed", removed).Debug("sweeper: reaped expired keys")
			}
		}
	}
}

// sweepOnce runs the sample-and-expire loop for a single tick: sample
// up to cfg.SampleSize candidates without replacement, remove those
// still expired under the writer lock, and repeat until either fewer
// than cfg.SampleSize candidates remain or the hit rate drops to or
// below 1/cfg.SuccessFactor. It returns the total number of keys
// removed during the tick.
func sweepOnce(cfg sweeperConfig, store *Store) int {
	total := 0
	for {
		candidates := collectExpiringCandidates(store)
		if len(candidates) == 0 {
			return total
		}
		sampleSize := cfg.SampleSize
		if sampleSize > len(candidates) {
			sampleSize = len(candidates)
		}
		sample := sampleWithoutReplacement(candidates, sampleSize)

		removed := 0
		for _, c := range sample {
			if store.RemoveIf(c.key, func(f Frame) bool { return f.Expired() }) {
				removed++
			}
		}
		total += removed

		if len(candidates) < cfg.SampleSize {
			return total
		}
		if cfg.SuccessFactor <= 0 || removed*cfg.SuccessFactor <= len(sample) {
			return total
		}
	}
}

func collectExpiringCandidates(store *Store) []candidate {
	var out []candidate
	store.ForEach(func(key string, frame Frame) {
		if frame.kind == frameExpiring {
			out = append(out, candidate{key: key})
		}
	})
	return out
}

// sampleWithoutReplacement picks up to n distinct elements from
// candidates by taking the first n indices of a random permutation
// (rand.Perm) of all candidate indices, so no candidate is picked twice.
func sampleWithoutReplacement(candidates []candidate, n int) []candidate {
	if n >= len(candidates) {
		return candidates
	}
	perm := rand.Perm(len(candidates))[:n]
	out := make([]candidate, n)
	for i, idx := range perm {
		out[i] = candidates[idx]
	}
	return out
}
