package main

import "go.uber.org/atomic"

// Stats holds lock-free operation counters, safe for concurrent
// increment from every connection goroutine without any of the mutex
// contention a shared-lock counter would introduce on the hot path.
type Stats struct {
	TotalOps    atomic.Uint64
	PingOps     atomic.Uint64
	EchoOps     atomic.Uint64
	GetOps      atomic.Uint64
	SetOps      atomic.Uint64
	Connections atomic.Uint64
	Expired     atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{}
}

// Snapshot is a point-in-time copy of Stats, safe to log or expose
// without holding a reference into the live counters.
type Snapshot struct {
	TotalOps    uint64
	PingOps     uint64
	EchoOps     uint64
	GetOps      uint64
	SetOps      uint64
	Connections uint64
	Expired     uint64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalOps:    s.TotalOps.Load(),
		PingOps:     s.PingOps.Load(),
		EchoOps:     s.EchoOps.Load(),
		GetOps:      s.GetOps.Load(),
		SetOps:      s.SetOps.Load(),
		Connections: s.Connections.Load(),
		Expired:     s.Expired.Load(),
	}
}
