package main

import (
	"testing"
	"time"
)

func TestSweepOnceRemovesExpiredEntries(t *testing.T) {
	s := NewStore(4)
	s.Set("a", ExpiringFrame("1", time.Millisecond))
	s.Set("b", ExpiringFrame("2", time.Millisecond))
	s.Set("c", PlainFrame("3"))
	time.Sleep(5 * time.Millisecond)

	cfg := sweeperConfig{Tick: time.Millisecond, SampleSize: 20, SuccessFactor: 4}
	removed := sweepOnce(cfg, s)
	if removed != 2 {
		t.Fatalf("got removed=%d, want 2", removed)
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("plain entry must survive a sweep")
	}
}

func TestSweepOnceIgnoresLiveExpiringEntries(t *testing.T) {
	s := NewStore(4)
	s.Set("a", ExpiringFrame("1", time.Hour))

	cfg := sweeperConfig{Tick: time.Millisecond, SampleSize: 20, SuccessFactor: 4}
	removed := sweepOnce(cfg, s)
	if removed != 0 {
		t.Fatalf("got removed=%d, want 0", removed)
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("unexpired entry must survive a sweep")
	}
}

func TestSweepOnceStopsBelowSampleSize(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 3; i++ {
		s.Set(string(rune('a'+i)), ExpiringFrame("x", time.Millisecond))
	}
	time.Sleep(5 * time.Millisecond)

	cfg := sweeperConfig{Tick: time.Millisecond, SampleSize: 20, SuccessFactor: 4}
	removed := sweepOnce(cfg, s)
	if removed != 3 {
		t.Fatalf("got removed=%d, want 3", removed)
	}
}

func TestSampleWithoutReplacementIsDistinct(t *testing.T) {
	candidates := []candidate{{key: "a"}, {key: "b"}, {key: "c"}, {key: "d"}}
	sample := sampleWithoutReplacement(candidates, 2)
	if len(sample) != 2 {
		t.Fatalf("got len=%d, want 2", len(sample))
	}
	if sample[0].key == sample[1].key {
		t.Fatal("sample must not repeat a candidate")
	}
}

func TestSampleWithoutReplacementCapsAtCandidateCount(t *testing.T) {
	candidates := []candidate{{key: "a"}, {key: "b"}}
	sample := sampleWithoutReplacement(candidates, 10)
	if len(sample) != 2 {
		t.Fatalf("got len=%d, want 2", len(sample))
	}
}
