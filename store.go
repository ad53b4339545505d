package main

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type frameKind int

const (
	frameEmpty frameKind = iota
	framePlain
	frameExpiring
)

// Frame is a stored entry. The zero value is frameEmpty, a sentinel
// that must never be observed through the public Store API — it only
// ever appears as a shard's unremovable head node payload.
type Frame struct {
	kind      frameKind
	value     string
	ttl       time.Duration
	createdAt time.Time
}

// PlainFrame never expires.
func PlainFrame(value string) Frame {
	return Frame{kind: framePlain, value: value}
}

// ExpiringFrame expires ttl after the moment it is constructed.
// createdAt is captured with time.Now so later comparisons use the
// monotonic reading and are immune to wall-clock adjustments.
func ExpiringFrame(value string, ttl time.Duration) Frame {
	return Frame{kind: frameExpiring, value: value, ttl: ttl, createdAt: time.Now()}
}

// Expired reports whether an Expiring frame has outlived its TTL. A
// Plain frame is never expired.
func (f Frame) Expired() bool {
	return f.kind == frameExpiring && time.Since(f.createdAt) >= f.ttl
}

func (f Frame) String() string {
	return f.value
}

// node is one link in a shard's ascending-key-ordered singly linked
// list. The list always has a permanent sentinel head whose frame is
// never read or written by normal operations.
type node struct {
	key   string
	frame Frame
	next  *node
	mu    sync.RWMutex
}

// shard owns one slice of the keyspace: an ordered linked list guarded
// by hand-over-hand node locking, so a traversal never blocks the
// entire shard — only the two adjacent nodes it currently holds.
type shard struct {
	head *node
}

func newShard() *shard {
	return &shard{head: &node{}}
}

// get looks up key under shared locks throughout, so concurrent reads
// on the same shard proceed without blocking each other. It does not
// mutate the list: a caller that observes an expired frame is
// responsible for reaping it separately (see Store.Get), under the
// exclusive lock removeIf already takes.
func (s *shard) get(key string) (Frame, bool) {
	prev := s.head
	prev.mu.RLock()
	curr := prev.next
	if curr != nil {
		curr.mu.RLock()
	}
	defer func() {
		prev.mu.RUnlock()
		if curr != nil {
			curr.mu.RUnlock()
		}
	}()

	for curr != nil && curr.key < key {
		next := curr.next
		if next != nil {
			next.mu.RLock()
		}
		prev.mu.RUnlock()
		prev, curr = curr, next
	}
	if curr == nil || curr.key != key {
		return Frame{}, false
	}
	return curr.frame, true
}

func (s *shard) set(key string, frame Frame) {
	prev := s.head
	prev.mu.Lock()
	curr := prev.next
	if curr != nil {
		curr.mu.Lock()
	}
	defer func() {
		prev.mu.Unlock()
		if curr != nil {
			curr.mu.Unlock()
		}
	}()

	for curr != nil && curr.key < key {
		next := curr.next
		if next != nil {
			next.mu.Lock()
		}
		prev.mu.Unlock()
		prev, curr = curr, next
	}
	if curr != nil && curr.key == key {
		curr.frame = frame
		return
	}
	n := &node{key: key, frame: frame, next: curr}
	prev.next = n
}

func (s *shard) remove(key string) bool {
	return s.removeIf(key, func(Frame) bool { return true })
}

// removeIf removes key's entry only if pred(frame) holds, evaluated
// while the writer lock on that node's predecessor is already held —
// closing the check-then-act race a separate get-then-remove would
// have.
func (s *shard) removeIf(key string, pred func(Frame) bool) bool {
	prev := s.head
	prev.mu.Lock()
	curr := prev.next
	if curr != nil {
		curr.mu.Lock()
	}
	defer func() {
		prev.mu.Unlock()
		if curr != nil {
			curr.mu.Unlock()
		}
	}()

	for curr != nil && curr.key < key {
		next := curr.next
		if next != nil {
			next.mu.Lock()
		}
		prev.mu.Unlock()
		prev, curr = curr, next
	}
	if curr == nil || curr.key != key || !pred(curr.frame) {
		return false
	}
	prev.next = curr.next
	return true
}

// forEach visits every stored key/frame pair, expired or not, in
// ascending order within this shard, holding read locks only on the
// node currently being inspected and its predecessor. No ordering
// guarantee holds across shards.
func (s *shard) forEach(visit func(key string, frame Frame)) {
	prev := s.head
	prev.mu.RLock()
	curr := prev.next
	if curr != nil {
		curr.mu.RLock()
	}
	defer func() {
		prev.mu.RUnlock()
		if curr != nil {
			curr.mu.RUnlock()
		}
	}()

	for curr != nil {
		visit(curr.key, curr.frame)
		next := curr.next
		if next != nil {
			next.mu.RLock()
		}
		prev.mu.RUnlock()
		prev, curr = curr, next
	}
}

// Store is a fixed-size array of independently locked shards. Shard
// selection mixes a per-process random seed into the xxhash digest of
// the key, so shard placement cannot be predicted across restarts.
type Store struct {
	shards []*shard
	seed   uint64
}

func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = 1
	}
	s := &Store{
		shards: make([]*shard, shardCount),
		seed:   randomSeed(),
	}
	for i := range s.shards {
		s.shards[i] = newShard()
	}
	return s
}

func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on a standard platform does not fail; if it
		// somehow does, falling back to an unseeded digest still gives a
		// correct, merely predictable, shard placement.
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (s *Store) shardFor(key string) *shard {
	d := xxhash.New()
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], s.seed)
	_, _ = d.Write(seedBytes[:])
	_, _ = d.Write([]byte(key))
	return s.shards[d.Sum64()%uint64(len(s.shards))]
}

// Get returns key's live value, if any. The lookup itself takes only
// shared locks, so concurrent GETs on the same shard run uncontended;
// an expired entry is reaped via a separate exclusive-lock removeIf
// call, invoked only on the rare path where one is actually observed,
// rather than left for the sweeper to find later.
func (s *Store) Get(key string) (Frame, bool) {
	sh := s.shardFor(key)
	frame, ok := sh.get(key)
	if !ok {
		return Frame{}, false
	}
	if !frame.Expired() {
		return frame, true
	}
	sh.removeIf(key, func(f Frame) bool { return f.Expired() })
	return Frame{}, false
}

func (s *Store) Set(key string, frame Frame) {
	s.shardFor(key).set(key, frame)
}

func (s *Store) Remove(key string) bool {
	return s.shardFor(key).remove(key)
}

func (s *Store) RemoveIf(key string, pred func(Frame) bool) bool {
	return s.shardFor(key).removeIf(key, pred)
}

// ForEach visits every stored key/frame pair across all shards,
// including entries that have expired but not yet been removed. Order is
// ascending within each shard but unspecified across shards.
func (s *Store) ForEach(visit func(key string, frame Frame)) {
	for _, sh := range s.shards {
		sh.forEach(visit)
	}
}

// ShardCount reports the number of shards the store was constructed
// with.
func (s *Store) ShardCount() int {
	return len(s.shards)
}
