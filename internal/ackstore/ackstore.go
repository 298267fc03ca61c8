// Package ackstore tracks outstanding TCP sequence numbers seen on
// outbound ACKs, as an advisory cross-check the classifier can consult
// but does not require. It is a bounded FIFO of the most recent sequence
// numbers plus a side index for O(1) membership checks.
package ackstore

import "sync"

// capacity bounds memory use; the oldest entry is evicted once it's reached.
const capacity = 1000

// Store is a mutex-guarded ring of outbound TCP sequence numbers. Add
// records a sequence seen on an outbound ACK; Remove marks one as
// acknowledged-for by the peer without needing to scan the ring. Both
// operations are O(1).
type Store struct {
	mu   sync.Mutex
	ring []uint32
	idx  map[uint32]bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		ring: make([]uint32, 0, capacity),
		idx:  make(map[uint32]bool, capacity),
	}
}

// Add records seq as outstanding, evicting the oldest entry first if the
// store is at capacity.
func (s *Store) Add(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ring) >= capacity {
		oldest := s.ring[0]
		s.ring = s.ring[1:]
		delete(s.idx, oldest)
	}
	s.ring = append(s.ring, seq)
	s.idx[seq] = true
}

// Remove marks seq as no longer outstanding. It does not shrink the ring;
// the entry is skipped on eviction and absent from Contains. A seq that is
// not in the store is ignored.
func (s *Store) Remove(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx[seq]; ok {
		s.idx[seq] = false
	}
}

// Contains reports whether seq is currently outstanding.
func (s *Store) Contains(seq uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx[seq]
}

// Len returns the number of entries currently in the ring, including ones
// already Remove'd (they remain until evicted).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ring)
}
