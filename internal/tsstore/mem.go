package tsstore

import (
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"netonl/internal/addrutil"
)

// MemStore is the in-process timestamp store: two atomic microsecond
// counters, seeded to "now" at construction so the initial skew is zero.
// All stores use release ordering and all loads use acquire ordering by
// virtue of Go's sync/atomic guarantees on its Load/Store primitives, so
// no additional locking is required.
type MemStore struct {
	lastTxUS atomic.Uint64
	lastRxUS atomic.Uint64
}

// NewMemStore constructs a MemStore seeded from clk.
func NewMemStore(clk clockwork.Clock) *MemStore {
	now := addrutil.NowTruncatedMicros(clk)
	s := &MemStore{}
	s.lastTxUS.Store(now)
	s.lastRxUS.Store(now)
	return s
}

func (s *MemStore) RecordTX(nowUS uint64) {
	s.lastTxUS.Store(nowUS)
}

func (s *MemStore) RecordRX(nowUS uint64) {
	s.lastTxUS.Store(nowUS)
	s.lastRxUS.Store(nowUS)
}

func (s *MemStore) Snapshot() (txUS, rxUS uint64) {
	return s.lastTxUS.Load(), s.lastRxUS.Load()
}

var _ Store = (*MemStore)(nil)
