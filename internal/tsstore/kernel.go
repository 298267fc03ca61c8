package tsstore

import (
	"log/slog"

	"github.com/cilium/ebpf"
)

// ebpfMap is the subset of *ebpf.Map's API KernelStore depends on, narrowed
// so tests can substitute a fake instead of needing a live kernel map.
type ebpfMap interface {
	Put(key, value interface{}) error
	Lookup(key, valueOut interface{}) error
}

// Kernel map selectors: a capacity-2 hash map named PKT_TIMESTAMP, keyed
// by a one-byte selector.
const (
	KernelKeyRX uint8 = 0
	KernelKeyTX uint8 = 1

	// KernelMapName is the name the classifier program must register its
	// map under for KernelStore to find it via the loaded collection.
	KernelMapName = "PKT_TIMESTAMP"
)

// KernelStore reads last-seen timestamps from the shared eBPF map populated
// by the TC classifier programs. Values are 64-bit nanosecond timestamps
// from the kernel's monotonic clock (bpf_ktime_get_ns); Snapshot converts
// to microseconds so the decision loop never has to know which backend
// it's reading from.
//
// The classifier writes; this type only reads. Record* exist to satisfy the
// Store interface and are useful in tests that exercise the decision loop
// against a map nobody is attaching a live program to, but production
// startup never calls them — see internal/datapath/kernelpath. Unlike the
// Store interface's microsecond arguments, they take kernel nanoseconds:
// the value is written to the map unchanged and Snapshot divides it by 1000.
type KernelStore struct {
	log *slog.Logger
	m   ebpfMap
}

// NewKernelStore wraps an already-opened PKT_TIMESTAMP map.
func NewKernelStore(log *slog.Logger, m *ebpf.Map) *KernelStore {
	return &KernelStore{log: log, m: m}
}

func (s *KernelStore) RecordTX(nowNS uint64) { s.put(KernelKeyTX, nowNS) }
func (s *KernelStore) RecordRX(nowNS uint64) { s.put(KernelKeyRX, nowNS); s.put(KernelKeyTX, nowNS) }

func (s *KernelStore) put(key uint8, val uint64) {
	if err := s.m.Put(key, val); err != nil {
		s.log.Warn("tsstore: kernel map write failed", "key", key, "error", err)
	}
}

// Snapshot reads both selectors from the map. An unreadable map, or a key
// that was never written, is treated as reading zero for that key rather
// than surfaced as an error, since an idle interface's map may
// legitimately have no entries yet.
func (s *KernelStore) Snapshot() (txUS, rxUS uint64) {
	txUS = s.read(KernelKeyTX)
	rxUS = s.read(KernelKeyRX)
	return txUS, rxUS
}

func (s *KernelStore) read(key uint8) uint64 {
	var ns uint64
	if err := s.m.Lookup(key, &ns); err != nil {
		if s.log != nil {
			s.log.Debug("tsstore: kernel map read miss, treating as zero", "key", key, "error", err)
		}
		return 0
	}
	return ns / 1000
}

var _ Store = (*KernelStore)(nil)
