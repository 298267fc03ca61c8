// Package addrutil provides the microsecond clock and address-classification
// primitives shared by the classifier, the timestamp stores, and the decision
// loop.
package addrutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// NowTruncatedMicros returns microseconds since clk's epoch, truncated into a
// uint64. Only differences between calls matter: the decision loop computes
// |tx-rx| in modular arithmetic over an interval of interest measured in
// seconds, so wraparound at the top of the uint64 range is not a concern in
// practice.
func NowTruncatedMicros(clk clockwork.Clock) uint64 {
	return uint64(clk.Now().UnixMicro())
}

// NowMicros is NowTruncatedMicros against the real wall clock, for callers
// that don't need to inject a fake clock.
func NowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}
