// Package datapath defines the common capability both data-path variants
// (kernel eBPF/TC and userspace pcap) implement: two variants of a common
// data-path capability rather than conditional compilation tangled into
// the detector.
package datapath

import "context"

// DataPath installs whatever mechanism feeds a tsstore.Store and tears it
// down again on Stop. Start must be idempotent against repeated calls to
// the extent its backend allows; Stop always is.
type DataPath interface {
	Start(ctx context.Context) error
	Stop() error
}
