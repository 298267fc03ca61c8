// Package kernelpath implements the kernel eBPF/TC data-path variant: a
// pair of TC classifier programs attached to the egress/ingress hooks of
// one interface, sharing a PKT_TIMESTAMP map with userspace. The startup
// sequence (non-fatal RLIMIT_MEMLOCK raise, object load, idempotent clsact
// qdisc, attach egress then ingress; there is no classifier-log
// initialisation step) and the "already exists
// is success" qdisc idempotency follow the conventions elsewhere in this
// module for dealing with netlink and kernel attach points.
//
// The attach/detach mechanics live in kernelpath_linux.go; this file holds
// the platform-independent shape so the package still builds (with Start
// always failing) when cross-compiled for a non-Linux target.
package kernelpath

import (
	"errors"
	"io"
	"log/slog"

	"github.com/cilium/ebpf"

	"netonl/internal/datapath"
)

var _ datapath.DataPath = (*DataPath)(nil)

const (
	progEgress  = "netonl_classifier_egress"
	progIngress = "netonl_classifier_ingress"
	mapName     = "PKT_TIMESTAMP"
)

// ErrAttachFailed mirrors the root package's sentinel; kernelpath defines
// its own to avoid an import cycle, the same pattern userpath uses.
var ErrAttachFailed = errors.New("kernelpath: classifier attach failed")

// Config wires the interface and compiled object to load.
type Config struct {
	InterfaceName string
	ProgramPath   string
	Log           *slog.Logger
}

// DataPath is the kernelpath implementation of datapath.DataPath. Map is
// exported so a tsstore.KernelStore can be constructed from it after
// Start succeeds.
type DataPath struct {
	cfg Config
	Map *ebpf.Map

	coll    *ebpf.Collection
	egress  io.Closer
	ingress io.Closer
}

func New(cfg Config) *DataPath {
	return &DataPath{cfg: cfg}
}
