package netonl

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultRXTXThresholdMS = 1500 * time.Millisecond
	defaultICMPIntervalMS  = 1 * time.Second
)

// Config configures a Controller. The zero value is valid; Validate fills
// in defaults for anything left unset.
type Config struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// RXTXThreshold is the maximum tolerated skew between last-RX and
	// last-TX before the link is declared Down. Defaults to 1500ms.
	RXTXThreshold time.Duration

	// UseKernelDataPath selects the eBPF/TC data path over the userspace
	// pcap data path. Defaults to false (userspace), since it requires no
	// elevated kernel capabilities beyond raw capture.
	UseKernelDataPath bool

	// KernelProgramPath is the path to the compiled classifier object the
	// kernel data path loads. Required when UseKernelDataPath is true.
	KernelProgramPath string

	// ICMPTargets, when non-empty, enables the active-probe generator
	// against each listed host.
	ICMPTargets []string

	// ICMPInterval is the period between probes to each target. Defaults
	// to 1s.
	ICMPInterval time.Duration

	// CountOutboundUDPAsTX overrides the default rule that outbound UDP
	// frames don't update last_tx_us.
	CountOutboundUDPAsTX bool

	// EnableAckCrossCheck turns on the optional TCP ACK bookkeeping in
	// internal/ackstore. Off by default: it's a diagnostic aid, not
	// required for the state machine.
	EnableAckCrossCheck bool

	// MetricsRegistry, if set, is used to register this Controller's
	// metrics instead of prometheus.DefaultRegisterer. Threading a
	// per-Controller registry through avoids duplicate-registration
	// panics when more than one Controller (e.g. in tests, or watching
	// more than one interface) runs in the same process.
	MetricsRegistry *prometheus.Registry
}

// Validate applies defaults and returns an error if any required
// combination of fields is missing.
func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RXTXThreshold <= 0 {
		c.RXTXThreshold = defaultRXTXThresholdMS
	}
	if c.ICMPInterval <= 0 {
		c.ICMPInterval = defaultICMPIntervalMS
	}
	if c.UseKernelDataPath && c.KernelProgramPath == "" {
		return errors.New("netonl: kernel_program_path is required when use_kernel_data_path is set")
	}
	return nil
}
