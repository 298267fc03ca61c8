// Package userpath implements the userspace data-path variant: a live
// pcap capture on one interface, feeding every captured frame to the
// shared classifier.
package userpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"netonl/internal/classifier"
	"netonl/internal/datapath"
)

var _ datapath.DataPath = (*DataPath)(nil)

const (
	snapLen     = 262144
	promisc     = true
	readTimeout = 100 * time.Millisecond
)

// Config wires the interface to capture on and the classifier each frame
// is handed to.
type Config struct {
	InterfaceName string
	Classifier    *classifier.Classifier
	Log           *slog.Logger

	// OnCaptureError is invoked (from the capture goroutine) whenever a
	// read returns a non-timeout error. It is reported as an Error event
	// on the stream; the worker continues.
	OnCaptureError func(error)
}

// DataPath is the userpath implementation of datapath.DataPath.
type DataPath struct {
	cfg      Config
	ifaceMAC net.HardwareAddr

	handle *pcap.Handle

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	cancelMu sync.Mutex
}

// New looks up the interface eagerly so construction can fail fast with
// InterfaceNotFound, but does not open the capture handle until Start.
func New(cfg Config) (*DataPath, error) {
	iface, err := net.InterfaceByName(cfg.InterfaceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, cfg.InterfaceName)
	}
	return &DataPath{cfg: cfg, ifaceMAC: iface.HardwareAddr}, nil
}

// ErrInterfaceNotFound and ErrUnsupportedChannel mirror the root package's
// sentinel errors; userpath can't import the root package without
// creating an import cycle, so it defines and wraps its own.
var (
	ErrInterfaceNotFound  = errors.New("userpath: interface not found")
	ErrUnsupportedChannel = errors.New("userpath: datalink channel is not Ethernet")
)

// Start opens the live capture handle and spawns the read loop. It fails
// synchronously with ErrUnsupportedChannel if the driver hands back a
// non-Ethernet link type.
func (d *DataPath) Start(ctx context.Context) error {
	handle, err := pcap.OpenLive(d.cfg.InterfaceName, snapLen, promisc, readTimeout)
	if err != nil {
		return fmt.Errorf("userpath: open live capture on %s: %w", d.cfg.InterfaceName, err)
	}
	if handle.LinkType() != layers.LinkTypeEthernet {
		handle.Close()
		return fmt.Errorf("%w: got %s", ErrUnsupportedChannel, handle.LinkType())
	}
	d.handle = handle

	ctx, cancel := context.WithCancel(ctx)
	d.cancelMu.Lock()
	d.cancel = cancel
	d.cancelMu.Unlock()

	d.wg.Add(1)
	go d.run(ctx)

	return nil
}

// run repeatedly receives one frame and feeds it to the classifier. A
// receive error is reported via OnCaptureError; the loop continues rather
// than exiting, since a single bad read does not mean the interface is
// gone.
func (d *DataPath) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, _, err := d.handle.ReadPacketData()
		if err != nil {
			if errors.Is(err, pcap.NextErrorTimeoutExpired) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			d.cfg.Log.Warn("userpath: capture read error", "interface", d.cfg.InterfaceName, "error", err)
			if d.cfg.OnCaptureError != nil {
				d.cfg.OnCaptureError(err)
			}
			continue
		}

		d.cfg.Classifier.ClassifyFrame(data, d.ifaceMAC)
	}
}

// Stop cancels the read loop and closes the capture handle, then blocks
// until the loop goroutine has exited.
func (d *DataPath) Stop() error {
	d.cancelMu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.cancelMu.Unlock()

	if d.handle != nil {
		d.handle.Close()
	}
	d.wg.Wait()
	return nil
}
