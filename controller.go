// Package netonl implements a packet-timing-based link health detector
// with dual kernel-eBPF/userspace-capture data paths, a decision-loop state
// machine, optional ICMP active probing, and a bounded event stream.
package netonl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/jonboulle/clockwork"

	"netonl/internal/ackstore"
	"netonl/internal/classifier"
	"netonl/internal/datapath"
	"netonl/internal/datapath/kernelpath"
	"netonl/internal/datapath/userpath"
	"netonl/internal/decision"
	"netonl/internal/probe"
	"netonl/internal/tsstore"
)

// activeInterfaces tracks which interface names currently have a started
// Controller, process-wide: starting a second controller on the same
// interface while one is active is rejected outright.
var (
	activeInterfacesMu sync.Mutex
	activeInterfaces   = map[string]bool{}
)

// Controller is the library's public entry point. Construct with New, then
// call Start once; afterwards only the returned EventReceiver is
// meaningful.
type Controller struct {
	interfaceName string
	cfg           Config
	log           *slog.Logger
	clock         clockwork.Clock

	metrics *metrics
	store   tsstore.Store
	acks    *ackstore.Store

	dataPath datapath.DataPath
	probe    *probe.Worker
	loop     *decision.Loop
	stream   *eventStream

	cancel context.CancelFunc
}

// New validates that interfaceName exists and constructs a Controller
// without activating any workers. The clock parameter allows tests to
// inject a fake clock; production callers should pass
// clockwork.NewRealClock().
func New(interfaceName string, cfg Config, clock clockwork.Clock) (*Controller, error) {
	if _, err := net.InterfaceByName(interfaceName); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, interfaceName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	store := tsstore.NewMemStore(clock)

	var acks *ackstore.Store
	if cfg.EnableAckCrossCheck {
		acks = ackstore.New()
	}

	return &Controller{
		interfaceName: interfaceName,
		cfg:           cfg,
		log:           cfg.Logger,
		clock:         clock,
		metrics:       newMetrics(registererFrom(cfg.MetricsRegistry)),
		store:         store,
		acks:          acks,
	}, nil
}

// Start activates the data path, decision loop, and optional active
// prober, and returns the consumer end of the event stream. Ownership of
// the Controller transfers into its workers; callers should retain only
// the EventReceiver afterwards.
func (c *Controller) Start() (*EventReceiver, error) {
	if err := c.reserveInterface(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	dp, err := c.startDataPath(ctx)
	if err != nil {
		c.releaseInterface()
		cancel()
		return nil, err
	}
	c.dataPath = dp

	c.stream = newEventStream()

	c.loop = decision.New(c.log, c.clock, c.store, c.cfg.RXTXThreshold, c.emit).
		WithSkewObserver(func(skewUS uint64) { c.metrics.observeSkew(c.interfaceName, skewUS) })
	go c.loop.Run(ctx)

	if len(c.cfg.ICMPTargets) > 0 {
		c.probe = probe.New(c.log, c.cfg.ICMPTargets, c.cfg.ICMPInterval)
		c.probe.Start(ctx)
	}

	return &EventReceiver{ch: c.stream.ch}, nil
}

// startDataPath builds and starts either the kernel or userspace data
// path, wiring its classifier to the Controller's shared timestamp store.
func (c *Controller) startDataPath(ctx context.Context) (datapath.DataPath, error) {
	if c.cfg.UseKernelDataPath {
		dp := kernelpath.New(kernelpath.Config{
			InterfaceName: c.interfaceName,
			ProgramPath:   c.cfg.KernelProgramPath,
			Log:           c.log,
		})
		if err := dp.Start(ctx); err != nil {
			if errors.Is(err, kernelpath.ErrAttachFailed) {
				return nil, fmt.Errorf("%w: %v", ErrAttachFailed, err)
			}
			return nil, err
		}
		c.store = tsstore.NewKernelStore(c.log, dp.Map)
		return dp, nil
	}

	classifierConfig := classifier.Config{CountOutboundUDPAsTX: c.cfg.CountOutboundUDPAsTX}
	clsfr := classifier.New(c.log, c.clock, c.store, c.acks, classifierConfig)

	dp, err := userpath.New(userpath.Config{
		InterfaceName: c.interfaceName,
		Classifier:    clsfr,
		Log:           c.log,
		OnCaptureError: func(error) {
			c.emit(context.Background(), StateError)
		},
	})
	if err != nil {
		if errors.Is(err, userpath.ErrInterfaceNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, c.interfaceName)
		}
		return nil, err
	}
	if err := dp.Start(ctx); err != nil {
		if errors.Is(err, userpath.ErrUnsupportedChannel) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedChannel, err)
		}
		return nil, err
	}
	return dp, nil
}

// emit converts a decision.State into the public State type and publishes
// it, updating metrics alongside (ordinals are defined to match exactly).
func (c *Controller) emit(ctx context.Context, st decision.State) {
	public := State(st)
	c.metrics.observeTransition(c.interfaceName, public)
	c.stream.send(ctx, public)
}

// Stop tears down all workers and releases the interface reservation.
// Safe to call once after Start; EventReceiver.Recv will subsequently
// report the stream as closed.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.dataPath != nil {
		c.dataPath.Stop()
	}
	if c.probe != nil {
		c.probe.Stop()
	}
	if c.stream != nil {
		c.stream.close()
	}
	c.releaseInterface()
}

// AckBacklog returns the number of outstanding TCP ACKs currently tracked by
// the advisory cross-check store, or -1 if EnableAckCrossCheck was never set.
// It is diagnostic only: nothing in the decision loop reads this value.
func (c *Controller) AckBacklog() int {
	if c.acks == nil {
		return -1
	}
	return c.acks.Len()
}

func (c *Controller) reserveInterface() error {
	activeInterfacesMu.Lock()
	defer activeInterfacesMu.Unlock()
	if activeInterfaces[c.interfaceName] {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, c.interfaceName)
	}
	activeInterfaces[c.interfaceName] = true
	return nil
}

func (c *Controller) releaseInterface() {
	activeInterfacesMu.Lock()
	defer activeInterfacesMu.Unlock()
	delete(activeInterfaces, c.interfaceName)
}
