// Package probe implements the optional active-probe generator: a worker
// that emits ICMP echo requests to keep outbound traffic flowing so the
// classifier's TX timestamps advance even on an otherwise idle link.
// Replies are discarded; the probe exists purely to generate traffic, not
// to measure reachability.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Worker runs one pinger per target, each on its own interval tick.
// Construction failure for a target only disables that target; a failure
// across every target disables the worker but never the detector as a
// whole.
type Worker struct {
	log      *slog.Logger
	targets  []string
	interval time.Duration

	wg      sync.WaitGroup
	running atomic.Bool

	cancel   context.CancelFunc
	cancelMu sync.RWMutex
}

// New constructs a Worker for the given targets. targets should be
// externally-reachable hosts outside the private-address filter list; New
// does not validate this, that's the caller's responsibility.
func New(log *slog.Logger, targets []string, interval time.Duration) *Worker {
	return &Worker{log: log, targets: targets, interval: interval}
}

// Start launches one goroutine per target. Safe to call once; a second
// call is a no-op.
func (w *Worker) Start(ctx context.Context) {
	if len(w.targets) == 0 {
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancelMu.Lock()
	w.cancel = cancel
	w.cancelMu.Unlock()

	for _, target := range w.targets {
		target := target
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runTarget(ctx, target)
		}()
	}

	go func() {
		w.wg.Wait()
		w.running.Store(false)
	}()
}

// Stop cancels all probe goroutines and blocks until they exit.
func (w *Worker) Stop() {
	w.cancelMu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.cancelMu.Unlock()
	w.wg.Wait()
	w.running.Store(false)
}

// IsRunning reports whether Start succeeded and at least one target
// goroutine is still active.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// runTarget pings target every w.interval until ctx is canceled. A
// construction failure disables only this target (logged, not fatal).
func (w *Worker) runTarget(ctx context.Context, target string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if !w.probeOnce(ctx, target) {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// probeOnce sends one echo to target. It reports false if the pinger could
// not be constructed.
func (w *Worker) probeOnce(ctx context.Context, target string) bool {
	p, err := probing.NewPinger(target)
	if err != nil {
		w.log.Warn("probe: failed to construct pinger, skipping this target", "target", target, "error", err)
		return false
	}
	p.SetPrivileged(true)
	p.Count = 1
	p.Timeout = w.interval

	done := make(chan struct{})
	go func() { _ = p.Run(); close(done) }()

	select {
	case <-ctx.Done():
		p.Stop()
		<-done
	case <-done:
	}
	return true
}
