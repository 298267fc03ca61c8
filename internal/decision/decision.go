// Package decision implements the link-health state machine: a periodic
// sampler that reads a timestamp store's skew and walks a small state
// table, agnostic of which data-path backend fed the store.
package decision

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"netonl/internal/tsstore"
)

// State mirrors the ordinal values of the public netonl.State type
// (0=Error, 1=Unknown, 2=Down, 3=Up); kept as its own type here so this
// package has no dependency on the root module, which would create an
// import cycle.
type State int

const (
	StateError State = iota
	StateUnknown
	StateDown
	StateUp
)

// EmitFunc is called with each event the loop decides to publish. It
// should block until the event is durably handed off (e.g. into a bounded
// channel); Loop does not buffer internally.
type EmitFunc func(ctx context.Context, st State)

// SkewFunc, if set, is called once per sample with the latest |tx-rx| skew
// in microseconds, whether or not that sample produced a state transition.
// It exists for metrics observation and is never required for correctness.
type SkewFunc func(skewUS uint64)

// Loop runs the state machine against a tsstore.Store on a self-correcting
// cadence.
type Loop struct {
	log       *slog.Logger
	clock     clockwork.Clock
	store     tsstore.Store
	threshold time.Duration
	emit      EmitFunc
	onSkew    SkewFunc
}

// New constructs a Loop. threshold is rxtx_threshold_ms from config.
func New(log *slog.Logger, clock clockwork.Clock, store tsstore.Store, threshold time.Duration, emit EmitFunc) *Loop {
	return &Loop{log: log, clock: clock, store: store, threshold: threshold, emit: emit}
}

// WithSkewObserver sets the optional SkewFunc and returns the Loop for
// chaining at construction time.
func (l *Loop) WithSkewObserver(onSkew SkewFunc) *Loop {
	l.onSkew = onSkew
	return l
}

// cadence is ceil(threshold/3).
func (l *Loop) cadence() time.Duration {
	thirds := math.Ceil(float64(l.threshold.Milliseconds()) / 3)
	return time.Duration(thirds) * time.Millisecond
}

// Run drives the loop until ctx is canceled. It publishes the initial
// Unknown event immediately, sleeps one full threshold so the data path
// has time to populate timestamps, then samples on cadence() until
// canceled or the state machine reaches Error (terminal).
func (l *Loop) Run(ctx context.Context) {
	l.emit(ctx, StateUnknown)

	select {
	case <-l.clock.After(l.threshold):
	case <-ctx.Done():
		return
	}

	period := l.cadence()
	current := StateUnknown

	timer := l.clock.NewTimer(period)
	defer timer.Stop()

	for {
		start := l.clock.Now()

		skewUS := l.skew()
		if l.onSkew != nil {
			l.onSkew(skewUS)
		}

		next, emitted := transition(current, skewUS, l.thresholdUS())
		if emitted {
			l.emit(ctx, next)
		}
		current = next

		if current == StateError {
			return
		}

		elapsed := l.clock.Now().Sub(start)
		sleep := period - elapsed
		if sleep < 0 {
			sleep = 0
		}

		timer.Reset(sleep)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			return
		}
	}
}

// skew returns |last_tx_us - last_rx_us| in the store's native units.
func (l *Loop) skew() uint64 {
	tx, rx := l.store.Snapshot()
	if tx > rx {
		return tx - rx
	}
	return rx - tx
}

// thresholdUS converts l.threshold to the store's native microsecond
// units.
func (l *Loop) thresholdUS() uint64 {
	return uint64(l.threshold.Microseconds())
}

// transition implements the state table. emitted is false when the
// transition is a same-state no-op; duplicate consecutive states are
// coalesced rather than re-emitted.
func transition(current State, skewUS, thresholdUS uint64) (next State, emitted bool) {
	switch current {
	case StateUnknown:
		if skewUS > thresholdUS {
			return StateDown, true
		}
		return StateUp, true
	case StateUp:
		if skewUS > thresholdUS {
			return StateDown, true
		}
		return StateUp, false
	case StateDown:
		if skewUS < thresholdUS {
			return StateUp, true
		}
		return StateDown, false
	case StateError:
		return StateError, false
	default:
		return current, false
	}
}
