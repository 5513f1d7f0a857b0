// Package persist implements the debounced background saver that owns
// writes of the configuration file.
//
// A Saver coalesces bursts of save requests into a single write. Each request
// pushes the deadline out by the debounce window, so the write happens only
// once requests stop arriving for that long:
//
//	Idle --Request--> PendingSave --(quiet for Debounce)--> save --> Idle
//	any  --Close-->   Draining    --(save if pending)--> stopped
//
// Requests never block the caller. Failed saves are counted and logged but not
// retried; the next request triggers the next attempt.
package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
)

const (
	// DefaultDebounce is the quiet period required before a save.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultPollInterval is how often a pending save checks its deadline.
	DefaultPollInterval = 100 * time.Millisecond
)

// State is the saver's position in its state machine.
type State int32

const (
	StateIdle State = iota
	StatePending
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SaveFunc serializes the current state and writes it.
type SaveFunc func(ctx context.Context) error

// Options configures a Saver.
type Options struct {
	// Debounce is the quiet period after the last request. Defaults to DefaultDebounce.
	Debounce time.Duration
	// PollInterval is the deadline check period. Defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Metrics receives failure counts. A fresh Metrics is used when nil.
	Metrics *Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
	// OnError is called after a failed background save.
	OnError func(err error, failures uint64)
}

// Saver runs the background save loop.
type Saver struct {
	save SaveFunc
	opts Options

	// Single slot: a queued signal already means "pending".
	requests    chan struct{}
	lastRequest atomic.Int64
	state       atomic.Int32

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a Saver that calls save when requests settle.
func New(save SaveFunc, opts Options) *Saver {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Saver{
		save:     save,
		opts:     opts,
		requests: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Request schedules a save. It never blocks and is a no-op after Close.
func (s *Saver) Request() {
	select {
	case <-s.quit:
		return
	default:
	}

	s.lastRequest.Store(s.opts.Clock().UnixNano())
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// State returns the current state.
func (s *Saver) State() State {
	return State(s.state.Load())
}

// Metrics returns the counters the saver reports into.
func (s *Saver) Metrics() *Metrics {
	return s.opts.Metrics
}

// Close stops accepting requests, performs a final save if one is pending,
// and waits for the loop to exit or ctx to expire.
func (s *Saver) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.quit) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Saver) run() {
	defer close(s.done)
	defer s.state.Store(int32(StateStopped))

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-s.requests:
			pending = true
			s.state.Store(int32(StatePending))

		case <-ticker.C:
			if !pending {
				continue
			}
			last := time.Unix(0, s.lastRequest.Load())
			if s.opts.Clock().Sub(last) < s.opts.Debounce {
				continue
			}
			pending = false
			s.state.Store(int32(StateIdle))
			s.runSave()

		case <-s.quit:
			s.state.Store(int32(StateDraining))
			select {
			case <-s.requests:
				pending = true
			default:
			}
			if pending {
				s.runSave()
			}
			return
		}
	}
}

func (s *Saver) runSave() {
	err := s.save(context.Background())
	if err == nil {
		return
	}

	failures := s.opts.Metrics.RecordFailure()
	log := logging.Component("persist")
	log.Error().
		Err(err).
		Uint64("failures", failures).
		Msg("failed to save config")

	if s.opts.OnError != nil {
		s.opts.OnError(err, failures)
	}
}
