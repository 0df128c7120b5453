// Package monitor drives periodic refreshes of a home and records each round
// in the status log.
package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/homemon/pkg/home"
	"github.com/ExclusiveAccount/homemon/pkg/statuslog"
)

// DefaultInterval is the pause between rounds.
const DefaultInterval = 60 * time.Second

// State is the loop state.
type State int

const (
	// Initializing means the header has not been written yet.
	Initializing State = iota
	// Running means rounds are being recorded.
	Running
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Round is the outcome of one poll cycle.
type Round struct {
	Time    time.Time // Captured at the start of the round
	Healthy []bool    // Per device, registry order
	Row     string    // Status log row as written
}

// Observer receives every completed round.
type Observer interface {
	Publish(home *home.Home, round Round)
}

// Sleeper pauses between rounds. It returns early only when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Monitor repeatedly refreshes a home and appends a row per round to the
// status log. Rounds are separated by a fixed sleep after the work completes;
// there is no catch-up for slow rounds.
type Monitor struct {
	home      *home.Home
	log       *statuslog.Writer
	errSink   io.Writer
	interval  time.Duration
	logger    *logrus.Logger
	observers []Observer
	now       func() time.Time
	sleep     Sleeper

	mu    sync.RWMutex
	state State
	round int
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the pause between rounds.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithErrorSink sets where probe failures are recorded.
func WithErrorSink(w io.Writer) Option {
	return func(m *Monitor) { m.errSink = w }
}

// WithLogger sets the process logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver adds an observer notified after every round.
func WithObserver(o Observer) Option {
	return func(m *Monitor) { m.observers = append(m.observers, o) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSleeper replaces the pause between rounds.
func WithSleeper(s Sleeper) Option {
	return func(m *Monitor) { m.sleep = s }
}

// New creates a monitor for h writing to w.
func New(h *home.Home, w *statuslog.Writer, opts ...Option) *Monitor {
	m := &Monitor{
		home:     h,
		log:      w,
		interval: DefaultInterval,
		logger:   logrus.New(),
		now:      time.Now,
		sleep:    sleep,
		state:    Initializing,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the loop state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Rounds returns the number of rounds recorded so far.
func (m *Monitor) Rounds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round
}

// Run writes the header once and then records a round every interval until
// ctx is done. A round in progress is always completed and written before Run
// returns. Only a status log failure makes Run return an error.
//
// There is no stop command: ctx is meant to be cancelled only when the process
// is terminating (SIGINT or SIGTERM), so the caller can close the log.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.log.WriteHeader(m.home.Devices()); err != nil {
		return fmt.Errorf("failed to write status log header: %w", err)
	}

	m.mu.Lock()
	m.state = Running
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"home":     m.home.Name(),
		"devices":  m.home.Len(),
		"interval": m.interval,
		"workers":  m.home.Workers(),
	}).Info("Monitoring started")

	for {
		if _, err := m.Cycle(); err != nil {
			return err
		}

		if err := m.sleep(ctx, m.interval); err != nil {
			m.logger.WithField("rounds", m.Rounds()).Info("Monitoring stopped")
			return nil
		}
	}
}

// Cycle runs one round: timestamp, refresh, row, append. It does not sleep.
func (m *Monitor) Cycle() (Round, error) {
	started := m.now()

	m.home.Refresh(m.errSink)

	healthy := m.home.Healthy()
	round := Round{
		Time:    started,
		Healthy: healthy,
		Row:     statuslog.Row(started, healthy),
	}

	if err := m.log.WriteRow(started, healthy); err != nil {
		return round, fmt.Errorf("failed to record round: %w", err)
	}

	m.mu.Lock()
	m.round++
	m.mu.Unlock()

	up := 0
	for _, ok := range healthy {
		if ok {
			up++
		}
	}
	m.logger.WithFields(logrus.Fields{
		"up":       up,
		"down":     len(healthy) - up,
		"duration": m.now().Sub(started).Round(time.Millisecond),
	}).Debug("Round recorded")

	for _, o := range m.observers {
		o.Publish(m.home, round)
	}

	return round, nil
}
