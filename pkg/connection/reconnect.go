package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Manager errors.
var (
	ErrClosed         = errors.New("connection manager closed")
	ErrAlreadyStarted = errors.New("connection manager already started")
)

// DefaultAttemptTimeout bounds a single dial.
const DefaultAttemptTimeout = 10 * time.Second

// State is the link state tracked by a Manager.
type State uint8

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateConnected means the last dial succeeded and no loss was reported.
	StateConnected

	// StateReconnecting means the manager is waiting to retry.
	StateReconnecting

	// StateClosed means the manager was closed.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DialFunc establishes the link. It returns nil once the link is usable.
type DialFunc func(ctx context.Context) error

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBackoff sets the retry schedule.
func WithBackoff(cfg BackoffConfig) ManagerOption {
	return func(m *Manager) {
		m.backoff = NewBackoff(cfg)
	}
}

// WithAttemptTimeout bounds each dial.
func WithAttemptTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.attemptTimeout = d
		}
	}
}

// WithLogger sets the logger for dial failures and state changes.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager dials a link and redials it with backoff after every loss.
type Manager struct {
	dial           DialFunc
	backoff        *Backoff
	attemptTimeout time.Duration
	logger         *slog.Logger

	mu      sync.RWMutex
	state   State
	started bool

	onStateChange  func(oldState, newState State)
	onReconnecting func(attempt int, delay time.Duration)

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
}

// NewManager creates a Manager around dial.
func NewManager(dial DialFunc, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dial:           dial,
		backoff:        NewBackoff(DefaultBackoffConfig()),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.New(slog.DiscardHandler),
		ctx:            ctx,
		cancel:         cancel,
		trigger:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStateChange sets a callback for state transitions. Set it before Start.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnReconnecting sets a callback invoked before each backoff wait.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the link is up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Start launches the background loop and dials immediately. Failures are
// retried with backoff until a dial succeeds or the Manager is closed.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop()
	m.kick()
	return nil
}

// ConnectionLost reports that the link dropped. It is a no-op unless the
// Manager believes the link is up.
func (m *Manager) ConnectionLost() {
	if !m.transition(StateConnected, StateReconnecting) {
		return
	}
	m.logger.Info("link lost, reconnecting")
	m.backoff.Reset()
	m.kick()
}

// Close stops reconnecting and waits for the loop to exit. It does not
// close the link itself.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateClosed
	fn := m.onStateChange
	m.mu.Unlock()

	if fn != nil {
		fn(old, StateClosed)
	}
	m.cancel()
	m.wg.Wait()
}

// BackoffAttempts returns the retries since the last successful dial.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

func (m *Manager) kick() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()

	first := true
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.trigger:
		}
		m.connect(first)
		first = false
	}
}

// connect dials until it succeeds or the Manager closes. The first dial
// after Start skips the backoff wait.
func (m *Manager) connect(immediate bool) {
	for {
		if !immediate {
			delay := m.backoff.Next()

			m.mu.RLock()
			fn := m.onReconnecting
			m.mu.RUnlock()
			if fn != nil {
				fn(m.backoff.Attempts(), delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-m.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		immediate = false

		if !m.setState(StateConnecting) {
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, m.attemptTimeout)
		err := m.dial(ctx)
		cancel()

		if err == nil {
			m.backoff.Reset()
			m.setState(StateConnected)
			return
		}

		m.logger.Warn("dial failed", "error", err, "attempt", m.backoff.Attempts()+1)
		if !m.setState(StateReconnecting) {
			return
		}
	}
}

// setState moves to s unless the Manager is closed.
func (m *Manager) setState(s State) bool {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return false
	}
	old := m.state
	m.state = s
	fn := m.onStateChange
	m.mu.Unlock()

	if fn != nil && old != s {
		fn(old, s)
	}
	return true
}

// transition moves from one state to another only if the current state is from.
func (m *Manager) transition(from, to State) bool {
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	fn := m.onStateChange
	m.mu.Unlock()

	if fn != nil {
		fn(from, to)
	}
	return true
}
