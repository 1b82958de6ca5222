package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	// DefaultHeartbeatInterval is the interval between HEARTBEAT commands.
	DefaultHeartbeatInterval = 5 * time.Second

	// DefaultMaxMissed is the number of silent intervals before the link
	// is considered dead.
	DefaultMaxMissed = 3
)

// KeepAliveConfig configures link liveness monitoring. A zero Interval
// disables it.
type KeepAliveConfig struct {
	Interval  time.Duration
	MaxMissed int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		Interval:  DefaultHeartbeatInterval,
		MaxMissed: DefaultMaxMissed,
	}
}

// Enabled reports whether monitoring is configured.
func (c KeepAliveConfig) Enabled() bool {
	return c.Interval > 0
}

// DetectionDelay is the longest a dead link can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.Interval * time.Duration(c.MaxMissed)
}

// KeepAlive sends heartbeats and reports a timeout when the firmware stays
// silent for MaxMissed intervals.
type KeepAlive struct {
	config    KeepAliveConfig
	send      func() error
	onTimeout func()

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	active       bool
	missed       int
	lastSent     time.Time
	lastActivity time.Time
}

// KeepAliveStats is a snapshot of keep-alive state.
type KeepAliveStats struct {
	LastSent     time.Time
	LastActivity time.Time
	Missed       int
}

// NewKeepAlive creates a monitor. send transmits one heartbeat; onTimeout
// is called once when the link is declared dead.
func NewKeepAlive(config KeepAliveConfig, send func() error, onTimeout func()) *KeepAlive {
	if config.Interval <= 0 {
		config.Interval = DefaultHeartbeatInterval
	}
	if config.MaxMissed <= 0 {
		config.MaxMissed = DefaultMaxMissed
	}
	return &KeepAlive{
		config:    config,
		send:      send,
		onTimeout: onTimeout,
	}
}

// Start begins monitoring. A heartbeat is sent immediately.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.missed = 0
	ka.active = false
	ka.stopCh = make(chan struct{})
	stop := ka.stopCh
	ka.mu.Unlock()

	go ka.loop(ctx, stop)
}

// Stop ends monitoring.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// Activity records inbound traffic.
func (ka *KeepAlive) Activity() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.active = true
	ka.lastActivity = time.Now()
}

// IsRunning reports whether monitoring is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// Stats returns current keep-alive state.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return KeepAliveStats{
		LastSent:     ka.lastSent,
		LastActivity: ka.lastActivity,
		Missed:       ka.missed,
	}
}

func (ka *KeepAlive) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(ka.config.Interval)
	defer ticker.Stop()

	ka.heartbeat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if ka.tick() {
				ka.Stop()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
			ka.heartbeat()
		}
	}
}

// tick closes one interval and reports whether the link is dead.
func (ka *KeepAlive) tick() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.active {
		ka.missed = 0
	} else {
		ka.missed++
	}
	ka.active = false
	return ka.missed >= ka.config.MaxMissed
}

func (ka *KeepAlive) heartbeat() {
	ka.mu.Lock()
	ka.lastSent = time.Now()
	ka.mu.Unlock()

	// A failed send surfaces as missed intervals.
	_ = ka.send()
}
