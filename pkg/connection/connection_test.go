package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff(DefaultBackoffConfig())

		expected := []time.Duration{
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second,
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()
			if base != exp {
				t.Errorf("attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff(DefaultBackoffConfig())

		upper := time.Duration(float64(InitialBackoff) * (1 + JitterFactor))
		varied := false
		var first time.Duration
		for i := 0; i < 20; i++ {
			b.Reset()
			d := b.Next()
			if d < InitialBackoff || d > upper {
				t.Fatalf("sample %d: %v out of range [%v, %v]", i, d, InitialBackoff, upper)
			}
			if i == 0 {
				first = d
			} else if d != first {
				varied = true
			}
		}
		if !varied {
			t.Error("all jittered samples are identical")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff(DefaultBackoffConfig())
		for i := 0; i < 5; i++ {
			b.Next()
		}
		if b.Attempts() != 5 {
			t.Errorf("Attempts() = %d, want 5", b.Attempts())
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        300 * time.Millisecond,
			Multiplier: 2,
			Jitter:     -1,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			300 * time.Millisecond,
			300 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("ZeroConfigUsesDefaults", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{})
		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v, want %v", b.Current(), InitialBackoff)
		}
	})
}

func fastBackoff() ManagerOption {
	return WithBackoff(BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond, Jitter: -1})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManager(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		m := NewManager(func(context.Context) error { return nil })
		defer m.Close()

		if m.State() != StateIdle {
			t.Errorf("State() = %v, want idle", m.State())
		}
		if m.IsConnected() {
			t.Error("IsConnected() = true before Start")
		}
	})

	t.Run("StartConnects", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManager(func(context.Context) error {
			dials.Add(1)
			return nil
		}, fastBackoff())
		defer m.Close()

		if err := m.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, "connected", m.IsConnected)

		if dials.Load() != 1 {
			t.Errorf("dials = %d, want 1", dials.Load())
		}
		if err := m.Start(); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
		}
	})

	t.Run("RetriesUntilDialSucceeds", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManager(func(context.Context) error {
			if dials.Add(1) < 3 {
				return errors.New("bridge offline")
			}
			return nil
		}, fastBackoff())
		defer m.Close()

		var mu sync.Mutex
		var attempts []int
		m.OnReconnecting(func(attempt int, _ time.Duration) {
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		})

		if err := m.Start(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "connected", m.IsConnected)

		mu.Lock()
		defer mu.Unlock()
		if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
			t.Errorf("reconnect attempts = %v, want [1 2]", attempts)
		}
		if m.BackoffAttempts() != 0 {
			t.Errorf("BackoffAttempts() = %d after success, want 0", m.BackoffAttempts())
		}
	})

	t.Run("ReconnectsAfterLoss", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManager(func(context.Context) error {
			dials.Add(1)
			return nil
		}, fastBackoff())
		defer m.Close()

		var mu sync.Mutex
		var transitions []State
		m.OnStateChange(func(_, s State) {
			mu.Lock()
			transitions = append(transitions, s)
			mu.Unlock()
		})

		if err := m.Start(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "connected", m.IsConnected)

		m.ConnectionLost()
		waitFor(t, "second dial", func() bool { return dials.Load() == 2 && m.IsConnected() })

		mu.Lock()
		defer mu.Unlock()
		want := []State{StateConnecting, StateConnected, StateReconnecting, StateConnecting, StateConnected}
		if len(transitions) != len(want) {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
		for i := range want {
			if transitions[i] != want[i] {
				t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
			}
		}
	})

	t.Run("LossWhileIdleIgnored", func(t *testing.T) {
		m := NewManager(func(context.Context) error { return nil })
		defer m.Close()

		m.ConnectionLost()

		if m.State() != StateIdle {
			t.Errorf("State() = %v, want idle", m.State())
		}
	})

	t.Run("CloseStopsRetrying", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManager(func(context.Context) error {
			dials.Add(1)
			return errors.New("bridge offline")
		}, fastBackoff())

		if err := m.Start(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "a few dials", func() bool { return dials.Load() >= 3 })

		m.Close()
		after := dials.Load()
		time.Sleep(20 * time.Millisecond)

		if dials.Load() != after {
			t.Errorf("dials continued after Close: %d -> %d", after, dials.Load())
		}
		if m.State() != StateClosed {
			t.Errorf("State() = %v, want closed", m.State())
		}
		if err := m.Start(); !errors.Is(err, ErrClosed) {
			t.Errorf("Start() after Close error = %v, want ErrClosed", err)
		}
	})

	t.Run("DialGetsDeadline", func(t *testing.T) {
		gotDeadline := make(chan bool, 1)
		m := NewManager(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			gotDeadline <- ok
			return nil
		}, WithAttemptTimeout(time.Second))
		defer m.Close()

		if err := m.Start(); err != nil {
			t.Fatal(err)
		}
		select {
		case ok := <-gotDeadline:
			if !ok {
				t.Error("dial context has no deadline")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("dial not called")
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{StateClosed, "closed"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
