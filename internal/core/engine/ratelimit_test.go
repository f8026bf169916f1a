package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateGateScenario(t *testing.T) {
	gate := NewRateGate()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := 12 * time.Second

	decision := gate.TryAcquire(start, interval)
	require.True(t, decision.Granted)
	require.Zero(t, decision.RetryAfter)

	decision = gate.TryAcquire(start.Add(5*time.Second), interval)
	require.False(t, decision.Granted)
	require.Equal(t, 7*time.Second, decision.RetryAfter)

	decision = gate.TryAcquire(start.Add(13*time.Second), interval)
	require.True(t, decision.Granted)
	require.Equal(t, start.Add(13*time.Second), gate.LastAccepted())
}

func TestRateGateRejectionDoesNotMoveClock(t *testing.T) {
	gate := NewRateGate()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, gate.TryAcquire(start, 10*time.Second).Granted)
	require.False(t, gate.TryAcquire(start.Add(9*time.Second), 10*time.Second).Granted)

	// Exactly minInterval after the last grant is admitted.
	require.True(t, gate.TryAcquire(start.Add(10*time.Second), 10*time.Second).Granted)
}

func TestRateGateZeroClock(t *testing.T) {
	gate := NewRateGate()
	var zero time.Time
	interval := 12 * time.Second

	require.True(t, gate.TryAcquire(zero, interval).Granted)

	decision := gate.TryAcquire(zero.Add(5*time.Second), interval)
	require.False(t, decision.Granted)
	require.Equal(t, 7*time.Second, decision.RetryAfter)

	require.True(t, gate.TryAcquire(zero.Add(12*time.Second), interval).Granted)
}

func TestRateGateNoBurstAfterIdle(t *testing.T) {
	gate := NewRateGate()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, gate.TryAcquire(start, time.Second).Granted)
	later := start.Add(time.Hour)
	require.True(t, gate.TryAcquire(later, time.Second).Granted)

	decision := gate.TryAcquire(later.Add(100*time.Millisecond), time.Second)
	require.False(t, decision.Granted)
	require.Equal(t, 900*time.Millisecond, decision.RetryAfter)
}

func TestRateGateConcurrentGrants(t *testing.T) {
	gate := NewRateGate()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryAcquire(now, time.Minute).Granted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, granted)
}

func TestNilRateGateAdmits(t *testing.T) {
	var gate *RateGate
	require.True(t, gate.TryAcquire(time.Now(), time.Hour).Granted)
}
