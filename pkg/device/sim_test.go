package device

import (
	"context"
	"math"
	"testing"
	"time"
)

// fakeClock steps by a fixed interval on demand.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSim(start float64) (*Sim, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	sim := NewSim(SimConfig{
		StartPosition: start,
		Clock:         clock.Now,
	})
	return sim, clock
}

func TestSim_RezeroDefinesZero(t *testing.T) {
	ctx := context.Background()
	sim, _ := newTestSim(0.25)

	if err := sim.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := sim.Rezero(ctx); err != nil {
		t.Fatalf("Rezero: %v", err)
	}

	// First command carries no elapsed time, so the shaft has not moved.
	state, err := sim.SetPosition(ctx, Command{Position: 0, VelocityLimit: 5, AccelLimit: 2})
	if err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if pos := state.Values[RegPosition]; math.Abs(pos) > 1e-9 {
		t.Errorf("position after rezero = %f, want 0", pos)
	}
}

func TestSim_TracksTargetWithinLimits(t *testing.T) {
	ctx := context.Background()
	sim, clock := newTestSim(0)

	const (
		velLimit   = 5.0
		accelLimit = 2.0
		dt         = 10 * time.Millisecond
	)

	var last State
	for i := 0; i < 500; i++ {
		state, err := sim.SetPosition(ctx, Command{
			Position:      0.5,
			VelocityLimit: velLimit,
			AccelLimit:    accelLimit,
		})
		if err != nil {
			t.Fatalf("SetPosition: %v", err)
		}
		if vel := state.Values[RegVelocity]; math.Abs(vel) > velLimit+1e-9 {
			t.Fatalf("velocity %f exceeds limit at step %d", vel, i)
		}
		if mode := state.Values[RegMode]; mode != ModePosition {
			t.Fatalf("mode = %v, want %d", mode, ModePosition)
		}
		last = state
		clock.Advance(dt)
	}

	if pos := last.Values[RegPosition]; math.Abs(pos-0.5) > 1e-6 {
		t.Errorf("final position = %f, want 0.5", pos)
	}
	if fault := last.Values[RegFault]; fault != 0 {
		t.Errorf("fault = %v, want 0", fault)
	}
}

func TestSim_StopHoldsPosition(t *testing.T) {
	ctx := context.Background()
	sim, clock := newTestSim(0)

	for i := 0; i < 100; i++ {
		if _, err := sim.SetPosition(ctx, Command{Position: 0.3, VelocityLimit: 5, AccelLimit: 2}); err != nil {
			t.Fatalf("SetPosition: %v", err)
		}
		clock.Advance(10 * time.Millisecond)
	}

	if err := sim.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// After a stop, the next command starts from rest at the held
	// position rather than from stale motion state.
	state, err := sim.SetPosition(ctx, Command{Position: 0.3, VelocityLimit: 5, AccelLimit: 2})
	if err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if vel := state.Values[RegVelocity]; vel != 0 {
		t.Errorf("velocity after stop = %f, want 0", vel)
	}
}
