package device

import (
	"math"
	"testing"
)

func TestLimiter_RespectsVelocityLimit(t *testing.T) {
	var l Limiter
	l.Reset(0)

	const (
		velLimit   = 0.5
		accelLimit = 2.0
		dt         = 0.001
	)

	for i := 0; i < 5000; i++ {
		l.Step(1.0, velLimit, accelLimit, dt)
		if math.Abs(l.Velocity()) > velLimit+1e-9 {
			t.Fatalf("velocity %f exceeds limit %f at step %d", l.Velocity(), velLimit, i)
		}
	}

	if math.Abs(l.Position()-1.0) > 1e-6 {
		t.Errorf("did not reach target: position = %f", l.Position())
	}
	if l.Velocity() != 0 {
		t.Errorf("did not settle: velocity = %f", l.Velocity())
	}
}

func TestLimiter_RespectsAccelLimit(t *testing.T) {
	var l Limiter
	l.Reset(0)

	const (
		velLimit   = 5.0
		accelLimit = 2.0
		dt         = 0.001
	)

	prev := l.Velocity()
	for i := 0; i < 3000; i++ {
		l.Step(1.0, velLimit, accelLimit, dt)
		if l.Position() == 1.0 {
			// Settled; the final slice zeroes the residual velocity.
			break
		}
		dv := math.Abs(l.Velocity() - prev)
		if dv > accelLimit*dt+1e-9 {
			t.Fatalf("velocity change %f exceeds accel limit at step %d", dv/dt, i)
		}
		prev = l.Velocity()
	}

	if math.Abs(l.Position()-1.0) > 1e-6 {
		t.Errorf("did not reach target: position = %f", l.Position())
	}
}

func TestLimiter_MonotonicApproach(t *testing.T) {
	var l Limiter
	l.Reset(0)

	prev := 0.0
	for i := 0; i < 5000; i++ {
		pos := l.Step(0.5, 1.0, 2.0, 0.001)
		if pos < prev-1e-9 {
			t.Fatalf("position moved backwards at step %d: %f -> %f", i, prev, pos)
		}
		prev = pos
	}
}

func TestLimiter_UnlimitedJumpsToTarget(t *testing.T) {
	var l Limiter
	l.Reset(0)

	if got := l.Step(3.5, 0, 0, 0.01); got != 3.5 {
		t.Errorf("Step with no limits = %f, want 3.5", got)
	}
}

func TestLimiter_ZeroDtHolds(t *testing.T) {
	var l Limiter
	l.Reset(0.2)

	if got := l.Step(1.0, 1.0, 1.0, 0); got != 0.2 {
		t.Errorf("Step with dt=0 moved to %f, want 0.2", got)
	}
}

func TestLimiter_NegativeDirection(t *testing.T) {
	var l Limiter
	l.Reset(1.0)

	for i := 0; i < 5000; i++ {
		l.Step(0, 1.0, 2.0, 0.001)
	}

	if math.Abs(l.Position()) > 1e-6 {
		t.Errorf("did not reach target: position = %f", l.Position())
	}
}
