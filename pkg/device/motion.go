package device

import "math"

// Limiter shapes a stream of position targets into motion that never
// exceeds a velocity or acceleration limit. Each call to Step advances the
// shaped position by one time slice: the velocity slews toward the largest
// value that still allows a full stop at the target (triangular or
// trapezoidal motion, depending on distance).
//
// The zero value is unusable; call Reset first.
type Limiter struct {
	pos   float64
	vel   float64
	acc   float64
	ready bool
}

// Reset places the limiter at pos with zero velocity.
func (l *Limiter) Reset(pos float64) {
	l.pos = pos
	l.vel = 0
	l.acc = 0
	l.ready = true
}

// Ready reports whether the limiter has been given a starting position.
func (l *Limiter) Ready() bool { return l.ready }

// Position returns the current shaped position.
func (l *Limiter) Position() float64 { return l.pos }

// Velocity returns the current shaped velocity.
func (l *Limiter) Velocity() float64 { return l.vel }

// Accel returns the acceleration applied during the last Step.
func (l *Limiter) Accel() float64 { return l.acc }

// Step advances the shaped motion by dt seconds toward target and returns
// the new position. A nonpositive dt leaves the motion where it is;
// nonpositive limits make the motion unconstrained and the position jumps
// straight to the target.
func (l *Limiter) Step(target, velLimit, accelLimit, dt float64) float64 {
	if !l.ready {
		l.Reset(target)
		return l.pos
	}
	if dt <= 0 {
		return l.pos
	}
	if velLimit <= 0 || accelLimit <= 0 {
		l.pos = target
		l.vel = 0
		l.acc = 0
		return l.pos
	}

	err := target - l.pos

	// The fastest velocity from which we can still brake to a stop
	// exactly at the target: v² = 2·a·d.
	braking := math.Sqrt(2 * accelLimit * math.Abs(err))
	if err < 0 {
		braking = -braking
	}
	desired := clamp(braking, -velLimit, velLimit)

	dv := clamp(desired-l.vel, -accelLimit*dt, accelLimit*dt)
	l.acc = dv / dt
	l.vel += dv
	l.pos += l.vel * dt

	// Crossing the target only happens in the final braking slice, where
	// the remaining velocity is below accel·dt. Settle instead of ringing.
	if remaining := target - l.pos; err != 0 && signOf(remaining) != signOf(err) {
		l.pos = target
		l.vel = 0
	}

	return l.pos
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func signOf(v float64) int {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}
