package device

import (
	"context"
	"sync"
	"time"
)

// SimConfig holds configuration for the simulated controller.
type SimConfig struct {
	// StartPosition is the shaft position at power-on, in revolutions.
	// Nonzero values model a motor that was left away from its zero.
	StartPosition float64

	// Inertia converts commanded acceleration to reported torque (N·m per
	// rev/s²). Zero selects a small default.
	Inertia float64

	// Clock overrides the time source. Tests use a fake clock; nil means
	// time.Now.
	Clock func() time.Time
}

// Sim is an in-process controller. It tracks a commanded position with the
// same velocity- and acceleration-limited motion a real controller would
// produce, so the rest of the pipeline can run without hardware.
type Sim struct {
	mu      sync.Mutex
	now     func() time.Time
	last    time.Time
	motion  Limiter
	offset  float64
	mode    int
	inertia float64
}

// NewSim creates a simulated controller.
func NewSim(cfg SimConfig) *Sim {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Inertia == 0 {
		cfg.Inertia = 0.005
	}
	s := &Sim{
		now:     cfg.Clock,
		mode:    ModeStopped,
		inertia: cfg.Inertia,
	}
	s.motion.Reset(cfg.StartPosition)
	return s
}

// Stop removes torque. The simulated shaft holds its current position.
func (s *Sim) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.motion.Reset(s.motion.Position())
	s.mode = ModeStopped
	s.last = time.Time{}
	return nil
}

// Rezero defines the current shaft position as 0.0 revolutions.
func (s *Sim) Rezero(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offset = s.motion.Position()
	return nil
}

// SetPosition advances the simulated motion toward the target by the wall
// time elapsed since the previous command and returns the resulting state.
func (s *Sim) SetPosition(ctx context.Context, cmd Command) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var dt float64
	if !s.last.IsZero() {
		dt = now.Sub(s.last).Seconds()
	}
	s.last = now
	s.mode = ModePosition

	s.motion.Step(cmd.Position+s.offset, cmd.VelocityLimit, cmd.AccelLimit, dt)

	return State{Values: map[Register]float64{
		RegMode:     float64(s.mode),
		RegPosition: s.motion.Position() - s.offset,
		RegVelocity: s.motion.Velocity(),
		RegTorque:   s.inertia * s.motion.Accel(),
		RegFault:    0,
	}}, nil
}

// Close is a no-op for the simulator.
func (s *Sim) Close() error { return nil }
