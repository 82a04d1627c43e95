// Package steptest runs a scripted step-position test against a motor
// controller and records telemetry for every control iteration.
package steptest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gwillem/motorbench/pkg/device"
	"github.com/gwillem/motorbench/pkg/record"
)

// Setpoint returns the commanded position for elapsed time t. The result
// is a step function starting at 0 and moving in increments of
// 1/divisions every stepTime seconds, covering one revolution.
func Setpoint(t, stepTime float64, divisions int) float64 {
	return math.Floor(t/stepTime) / float64(divisions)
}

// Config holds configuration for a step test.
type Config struct {
	StepTime      time.Duration // duration of each plateau (default 2s)
	Divisions     int           // steps per revolution (default 6)
	AccelLimit    float64       // rev/s² (default 2.0)
	VelocityLimit float64       // rev/s (default 5.0)
	Hz            int           // control loop frequency (default 100)
}

// Runner drives the control loop: it re-zeros the controller, walks the
// setpoint staircase, and hands every telemetry sample to the recorder.
type Runner struct {
	ctrl     device.Controller
	recorder record.Recorder
	cfg      Config

	mu      sync.Mutex
	running bool
	stateCh chan record.Sample
	logCh   chan string
}

// NewRunner creates a runner. Zero config fields take their defaults.
func NewRunner(ctrl device.Controller, recorder record.Recorder, cfg Config) *Runner {
	if cfg.StepTime <= 0 {
		cfg.StepTime = 2 * time.Second
	}
	if cfg.Divisions <= 0 {
		cfg.Divisions = 6
	}
	if cfg.AccelLimit == 0 {
		cfg.AccelLimit = 2.0
	}
	if cfg.VelocityLimit == 0 {
		cfg.VelocityLimit = 5.0
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 100
	}

	return &Runner{
		ctrl:     ctrl,
		recorder: recorder,
		cfg:      cfg,
		stateCh:  make(chan record.Sample, 1),
		logCh:    make(chan string, 10),
	}
}

// States returns a channel that receives one sample per iteration.
func (r *Runner) States() <-chan record.Sample {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

// Hz returns the control frequency.
func (r *Runner) Hz() int {
	return r.cfg.Hz
}

// Duration returns how long the test runs before the stop command.
func (r *Runner) Duration() time.Duration {
	return r.cfg.StepTime * time.Duration(r.cfg.Divisions+1)
}

func (r *Runner) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case r.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the test to completion. It first issues a stop command to
// clear faults left over from a previous run, then re-zeros so the
// controller starts within half a revolution of zero, then runs the
// staircase until the elapsed time passes StepTime*(Divisions+1).
//
// Device and recorder failures abort the run and propagate; there is no
// retry. Context cancellation stops the motor and returns ctx.Err().
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if err := r.ctrl.Stop(ctx); err != nil {
		return fmt.Errorf("stop controller: %w", err)
	}
	if err := r.ctrl.Rezero(ctx); err != nil {
		return fmt.Errorf("rezero controller: %w", err)
	}

	r.log("step test started: %d divisions, %s per step, %d Hz",
		r.cfg.Divisions, r.cfg.StepTime, r.cfg.Hz)

	start := time.Now()
	stepTime := r.cfg.StepTime.Seconds()
	limit := stepTime * float64(r.cfg.Divisions+1)

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.Hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best effort: don't leave the motor energized.
			if err := r.ctrl.Stop(context.Background()); err != nil {
				r.log("Warning: failed to stop controller: %v", err)
			}
			return ctx.Err()

		case <-ticker.C:
			t := time.Since(start).Seconds()

			// Stop after one full revolution.
			if t > limit {
				if err := r.ctrl.Stop(ctx); err != nil {
					return fmt.Errorf("stop controller: %w", err)
				}
				r.log("step test complete after %.1fs", t)
				return nil
			}

			desired := Setpoint(t, stepTime, r.cfg.Divisions)

			state, err := r.ctrl.SetPosition(ctx, device.Command{
				Position:      desired,
				VelocityLimit: r.cfg.VelocityLimit,
				AccelLimit:    r.cfg.AccelLimit,
			})
			if err != nil {
				return fmt.Errorf("set position: %w", err)
			}

			sample := record.Sample{
				Time:     t,
				Desired:  desired,
				Position: state.Values[device.RegPosition],
				Velocity: state.Values[device.RegVelocity],
				Torque:   state.Values[device.RegTorque],
				Mode:     int(state.Values[device.RegMode]),
				Fault:    int(state.Values[device.RegFault]),
			}
			if err := r.recorder.Add(sample); err != nil {
				return fmt.Errorf("record sample: %w", err)
			}
			r.publish(sample)
		}
	}
}

func (r *Runner) publish(s record.Sample) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old sample if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}
