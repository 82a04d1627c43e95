package device

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	defaultBaudRate     = 1_000_000
	defaultCountsPerRev = 4096

	// The load register reports signed permille of stall torque; this
	// converts it to N·m for an STS3215 at 12V.
	stallTorqueNm = 1.9
)

// FeetechConfig holds configuration for a Feetech-backed controller.
type FeetechConfig struct {
	Port         string
	ID           int
	BaudRate     int           // default 1000000
	CountsPerRev int           // default: servo model resolution, else 4096
	Timeout      time.Duration // per-transaction bus timeout

	// Transport overrides the serial connection. Tests drive the
	// controller through a fake bus here; nil opens Port.
	Transport feetech.Transport
}

// Feetech drives a single Feetech STS servo as a position controller.
//
// Position, velocity, and load telemetry come from the servo's feedback
// registers. The remaining controller semantics are layered on top of the
// bus protocol: Rezero keeps a software zero offset, multi-turn positions
// are tracked by unwrapping consecutive single-turn reads, and the
// command-side velocity/acceleration limits are honored by shaping the
// target before it goes on the bus.
type Feetech struct {
	bus   *feetech.Bus
	servo *feetech.Servo
	cpr   int

	motion Limiter
	mode   int
	fault  int

	zero    int
	prevRaw int
	turns   int
	haveRaw bool

	lastCmd time.Time
}

// NewFeetech opens the serial bus and verifies the servo responds.
func NewFeetech(ctx context.Context, cfg FeetechConfig) (*Feetech, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = defaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Millisecond
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Transport: cfg.Transport,
		Port:      cfg.Port,
		BaudRate:  cfg.BaudRate,
		Protocol:  feetech.ProtocolSTS,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	found, err := bus.Scan(ctx, cfg.ID, cfg.ID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("no servo with ID %d on %s", cfg.ID, cfg.Port)
	}

	cpr := cfg.CountsPerRev
	if cpr == 0 {
		if found[0].Model != nil {
			cpr = found[0].Model.Resolution
		} else {
			cpr = defaultCountsPerRev
		}
	}

	return &Feetech{
		bus:   bus,
		servo: feetech.NewServo(bus, found[0].ID, found[0].Model),
		cpr:   cpr,
		mode:  ModeStopped,
	}, nil
}

// Stop disables torque and clears any latched fault.
func (f *Feetech) Stop(ctx context.Context) error {
	if err := f.servo.Disable(ctx); err != nil {
		return fmt.Errorf("disable servo: %w", err)
	}
	f.mode = ModeStopped
	f.fault = 0
	f.lastCmd = time.Time{}
	return nil
}

// Rezero defines the current shaft position as 0.0 revolutions.
func (f *Feetech) Rezero(ctx context.Context) error {
	raw, err := f.servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	f.zero = raw
	f.prevRaw = raw
	f.turns = 0
	f.haveRaw = true
	f.motion.Reset(0)
	return nil
}

// SetPosition shapes the target against the command limits, writes it to
// the servo, and reads back a telemetry snapshot.
func (f *Feetech) SetPosition(ctx context.Context, cmd Command) (State, error) {
	now := time.Now()
	var dt float64
	if !f.lastCmd.IsZero() {
		dt = now.Sub(f.lastCmd).Seconds()
	}
	f.lastCmd = now

	if !f.motion.Ready() {
		raw, err := f.servo.Position(ctx)
		if err != nil {
			f.fault = 1
			return State{}, fmt.Errorf("read position: %w", err)
		}
		f.motion.Reset(f.track(raw))
	}

	if f.mode != ModePosition {
		if err := f.servo.Enable(ctx); err != nil {
			f.fault = 1
			return State{}, fmt.Errorf("enable servo: %w", err)
		}
		f.mode = ModePosition
	}

	shaped := f.motion.Step(cmd.Position, cmd.VelocityLimit, cmd.AccelLimit, dt)

	// The goal register is single-turn and the servo cannot traverse the
	// 0/cpr boundary in position mode. Clamp so a crossing saturates at
	// the end of travel instead of commanding a full-turn slew backwards.
	counts := f.zero + int(math.Round(shaped*float64(f.cpr)))
	if counts < 0 {
		counts = 0
	} else if counts > f.cpr-1 {
		counts = f.cpr - 1
	}
	if err := f.servo.SetPosition(ctx, counts); err != nil {
		f.fault = 1
		return State{}, fmt.Errorf("set position: %w", err)
	}

	raw, err := f.servo.Position(ctx)
	if err != nil {
		f.fault = 1
		return State{}, fmt.Errorf("read position: %w", err)
	}
	measured := f.track(raw)

	// Present velocity is signed steps per second.
	rawVel, err := f.servo.Velocity(ctx)
	if err != nil {
		f.fault = 1
		return State{}, fmt.Errorf("read velocity: %w", err)
	}
	velocity := float64(rawVel) / float64(f.cpr)

	rawLoad, err := f.servo.Load(ctx)
	if err != nil {
		f.fault = 1
		return State{}, fmt.Errorf("read load: %w", err)
	}
	torque := stallTorqueNm * float64(rawLoad) / 1000

	return State{Values: map[Register]float64{
		RegMode:     float64(f.mode),
		RegPosition: measured,
		RegVelocity: velocity,
		RegTorque:   torque,
		RegFault:    float64(f.fault),
	}}, nil
}

// Close closes the serial bus.
func (f *Feetech) Close() error {
	return f.bus.Close()
}

// track unwraps a raw single-turn reading into a multi-turn position in
// revolutions relative to the software zero.
func (f *Feetech) track(raw int) float64 {
	if f.haveRaw {
		d := raw - f.prevRaw
		if d > f.cpr/2 {
			f.turns--
		} else if d < -f.cpr/2 {
			f.turns++
		}
	}
	f.prevRaw = raw
	f.haveRaw = true
	return float64(f.turns*f.cpr+raw-f.zero) / float64(f.cpr)
}
