// Package device provides abstractions for position-controlled motor
// controllers.
package device

import "context"

// Register identifies a telemetry value reported by a controller.
type Register int

// Telemetry registers. The numbering is part of the recorded output and
// stays stable across controller implementations.
const (
	RegMode     Register = 0x000
	RegPosition Register = 0x001
	RegVelocity Register = 0x002
	RegTorque   Register = 0x003
	RegFault    Register = 0x00f
)

// Controller modes reported through RegMode.
const (
	ModeStopped  = 0
	ModePosition = 10
)

// Command is a position command. Position is in revolutions; VelocityLimit
// and AccelLimit are in rev/s and rev/s² and bound how fast the controller
// moves toward the target.
type Command struct {
	Position      float64
	VelocityLimit float64
	AccelLimit    float64
}

// State is a telemetry snapshot returned by a controller in response to a
// command. Values are keyed by register: positions in revolutions,
// velocities in rev/s, torque in N·m, mode and fault as integer codes.
type State struct {
	Values map[Register]float64
}

// Controller is a position-controlled motor controller.
type Controller interface {
	// Stop removes torque from the motor and clears any latched faults.
	Stop(ctx context.Context) error

	// Rezero defines the current shaft position as 0.0 revolutions.
	Rezero(ctx context.Context) error

	// SetPosition commands a target position and returns a telemetry
	// snapshot of the controller's measured state.
	SetPosition(ctx context.Context, cmd Command) (State, error)

	// Close releases the underlying connection.
	Close() error
}
