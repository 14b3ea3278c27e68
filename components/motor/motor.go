// Package motor defines the narrow driver interface the control task uses to move a DC motor.
package motor

import "context"

// Motor is an H-bridge style driver with a hardware-maintained tachometer.
type Motor interface {
	// SetPWM sets the duty cycle, 0 (stopped) to 255 (full).
	SetPWM(ctx context.Context, duty uint8) error

	// SetDirection selects forward (true) or reverse rotation.
	SetDirection(ctx context.Context, forward bool) error

	// ReadTachometer returns the speed measured over the last accumulation window.
	ReadTachometer(ctx context.Context) (uint32, error)
}
