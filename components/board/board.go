// Package board defines the raw operator inputs of the controller: a bank of switches, five
// pushbuttons and a rotary encoder with an auxiliary switch.
package board

import (
	"context"
	"fmt"
)

// ButtonID names one of the five pushbuttons.
type ButtonID int

// The pushbuttons, in the order they are wired on the button register.
const (
	ButtonCenter ButtonID = iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonUp
)

// AllButtons lists every pushbutton.
var AllButtons = []ButtonID{ButtonCenter, ButtonDown, ButtonLeft, ButtonRight, ButtonUp}

func (b ButtonID) String() string {
	switch b {
	case ButtonCenter:
		return "center"
	case ButtonDown:
		return "down"
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonUp:
		return "up"
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// ButtonFromString parses a button name as printed by String.
func ButtonFromString(name string) (ButtonID, error) {
	for _, b := range AllButtons {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, NewUnknownButtonError(name)
}

// Inputs is read once per input tick. Every method reports the current level; edge detection is
// the caller's job.
type Inputs interface {
	// Switches returns the 16 slide switches, bit n for switch n.
	Switches(ctx context.Context) (uint16, error)

	// Button reports whether the button is currently held down.
	Button(ctx context.Context, id ButtonID) (bool, error)

	// EncoderPosition returns the absolute rotary encoder tick counter.
	EncoderPosition(ctx context.Context) (uint32, error)

	// EncoderAux returns the encoder's auxiliary switch, used as the direction request.
	EncoderAux(ctx context.Context) (bool, error)
}

// EdgeNotifier is implemented by inputs that can signal a button change as it happens, so the
// input task does not have to wait for its next tick.
type EdgeNotifier interface {
	// Edges returns a channel that receives a value after any button change. Notifications
	// coalesce: several edges between two reads produce one value.
	Edges() <-chan struct{}
}
