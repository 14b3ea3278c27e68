package board

import "github.com/pkg/errors"

// NewUnknownButtonError returns an error for a button name or id the board does not have.
func NewUnknownButtonError(name string) error {
	return errors.Errorf("unknown button %q", name)
}

// NewPinNotFoundError returns an error for an input pin that the host does not expose.
func NewPinNotFoundError(role, pinName string) error {
	return errors.Errorf("no global pin found for %s (%q)", role, pinName)
}
