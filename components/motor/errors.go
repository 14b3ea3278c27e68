package motor

import "github.com/pkg/errors"

// NewPinNotFoundError returns an error for a driver pin that the host does not expose.
func NewPinNotFoundError(role, pinName string) error {
	return errors.Errorf("motor %s pin %q not found", role, pinName)
}

// NewPWMUnsupportedError returns an error when the configured PWM pin cannot produce PWM.
func NewPWMUnsupportedError(pinName string, err error) error {
	return errors.Wrapf(err, "motor pwm pin %q does not support PWM", pinName)
}

// NewInvalidTachWindowError returns an error for a tachometer accumulation window that can not
// produce a reading.
func NewInvalidTachWindowError() error {
	return errors.New("tachometer window must be positive")
}
