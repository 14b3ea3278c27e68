package control

const (
	// MaxPWM is the largest duty cycle the motor driver accepts.
	MaxPWM = 255
	// MaxSpeed is the speed reached at full duty cycle, in tachometer units.
	MaxSpeed = 1000
)

// SpeedFromSetpoint maps a duty-cycle setpoint to the target speed it should produce.
func SpeedFromSetpoint(setpoint uint8) int {
	return int(setpoint) * MaxSpeed / MaxPWM
}

// SetpointFromSpeed is the inverse of SpeedFromSetpoint, saturating outside [0, MaxSpeed].
// SetpointFromSpeed(SpeedFromSetpoint(s)) == s for every s.
func SetpointFromSpeed(speed int) uint8 {
	if speed <= 0 {
		return 0
	}
	if speed >= MaxSpeed {
		return MaxPWM
	}
	// Round up so the integer truncation in SpeedFromSetpoint is undone exactly.
	return uint8((speed*MaxPWM + MaxSpeed - 1) / MaxSpeed)
}
