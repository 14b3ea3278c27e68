package control

import (
	"testing"

	"go.viam.com/test"
)

func TestScalingRoundTrip(t *testing.T) {
	for s := 0; s <= MaxPWM; s++ {
		speed := SpeedFromSetpoint(uint8(s))
		test.That(t, SetpointFromSpeed(speed), test.ShouldEqual, uint8(s))
		if s > 0 {
			test.That(t, speed, test.ShouldBeGreaterThan, SpeedFromSetpoint(uint8(s-1)))
		}
	}
	test.That(t, SpeedFromSetpoint(255), test.ShouldEqual, 1000)
	test.That(t, SetpointFromSpeed(-5), test.ShouldEqual, 0)
	test.That(t, SetpointFromSpeed(5000), test.ShouldEqual, 255)
}
