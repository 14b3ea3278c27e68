package input

import (
	"testing"

	"go.viam.com/test"
)

func TestDecodeIncrement(t *testing.T) {
	for bits, expected := range map[uint16]IncrementSize{
		0b00:  IncrementOne,
		0b01:  IncrementFive,
		0b10:  IncrementTen,
		0b11:  IncrementTen,
		0b100: IncrementOne, // only the low two bits count
	} {
		test.That(t, DecodeIncrement(bits), test.ShouldEqual, expected)
	}
	test.That(t, IncrementOne.Amount(), test.ShouldEqual, 1)
	test.That(t, IncrementFive.Amount(), test.ShouldEqual, 5)
	test.That(t, IncrementTen.Amount(), test.ShouldEqual, 10)
}

func TestDecodeGain(t *testing.T) {
	test.That(t, DecodeGain(0b00), test.ShouldEqual, GainP)
	test.That(t, DecodeGain(0b01), test.ShouldEqual, GainI)
	test.That(t, DecodeGain(0b10), test.ShouldEqual, GainD)
	test.That(t, DecodeGain(0b11), test.ShouldEqual, GainD)
	test.That(t, GainNone.String(), test.ShouldEqual, "--")
	test.That(t, GainI.String(), test.ShouldEqual, "Ki")
}

func TestDecodeSwitches(t *testing.T) {
	test.That(t, DecodeSwitches(0), test.ShouldResemble, SwitchState{
		GainIncrement:     IncrementOne,
		ActiveGain:        GainP,
		SetpointIncrement: IncrementOne,
	})

	// crash | gain x10 | Ki | setpoint x5
	test.That(t, DecodeSwitches(0x8000|0b10_01_01), test.ShouldResemble, SwitchState{
		Crash:             true,
		GainIncrement:     IncrementTen,
		ActiveGain:        GainI,
		SetpointIncrement: IncrementFive,
	})

	// Unassigned switches are ignored.
	test.That(t, DecodeSwitches(0x7fc0), test.ShouldResemble, DecodeSwitches(0))
}

func TestRedrawReasonMerge(t *testing.T) {
	test.That(t, Idle.Merge(SpeedChanged), test.ShouldEqual, SpeedChanged)
	test.That(t, EmergencyStop.Merge(GainValueChanged), test.ShouldEqual, EmergencyStop)
	test.That(t, GainValueChanged.Merge(GainSelectionChanged), test.ShouldEqual, GainSelectionChanged)
	test.That(t, EmergencyStop.Broad(), test.ShouldBeTrue)
	test.That(t, GainSelectionChanged.Broad(), test.ShouldBeTrue)
	test.That(t, SpeedChanged.Broad(), test.ShouldBeFalse)
}

func TestEdgeDetector(t *testing.T) {
	var e EdgeDetector
	var got []bool
	for _, level := range []bool{false, true, true, true, false, true, false, false} {
		got = append(got, e.Sample(level))
	}
	test.That(t, got, test.ShouldResemble, []bool{false, true, false, false, false, true, false, false})
}

func TestRotaryTracker(t *testing.T) {
	var r RotaryTracker
	test.That(t, r.Sample(100), test.ShouldEqual, NoRotation)
	test.That(t, r.Sample(99), test.ShouldEqual, Clockwise)
	// Magnitude does not matter.
	test.That(t, r.Sample(50), test.ShouldEqual, Clockwise)
	test.That(t, r.Sample(50), test.ShouldEqual, NoRotation)
	test.That(t, r.Sample(51), test.ShouldEqual, CounterClockwise)
}

func TestRotaryTrackerAcrossWrap(t *testing.T) {
	var r RotaryTracker
	test.That(t, r.Sample(0), test.ShouldEqual, NoRotation)
	test.That(t, r.Sample(^uint32(0)), test.ShouldEqual, Clockwise)
	test.That(t, r.Sample(^uint32(0)-4), test.ShouldEqual, Clockwise)
	test.That(t, r.Sample(2), test.ShouldEqual, CounterClockwise)
	test.That(t, r.Sample(1), test.ShouldEqual, Clockwise)
}
