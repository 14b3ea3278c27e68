package control

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"

	"go.viam.com/speedctl/components/motor/fake"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

func TestPIDFirstTickClamps(t *testing.T) {
	var law pidLaw
	p := Parameters{Kp: 2, TargetSpeed: 500}

	duty, next := law.next(p, 0)
	// 500*2 = 1000 before clamping; the duty written is the clamped value.
	test.That(t, duty, test.ShouldEqual, 255)
	test.That(t, next.SpeedError, test.ShouldEqual, 500)
	test.That(t, next.CurrentSpeed, test.ShouldEqual, 0)
	test.That(t, next.Derivative, test.ShouldEqual, 500.0)
	test.That(t, next.PrevError, test.ShouldEqual, 500)
	// Error is far above target/100, so nothing was integrated.
	test.That(t, next.Integral, test.ShouldEqual, 0.0)
}

func TestPIDOutputScalesToDuty(t *testing.T) {
	var law pidLaw
	// An output of 100 speed units is the duty that commands speed 100.
	duty, _ := law.next(Parameters{Kp: 1, TargetSpeed: 100}, 0)
	test.That(t, duty, test.ShouldEqual, 26)
	test.That(t, duty, test.ShouldEqual, SetpointFromSpeed(100))

	law = pidLaw{}
	duty, _ = law.next(Parameters{Kp: 1, TargetSpeed: 999}, 0)
	test.That(t, duty, test.ShouldEqual, 255)

	law = pidLaw{}
	duty, _ = law.next(Parameters{Kp: 1, TargetSpeed: 1}, 0)
	test.That(t, duty, test.ShouldEqual, 1)
}

func TestPIDNegativeOutputClampsToZero(t *testing.T) {
	var law pidLaw
	duty, next := law.next(Parameters{Kp: 3, TargetSpeed: 100}, 400)
	test.That(t, duty, test.ShouldEqual, 0)
	test.That(t, next.SpeedError, test.ShouldEqual, -300)
	test.That(t, next.Integral, test.ShouldEqual, -300.0)
}

func TestPIDIntegralBand(t *testing.T) {
	var law pidLaw
	p := Parameters{Ki: 1, TargetSpeed: 1000}

	// target/100 = 10: errors of 10 and above leave the integral alone.
	_, next := law.next(p, 990)
	test.That(t, next.Integral, test.ShouldEqual, 0.0)
	_, next = law.next(p, 991)
	test.That(t, next.Integral, test.ShouldEqual, 9.0)
	_, next = law.next(p, 995)
	test.That(t, next.Integral, test.ShouldEqual, 14.0)

	// Freezing is not resetting.
	_, next = law.next(p, 0)
	test.That(t, next.Integral, test.ShouldEqual, 14.0)
	_, next = law.next(p, 1002)
	test.That(t, next.Integral, test.ShouldEqual, 12.0)
}

func TestPIDSteadyStateHoldsIntegral(t *testing.T) {
	var law pidLaw
	p := Parameters{Kp: 1, Ki: 1, Kd: 1, TargetSpeed: 600}

	_, next := law.next(p, 605)
	start := next.Integral
	for i := 0; i < 50; i++ {
		_, next = law.next(p, 600)
		test.That(t, next.SpeedError, test.ShouldEqual, 0)
	}
	test.That(t, next.Integral, test.ShouldEqual, start)

	duty, next := law.next(p, 600)
	test.That(t, next.Derivative, test.ShouldEqual, 0.0)
	test.That(t, duty, test.ShouldEqual, dutyFromOutput(start))
}

func TestPIDDerivative(t *testing.T) {
	var law pidLaw
	p := Parameters{Kd: 2, TargetSpeed: 200}

	law.next(p, 0)
	duty, next := law.next(p, 150)
	test.That(t, next.SpeedError, test.ShouldEqual, 50)
	test.That(t, next.Derivative, test.ShouldEqual, -150.0)
	test.That(t, duty, test.ShouldEqual, 0)
}

func TestEngineStep(t *testing.T) {
	ctx := context.Background()
	m := &fake.Motor{}
	m.SetTachometer(0)
	e := NewEngine(m, logging.NewTestLogger(t), nil)

	p := Parameters{Direction: true, Kp: 2}.WithSetpoint(128)
	test.That(t, p.TargetSpeed, test.ShouldEqual, 501)

	next := e.Step(ctx, p)
	test.That(t, m.Directions(), test.ShouldResemble, []bool{true})
	test.That(t, m.Duties(), test.ShouldResemble, []uint8{255})
	test.That(t, e.LastDuty(), test.ShouldEqual, 255)
	test.That(t, next.SpeedError, test.ShouldEqual, 501)

	// The engine owns its history; whatever the caller passes in for it is ignored.
	m.SetTachometer(480)
	p.Integral = 1e9
	p.PrevError = -1e6
	next = e.Step(ctx, p)
	test.That(t, next.Integral, test.ShouldEqual, 0.0)
	test.That(t, next.Derivative, test.ShouldEqual, float64(21-501))
}

func TestEngineStepWritesScaledDuty(t *testing.T) {
	m := &fake.Motor{}
	m.SetTachometer(0)
	e := NewEngine(m, logging.NewTestLogger(t), nil)

	e.Step(context.Background(), Parameters{Kp: 1, TargetSpeed: 100})
	test.That(t, m.Duties(), test.ShouldResemble, []uint8{26})
	test.That(t, e.LastDuty(), test.ShouldEqual, 26)
}

func TestEngineToleratesMotorErrors(t *testing.T) {
	ctx := context.Background()
	m := &fake.Motor{}
	m.SetTachometer(300)
	stats := &utils.TaskStats{}
	e := NewEngine(m, logging.NewTestLogger(t), stats)

	p := Parameters{Kp: 1}.WithSetpoint(255)
	next := e.Step(ctx, p)
	test.That(t, next.CurrentSpeed, test.ShouldEqual, 300)

	m.Err = errors.New("bus fault")
	next = e.Step(ctx, p)
	test.That(t, next.CurrentSpeed, test.ShouldEqual, 300)
	test.That(t, stats.Errors.Load(), test.ShouldEqual, 3)
}
