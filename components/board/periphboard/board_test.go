package periphboard

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"go.viam.com/speedctl/components/board"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
)

type panelPins struct {
	conf config.PinConfig
	pins map[string]*gpiotest.Pin
}

// registerPanel registers a fake pin for every name in conf and unregisters them when the test ends.
func registerPanel(t *testing.T, prefix string) panelPins {
	t.Helper()
	conf := config.PinConfig{
		Switches:   []string{prefix + "S0", prefix + "S1", "", prefix + "S3"},
		Up:         prefix + "UP",
		Down:       prefix + "DOWN",
		Left:       prefix + "LEFT",
		Right:      prefix + "RIGHT",
		Center:     prefix + "CENTER",
		EncoderA:   prefix + "A",
		EncoderB:   prefix + "B",
		EncoderAux: prefix + "AUX",
	}
	names := append([]string{
		conf.Up, conf.Down, conf.Left, conf.Right, conf.Center, conf.EncoderA, conf.EncoderB, conf.EncoderAux,
	}, conf.Switches[0], conf.Switches[1], conf.Switches[3])

	pp := panelPins{conf: conf, pins: map[string]*gpiotest.Pin{}}
	for i, name := range names {
		p := &gpiotest.Pin{N: name, Num: 1000 + i, EdgesChan: make(chan gpio.Level)}
		test.That(t, gpioreg.Register(p), test.ShouldBeNil)
		t.Cleanup(func() { _ = gpioreg.Unregister(name) })
		pp.pins[name] = p
	}
	return pp
}

func TestSwitchesAndAux(t *testing.T) {
	ctx := context.Background()
	pp := registerPanel(t, "sw_")
	b, err := New(pp.conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer b.Close()

	word, err := b.Switches(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, word, test.ShouldEqual, 0)

	test.That(t, pp.pins["sw_S0"].Out(gpio.High), test.ShouldBeNil)
	test.That(t, pp.pins["sw_S3"].Out(gpio.High), test.ShouldBeNil)
	word, _ = b.Switches(ctx)
	test.That(t, word, test.ShouldEqual, 0b1001)

	test.That(t, pp.pins["sw_AUX"].Out(gpio.High), test.ShouldBeNil)
	aux, err := b.EncoderAux(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, aux, test.ShouldBeTrue)
}

func TestButtonEdgesWakeReader(t *testing.T) {
	ctx := context.Background()
	pp := registerPanel(t, "btn_")
	b, err := New(pp.conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer b.Close()

	pp.pins["btn_UP"].EdgesChan <- gpio.High
	select {
	case <-b.Edges():
	case <-time.After(5 * time.Second):
		t.Fatal("no edge notification")
	}
	up, err := b.Button(ctx, board.ButtonUp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, up, test.ShouldBeTrue)
	down, _ := b.Button(ctx, board.ButtonDown)
	test.That(t, down, test.ShouldBeFalse)

	_, err = b.Button(ctx, board.ButtonID(42))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEncoderCountsSteps(t *testing.T) {
	ctx := context.Background()
	pp := registerPanel(t, "enc_")
	b, err := New(pp.conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer b.Close()

	a, bPin := pp.pins["enc_A"], pp.pins["enc_B"]
	// One full cycle starting with both phases high (pulled up).
	steps := []struct {
		pin   *gpiotest.Pin
		level gpio.Level
	}{{bPin, gpio.Low}, {a, gpio.Low}, {bPin, gpio.High}, {a, gpio.High}}
	for i, s := range steps {
		s.pin.EdgesChan <- s.level
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			b.encoder.mu.Lock()
			defer b.encoder.mu.Unlock()
			test.That(tb, b.encoder.raw, test.ShouldEqual, i+1)
		})
	}
	pos, err := b.EncoderPosition(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 2)
}

func TestMissingPin(t *testing.T) {
	pp := registerPanel(t, "miss_")
	conf := pp.conf
	conf.Center = "miss_NOWHERE"
	_, err := New(conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "center button")
}

func TestQuadrature(t *testing.T) {
	q := newQuadrature(false, false)
	// Reverse cycle counts down through zero and wraps.
	for _, s := range [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}} {
		q.update(s[0], s[1])
	}
	test.That(t, q.raw, test.ShouldEqual, -4)
	test.That(t, q.position(), test.ShouldEqual, uint32(0xfffffffe))

	// Both phases flipping at once is noise.
	q.update(true, true)
	test.That(t, q.raw, test.ShouldEqual, -4)
	test.That(t, q.state, test.ShouldEqual, 0)
}
