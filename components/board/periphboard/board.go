// Package periphboard reads the operator panel from host GPIO pins through periph.io.
package periphboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"go.viam.com/speedctl/components/board"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

var (
	_ = board.Inputs(&Board{})
	_ = board.EdgeNotifier(&Board{})
)

// edgePoll bounds how long a pin watcher blocks before checking for shutdown.
const edgePoll = 100 * time.Millisecond

// Board is the operator panel on GPIO pins. Switches and buttons are active high. Button changes
// and encoder steps are followed by background watchers; everything else is read on demand.
type Board struct {
	switches [config.NumSwitches]gpio.PinIO
	buttons  map[board.ButtonID]gpio.PinIO
	aux      gpio.PinIO
	encoder  *quadrature
	edges    chan struct{}

	logger  logging.Logger
	workers utils.StoppableWorkers
}

func lookupPin(role, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, board.NewPinNotFoundError(role, name)
	}
	return p, nil
}

// New claims the panel pins named in conf and starts watching the buttons and encoder.
func New(conf config.PinConfig, logger logging.Logger) (*Board, error) {
	b := &Board{
		buttons: map[board.ButtonID]gpio.PinIO{},
		edges:   make(chan struct{}, 1),
		logger:  logger,
	}

	for bit, name := range conf.Switches {
		if name == "" {
			continue
		}
		p, err := lookupPin("switch", name)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return nil, errors.Wrapf(err, "configuring switch %d", bit)
		}
		b.switches[bit] = p
	}

	buttonPins := map[board.ButtonID]string{
		board.ButtonCenter: conf.Center,
		board.ButtonDown:   conf.Down,
		board.ButtonLeft:   conf.Left,
		board.ButtonRight:  conf.Right,
		board.ButtonUp:     conf.Up,
	}
	for _, id := range board.AllButtons {
		p, err := lookupPin(id.String()+" button", buttonPins[id])
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.BothEdges); err != nil {
			return nil, errors.Wrapf(err, "configuring %s button", id)
		}
		b.buttons[id] = p
	}

	encA, err := lookupPin("encoder a", conf.EncoderA)
	if err != nil {
		return nil, err
	}
	encB, err := lookupPin("encoder b", conf.EncoderB)
	if err != nil {
		return nil, err
	}
	for _, p := range []gpio.PinIO{encA, encB} {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, errors.Wrapf(err, "configuring encoder pin %s", p)
		}
	}
	b.encoder = newQuadrature(encA.Read() == gpio.High, encB.Read() == gpio.High)

	if b.aux, err = lookupPin("encoder aux", conf.EncoderAux); err != nil {
		return nil, err
	}
	if err := b.aux.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, errors.Wrap(err, "configuring encoder aux")
	}

	b.workers = utils.NewStoppableWorkers()
	for _, p := range b.buttons {
		b.workers.AddWorkers(func(ctx context.Context) {
			watchEdges(ctx, p, b.notify)
		})
	}
	step := func() {
		b.encoder.update(encA.Read() == gpio.High, encB.Read() == gpio.High)
	}
	b.workers.AddWorkers(
		func(ctx context.Context) { watchEdges(ctx, encA, step) },
		func(ctx context.Context) { watchEdges(ctx, encB, step) },
	)
	return b, nil
}

func watchEdges(ctx context.Context, p gpio.PinIO, onEdge func()) {
	for ctx.Err() == nil {
		if p.WaitForEdge(edgePoll) {
			onEdge()
		}
	}
}

func (b *Board) notify() {
	select {
	case b.edges <- struct{}{}:
	default:
	}
}

// Switches reads every wired switch; unwired bits read 0.
func (b *Board) Switches(ctx context.Context) (uint16, error) {
	var word uint16
	for bit, p := range b.switches {
		if p != nil && p.Read() == gpio.High {
			word |= 1 << bit
		}
	}
	return word, nil
}

// Button reads the level of id.
func (b *Board) Button(ctx context.Context, id board.ButtonID) (bool, error) {
	p, ok := b.buttons[id]
	if !ok {
		return false, board.NewUnknownButtonError(id.String())
	}
	return p.Read() == gpio.High, nil
}

// EncoderPosition returns the decoded encoder counter.
func (b *Board) EncoderPosition(ctx context.Context) (uint32, error) {
	return b.encoder.position(), nil
}

// EncoderAux reads the encoder's push switch.
func (b *Board) EncoderAux(ctx context.Context) (bool, error) {
	return b.aux.Read() == gpio.High, nil
}

// Edges signals after any button edge.
func (b *Board) Edges() <-chan struct{} {
	return b.edges
}

// Close stops the pin watchers.
func (b *Board) Close() error {
	b.workers.Stop()
	return nil
}
