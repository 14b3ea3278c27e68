// Package fake implements a fake board whose inputs are set by tests or by operator commands in
// simulation.
package fake

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/speedctl/components/board"
)

var (
	_ = board.Inputs(&Board{})
	_ = board.EdgeNotifier(&Board{})
)

// Board holds input levels in memory. A pressed button stays down until Release, a pulsed button
// reads as down exactly once.
type Board struct {
	mu       sync.Mutex
	switches uint16
	held     map[board.ButtonID]bool
	pulses   map[board.ButtonID]int
	position uint32
	aux      bool
	edges    chan struct{}

	// Err, when set, is returned by every read.
	Err error
}

// NewBoard returns a board with every input low.
func NewBoard() *Board {
	return &Board{
		held:   map[board.ButtonID]bool{},
		pulses: map[board.ButtonID]int{},
		edges:  make(chan struct{}, 1),
	}
}

// Switches returns the switch word.
func (b *Board) Switches(ctx context.Context) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return 0, b.Err
	}
	return b.switches, nil
}

// Button returns the level of id, consuming one pending pulse.
func (b *Board) Button(ctx context.Context, id board.ButtonID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	if b.pulses[id] > 0 {
		b.pulses[id]--
		return true, nil
	}
	return b.held[id], nil
}

// EncoderPosition returns the tick counter.
func (b *Board) EncoderPosition(ctx context.Context) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return 0, b.Err
	}
	return b.position, nil
}

// EncoderAux returns the auxiliary switch.
func (b *Board) EncoderAux(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	return b.aux, nil
}

// Edges signals after every button change.
func (b *Board) Edges() <-chan struct{} {
	return b.edges
}

func (b *Board) notify() {
	select {
	case b.edges <- struct{}{}:
	default:
	}
}

// SetSwitches replaces the switch word.
func (b *Board) SetSwitches(v uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.switches = v
}

// SetSwitch sets one switch.
func (b *Board) SetSwitch(bit uint, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.switches |= 1 << bit
	} else {
		b.switches &^= 1 << bit
	}
}

// Press holds id down.
func (b *Board) Press(id board.ButtonID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held[id] = true
	b.notify()
}

// Release lets id up.
func (b *Board) Release(id board.ButtonID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held[id] = false
	b.notify()
}

// Pulse makes the next read of id report down, then up again.
func (b *Board) Pulse(id board.ButtonID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulses[id]++
	b.notify()
}

// SetEncoderPosition sets the tick counter.
func (b *Board) SetEncoderPosition(v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = v
}

// Turn moves the encoder by steps ticks. The counter runs down when turning clockwise.
func (b *Board) Turn(steps int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position -= uint32(steps)
}

// SetEncoderAux sets the auxiliary switch.
func (b *Board) SetEncoderAux(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aux = on
}

// ApplyCommand changes inputs from a one-line operator command:
//
//	sw <word>          set all switches (0x prefix for hex)
//	sw <n> on|off      set switch n
//	btn <name>         pulse a button (up, down, left, right, center)
//	hold|release <name>
//	cw [n] / ccw [n]   turn the encoder
//	enc <position>     set the encoder counter
//	aux on|off         set the encoder auxiliary switch
func (b *Board) ApplyCommand(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "sw":
		switch len(args) {
		case 1:
			v, err := strconv.ParseUint(args[0], 0, 16)
			if err != nil {
				return errors.Wrapf(err, "bad switch word %q", args[0])
			}
			b.SetSwitches(uint16(v))
			return nil
		case 2:
			bit, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil || bit > 15 {
				return errors.Errorf("bad switch number %q", args[0])
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			b.SetSwitch(uint(bit), on)
			return nil
		}
		return errors.New("usage: sw <word> | sw <n> on|off")
	case "btn", "hold", "release":
		if len(args) != 1 {
			return errors.Errorf("usage: %s <button>", fields[0])
		}
		id, err := board.ButtonFromString(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		switch strings.ToLower(fields[0]) {
		case "btn":
			b.Pulse(id)
		case "hold":
			b.Press(id)
		default:
			b.Release(id)
		}
		return nil
	case "cw", "ccw":
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return errors.Errorf("bad step count %q", args[0])
			}
			steps = n
		}
		if strings.ToLower(fields[0]) == "ccw" {
			steps = -steps
		}
		b.Turn(steps)
		return nil
	case "enc":
		if len(args) != 1 {
			return errors.New("usage: enc <position>")
		}
		v, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return errors.Wrapf(err, "bad encoder position %q", args[0])
		}
		b.SetEncoderPosition(uint32(v))
		return nil
	case "aux":
		if len(args) != 1 {
			return errors.New("usage: aux on|off")
		}
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		b.SetEncoderAux(on)
		return nil
	}
	return errors.Errorf("unknown command %q", fields[0])
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, errors.Errorf("expected on or off, got %q", s)
}
