// Package fake implements motors for tests and simulation.
package fake

import (
	"context"
	"sync"

	"go.viam.com/speedctl/components/motor"
)

var _ = motor.Motor(&Motor{})

// Motor records every command and reports whatever tachometer value it was given.
type Motor struct {
	mu         sync.Mutex
	tach       uint32
	duties     []uint8
	directions []bool

	// Err, when set, is returned by every call.
	Err error
}

// SetTachometer sets the value the next ReadTachometer calls return.
func (m *Motor) SetTachometer(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tach = v
}

// SetPWM records duty.
func (m *Motor) SetPWM(ctx context.Context, duty uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.duties = append(m.duties, duty)
	return nil
}

// SetDirection records forward.
func (m *Motor) SetDirection(ctx context.Context, forward bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.directions = append(m.directions, forward)
	return nil
}

// ReadTachometer returns the value set with SetTachometer.
func (m *Motor) ReadTachometer(ctx context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.tach, nil
}

// Duties returns a copy of every duty cycle written so far.
func (m *Motor) Duties() []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint8(nil), m.duties...)
}

// Directions returns a copy of every direction written so far.
func (m *Motor) Directions() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.directions...)
}
