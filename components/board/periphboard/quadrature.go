package periphboard

import "sync"

// quadrature decodes the two phase outputs of a rotary encoder into a tick counter.
//
//	    1   2     3    4    1    2    3    4     1
//
//	            +---------+         +---------+      0
//	            |         |         |         |
//	  A         |         |         |         |
//	            |         |         |         |
//	  +---------+         +---------+         +----- 1
//
//	      +---------+         +---------+            0
//	      |         |         |         |
//	  B   |         |         |         |
//	      |         |         |         |
//	  ----+         +---------+         +---------+  1
//
// Every valid transition moves a raw half-step count; the exposed position is raw/2 so that one
// detent is one tick. Invalid transitions (both phases changing at once) are ignored.
type quadrature struct {
	mu    sync.Mutex
	state int
	raw   int64
}

func newQuadrature(a, b bool) *quadrature {
	return &quadrature{state: phaseState(a, b)}
}

func phaseState(a, b bool) int {
	s := 0
	if a {
		s |= 1
	}
	if b {
		s |= 2
	}
	return s
}

func (q *quadrature) update(a, b bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := phaseState(a, b)
	if next == q.state {
		return
	}
	switch (q.state << 2) | next {
	case 0b0001, 0b0111, 0b1000, 0b1110:
		q.raw--
	case 0b0010, 0b0100, 0b1011, 0b1101:
		q.raw++
	default:
		return
	}
	q.state = next
}

// position wraps like the hardware counter does.
func (q *quadrature) position() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint32(q.raw >> 1)
}
