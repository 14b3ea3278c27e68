package input

// Rotation is the turn seen between two encoder samples.
type Rotation int

// Rotations.
const (
	NoRotation Rotation = iota
	Clockwise
	CounterClockwise
)

// RotaryTracker derives turn direction by comparing successive encoder counter readings. Only the
// sign of the change matters: a jump of several ticks within one sample is still a single step.
type RotaryTracker struct {
	position    uint32
	previous    uint32
	initialized bool
}

// Sample records the counter and returns the rotation since the previous sample. The counter
// runs down when turned clockwise and wraps at 32 bits; the change is taken as a signed
// difference so a wrap past zero keeps its direction. The first sample only establishes the
// reference.
func (r *RotaryTracker) Sample(position uint32) Rotation {
	if !r.initialized {
		r.position, r.previous, r.initialized = position, position, true
		return NoRotation
	}
	r.previous, r.position = r.position, position
	delta := int32(r.position - r.previous)
	switch {
	case delta < 0:
		return Clockwise
	case delta > 0:
		return CounterClockwise
	default:
		return NoRotation
	}
}
