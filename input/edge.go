package input

// EdgeDetector turns level samples into one-shot rising-edge events, so a held button fires once
// and not on every tick.
type EdgeDetector struct {
	latched bool
}

// Sample feeds the current level and reports whether it is a rising edge.
func (e *EdgeDetector) Sample(level bool) bool {
	rising := level && !e.latched
	e.latched = level
	return rising
}
