package input

// RedrawReason tells the display presenter why a snapshot was sent.
type RedrawReason int

// Redraw reasons, in increasing priority. When several happen in one tick the highest wins.
const (
	Idle RedrawReason = iota
	SpeedChanged
	GainValueChanged
	GainSelectionChanged
	EmergencyStop
)

func (r RedrawReason) String() string {
	switch r {
	case Idle:
		return "idle"
	case SpeedChanged:
		return "speed_changed"
	case GainValueChanged:
		return "gain_value_changed"
	case GainSelectionChanged:
		return "gain_selection_changed"
	case EmergencyStop:
		return "emergency_stop"
	}
	return "unknown"
}

// Broad reports whether the reason forces the gain label and every gain value to be redrawn.
func (r RedrawReason) Broad() bool {
	return r == EmergencyStop || r == GainSelectionChanged
}

// Merge returns the higher-priority of r and other.
func (r RedrawReason) Merge(other RedrawReason) RedrawReason {
	if other > r {
		return other
	}
	return r
}
