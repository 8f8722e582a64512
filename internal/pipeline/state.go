package pipeline

import "fmt"

// State tracks a document's progress through the pipeline stages.
type State int

const (
	StateInit State = iota
	StateNoiseDetected
	StateElementsExtracted
	StateZonesBuilt
	StateTextExtracted
	StateDone
	StateError
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateNoiseDetected:
		return "NOISE_DETECTED"
	case StateElementsExtracted:
		return "ELEMENTS_EXTRACTED"
	case StateZonesBuilt:
		return "ZONES_BUILT"
	case StateTextExtracted:
		return "TEXT_EXTRACTED"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText makes states readable in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// transitions lists the legal forward edges. Noise detection may be
// skipped, so INIT also steps straight to ELEMENTS_EXTRACTED. ERROR is
// reachable from anywhere.
var transitions = map[State][]State{
	StateInit:              {StateNoiseDetected, StateElementsExtracted},
	StateNoiseDetected:     {StateElementsExtracted},
	StateElementsExtracted: {StateZonesBuilt},
	StateZonesBuilt:        {StateTextExtracted},
	StateTextExtracted:     {StateDone},
}

// advance moves to the next state, rejecting illegal jumps.
func advance(from, to State) (State, error) {
	if to == StateError {
		return StateError, nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("illegal state transition %s -> %s", from, to)
}
