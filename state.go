package netonl

import (
	"encoding/json"
	"fmt"
)

// State is the link-health state emitted on the event stream. Ordinal
// values are part of the wire contract for cross-process transport and
// must not be reordered.
type State int

const (
	StateError State = iota
	StateUnknown
	StateDown
	StateUp
)

func (s State) String() string {
	switch s {
	case StateError:
		return "Error"
	case StateUnknown:
		return "Unknown"
	case StateDown:
		return "Down"
	case StateUp:
		return "Up"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalJSON serializes the variant name, for clients that expose state
// transitions over a socket. Integer-ordinal transport is the Go int value
// of State itself, used as-is when a caller needs the wire form instead.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the variant name produced by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "Error":
		*s = StateError
	case "Unknown":
		*s = StateUnknown
	case "Down":
		*s = StateDown
	case "Up":
		*s = StateUp
	default:
		return fmt.Errorf("netonl: unknown state name %q", name)
	}
	return nil
}
