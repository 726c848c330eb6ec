package types

import "fmt"

const (
	MinYear           = 1950
	MaxYear           = 2030
	MinTimingDataYear = 2018
)

// SessionType identifies one on-track activity within an event.
type SessionType string

const (
	FP1 SessionType = "FP1"
	FP2 SessionType = "FP2"
	FP3 SessionType = "FP3"
	SQ  SessionType = "SQ" // sprint qualifying
	S   SessionType = "S"  // sprint
	Q   SessionType = "Q"
	R   SessionType = "R"
)

var sessionTypes = []SessionType{FP1, FP2, FP3, SQ, S, Q, R}

// ParseSessionType accepts exactly the enumerated identifiers.
func ParseSessionType(s string) (SessionType, error) {
	for _, st := range sessionTypes {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid session type %q", s)
}

// Name is the long session name used by the live-timing feed.
func (t SessionType) Name() string {
	switch t {
	case FP1:
		return "Practice 1"
	case FP2:
		return "Practice 2"
	case FP3:
		return "Practice 3"
	case SQ:
		return "Sprint Qualifying"
	case S:
		return "Sprint"
	case Q:
		return "Qualifying"
	case R:
		return "Race"
	}
	return string(t)
}
