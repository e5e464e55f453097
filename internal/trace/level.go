package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // only dumped on crashes
	LevelPhase               // driver + pass boundaries
	LevelDetail              // per-component events
	LevelDebug               // everything including node-level
)

// levels is indexed by Level; deepest is the finest scope a level streams.
var levels = [...]struct {
	name    string
	deepest Scope
}{
	LevelOff:    {"off", 0},
	LevelError:  {"error", 0}, // the ring keeps events, streams get none
	LevelPhase:  {"phase", ScopePass},
	LevelDetail: {"detail", ScopeComponent},
	LevelDebug:  {"debug", ScopeNode},
}

func (l Level) String() string {
	if int(l) >= len(levels) {
		return "unknown"
	}
	return levels[l].name
}

// ParseLevel converts a string to a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for l := range levels {
		if levels[l].name == name {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope are streamed at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levels) {
		return false
	}
	return scope != 0 && scope <= levels[l].deepest
}
