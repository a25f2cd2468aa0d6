package stepwise

import "strings"

// Predicate decides whether a step output satisfies the goal. It is an
// explicit, documented heuristic kept at the boundary so it can be swapped
// for a stricter matcher without touching the planner's state machine
type Predicate func(output string) bool

// DefaultMarkers are the completion markers matched by DefaultPredicate
var DefaultMarkers = []string{
	"goal achieved",
	"task completed",
}

// DefaultPredicate is a deliberately conservative case-insensitive
// substring match: false negatives (continuing past a completed goal) are
// preferred over false positives, which would silently discard remaining
// work. Known fidelity gap: it can both under- and over-fire; callers
// needing a principled termination oracle should supply their own
var DefaultPredicate = Markers(DefaultMarkers...)

// Markers builds a predicate satisfied when the output contains any of the
// given markers, ignoring case
func Markers(markers ...string) Predicate {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return func(output string) bool {
		text := strings.ToLower(output)
		for _, m := range lowered {
			if strings.Contains(text, m) {
				return true
			}
		}
		return false
	}
}

// Never is a predicate that never fires; termination is then driven
// entirely by the oracle's explicit completion signal and the run bounds
func Never(string) bool {
	return false
}
