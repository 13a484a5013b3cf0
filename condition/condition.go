// Package condition defines the non-local control signal that an
// executed statement hands back to its caller.
package condition

// Condition is the four-valued result of executing a statement. It has
// no payload: every variant carries exactly the information needed to
// decide whether the enclosing construct keeps going, stops, or
// unwinds further.
type Condition uint8

const (
	// NoOp means the statement ran to completion and nothing special
	// needs to happen: the caller should move on to the next sibling.
	NoOp Condition = iota
	// Break unwinds the nearest enclosing loop or match.
	Break
	// Continue skips to the next iteration of the nearest enclosing loop.
	Continue
	// SigInt means an interrupt was observed; every enclosing executor
	// must stop running further siblings and propagate it unchanged.
	SigInt
)

// String renders the condition the way the package's own log lines and
// test failures do; it is not meant for end-user output.
func (c Condition) String() string {
	switch c {
	case NoOp:
		return "NoOp"
	case Break:
		return "Break"
	case Continue:
		return "Continue"
	case SigInt:
		return "SigInt"
	default:
		return "Condition(?)"
	}
}

// IsNoOp reports whether the block/loop/statement that produced this
// condition should be treated as having completed normally.
func (c Condition) IsNoOp() bool { return c == NoOp }

// StopsBlock reports whether a compound statement (if/while/for/match)
// must stop evaluating further siblings upon seeing this condition.
// Every variant other than NoOp stops a block; the distinction between
// Break, Continue, and SigInt matters only to the construct that
// receives it next.
func (c Condition) StopsBlock() bool { return c != NoOp }
