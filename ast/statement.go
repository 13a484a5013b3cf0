// Package ast defines the statement tree that the executor package
// walks. A Statement is a tagged variant: exactly one of its pointer
// fields is non-nil, selected by Kind. This mirrors how the syntax
// package in the teacher's own interpreter models one node per command
// kind, except collapsed into a single sum-type struct since our grammar
// is far smaller (spec.md §1 places full shell grammar out of scope).
package ast

import "github.com/yonasBSD/ion-shell/pipeline"

// Word is a single not-yet-expanded token, as produced by the external
// Parser. Expansion (variable substitution, globbing, splitting) is the
// Expander collaborator's job, not this package's.
type Word string

// Kind identifies which variant of Statement is populated.
type Kind uint8

const (
	KindError Kind = iota
	KindLet
	KindExport
	KindPipeline
	KindIf
	KindWhile
	KindFor
	KindMatch
	KindFunction
	KindTime
	KindAnd
	KindOr
	KindNot
	KindBreak
	KindContinue
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "Error"
	case KindLet:
		return "Let"
	case KindExport:
		return "Export"
	case KindPipeline:
		return "Pipeline"
	case KindIf:
		return "If"
	case KindWhile:
		return "While"
	case KindFor:
		return "For"
	case KindMatch:
		return "Match"
	case KindFunction:
		return "Function"
	case KindTime:
		return "Time"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindNot:
		return "Not"
	case KindBreak:
		return "Break"
	case KindContinue:
		return "Continue"
	default:
		return "Kind(?)"
	}
}

// Assignment is the payload of Let and Export: a single name/value
// binding, optionally an array literal instead of a scalar word.
type Assignment struct {
	Name   string
	Value  Word   // scalar assignment; empty if Array is non-nil
	Array  []Word // array literal assignment; nil for a scalar
	Append bool   // "+=" rather than "="
}

// ElseIf is one "else if" arm of an If statement.
type ElseIf struct {
	Cond *Statement
	Then []Statement
}

// Case is one arm of a Match statement. Patterns == nil marks the
// default (catch-all) case, which the spec requires to be tried only
// after every preceding pattern-bearing case has failed to match.
type Case struct {
	Patterns []Word // nil means "default case"
	Binding  string // "" means no binding requested
	Guard    string // "" means no guard command
	Body     []Statement
}

// Statement is a tagged union over every executable construct the
// executor understands. Exactly one field matching Kind is populated;
// the rest are the zero value. A single struct (rather than an
// interface with one implementation per kind) keeps LoopExecutor's
// "clone the body before each iteration" requirement (spec.md §4.4/§9)
// a plain value copy instead of a virtual Clone method per node type.
type Statement struct {
	Kind Kind

	// KindError
	ErrorCode int

	// KindLet, KindExport
	Assign Assignment

	// KindPipeline
	Pipeline *pipeline.Pipeline

	// KindIf
	IfCond  *Statement
	IfThen  []Statement
	IfElifs []ElseIf
	IfElse  []Statement

	// KindWhile
	WhileCond *pipeline.Pipeline
	WhileBody []Statement

	// KindFor
	ForVar    string
	ForValues []Word
	ForBody   []Statement

	// KindMatch
	MatchSubject Word
	MatchCases   []Case

	// KindFunction
	FuncName string
	FuncArgs []string
	FuncBody []Statement
	FuncDoc  string

	// KindTime, KindAnd, KindOr, KindNot
	Inner *Statement

	// KindBreak, KindContinue
	Enclosing int // number of loop levels to unwind; 0 means "1" (spec §9 supplement)
}

// Levels returns the effective break/continue unwind count: 0 and 1
// both mean "unwind one enclosing loop", matching the teacher's
// breakEnclosing/contnEnclosing counters (interp/runner.go) and the
// ion-shell "break 2"/"continue 2" builtin form this spec's §9
// supplement restores.
func (s *Statement) Levels() int {
	if s.Enclosing <= 0 {
		return 1
	}
	return s.Enclosing
}

// Clone returns a statement tree deep enough to re-execute safely: it
// copies the Statement value and its slice headers. Because Statement
// trees are immutable once built (the executor never mutates a node in
// place), a shallow slice copy is sufficient — no nested Statement is
// ever written through after construction, only its fields read. This
// mirrors the teacher's own choice, noted in the original source's
// comment ("Cloning is needed so the statement can be re-iterated
// again"), and the alternative the spec's design notes (§9) explicitly
// allow: pass bodies by shared reference when nothing downstream
// mutates them.
func Clone(stmts []Statement) []Statement {
	out := make([]Statement, len(stmts))
	copy(out, stmts)
	return out
}
