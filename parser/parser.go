// Package parser implements the Parser and FlowBuilder external
// collaborators from spec.md §6. Lexing and parsing of full shell
// grammar is explicitly out of scope for the statement executor
// (spec.md §1); this package implements a deliberately simplified,
// keyword-delimited grammar (ion-flavored "for ... end", "if ... else
// ... end", "match ... case ... end") sufficient to drive every
// Statement variant ast.Statement defines, grounded on the incremental
// completion idiom of the teacher's syntax.Parser.InteractiveSeq
// (_examples/mvdan-sh/cmd/gosh/main.go): feed one raw statement at a
// time, get back either "need more input" or a completed top-level
// Statement.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/pipeline"
)

// Parser splits one line of raw input into individual raw statement
// strings, the way the teacher's StatementSplitter/syntax.Parser
// separates ";"-joined commands before each is handed to the flow
// builder.
type Parser struct{}

// Split breaks src into raw statement strings on newlines and
// unquoted semicolons, matching spec.md §6's "Parser: takes a raw
// input string, yields a sequence of token-level statements."
func (Parser) Split(src string) []string {
	var out []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range src {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteRune(r)
		case r == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteRune(r)
		case (r == ';' || r == '\n') && !inSingle && !inDouble:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// blockKind identifies which open construct a frame on the
// FlowBuilder's stack represents.
type blockKind uint8

const (
	blockFor blockKind = iota
	blockWhile
	blockIf
	blockMatch
	blockFunc
)

type ifPhase uint8

const (
	phaseThen ifPhase = iota
	phaseElif
	phaseElse
)

type frame struct {
	kind blockKind

	// for
	forVar string
	forRaw []ast.Word

	// while
	whileCond *pipeline.Pipeline

	// if
	ifCond  *ast.Statement
	ifThen  []ast.Statement
	ifElifs []ast.ElseIf
	ifElse  []ast.Statement
	phase   ifPhase

	// match
	matchSubject ast.Word
	cases        []ast.Case
	curCase      *ast.Case

	// function
	fnName string
	fnArgs []string
	fnDoc  string

	// shared accumulator for for/while/function bodies
	body []ast.Statement
}

// FlowBuilder accumulates token-level statements across partial input,
// implementing spec.md §6's insert_statement contract: Insert returns
// (nil, nil) when more input is needed, (stmt, nil) when a syntactically
// complete top-level Statement is ready for the executor, or (nil, err)
// on a syntax error — at which point the caller must call Reset.
type FlowBuilder struct {
	stack []*frame
}

// NewFlowBuilder returns an empty builder, ready to accept statements.
func NewFlowBuilder() *FlowBuilder { return &FlowBuilder{} }

// Reset discards any partially built block, matching spec.md §6's
// "Exposes reset() to discard partial state."
func (fb *FlowBuilder) Reset() { fb.stack = fb.stack[:0] }

// Incomplete reports whether the builder is in the middle of an open
// block, useful for an interactive prompt deciding whether to print a
// continuation prompt (mirroring syntax.Parser.Incomplete in the
// teacher).
func (fb *FlowBuilder) Incomplete() bool { return len(fb.stack) > 0 }

// Insert feeds one raw statement string (as produced by Parser.Split)
// into the builder.
func (fb *FlowBuilder) Insert(line string) (*ast.Statement, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return nil, nil
	}
	head := tokens[0]

	if len(fb.stack) > 0 {
		switch head {
		case "end":
			return fb.handleEnd()
		case "else":
			return nil, fb.handleElse(tokens)
		case "case":
			return nil, fb.handleCase(tokens)
		}
	} else if head == "else" {
		return nil, fmt.Errorf("parser: 'else' outside an if block")
	}

	switch head {
	case "for":
		return nil, fb.openFor(tokens)
	case "while":
		return nil, fb.openWhile(tokens)
	case "if":
		return nil, fb.openIf(tokens)
	case "match":
		return nil, fb.openMatch(tokens)
	case "fn":
		return nil, fb.openFunc(tokens)
	default:
		stmt, err := parseSimple(line)
		if err != nil {
			return nil, err
		}
		if len(fb.stack) == 0 {
			return &stmt, nil
		}
		if err := fb.appendToTop(stmt); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func (fb *FlowBuilder) top() *frame { return fb.stack[len(fb.stack)-1] }

func (fb *FlowBuilder) appendToTop(stmt ast.Statement) error {
	top := fb.top()
	switch top.kind {
	case blockFor, blockWhile, blockFunc:
		top.body = append(top.body, stmt)
	case blockIf:
		switch top.phase {
		case phaseThen:
			top.ifThen = append(top.ifThen, stmt)
		case phaseElif:
			last := &top.ifElifs[len(top.ifElifs)-1]
			last.Then = append(last.Then, stmt)
		case phaseElse:
			top.ifElse = append(top.ifElse, stmt)
		}
	case blockMatch:
		if top.curCase == nil {
			return fmt.Errorf("parser: statement outside any case in match block")
		}
		top.curCase.Body = append(top.curCase.Body, stmt)
	}
	return nil
}

func (fb *FlowBuilder) handleEnd() (*ast.Statement, error) {
	top := fb.top()
	if top.kind == blockMatch && top.curCase != nil {
		top.cases = append(top.cases, *top.curCase)
		top.curCase = nil
		return nil, nil
	}
	return fb.closeTop()
}

func (fb *FlowBuilder) closeTop() (*ast.Statement, error) {
	top := fb.stack[len(fb.stack)-1]
	fb.stack = fb.stack[:len(fb.stack)-1]

	var stmt ast.Statement
	switch top.kind {
	case blockFor:
		stmt = ast.Statement{Kind: ast.KindFor, ForVar: top.forVar, ForValues: top.forRaw, ForBody: top.body}
	case blockWhile:
		stmt = ast.Statement{Kind: ast.KindWhile, WhileCond: top.whileCond, WhileBody: top.body}
	case blockIf:
		stmt = ast.Statement{Kind: ast.KindIf, IfCond: top.ifCond, IfThen: top.ifThen, IfElifs: top.ifElifs, IfElse: top.ifElse}
	case blockMatch:
		stmt = ast.Statement{Kind: ast.KindMatch, MatchSubject: top.matchSubject, MatchCases: top.cases}
	case blockFunc:
		stmt = ast.Statement{Kind: ast.KindFunction, FuncName: top.fnName, FuncArgs: top.fnArgs, FuncBody: top.body, FuncDoc: top.fnDoc}
	}

	if len(fb.stack) == 0 {
		return &stmt, nil
	}
	if err := fb.appendToTop(stmt); err != nil {
		return nil, err
	}
	return nil, nil
}

func (fb *FlowBuilder) handleElse(tokens []string) error {
	top := fb.top()
	if top.kind != blockIf {
		return fmt.Errorf("parser: 'else' outside an if block")
	}
	if len(tokens) > 1 && tokens[1] == "if" {
		condStmt, err := parseSimple(strings.Join(tokens[2:], " "))
		if err != nil {
			return err
		}
		top.ifElifs = append(top.ifElifs, ast.ElseIf{Cond: &condStmt})
		top.phase = phaseElif
		return nil
	}
	top.phase = phaseElse
	return nil
}

func (fb *FlowBuilder) handleCase(tokens []string) error {
	top := fb.top()
	if top.kind != blockMatch {
		return fmt.Errorf("parser: 'case' outside a match block")
	}
	if top.curCase != nil {
		top.cases = append(top.cases, *top.curCase)
		top.curCase = nil
	}
	rest := tokens[1:]
	if len(rest) == 1 && rest[0] == "_" {
		top.curCase = &ast.Case{}
		return nil
	}
	var patterns []ast.Word
	i := 0
	for i < len(rest) && rest[i] != "@" && rest[i] != "if" {
		patterns = append(patterns, ast.Word(rest[i]))
		i++
	}
	var binding, guard string
	if i < len(rest) && rest[i] == "@" {
		i++
		if i < len(rest) {
			binding = rest[i]
			i++
		}
	}
	if i < len(rest) && rest[i] == "if" {
		guard = strings.Join(rest[i+1:], " ")
	}
	if len(patterns) == 0 {
		return fmt.Errorf("parser: case requires at least one pattern or '_'")
	}
	top.curCase = &ast.Case{Patterns: patterns, Binding: binding, Guard: guard}
	return nil
}

func (fb *FlowBuilder) openFor(tokens []string) error {
	if len(tokens) < 4 || tokens[2] != "in" {
		return fmt.Errorf("parser: usage: for VAR in VALUES...")
	}
	var raw []ast.Word
	for _, t := range tokens[3:] {
		raw = append(raw, ast.Word(t))
	}
	fb.stack = append(fb.stack, &frame{kind: blockFor, forVar: tokens[1], forRaw: raw})
	return nil
}

func (fb *FlowBuilder) openWhile(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("parser: usage: while CONDITION")
	}
	p, err := buildPipeline(tokens[1:])
	if err != nil {
		return err
	}
	fb.stack = append(fb.stack, &frame{kind: blockWhile, whileCond: p})
	return nil
}

func (fb *FlowBuilder) openIf(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("parser: usage: if CONDITION")
	}
	condStmt, err := parseSimple(strings.Join(tokens[1:], " "))
	if err != nil {
		return err
	}
	fb.stack = append(fb.stack, &frame{kind: blockIf, ifCond: &condStmt, phase: phaseThen})
	return nil
}

func (fb *FlowBuilder) openMatch(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("parser: usage: match SUBJECT")
	}
	fb.stack = append(fb.stack, &frame{kind: blockMatch, matchSubject: ast.Word(strings.Join(tokens[1:], " "))})
	return nil
}

func (fb *FlowBuilder) openFunc(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("parser: usage: fn NAME [ARGS...]")
	}
	fb.stack = append(fb.stack, &frame{kind: blockFunc, fnName: tokens[1], fnArgs: append([]string(nil), tokens[2:]...)})
	return nil
}

// parseSimple parses one non-block raw statement into a leaf
// Statement: Let/Export, Break/Continue, Time/And/Or/Not wrappers,
// Error, or a Pipeline.
func parseSimple(line string) (ast.Statement, error) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return ast.Statement{}, fmt.Errorf("parser: empty statement")
	}
	switch tokens[0] {
	case "break":
		n, err := optionalLevels(tokens[1:])
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindBreak, Enclosing: n}, nil
	case "continue":
		n, err := optionalLevels(tokens[1:])
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindContinue, Enclosing: n}, nil
	case "let":
		return parseAssignment(ast.KindLet, tokens)
	case "export":
		return parseAssignment(ast.KindExport, tokens)
	case "error":
		if len(tokens) != 2 {
			return ast.Statement{}, fmt.Errorf("parser: usage: error CODE")
		}
		n, err := strconv.Atoi(tokens[1])
		if err != nil {
			return ast.Statement{}, fmt.Errorf("parser: invalid error code %q: %w", tokens[1], err)
		}
		return ast.Statement{Kind: ast.KindError, ErrorCode: n}, nil
	case "time":
		inner, err := parseSimple(strings.Join(tokens[1:], " "))
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindTime, Inner: &inner}, nil
	case "and":
		inner, err := parseSimple(strings.Join(tokens[1:], " "))
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindAnd, Inner: &inner}, nil
	case "or":
		inner, err := parseSimple(strings.Join(tokens[1:], " "))
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindOr, Inner: &inner}, nil
	case "not":
		inner, err := parseSimple(strings.Join(tokens[1:], " "))
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindNot, Inner: &inner}, nil
	default:
		p, err := buildPipeline(tokens)
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.KindPipeline, Pipeline: p}, nil
	}
}

func optionalLevels(rest []string) (int, error) {
	switch len(rest) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return 0, fmt.Errorf("parser: invalid unwind count %q", rest[0])
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parser: usage: break|continue [n]")
	}
}

func parseAssignment(kind ast.Kind, tokens []string) (ast.Statement, error) {
	if len(tokens) < 3 {
		return ast.Statement{}, fmt.Errorf("parser: usage: %s NAME = VALUE", tokens[0])
	}
	name := tokens[1]
	op := tokens[2]
	if op != "=" && op != "+=" {
		return ast.Statement{}, fmt.Errorf("parser: usage: %s NAME = VALUE", tokens[0])
	}
	rest := tokens[3:]
	assign := ast.Assignment{Name: name, Append: op == "+="}
	if len(rest) == 1 && strings.HasPrefix(rest[0], "[") && strings.HasSuffix(rest[0], "]") {
		inner := strings.TrimSuffix(strings.TrimPrefix(rest[0], "["), "]")
		for _, e := range strings.Fields(inner) {
			assign.Array = append(assign.Array, ast.Word(e))
		}
	} else {
		assign.Value = ast.Word(strings.Join(rest, " "))
	}
	return ast.Statement{Kind: kind, Assign: assign}, nil
}

// buildPipeline parses a sequence of tokens into a Pipeline: one or
// more Commands separated by "|", with "!" as an optional leading
// negation marker and ">"/">>"/"<" redirect tokens consumed inline.
func buildPipeline(tokens []string) (*pipeline.Pipeline, error) {
	negated := false
	if len(tokens) > 0 && tokens[0] == "!" {
		negated = true
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("parser: empty pipeline")
	}
	var groups [][]string
	var cur []string
	for _, t := range tokens {
		if t == "|" {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	groups = append(groups, cur)

	cmds := make([]pipeline.Command, 0, len(groups))
	for _, g := range groups {
		cmd, err := buildCommand(g)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return &pipeline.Pipeline{Commands: cmds, Negated: negated}, nil
}

func buildCommand(tokens []string) (pipeline.Command, error) {
	var cmd pipeline.Command
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		var op pipeline.RedirectOp
		switch t {
		case ">":
			op = pipeline.RedirOut
		case ">>":
			op = pipeline.RedirAppend
		case "<":
			op = pipeline.RedirIn
		default:
			cmd.Args = append(cmd.Args, t)
			i++
			continue
		}
		if i+1 >= len(tokens) {
			return cmd, fmt.Errorf("parser: redirect %q missing filename", t)
		}
		fd := 1
		if op == pipeline.RedirIn {
			fd = 0
		}
		cmd.Redirs = append(cmd.Redirs, pipeline.Redirect{FD: fd, Op: op, Filename: tokens[i+1]})
		i += 2
	}
	if len(cmd.Args) == 0 {
		return cmd, fmt.Errorf("parser: pipeline stage has no command")
	}
	return cmd, nil
}

// tokenize splits a raw statement into words, treating single/double
// quoted runs as one token each (quotes stripped), matching the subset
// of shell quoting needed to keep multi-word values and match patterns
// together; it performs no variable or glob expansion, which remains
// the Expander collaborator's job.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	has := false
	inSingle, inDouble := false, false
	flush := func() {
		if has {
			tokens = append(tokens, cur.String())
			cur.Reset()
			has = false
		}
	}
	for _, r := range line {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			has = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			has = true
		case r == ' ' || r == '\t':
			if inSingle || inDouble {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	flush()
	return tokens
}
