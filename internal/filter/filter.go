// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter applies an optional CEL expression to candidate papers
// before they are scored, so obviously unwanted papers never cost a judge
// call.
//
// The expression sees one variable, paper, with these fields:
//
//	paper.id                string
//	paper.title             string
//	paper.abstract          string
//	paper.authors           list(string)
//	paper.categories        list(string)
//	paper.primary_category  string
//	paper.age_days          double (days since submission)
//
// Examples:
//
//	"cs.RO" in paper.categories
//	!paper.title.lowerAscii().contains("survey") && paper.age_days < 2.0
package filter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/pdiddy/paperpal/pkg/types"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func env() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("paper", cel.DynType),
			ext.Strings(),
		)
	})
	return celEnv, celEnvErr
}

// Filter is a compiled candidate predicate. It is safe for concurrent use.
type Filter struct {
	expr string
	prg  cel.Program

	// Now anchors paper.age_days; tests pin it.
	Now func() time.Time
}

// Compile parses expr. An empty expression yields a nil Filter, which
// keeps every paper.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	e, err := env()
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: filter %q: %v", types.ErrConfigInvalid, expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: filter %q must return bool, not %s", types.ErrConfigInvalid, expr, t)
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: filter %q: %v", types.ErrConfigInvalid, expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match reports whether p passes. A nil Filter matches everything.
func (f *Filter) Match(p types.Paper) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{"paper": f.input(p)})
	if err != nil {
		return false, fmt.Errorf("evaluating filter on %s: %w", p.ID, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter returned %T, want bool", out.Value())
	}
	return ok, nil
}

// Apply keeps the papers that pass, preserving order. A paper the
// expression cannot be evaluated on is dropped and counted in errs.
func (f *Filter) Apply(papers []types.Paper) (kept []types.Paper, dropped, errs int) {
	if f == nil {
		return papers, 0, 0
	}
	kept = make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		ok, err := f.Match(p)
		switch {
		case err != nil:
			errs++
			dropped++
		case ok:
			kept = append(kept, p)
		default:
			dropped++
		}
	}
	return kept, dropped, errs
}

func (f *Filter) input(p types.Paper) map[string]any {
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	age := 0.0
	if !p.SubmittedAt.IsZero() {
		age = now.Sub(p.SubmittedAt).Hours() / 24
	}
	return map[string]any{
		"id":               p.ID,
		"title":            p.Title,
		"abstract":         p.Abstract,
		"authors":          nonNil(p.Authors),
		"categories":       nonNil(p.Categories),
		"primary_category": p.PrimaryCategory,
		"age_days":         age,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
