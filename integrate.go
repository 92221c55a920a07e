package gocas

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// ============================================================
// Integration engine — dispatcher and public API
// ============================================================

// ResultKind classifies the outcome of an integration attempt.
type ResultKind int

const (
	// ClosedForm means an elementary antiderivative was found.
	ClosedForm ResultKind = iota
	// SymbolicFallback means no technique applied; the result wraps the
	// input in an unevaluated Integral node. It makes no claim about
	// whether an elementary antiderivative exists.
	SymbolicFallback
	// NonElementary means the engine proved, or recognized, that no
	// elementary antiderivative exists.
	NonElementary
)

func (k ResultKind) String() string {
	switch k {
	case ClosedForm:
		return "closed-form"
	case SymbolicFallback:
		return "symbolic-fallback"
	case NonElementary:
		return "non-elementary"
	default:
		return "unknown"
	}
}

// IntegrationResult is the full outcome of IntegrateWithOptions.
type IntegrationResult struct {
	Kind ResultKind
	// Expr holds the antiderivative for ClosedForm, and the unevaluated
	// Integral node for SymbolicFallback. It is nil for NonElementary.
	Expr Expr
	// Technique names the technique that produced a closed form.
	Technique string
	// Reason explains a fallback or a non-elementary verdict.
	Reason string
}

// Options configures a single integration call.
type Options struct {
	// MaxDepth bounds how many technique-initiated recursions one call
	// may perform in total. Zero or negative selects DefaultMaxDepth.
	MaxDepth int
	// EnableRisch turns the transcendental Risch procedure on. Only the
	// Risch stage may return a NonElementary verdict.
	EnableRisch bool
	// Logger receives debug-level step logging. Nil discards it.
	Logger *slog.Logger
	// Trace, when non-nil, accumulates a step transcript.
	Trace *Trace
}

// DefaultMaxDepth is the recursion budget used when Options does not set one.
const DefaultMaxDepth = 10

// DefaultOptions returns the standard engine configuration.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth, EnableRisch: true}
}

// RecursionBudget is a depth allowance shared by reference across one
// integration call tree. Every technique-initiated recursion spends one
// unit; once exhausted, every component declines rather than recursing.
// Budgets are never shared across independent top-level calls, and a
// RecursionBudget is not safe for concurrent use.
type RecursionBudget struct {
	remaining int
}

func NewRecursionBudget(n int) *RecursionBudget { return &RecursionBudget{remaining: n} }

// Spend consumes one unit and reports whether it was available.
func (b *RecursionBudget) Spend() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (b *RecursionBudget) Remaining() int { return b.remaining }

// Integrate finds an elementary antiderivative of e with respect to varName.
// It reports false when none was found, returning the unevaluated integral.
// The constant of integration is omitted.
func Integrate(e Expr, varName string) (Expr, bool) {
	res := IntegrateWithOptions(context.Background(), e, varName, DefaultOptions())
	if res.Kind == ClosedForm {
		return res.Expr, true
	}
	if res.Expr != nil {
		return res.Expr, false
	}
	return NewIntegral(e.Simplify(), varName), false
}

// IntegrateWithOptions runs the full integration pipeline: table lookup,
// rational functions, integration by parts, substitution, trigonometric
// reduction, and the Risch procedure, in that order. The context is checked
// at every dispatch, again before the Risch stage, and inside the Risch
// machinery's iterative steps; cancellation produces a SymbolicFallback
// result.
func IntegrateWithOptions(ctx context.Context, e Expr, varName string, opts Options) IntegrationResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	st := &integrator{
		ctx:     ctx,
		varName: varName,
		opts:    opts,
		budget:  NewRecursionBudget(opts.MaxDepth),
		logger:  logger,
		active:  map[string]bool{},
	}
	res := st.integrate(e.Simplify())
	logger.Debug("integration finished",
		"input", e.String(),
		"var", varName,
		"kind", res.Kind.String(),
		"technique", res.Technique,
		"reason", res.Reason)
	return res
}

// ============================================================
// Dispatcher
// ============================================================

// integrator carries the per-call state: the variable, the shared recursion
// budget, and the configured context, logger, and trace.
type integrator struct {
	ctx     context.Context
	varName string
	opts    Options
	budget  *RecursionBudget
	logger  *slog.Logger
	// active tracks the integrands currently being dispatched, keyed by
	// variable and canonical form. A technique chain that reproduces an
	// integrand it is already working on can never make progress, so the
	// repeat declines immediately instead of spending budget on the loop.
	active map[string]bool
}

func (st *integrator) trace(technique, action, detail string) {
	st.logger.Debug("integrate step", "technique", technique, "action", action, "detail", detail)
	st.opts.Trace.add(technique, action, detail)
}

// withVar clones the integrator for a recursion in a different variable.
// The budget, context, and trace stay shared.
func (st *integrator) withVar(varName string) *integrator {
	cp := *st
	cp.varName = varName
	return &cp
}

// recurse is the only entry point for technique-initiated recursion; it
// spends one unit of the shared budget.
func (st *integrator) recurse(f Expr) IntegrationResult {
	if !st.budget.Spend() {
		st.trace("budget", "exhausted", f.String())
		return st.fallback(f, "recursion budget exhausted")
	}
	return st.integrate(f)
}

func (st *integrator) closed(e Expr, technique string) IntegrationResult {
	return IntegrationResult{Kind: ClosedForm, Expr: e.Simplify(), Technique: technique}
}

func (st *integrator) fallback(f Expr, reason string) IntegrationResult {
	return IntegrationResult{
		Kind:   SymbolicFallback,
		Expr:   NewIntegral(f, st.varName),
		Reason: reason,
	}
}

func nonElementary(reason string) IntegrationResult {
	return IntegrationResult{Kind: NonElementary, Reason: reason}
}

// integrate dispatches one integrand. Linearity is applied here so the
// techniques only ever see a single product-free-of-constants term.
func (st *integrator) integrate(f Expr) IntegrationResult {
	if err := st.ctx.Err(); err != nil {
		st.trace("dispatch", "cancelled", err.Error())
		return st.fallback(f, "cancelled: "+err.Error())
	}
	f = f.Simplify()
	st.trace("dispatch", "begin", f.String())

	key := st.varName + "|" + f.String()
	if st.active[key] {
		st.trace("dispatch", "cycle", f.String())
		return st.fallback(f, "integrand already under evaluation")
	}
	st.active[key] = true
	defer delete(st.active, key)

	if s, ok := f.(*Sum); ok {
		return st.integrateSum(s)
	}
	if c, rest := constantFactor(f, st.varName); c != nil {
		st.trace("dispatch", "constant factor", c.String())
		res := st.integrate(rest)
		switch res.Kind {
		case ClosedForm:
			res.Expr = Mul(c, res.Expr).Simplify()
		case SymbolicFallback:
			res.Expr = NewIntegral(f, st.varName)
		}
		return res
	}

	type technique struct {
		name string
		fn   func(Expr) *IntegrationResult
	}
	pipeline := []technique{
		{"table", st.tryTable},
		{"rational", st.tryRational},
		{"parts", st.tryParts},
		{"substitution", st.trySubstitution},
		{"trig", st.tryTrig},
		{"risch", st.tryRisch},
	}
	for _, t := range pipeline {
		if t.name == "risch" {
			if !st.opts.EnableRisch {
				st.trace("risch", "disabled", "")
				continue
			}
			if err := st.ctx.Err(); err != nil {
				st.trace("risch", "cancelled", err.Error())
				return st.fallback(f, "cancelled: "+err.Error())
			}
		}
		res := t.fn(f)
		if res == nil {
			st.trace(t.name, "decline", "")
			continue
		}
		if res.Kind == ClosedForm && containsIntegral(res.Expr) {
			st.trace(t.name, "decline", "result not fully resolved")
			continue
		}
		return *res
	}
	st.trace("dispatch", "fallback", f.String())
	return st.fallback(f, "no applicable technique")
}

// integrateSum integrates term by term. Splitting a sum costs no recursion
// budget. A single fallback term makes the whole result a fallback. One
// non-elementary term among otherwise closed terms makes the sum
// non-elementary: subtracting the closed parts would otherwise produce an
// elementary antiderivative for the impossible term. Two or more
// non-elementary terms could still cancel against each other, so that case
// only falls back.
func (st *integrator) integrateSum(s *Sum) IntegrationResult {
	st.trace("dispatch", "sum split", s.String())
	var parts []Expr
	var techniques []string
	var neReasons []string
	for _, term := range s.terms {
		res := st.integrate(term)
		switch res.Kind {
		case SymbolicFallback:
			return st.fallback(s, "term declined: "+term.String())
		case NonElementary:
			neReasons = append(neReasons, res.Reason)
		case ClosedForm:
			parts = append(parts, res.Expr)
			if res.Technique != "" {
				techniques = append(techniques, res.Technique)
			}
		}
	}
	switch len(neReasons) {
	case 0:
		return st.closed(Add(parts...), joinTechniques(techniques))
	case 1:
		return nonElementary(neReasons[0])
	default:
		return st.fallback(s, "multiple non-elementary terms: "+strings.Join(neReasons, "; "))
	}
}

func joinTechniques(names []string) string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return strings.Join(out, "+")
}

// constantFactor splits a product into the part free of varName and the
// rest. It returns nil when there is nothing to split.
func constantFactor(f Expr, varName string) (Expr, Expr) {
	p, ok := f.(*Product)
	if !ok {
		return nil, f
	}
	var consts, rest []Expr
	for _, fac := range p.factors {
		if dependsOn(fac, varName) {
			rest = append(rest, fac)
		} else {
			consts = append(consts, fac)
		}
	}
	if len(consts) == 0 || len(rest) == 0 {
		return nil, f
	}
	return Mul(consts...), Mul(rest...)
}
