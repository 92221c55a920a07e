package gocas_test

import (
	"context"
	"strings"
	"testing"
	"time"

	gocas "github.com/njchilds90/gocas"
)

func integrate(t *testing.T, f gocas.Expr) gocas.IntegrationResult {
	t.Helper()
	return gocas.IntegrateWithOptions(context.Background(), f, "x", gocas.DefaultOptions())
}

func wantClosed(t *testing.T, f gocas.Expr, technique string) gocas.Expr {
	t.Helper()
	res := integrate(t, f)
	if res.Kind != gocas.ClosedForm {
		t.Fatalf("∫%s dx should be closed form, got %s (reason: %s)", f, res.Kind, res.Reason)
	}
	if technique != "" && res.Technique != technique {
		t.Errorf("∫%s dx: want technique %s, got %s", f, technique, res.Technique)
	}
	if d := gocas.Derivative(res.Expr, "x"); !gocas.Equivalent(d, f) {
		t.Errorf("∫%s dx = %s does not differentiate back: got %s", f, res.Expr, d)
	}
	return res.Expr
}

// ============================================================
// Core integration scenarios
// ============================================================

func TestIntegrate_PowerRule(t *testing.T) {
	// ∫x^2 dx = (1/3)x^3
	out := wantClosed(t, gocas.Pow(gocas.Var("x"), gocas.Int(2)), "table")
	if gocas.String(out) != "1/3*x^3" {
		t.Errorf("want 1/3*x^3, got %s", gocas.String(out))
	}
}

func TestIntegrate_Reciprocal(t *testing.T) {
	// ∫1/x dx = ln|x|
	out := wantClosed(t, gocas.Pow(gocas.Var("x"), gocas.Int(-1)), "table")
	if gocas.String(out) != "ln(abs(x))" {
		t.Errorf("want ln(abs(x)), got %s", gocas.String(out))
	}
}

func TestIntegrate_ExpQuotient(t *testing.T) {
	// ∫exp(x)/(exp(x)+1) dx = ln(exp(x)+1); the absolute value folds away
	// because the argument is provably positive.
	x := gocas.Var("x")
	f := gocas.Div(gocas.Exp(x), gocas.Add(gocas.Exp(x), gocas.Int(1)))
	out := wantClosed(t, f, "substitution")
	if gocas.String(out) != "ln(exp(x) + 1)" {
		t.Errorf("want ln(exp(x) + 1), got %s", gocas.String(out))
	}
}

func TestIntegrate_ByParts(t *testing.T) {
	// ∫x*exp(x) dx = x*exp(x) - exp(x)
	x := gocas.Var("x")
	out := wantClosed(t, gocas.Mul(x, gocas.Exp(x)), "parts")
	want := gocas.Sub(gocas.Mul(x, gocas.Exp(x)), gocas.Exp(x))
	if !out.Equal(want) {
		t.Errorf("want %s, got %s", want, out)
	}
}

func TestIntegrate_TrigPowerCycle(t *testing.T) {
	// ∫sin^3(x)*cos(x) dx = (1/4)sin^4(x)
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Pow(gocas.Sin(x), gocas.Int(3)), gocas.Cos(x))
	out := wantClosed(t, f, "")
	if gocas.String(out) != "1/4*sin(x)^4" {
		t.Errorf("want 1/4*sin(x)^4, got %s", gocas.String(out))
	}
}

func TestIntegrate_GaussianIsNonElementary(t *testing.T) {
	f := gocas.Exp(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := integrate(t, f)
	if res.Kind != gocas.NonElementary {
		t.Fatalf("∫exp(x^2) dx should be non-elementary, got %s", res.Kind)
	}
	if res.Expr != nil {
		t.Errorf("non-elementary result should carry no expression, got %s", res.Expr)
	}
	if !strings.Contains(res.Reason, "has no polynomial solution") {
		t.Errorf("reason should name the unsolvable residual equation, got %q", res.Reason)
	}
}

// ============================================================
// Linearity and sum handling
// ============================================================

func TestIntegrate_Polynomial(t *testing.T) {
	// ∫(3x^2 + 2x + 5) dx = x^3 + x^2 + 5x
	x := gocas.Var("x")
	f := gocas.Add(
		gocas.Mul(gocas.Int(3), gocas.Pow(x, gocas.Int(2))),
		gocas.Mul(gocas.Int(2), x),
		gocas.Int(5),
	)
	out := wantClosed(t, f, "table")
	if gocas.String(out) != "5*x + x^2 + x^3" {
		t.Errorf("want 5*x + x^2 + x^3, got %s", gocas.String(out))
	}
}

func TestIntegrate_ConstantFactorPullsOut(t *testing.T) {
	// ∫7*cos(x) dx = 7*sin(x)
	out := wantClosed(t, gocas.Mul(gocas.Int(7), gocas.Cos(gocas.Var("x"))), "table")
	if gocas.String(out) != "7*sin(x)" {
		t.Errorf("want 7*sin(x), got %s", gocas.String(out))
	}
}

func TestIntegrate_SumWithOneNonElementaryTerm(t *testing.T) {
	// ∫(exp(x^2) + x) dx inherits the non-elementary verdict: if it had an
	// elementary antiderivative, subtracting x^2/2 would give one for
	// exp(x^2).
	x := gocas.Var("x")
	f := gocas.Add(gocas.Exp(gocas.Pow(x, gocas.Int(2))), x)
	res := integrate(t, f)
	if res.Kind != gocas.NonElementary {
		t.Fatalf("want non-elementary, got %s (reason: %s)", res.Kind, res.Reason)
	}
	if !strings.Contains(res.Reason, "no elementary antiderivative") {
		t.Errorf("reason should carry the term's proof, got %q", res.Reason)
	}
}

func TestIntegrate_SumWithTwoNonElementaryTerms(t *testing.T) {
	// Two non-elementary terms could cancel, so the engine only falls back.
	x := gocas.Var("x")
	f := gocas.Add(
		gocas.Exp(gocas.Pow(x, gocas.Int(2))),
		gocas.Div(gocas.Sin(x), x),
	)
	res := integrate(t, f)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("want symbolic fallback, got %s", res.Kind)
	}
	if !strings.Contains(res.Reason, "multiple non-elementary terms") {
		t.Errorf("unexpected reason %q", res.Reason)
	}
}

func TestIntegrate_SumFallbackTerm(t *testing.T) {
	// One unresolvable term makes the whole sum fall back.
	x := gocas.Var("x")
	f := gocas.Add(x, gocas.Mul(x, gocas.Sin(gocas.Sin(x))))
	res := integrate(t, f)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("want symbolic fallback, got %s", res.Kind)
	}
	if res.Expr == nil {
		t.Fatal("fallback should wrap the original integrand")
	}
	if _, ok := res.Expr.(*gocas.Integral); !ok {
		t.Errorf("fallback expression should be an Integral node, got %T", res.Expr)
	}
}

// ============================================================
// Integrate wrapper
// ============================================================

func TestIntegrate_WrapperSuccess(t *testing.T) {
	out, ok := gocas.Integrate(gocas.Cos(gocas.Var("x")), "x")
	if !ok {
		t.Fatal("∫cos(x) dx should succeed")
	}
	if gocas.String(out) != "sin(x)" {
		t.Errorf("want sin(x), got %s", gocas.String(out))
	}
}

func TestIntegrate_WrapperNonElementary(t *testing.T) {
	f := gocas.Pow(gocas.Ln(gocas.Var("x")), gocas.Int(-1))
	out, ok := gocas.Integrate(f, "x")
	if ok {
		t.Fatalf("∫1/ln(x) dx should not report success, got %s", out)
	}
	if _, isIntegral := out.(*gocas.Integral); !isIntegral {
		t.Errorf("failed integration should return an Integral node, got %T", out)
	}
	if gocas.String(out) != "integral(ln(x)^(-1), x)" {
		t.Errorf("unexpected wrapped integral: %s", gocas.String(out))
	}
}

func TestIntegrate_WrapperFallback(t *testing.T) {
	// x^2 - 2 has no rational roots, so the rational stage declines and
	// nothing else applies.
	x := gocas.Var("x")
	f := gocas.Pow(gocas.Sub(gocas.Pow(x, gocas.Int(2)), gocas.Int(2)), gocas.Int(-1))
	out, ok := gocas.Integrate(f, "x")
	if ok {
		t.Fatalf("∫1/(x^2-2) dx should decline, got %s", out)
	}
	if _, isIntegral := out.(*gocas.Integral); !isIntegral {
		t.Errorf("want Integral node, got %T", out)
	}
}

// ============================================================
// Options, budget, cancellation
// ============================================================

func TestResultKind_String(t *testing.T) {
	cases := map[gocas.ResultKind]string{
		gocas.ClosedForm:       "closed-form",
		gocas.SymbolicFallback: "symbolic-fallback",
		gocas.NonElementary:    "non-elementary",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("want %s, got %s", want, kind.String())
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := gocas.DefaultOptions()
	if opts.MaxDepth != gocas.DefaultMaxDepth {
		t.Errorf("want MaxDepth %d, got %d", gocas.DefaultMaxDepth, opts.MaxDepth)
	}
	if !opts.EnableRisch {
		t.Error("Risch should be enabled by default")
	}
}

func TestRecursionBudget_Spend(t *testing.T) {
	b := gocas.NewRecursionBudget(2)
	if !b.Spend() || !b.Spend() {
		t.Fatal("first two spends should succeed")
	}
	if b.Spend() {
		t.Error("third spend should fail")
	}
	if b.Remaining() != 0 {
		t.Errorf("want 0 remaining, got %d", b.Remaining())
	}
}

func TestIntegrate_BudgetExhaustion(t *testing.T) {
	// ∫x*sin(x) dx needs one recursion for ∫sin(x) dx; MaxDepth 1 lets the
	// parts split start but starves the residual, so the call falls back.
	x := gocas.Var("x")
	f := gocas.Mul(x, gocas.Sin(x))

	tr := &gocas.Trace{}
	opts := gocas.Options{MaxDepth: 1, EnableRisch: true, Trace: tr}
	res := gocas.IntegrateWithOptions(context.Background(), f, "x", opts)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("starved integration should fall back, got %s", res.Kind)
	}
	exhausted := false
	for _, step := range tr.Steps {
		if step.Technique == "budget" && step.Action == "exhausted" {
			exhausted = true
		}
	}
	if !exhausted {
		t.Error("trace should record the exhausted budget")
	}

	// With the default budget the same integrand resolves.
	out := wantClosed(t, f, "parts")
	if gocas.String(out) != "-1*cos(x)*x + sin(x)" {
		t.Errorf("want -1*cos(x)*x + sin(x), got %s", gocas.String(out))
	}
}

func TestIntegrate_CancelledContext(t *testing.T) {
	// Cancellation before the Risch stage yields a fallback, never a
	// non-elementary claim.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := gocas.Exp(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := gocas.IntegrateWithOptions(ctx, f, "x", gocas.DefaultOptions())
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("cancelled integration should fall back, got %s", res.Kind)
	}
	if !strings.Contains(res.Reason, "cancelled") {
		t.Errorf("reason should mention cancellation, got %q", res.Reason)
	}
}

func TestIntegrate_ExpiredDeadline(t *testing.T) {
	// An already-expired deadline surfaces as a prompt fallback even on an
	// integrand that drives the Risch tower reductions hard.
	x := gocas.Var("x")
	f := gocas.Mul(
		gocas.Add(gocas.Mul(gocas.Int(2), gocas.Pow(x, gocas.Int(2))), gocas.Int(1)),
		gocas.Exp(gocas.Pow(x, gocas.Int(2))),
	)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
	defer cancel()
	res := gocas.IntegrateWithOptions(ctx, f, "x", gocas.DefaultOptions())
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("expired deadline should fall back, got %s", res.Kind)
	}
	if !strings.Contains(res.Reason, "cancelled") {
		t.Errorf("reason should mention cancellation, got %q", res.Reason)
	}
}

func TestIntegrate_RischDisabled(t *testing.T) {
	opts := gocas.DefaultOptions()
	opts.EnableRisch = false
	f := gocas.Exp(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := gocas.IntegrateWithOptions(context.Background(), f, "x", opts)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("with Risch disabled exp(x^2) should fall back, got %s", res.Kind)
	}
}

// ============================================================
// Trace
// ============================================================

func TestIntegrate_TracePopulated(t *testing.T) {
	tr := &gocas.Trace{}
	opts := gocas.DefaultOptions()
	opts.Trace = tr
	res := gocas.IntegrateWithOptions(context.Background(), gocas.Pow(gocas.Var("x"), gocas.Int(2)), "x", opts)
	if res.Kind != gocas.ClosedForm {
		t.Fatalf("unexpected kind %s", res.Kind)
	}
	if len(tr.Steps) == 0 {
		t.Fatal("trace should record steps")
	}
	if tr.Steps[0].Technique != "dispatch" || tr.Steps[0].Action != "begin" {
		t.Errorf("first step should be dispatch/begin, got %s/%s", tr.Steps[0].Technique, tr.Steps[0].Action)
	}
	matched := false
	for _, step := range tr.Steps {
		if step.Technique == "table" && step.Action == "match" {
			matched = true
		}
	}
	if !matched {
		t.Error("trace should record the table match")
	}
	if !strings.Contains(tr.String(), "[table]") {
		t.Errorf("trace rendering should mention the table stage:\n%s", tr)
	}
}

func TestTrace_EmptyString(t *testing.T) {
	tr := &gocas.Trace{}
	if tr.String() != "(empty trace)" {
		t.Errorf("want (empty trace), got %q", tr.String())
	}
}

// ============================================================
// Antiderivative soundness
// ============================================================

func TestIntegrate_FundamentalTheorem(t *testing.T) {
	x := gocas.Var("x")
	integrands := []gocas.Expr{
		gocas.Pow(x, gocas.Int(5)),
		gocas.Pow(x, gocas.Int(-2)),
		gocas.Sin(gocas.Mul(gocas.Int(3), x)),
		gocas.Exp(gocas.Mul(gocas.Int(-1), x)),
		gocas.Mul(x, gocas.Exp(x)),
		gocas.Mul(x, gocas.Cos(x)),
		gocas.Mul(x, gocas.Ln(x)),
		gocas.Ln(x),
		gocas.Atan(x),
		gocas.Pow(gocas.Add(gocas.Int(1), gocas.Pow(x, gocas.Int(2))), gocas.Int(-1)),
		gocas.Div(x, gocas.Add(gocas.Pow(x, gocas.Int(2)), gocas.Int(1))),
		gocas.Pow(gocas.Sin(x), gocas.Int(2)),
		gocas.Pow(gocas.Cos(x), gocas.Int(3)),
		gocas.Mul(gocas.Pow(gocas.Sin(x), gocas.Int(3)), gocas.Cos(x)),
		gocas.Div(gocas.Exp(x), gocas.Add(gocas.Exp(x), gocas.Int(1))),
		gocas.Mul(gocas.Int(2), x, gocas.Exp(gocas.Pow(x, gocas.Int(2)))),
		gocas.Mul(gocas.Exp(x), gocas.Sin(x)),
	}
	for _, f := range integrands {
		res := integrate(t, f)
		if res.Kind != gocas.ClosedForm {
			t.Errorf("∫%s dx: want closed form, got %s (reason: %s)", f, res.Kind, res.Reason)
			continue
		}
		if strings.Contains(gocas.String(res.Expr), "integral(") {
			t.Errorf("∫%s dx: closed form contains an unevaluated integral: %s", f, res.Expr)
			continue
		}
		d := gocas.Derivative(res.Expr, "x")
		if !gocas.Equivalent(d, f) {
			t.Errorf("∫%s dx = %s, but d/dx gives %s", f, res.Expr, d)
		}
	}
}

// ============================================================
// Determinism
// ============================================================

func TestIntegrate_Deterministic(t *testing.T) {
	x := gocas.Var("x")
	f := gocas.Div(gocas.Exp(x), gocas.Add(gocas.Exp(x), gocas.Int(1)))
	first := ""
	for i := 0; i < 5; i++ {
		res := integrate(t, f)
		if res.Kind != gocas.ClosedForm {
			t.Fatalf("unexpected kind %s", res.Kind)
		}
		s := gocas.String(res.Expr)
		if first == "" {
			first = s
			continue
		}
		if s != first {
			t.Fatalf("non-deterministic result on run %d: %s != %s", i, s, first)
		}
	}
}
