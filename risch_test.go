package gocas_test

import (
	"strings"
	"testing"

	gocas "github.com/njchilds90/gocas"
)

// ============================================================
// Risch closed forms
// ============================================================

func TestRisch_PolynomialTimesGaussian(t *testing.T) {
	// ∫(2x^2+1)exp(x^2) dx = x*exp(x^2); no earlier technique applies, so
	// the exponential tower with its residual equation has to solve it.
	x := gocas.Var("x")
	f := gocas.Mul(
		gocas.Add(gocas.Mul(gocas.Int(2), gocas.Pow(x, gocas.Int(2))), gocas.Int(1)),
		gocas.Exp(gocas.Pow(x, gocas.Int(2))),
	)
	out := wantClosed(t, f, "risch")
	want := gocas.Mul(x, gocas.Exp(gocas.Pow(x, gocas.Int(2))))
	if !out.Equal(want) {
		t.Errorf("want %s, got %s", want, out)
	}
}

func TestRisch_NegatedGaussianVariant(t *testing.T) {
	// ∫(1-2x^2)exp(-x^2) dx = x*exp(-x^2)
	x := gocas.Var("x")
	f := gocas.Mul(
		gocas.Sub(gocas.Int(1), gocas.Mul(gocas.Int(2), gocas.Pow(x, gocas.Int(2)))),
		gocas.Exp(gocas.Neg(gocas.Pow(x, gocas.Int(2)))),
	)
	out := wantClosed(t, f, "risch")
	want := gocas.Mul(x, gocas.Exp(gocas.Neg(gocas.Pow(x, gocas.Int(2)))))
	if !out.Equal(want) {
		t.Errorf("want %s, got %s", want, out)
	}
}

func TestRisch_LogarithmicHermite(t *testing.T) {
	// ∫(ln(x)-1)/ln(x)^2 dx = x/ln(x); the double pole at ln(x) = 0 is
	// removed by Hermite reduction and nothing remains.
	x := gocas.Var("x")
	f := gocas.Mul(
		gocas.Sub(gocas.Ln(x), gocas.Int(1)),
		gocas.Pow(gocas.Ln(x), gocas.Int(-2)),
	)
	out := wantClosed(t, f, "risch")
	want := gocas.Div(x, gocas.Ln(x))
	if !out.Equal(want) {
		t.Errorf("want %s, got %s", want, out)
	}
}

// ============================================================
// Non-elementary proofs
// ============================================================

func wantNonElementary(t *testing.T, f gocas.Expr, reasonPart string) {
	t.Helper()
	res := integrate(t, f)
	if res.Kind != gocas.NonElementary {
		t.Fatalf("∫%s dx should be non-elementary, got %s (reason: %s)", f, res.Kind, res.Reason)
	}
	if res.Expr != nil {
		t.Errorf("non-elementary verdict should carry no expression, got %s", res.Expr)
	}
	if !strings.Contains(res.Reason, reasonPart) {
		t.Errorf("∫%s dx: reason %q should contain %q", f, res.Reason, reasonPart)
	}
}

func TestRisch_OneOverLog(t *testing.T) {
	// The residue of 1/ln(x) at its simple pole is x itself, which is not
	// constant, so no elementary antiderivative exists (li is needed).
	f := gocas.Pow(gocas.Ln(gocas.Var("x")), gocas.Int(-1))
	wantNonElementary(t, f, "non-constant residue")
}

func TestRisch_OneOverLogSquared(t *testing.T) {
	// Hermite reduction strips the double pole of 1/ln(x)^2 down to
	// 1/ln(x), whose residue obstruction remains.
	f := gocas.Pow(gocas.Ln(gocas.Var("x")), gocas.Int(-2))
	wantNonElementary(t, f, "non-constant residue")
}

func TestRisch_OneOverXPlusExp(t *testing.T) {
	x := gocas.Var("x")
	f := gocas.Pow(gocas.Add(x, gocas.Exp(x)), gocas.Int(-1))
	wantNonElementary(t, f, "non-constant residue")
}

func TestRisch_Gaussian_ReasonNamesResidualEquation(t *testing.T) {
	f := gocas.Exp(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	wantNonElementary(t, f, "residual risch equation")
}

func TestRisch_SineIntegral(t *testing.T) {
	x := gocas.Var("x")
	wantNonElementary(t, gocas.Div(gocas.Sin(x), x), "sine integral Si")
}

func TestRisch_CosineIntegral(t *testing.T) {
	x := gocas.Var("x")
	wantNonElementary(t, gocas.Div(gocas.Cos(x), x), "cosine integral Ci")
}

func TestRisch_ExponentialIntegral(t *testing.T) {
	x := gocas.Var("x")
	wantNonElementary(t, gocas.Div(gocas.Exp(x), x), "exponential integral Ei")
}

func TestRisch_ExponentialIntegral_LinearArgument(t *testing.T) {
	// exp(2x)/x is Ei territory too: the call argument and the pole are
	// both linear in x with a constant ratio.
	x := gocas.Var("x")
	f := gocas.Div(gocas.Exp(gocas.Mul(gocas.Int(2), x)), x)
	wantNonElementary(t, f, "exponential integral Ei")
}

func TestRisch_FresnelSine(t *testing.T) {
	f := gocas.Sin(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	wantNonElementary(t, f, "Fresnel integral S")
}

func TestRisch_FresnelCosine(t *testing.T) {
	f := gocas.Cos(gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	wantNonElementary(t, f, "Fresnel integral C")
}

// ============================================================
// Honest declines
// ============================================================

func TestRisch_MixedExpLogDeclines(t *testing.T) {
	// exp(x)*ln(x) leads to a degree-one polynomial part in the log
	// extension, which the procedure does not handle; the engine must fall
	// back without claiming anything.
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Exp(x), gocas.Ln(x))
	res := integrate(t, f)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("want symbolic fallback, got %s (reason: %s)", res.Kind, res.Reason)
	}
	if _, ok := res.Expr.(*gocas.Integral); !ok {
		t.Errorf("fallback should wrap the integrand, got %T", res.Expr)
	}
}

func TestRisch_NestedSineDeclines(t *testing.T) {
	// sin(sin(x)) admits no exponential or logarithmic tower; the engine
	// falls back rather than guessing.
	f := gocas.Sin(gocas.Sin(gocas.Var("x")))
	res := integrate(t, f)
	if res.Kind != gocas.SymbolicFallback {
		t.Fatalf("want symbolic fallback, got %s", res.Kind)
	}
}
