package gocas_test

import (
	"testing"

	gocas "github.com/njchilds90/gocas"
)

// ============================================================
// Integration table tests
// ============================================================

func TestTable_Constant(t *testing.T) {
	res := integrate(t, gocas.Int(5))
	if got := res.Expr.String(); got != "5*x" {
		t.Errorf("∫5 dx: want 5*x, got %s", got)
	}
	if res.Technique != "table" {
		t.Errorf("want technique table, got %s", res.Technique)
	}
}

func TestTable_SymbolicConstant(t *testing.T) {
	// a does not depend on x, so it integrates as a constant.
	res := integrate(t, gocas.Var("a"))
	if got := res.Expr.String(); got != "a*x" {
		t.Errorf("∫a dx: want a*x, got %s", got)
	}
}

func TestTable_PowerRule(t *testing.T) {
	res := wantClosed(t, gocas.Pow(gocas.Var("x"), gocas.Int(4)), "table")
	if got := res.String(); got != "1/5*x^5" {
		t.Errorf("∫x^4 dx: want 1/5*x^5, got %s", got)
	}
}

func TestTable_FractionalPower(t *testing.T) {
	res := wantClosed(t, gocas.Pow(gocas.Var("x"), gocas.Rat(1, 2)), "table")
	if got := res.String(); got != "2/3*x^(3/2)" {
		t.Errorf("∫sqrt(x) dx: want 2/3*x^(3/2), got %s", got)
	}
}

func TestTable_NegativePower(t *testing.T) {
	res := wantClosed(t, gocas.Pow(gocas.Var("x"), gocas.Int(-3)), "table")
	if got := res.String(); got != "-1/2*x^(-2)" {
		t.Errorf("∫x^-3 dx: want -1/2*x^(-2), got %s", got)
	}
}

func TestTable_LinearExponential(t *testing.T) {
	// ∫e^(2x+1) dx = e^(2x+1)/2
	arg := gocas.Add(gocas.Mul(gocas.Int(2), gocas.Var("x")), gocas.Int(1))
	res := wantClosed(t, gocas.Exp(arg), "table")
	if got := res.String(); got != "1/2*exp(2*x + 1)" {
		t.Errorf("want 1/2*exp(2*x + 1), got %s", got)
	}
}

func TestTable_ConstantBaseExponential(t *testing.T) {
	// ∫2^x dx = 2^x/ln(2)
	res := wantClosed(t, gocas.Pow(gocas.Int(2), gocas.Var("x")), "table")
	if got := res.String(); got != "2^x*ln(2)^(-1)" {
		t.Errorf("want 2^x*ln(2)^(-1), got %s", got)
	}
}

func TestTable_SinWithLinearArgument(t *testing.T) {
	arg := gocas.Mul(gocas.Int(3), gocas.Var("x"))
	res := wantClosed(t, gocas.Sin(arg), "table")
	if got := res.String(); got != "-1/3*cos(3*x)" {
		t.Errorf("∫sin(3x) dx: want -1/3*cos(3*x), got %s", got)
	}
}

func TestTable_CosWithLinearArgument(t *testing.T) {
	arg := gocas.Mul(gocas.Int(2), gocas.Var("x"))
	res := wantClosed(t, gocas.Cos(arg), "table")
	if got := res.String(); got != "1/2*sin(2*x)" {
		t.Errorf("∫cos(2x) dx: want 1/2*sin(2*x), got %s", got)
	}
}

func TestTable_Tan(t *testing.T) {
	res := wantClosed(t, gocas.Tan(gocas.Var("x")), "table")
	if got := res.String(); got != "-1*ln(abs(cos(x)))" {
		t.Errorf("∫tan dx: want -1*ln(abs(cos(x))), got %s", got)
	}
}

func TestTable_Cot(t *testing.T) {
	res := wantClosed(t, gocas.Cot(gocas.Var("x")), "table")
	if got := res.String(); got != "ln(abs(sin(x)))" {
		t.Errorf("∫cot dx: want ln(abs(sin(x))), got %s", got)
	}
}

func TestTable_Sec(t *testing.T) {
	res := wantClosed(t, gocas.Sec(gocas.Var("x")), "table")
	if got := res.String(); got != "ln(abs(sec(x) + tan(x)))" {
		t.Errorf("∫sec dx: want ln(abs(sec(x) + tan(x))), got %s", got)
	}
}

func TestTable_Csc(t *testing.T) {
	x := gocas.Var("x")
	res := wantClosed(t, gocas.Csc(x), "table")
	want := gocas.Neg(gocas.Ln(gocas.Abs(gocas.Add(gocas.Csc(x), gocas.Cot(x)))))
	if !res.Equal(want) {
		t.Errorf("∫csc dx: want %s, got %s", want, res)
	}
}

func TestTable_SecSquared(t *testing.T) {
	f := gocas.Pow(gocas.Sec(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "tan(x)" {
		t.Errorf("∫sec^2 dx: want tan(x), got %s", got)
	}
}

func TestTable_CscSquared(t *testing.T) {
	f := gocas.Pow(gocas.Csc(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "-1*cot(x)" {
		t.Errorf("∫csc^2 dx: want -1*cot(x), got %s", got)
	}
}

func TestTable_SecTan(t *testing.T) {
	x := gocas.Var("x")
	res := wantClosed(t, gocas.Mul(gocas.Sec(x), gocas.Tan(x)), "table")
	if got := res.String(); got != "sec(x)" {
		t.Errorf("∫sec·tan dx: want sec(x), got %s", got)
	}
}

func TestTable_CscCot(t *testing.T) {
	x := gocas.Var("x")
	res := wantClosed(t, gocas.Mul(gocas.Csc(x), gocas.Cot(x)), "table")
	if got := res.String(); got != "-1*csc(x)" {
		t.Errorf("∫csc·cot dx: want -1*csc(x), got %s", got)
	}
}

func TestTable_Hyperbolic(t *testing.T) {
	x := gocas.Var("x")
	cases := []struct {
		f    gocas.Expr
		want string
	}{
		{gocas.Sinh(x), "cosh(x)"},
		{gocas.Cosh(x), "sinh(x)"},
		{gocas.Tanh(x), "ln(cosh(x))"},
	}
	for _, c := range cases {
		res := wantClosed(t, c.f, "table")
		if got := res.String(); got != c.want {
			t.Errorf("∫%s dx: want %s, got %s", c.f, c.want, got)
		}
	}
}

func TestTable_Ln(t *testing.T) {
	res := wantClosed(t, gocas.Ln(gocas.Var("x")), "table")
	if got := res.String(); got != "ln(x)*x + -1*x" {
		t.Errorf("∫ln dx: want ln(x)*x + -1*x, got %s", got)
	}
}

func TestTable_Atan(t *testing.T) {
	// ∫1/(1+x^2) dx = atan(x)
	den := gocas.Add(gocas.Int(1), gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := wantClosed(t, gocas.Pow(den, gocas.Int(-1)), "table")
	if got := res.String(); got != "atan(x)" {
		t.Errorf("want atan(x), got %s", got)
	}
}

func TestTable_AtanScaled(t *testing.T) {
	// ∫1/(4+x^2) dx = atan(x/2)/2
	den := gocas.Add(gocas.Int(4), gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := wantClosed(t, gocas.Pow(den, gocas.Int(-1)), "table")
	if got := res.String(); got != "1/2*atan(1/2*x)" {
		t.Errorf("want 1/2*atan(1/2*x), got %s", got)
	}
}

func TestTable_Asin(t *testing.T) {
	// ∫1/sqrt(1-x^2) dx = asin(x)
	rad := gocas.Sub(gocas.Int(1), gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := wantClosed(t, gocas.Pow(rad, gocas.Rat(-1, 2)), "")
	if got := res.String(); got != "asin(x)" {
		t.Errorf("want asin(x), got %s", got)
	}
}

func TestTable_AsinScaled(t *testing.T) {
	// ∫1/sqrt(9-x^2) dx = asin(x/3)
	rad := gocas.Sub(gocas.Int(9), gocas.Pow(gocas.Var("x"), gocas.Int(2)))
	res := wantClosed(t, gocas.Pow(rad, gocas.Rat(-1, 2)), "")
	if got := res.String(); got != "asin(1/3*x)" {
		t.Errorf("want asin(1/3*x), got %s", got)
	}
}

func TestTable_Abs(t *testing.T) {
	res := wantClosed(t, gocas.Abs(gocas.Var("x")), "table")
	if got := res.String(); got != "1/2*abs(x)*x" {
		t.Errorf("∫|x| dx: want 1/2*abs(x)*x, got %s", got)
	}
}

func TestTable_SinTimesCos(t *testing.T) {
	x := gocas.Var("x")
	res := wantClosed(t, gocas.Mul(gocas.Sin(x), gocas.Cos(x)), "table")
	if got := res.String(); got != "1/2*sin(x)^2" {
		t.Errorf("∫sin·cos dx: want 1/2*sin(x)^2, got %s", got)
	}
}

func TestTable_SinSquared(t *testing.T) {
	f := gocas.Pow(gocas.Sin(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "-1/4*sin(2*x) + 1/2*x" {
		t.Errorf("∫sin^2 dx: want -1/4*sin(2*x) + 1/2*x, got %s", got)
	}
}

func TestTable_CosSquared(t *testing.T) {
	f := gocas.Pow(gocas.Cos(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "1/4*sin(2*x) + 1/2*x" {
		t.Errorf("∫cos^2 dx: want 1/4*sin(2*x) + 1/2*x, got %s", got)
	}
}

func TestTable_TanSquared(t *testing.T) {
	f := gocas.Pow(gocas.Tan(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "tan(x) + -1*x" {
		t.Errorf("∫tan^2 dx: want tan(x) + -1*x, got %s", got)
	}
}

func TestTable_CotSquared(t *testing.T) {
	f := gocas.Pow(gocas.Cot(gocas.Var("x")), gocas.Int(2))
	res := wantClosed(t, f, "table")
	if got := res.String(); got != "-1*cot(x) + -1*x" {
		t.Errorf("∫cot^2 dx: want -1*cot(x) + -1*x, got %s", got)
	}
}

func TestTable_InverseTrigIntegrands(t *testing.T) {
	// ∫asin, ∫acos, ∫atan all come straight from the table.
	x := gocas.Var("x")
	for _, f := range []gocas.Expr{gocas.Asin(x), gocas.Acos(x), gocas.Atan(x)} {
		res := integrate(t, f)
		if res.Kind != gocas.ClosedForm {
			t.Fatalf("∫%s dx: want closed form, got %s (%s)", f, res.Kind, res.Reason)
		}
		d := res.Expr.Derivative("x")
		if !gocas.Equivalent(d, f) {
			t.Errorf("∫%s dx = %s, but d/dx gives %s", f, res.Expr, d)
		}
	}
}

func TestTable_DerivativeRoundTrip(t *testing.T) {
	// Differentiating a table antiderivative must reproduce the integrand.
	x := gocas.Var("x")
	threeX := gocas.Mul(gocas.Int(3), gocas.Var("x"))
	integrands := []gocas.Expr{
		gocas.Pow(x, gocas.Int(7)),
		gocas.Pow(x, gocas.Rat(-1, 2)),
		gocas.Exp(gocas.Neg(x)),
		gocas.Pow(gocas.Int(3), x),
		gocas.Sin(threeX),
		gocas.Cos(threeX),
		gocas.Tan(threeX),
		gocas.Cot(threeX),
		gocas.Sec(x),
		gocas.Csc(x),
		gocas.Pow(gocas.Sec(threeX), gocas.Int(2)),
		gocas.Mul(gocas.Sec(x), gocas.Tan(x)),
		gocas.Sinh(threeX),
		gocas.Cosh(threeX),
		gocas.Tanh(x),
		gocas.Ln(threeX),
		gocas.Abs(threeX),
		gocas.Pow(gocas.Sin(threeX), gocas.Int(2)),
		gocas.Mul(gocas.Sin(threeX), gocas.Cos(threeX)),
	}
	for _, f := range integrands {
		res := integrate(t, f)
		if res.Kind != gocas.ClosedForm {
			t.Fatalf("∫%s dx: want closed form, got %s (%s)", f, res.Kind, res.Reason)
		}
		if res.Technique != "table" {
			t.Errorf("∫%s dx: want technique table, got %s", f, res.Technique)
		}
		d := res.Expr.Derivative("x")
		if !gocas.Equivalent(d, f) {
			t.Errorf("∫%s dx = %s, but d/dx gives %s", f, res.Expr, d)
		}
	}
}
