package gocas_test

import (
	"testing"

	gocas "github.com/njchilds90/gocas"
)

// ============================================================
// u-substitution tests
// ============================================================

func TestSubstitution_ExactMultiple(t *testing.T) {
	// ∫2x e^(x^2) dx = e^(x^2), where f is exactly du for u = e^(x^2).
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Int(2), x, gocas.Exp(gocas.Pow(x, gocas.Int(2))))
	res := wantClosed(t, f, "substitution")
	if got := res.String(); got != "exp(x^2)" {
		t.Errorf("want exp(x^2), got %s", got)
	}
}

func TestSubstitution_InnerByParts(t *testing.T) {
	// ∫x^3 e^(x^2) dx = (x^2 e^(x^2) - e^(x^2))/2 via u = x^2, then parts.
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Pow(x, gocas.Int(3)), gocas.Exp(gocas.Pow(x, gocas.Int(2))))
	res := wantClosed(t, f, "substitution")
	want := gocas.Add(
		gocas.Mul(gocas.Rat(1, 2), gocas.Pow(x, gocas.Int(2)), gocas.Exp(gocas.Pow(x, gocas.Int(2)))),
		gocas.Mul(gocas.Rat(-1, 2), gocas.Exp(gocas.Pow(x, gocas.Int(2)))),
	)
	if !res.Equal(want) {
		t.Errorf("want %s, got %s", want, res)
	}
}

func TestSubstitution_CosExpSin(t *testing.T) {
	// ∫cos(x) e^(sin(x)) dx = e^(sin(x))
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Cos(x), gocas.Exp(gocas.Sin(x)))
	res := wantClosed(t, f, "substitution")
	if got := res.String(); got != "exp(sin(x))" {
		t.Errorf("want exp(sin(x)), got %s", got)
	}
}

func TestSubstitution_LogPower(t *testing.T) {
	// ∫ln(x)^2/x dx = ln(x)^3/3
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Pow(gocas.Ln(x), gocas.Int(2)), gocas.Pow(x, gocas.Int(-1)))
	res := wantClosed(t, f, "substitution")
	if got := res.String(); got != "1/3*ln(x)^3" {
		t.Errorf("want 1/3*ln(x)^3, got %s", got)
	}
}

func TestSubstitution_OneOverXLogX(t *testing.T) {
	// ∫1/(x ln(x)) dx = ln|ln(x)|
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Pow(x, gocas.Int(-1)), gocas.Pow(gocas.Ln(x), gocas.Int(-1)))
	res := wantClosed(t, f, "substitution")
	if got := res.String(); got != "ln(abs(ln(x)))" {
		t.Errorf("want ln(abs(ln(x))), got %s", got)
	}
}

func TestSubstitution_DoubleExponential(t *testing.T) {
	// ∫e^x e^(e^x) dx = e^(e^x). The kernel merges the integrand into
	// exp(x + e^x) first; u = e^x still unwinds it.
	x := gocas.Var("x")
	f := gocas.Mul(gocas.Exp(x), gocas.Exp(gocas.Exp(x)))
	res := wantClosed(t, f, "substitution")
	if got := res.String(); got != "exp(exp(x))" {
		t.Errorf("want exp(exp(x)), got %s", got)
	}
}

func TestSubstitution_ExpOverShiftedSquare(t *testing.T) {
	// ∫e^x/(e^x+1)^2 dx = -1/(e^x+1)
	x := gocas.Var("x")
	den := gocas.Pow(gocas.Add(gocas.Exp(x), gocas.Int(1)), gocas.Int(-2))
	res := wantClosed(t, gocas.Mul(gocas.Exp(x), den), "substitution")
	if got := res.String(); got != "-1*(exp(x) + 1)^(-1)" {
		t.Errorf("want -1*(exp(x) + 1)^(-1), got %s", got)
	}
}
