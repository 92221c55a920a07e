package gocas

import (
	"context"
	"fmt"
	"math/big"
)

// ============================================================
// Rothstein-Trager logarithmic part
// ============================================================

// logTerm is one c*ln(arg) summand of the logarithmic part.
type logTerm struct {
	c   Expr
	arg Poly
}

const residueVar = "_z"

// rothsteinTrager computes the logarithmic part of integral(a/b) for
// squarefree b and proper a/b. The candidate residues are the roots of
// the resultant R(z) = res_t(a - z*Db, b); an elementary antiderivative
// forces every residue to be a constant, so a demonstrably non-constant
// root is a proof of non-elementarity.
func rothsteinTrager(ctx context.Context, d derivation, a, b Poly) ([]logTerm, string, rischVerdict) {
	if a.IsZero() {
		return nil, "", vSolved
	}
	if err := ctx.Err(); err != nil {
		return nil, "context cancelled: " + err.Error(), vCancelled
	}
	db := d.normalizeCoeffs(d.poly(b))
	z := Var(residueVar)

	// a - z*Db as a polynomial in the tower variable, coefficients linear
	// in z.
	n := len(a.Coeffs)
	if len(db.Coeffs) > n {
		n = len(db.Coeffs)
	}
	coeffs := make([]Expr, n)
	for i := range coeffs {
		coeffs[i] = Sub(a.Coeff(i), Mul(z, db.Coeff(i))).Simplify()
	}
	pz := Poly{Var: b.Var, Coeffs: coeffs}.trim()

	res := resultant(pz, b)
	res = cancelRat(res.Simplify(), d.tw.x)
	rz, ok := asPoly(res, residueVar)
	if !ok || rz.IsZero() {
		return nil, "", vDecline
	}
	// Strip content from the lower field so constant roots show through.
	lead := rz.Lead()
	monic := rz.Scale(Pow(lead, Int(-1)))
	monic = d.normalizeCoeffs(monic)

	roots, constant := residueRoots(monic)
	if !constant {
		// Degree-one case exposes the residue itself.
		if monic.Degree() == 1 {
			r := cancelRat(Neg(monic.Coeff(0)).Simplify(), d.tw.x)
			if dependsOnAny(r, d.tw.varNames()) {
				reason := fmt.Sprintf(
					"no elementary antiderivative: the logarithmic part has non-constant residue %s",
					r.String())
				return nil, reason, vNonElementary
			}
		}
		return nil, "", vDecline
	}

	var terms []logTerm
	for _, r := range roots {
		if r.Sign() == 0 {
			continue
		}
		c := Expr(fromRat(r))
		shifted := a.Sub(db.Scale(c))
		g, ok := d.gcd(ctx, shifted, b)
		if !ok {
			return nil, "context cancelled: " + ctx.Err().Error(), vCancelled
		}
		if g.Degree() == 0 {
			return nil, "", vDecline
		}
		terms = append(terms, logTerm{c: c, arg: g})
	}
	return terms, "", vSolved
}

// residueRoots extracts the rational roots of the monic resultant,
// reporting ok=false when the coefficients are not rational numbers or
// when rational roots do not account for the full degree (irrational or
// complex residues are constants, but out of this engine's reach).
func residueRoots(monic Poly) ([]*big.Rat, bool) {
	if _, ok := numericCoeffs(monic); !ok {
		return nil, false
	}
	roots, rest := rationalRoots(monic)
	if rest.Degree() > 0 {
		return nil, false
	}
	out := make([]*big.Rat, 0, len(roots))
	for _, r := range roots {
		out = append(out, r.Root)
	}
	return out, true
}
