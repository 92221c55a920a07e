package gocas

import "math/big"

// ============================================================
// Rational function integration — partial fractions
// ============================================================

// tryRational integrates quotients of polynomials with rational
// coefficients. The denominator must factor over the rationals into linear
// factors and distinct irreducible quadratics; anything else declines so a
// later stage (or the caller) can take over.
func (st *integrator) tryRational(f Expr) *IntegrationResult {
	out, ok := rationalAntiderivative(f, st.varName)
	if !ok {
		return nil
	}
	st.trace("rational", "partial fractions", f.String())
	res := st.closed(out, "rational")
	return &res
}

// rationalAntiderivative is the internal entry point, shared with the Risch
// base case. It reports false when f is not a rational function of varName
// with numeric coefficients, or when the denominator resists factoring.
func rationalAntiderivative(f Expr, varName string) (Expr, bool) {
	num, den, ok := reducedRational(f, varName)
	if !ok || den.IsZero() {
		return nil, false
	}
	if _, ok := numericCoeffs(num); !ok {
		return nil, false
	}
	dc, ok := numericCoeffs(den)
	if !ok {
		return nil, false
	}

	// Normalize to a monic denominator, folding the leading coefficient
	// into the numerator.
	leadInv := new(big.Rat).Inv(dc[len(dc)-1])
	num = num.Scale(fromRat(leadInv))
	den = den.Monic()

	// Improper part.
	whole, rem, ok := num.LongDiv(den)
	if !ok {
		return nil, false
	}
	parts := []Expr{whole.Antiderivative().Expr()}
	if rem.IsZero() {
		return Add(parts...).Simplify(), true
	}

	// Factor the denominator: rational roots with multiplicity, then
	// distinct irreducible quadratics. Everything else declines.
	roots, rest := rationalRoots(den)
	type quadFactor struct{ b, c *big.Rat }
	var quads []quadFactor
	if rest.Degree() > 0 {
		for _, part := range squareFree(rest) {
			if part.Mult != 1 || part.Factor.Degree() != 2 {
				return nil, false
			}
			qc, ok := numericCoeffs(part.Factor)
			if !ok {
				return nil, false
			}
			b, c := qc[1], qc[0]
			disc := new(big.Rat).Mul(b, b)
			disc.Sub(disc, new(big.Rat).Mul(big.NewRat(4, 1), c))
			if disc.Sign() >= 0 {
				// Real irrational roots would force algebraic
				// extensions; decline.
				return nil, false
			}
			quads = append(quads, quadFactor{b: b, c: c})
		}
	}

	// Set up the partial fraction system. One unknown per linear factor
	// power, two per quadratic; the basis multiplier for each unknown is
	// den with that factor's power removed.
	x := Var(varName)
	var basis []Poly
	for _, r := range roots {
		lin := newPoly(varName, fromRat(new(big.Rat).Neg(r.Root)), Int(1))
		reduced := den
		for k := 0; k < r.Mult; k++ {
			reduced, _, _ = reduced.LongDiv(lin)
		}
		for k := 1; k <= r.Mult; k++ {
			basis = append(basis, reduced.Mul(lin.Pow(r.Mult-k)))
		}
	}
	for _, q := range quads {
		quad := newPoly(varName, fromRat(q.c), fromRat(q.b), Int(1))
		reduced, _, _ := den.LongDiv(quad)
		basis = append(basis, reduced.MulXPow(1))
		basis = append(basis, reduced)
	}
	if len(basis) != den.Degree() {
		return nil, false
	}

	rows := den.Degree()
	mat := make([][]*big.Rat, rows)
	rhs := make([]*big.Rat, rows)
	for i := 0; i < rows; i++ {
		mat[i] = make([]*big.Rat, len(basis))
		for j, bp := range basis {
			cn, _ := bp.Coeff(i).(*Number)
			if cn == nil {
				return nil, false
			}
			mat[i][j] = cn.Rat()
		}
		rn, _ := rem.Coeff(i).(*Number)
		if rn == nil {
			return nil, false
		}
		rhs[i] = rn.Rat()
	}
	sol, ok := solveLinearSystem(mat, rhs)
	if !ok {
		return nil, false
	}

	// Emit antiderivative terms.
	idx := 0
	for _, r := range roots {
		lin := Sub(x, fromRat(r.Root))
		for k := 1; k <= r.Mult; k++ {
			a := sol[idx]
			idx++
			if a.Sign() == 0 {
				continue
			}
			if k == 1 {
				parts = append(parts, Mul(fromRat(a), Ln(Abs(lin))))
				continue
			}
			scale := new(big.Rat).Mul(a, big.NewRat(1, int64(1-k)))
			parts = append(parts, Mul(fromRat(scale), Pow(lin, Int(int64(1-k)))))
		}
	}
	for _, q := range quads {
		bq := sol[idx]
		cq := sol[idx+1]
		idx += 2
		quadExpr := Add(Pow(x, Int(2)), Mul(fromRat(q.b), x), fromRat(q.c))
		if bq.Sign() != 0 {
			half := new(big.Rat).Mul(bq, big.NewRat(1, 2))
			parts = append(parts, Mul(fromRat(half), Ln(quadExpr)))
		}
		// Residual constant over the completed square:
		// (c_q - b_q*b/2) / ((x + b/2)^2 + s^2) with s^2 = c - b^2/4.
		t := new(big.Rat).Mul(bq, q.b)
		t.Mul(t, big.NewRat(1, 2))
		t.Sub(cq, t)
		if t.Sign() != 0 {
			s2 := new(big.Rat).Mul(q.b, q.b)
			s2.Mul(s2, big.NewRat(1, 4))
			s2.Sub(q.c, s2)
			s := Sqrt(fromRat(s2))
			shifted := Add(x, fromRat(new(big.Rat).Mul(q.b, big.NewRat(1, 2))))
			parts = append(parts, Mul(fromRat(t), Pow(s, Int(-1)), Atan(Div(shifted, s))))
		}
	}
	return Add(parts...).Simplify(), true
}
