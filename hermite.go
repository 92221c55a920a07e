package gocas

import "context"

// ============================================================
// Hermite reduction
// ============================================================

// hermiteReduce rewrites the proper fraction a/b as the derivative of a
// rational expression plus a fraction with squarefree denominator:
//
//	integral(a/b) = rat + integral(extra + a2/b2)
//
// where b2 is squarefree and a2/b2 proper. extra is a polynomial escape
// hatch for coefficient drift during the reduction; it is zero in the
// usual case. The reduction peels one power off the highest-multiplicity
// squarefree factor per step, solving s*(u*Dv) + w*v = a by the extended
// Euclidean algorithm, which needs gcd(v, Dv) = 1. That holds for
// squarefree v over our towers, with the t-power content of exponential
// denominators stripped by the caller. All polynomial steps run on the
// derivation's normalizing arithmetic, so a cancelled context surfaces
// as ok = false.
func hermiteReduce(ctx context.Context, d derivation, a, b Poly) (Expr, Poly, Poly, Poly, bool) {
	t := d.mainVar()
	rat := Expr(Int(0))
	a = d.normalizeCoeffs(a)
	b = d.normalizeCoeffs(b)

	for guard := 0; guard < 64; guard++ {
		if ctx.Err() != nil {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		parts, ok := d.squareFree(ctx, b)
		if !ok {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		maxMult := 0
		var v Poly
		for _, p := range parts {
			if p.Mult > maxMult && p.Factor.Degree() > 0 {
				maxMult = p.Mult
				v = p.Factor
			}
		}
		if maxMult < 2 {
			break
		}
		vm := v.Pow(maxMult)
		u, r, ok := d.divide(ctx, b, vm)
		if !ok || !r.IsZero() {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		udv := d.normalizeCoeffs(u.Mul(d.poly(v)))
		g, sigma, _, ok := d.extGCD(ctx, udv, v)
		if !ok {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		if g.Degree() != 0 || isZeroExpr(g.Coeff(0)) {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		_, s, ok := d.divide(ctx, a.Mul(sigma), v)
		if !ok {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		diff := d.normalizeCoeffs(a.Sub(s.Mul(udv)))
		w, r2, ok := d.divide(ctx, diff, v)
		if !ok || !r2.IsZero() {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		m1 := int64(maxMult - 1)
		rat = Add(rat, Mul(Rat(-1, m1), s.Expr(), Pow(v.Expr(), Int(-m1))))
		a = d.normalizeCoeffs(w.Add(u.Mul(d.poly(s)).Scale(Rat(1, m1))))
		b = d.normalizeCoeffs(u.Mul(v.Pow(maxMult - 1)))
	}

	extra := zeroPoly(t)
	if a.Degree() >= b.Degree() && !a.IsZero() {
		q, r, ok := d.divide(ctx, a, b)
		if !ok {
			return nil, Poly{}, Poly{}, Poly{}, false
		}
		extra = q
		a = r
	}
	return rat.Simplify(), extra, a, b, true
}
