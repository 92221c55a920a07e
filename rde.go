package gocas

import (
	"context"
	"math/big"
)

// ============================================================
// Risch differential equation
// ============================================================

type rdeStatus int

const (
	rdeSolved rdeStatus = iota
	rdeNoSolution
	rdeUnhandled
	rdeCancelled
)

// solveRDE solves Dy + f*y = g for y over the base field Q(x), where f
// and g must be polynomials in x with rational coefficients. Any solution
// is necessarily a polynomial: a reduced denominator q would have to
// divide its own derivative. For f of positive degree the degree of y is
// pinned to deg(g) - deg(f) by the leading coefficients, so the resulting
// linear system is exhaustive and an inconsistency proves no solution
// exists over any field extension. Shapes outside this fragment are
// reported unhandled, not unsolvable.
func solveRDE(ctx context.Context, f, g Expr, tw *tower) (Expr, rdeStatus) {
	f = f.Simplify()
	g = g.Simplify()
	towerNames := make([]string, len(tw.exts))
	for i, e := range tw.exts {
		towerNames[i] = e.name
	}
	if dependsOnAny(f, towerNames) || dependsOnAny(g, towerNames) {
		return nil, rdeUnhandled
	}
	gp, ok := asPoly(g, tw.x)
	if !ok {
		return nil, rdeUnhandled
	}
	gc, ok := numericCoeffs(gp)
	if !ok {
		return nil, rdeUnhandled
	}
	if gp.IsZero() {
		return Int(0), rdeSolved
	}
	fp, ok := asPoly(f, tw.x)
	if !ok {
		return nil, rdeUnhandled
	}
	fc, ok := numericCoeffs(fp)
	if !ok {
		return nil, rdeUnhandled
	}
	if fp.IsZero() {
		return gp.Antiderivative().Expr(), rdeSolved
	}

	degF := fp.Degree()
	degG := gp.Degree()
	if degG < degF {
		return nil, rdeNoSolution
	}
	degY := degG - degF

	rows := degG + 1
	cols := degY + 1
	mat := make([][]*big.Rat, rows)
	rhs := make([]*big.Rat, rows)
	for m := 0; m < rows; m++ {
		if ctx.Err() != nil {
			return nil, rdeCancelled
		}
		row := make([]*big.Rat, cols)
		for j := range row {
			row[j] = new(big.Rat)
		}
		if m+1 <= degY {
			row[m+1] = big.NewRat(int64(m+1), 1)
		}
		for j := 0; j <= degY; j++ {
			i := m - j
			if i >= 0 && i <= degF {
				row[j] = new(big.Rat).Add(row[j], fc[i])
			}
		}
		mat[m] = row
		rhs[m] = new(big.Rat).Set(gc[m])
	}

	sol, ok := solveLinearSystem(mat, rhs)
	if !ok {
		return nil, rdeNoSolution
	}
	return ratsToPoly(tw.x, sol).Expr(), rdeSolved
}
