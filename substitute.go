package gocas

import (
	"fmt"
	"sort"
)

// ============================================================
// u-substitution
// ============================================================

// maxSubstitutionCandidates bounds the inner subexpressions tried per
// integrand.
const maxSubstitutionCandidates = 12

// substitutionCandidates enumerates inner subexpressions g worth trying as
// u = g: function calls and their arguments, power bases, sums and
// products. Larger candidates come first; ties break lexicographically so
// the scan order is deterministic.
func substitutionCandidates(f Expr, varName string) []Expr {
	seen := map[string]bool{}
	var out []Expr
	add := func(g Expr) {
		if !dependsOn(g, varName) {
			return
		}
		if _, isSym := g.(*Symbol); isSym {
			return
		}
		key := g.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, g)
	}
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case *Sum:
			add(v)
			for _, t := range v.terms {
				walk(t)
			}
		case *Product:
			add(v)
			for _, fac := range v.factors {
				walk(fac)
			}
		case *Power:
			add(v.base)
			walk(v.base)
			walk(v.exp)
		case *Call:
			add(v)
			add(v.arg)
			walk(v.arg)
		case *Integral:
			walk(v.integrand)
		}
	}
	walk(f)
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := nodeCount(out[i]), nodeCount(out[j])
		if ni != nj {
			return ni > nj
		}
		return out[i].String() < out[j].String()
	})
	if len(out) > maxSubstitutionCandidates {
		out = out[:maxSubstitutionCandidates]
	}
	return out
}

// freshVarName picks a substitution variable not already free in f.
func freshVarName(f Expr, varName string) string {
	free := FreeSymbols(f)
	for _, cand := range []string{"u", "w", "s"} {
		if cand != varName && !free[cand] {
			return cand
		}
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("u%d", i)
		if cand != varName && !free[cand] {
			return cand
		}
	}
}

// trySubstitution looks for g with f = h(g) * g', integrates h in the
// substitution variable, and substitutes back. The rewritten integrand must
// be completely free of the original variable for the candidate to count.
func (st *integrator) trySubstitution(f Expr) *IntegrationResult {
	for _, g := range substitutionCandidates(f, st.varName) {
		dg := g.Derivative(st.varName).Simplify()
		if isZeroExpr(dg) {
			continue
		}
		q := Div(f, dg).Simplify()
		uName := freshVarName(f, st.varName)
		h := ReplaceAll(q, g, Var(uName)).Simplify()
		if dependsOn(h, st.varName) {
			continue
		}
		if !dependsOn(h, uName) {
			// f is a constant multiple of g'.
			st.trace("substitution", "exact", "u = "+g.String())
			res := st.closed(Mul(h, g), "substitution")
			return &res
		}
		st.trace("substitution", "candidate",
			"u = "+g.String()+", du = ("+dg.String()+") dx")
		inner := st.withVar(uName).recurse(h)
		if inner.Kind != ClosedForm {
			continue
		}
		out := inner.Expr.Substitute(uName, g)
		res := st.closed(out, "substitution")
		return &res
	}
	return nil
}
