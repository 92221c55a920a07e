package gocas

// ============================================================
// Expansion
// ============================================================

// Expand distributes products over sums and multiplies out small positive
// integer powers of sums, recursively. Simplification never expands on its
// own; this is the explicit rewriting step behind the expand tool and the
// half-angle reduction of even trigonometric powers.
func Expand(e Expr) Expr {
	switch v := e.(type) {
	case *Sum:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Expand(t)
		}
		return Add(terms...)
	case *Product:
		acc := []Expr{Int(1)}
		for _, f := range v.factors {
			acc = crossTerms(acc, additiveTerms(Expand(f)))
		}
		return Add(acc...)
	case *Power:
		base := Expand(v.base)
		if n, ok := v.exp.(*Number); ok {
			if k, fits := n.Int64(); fits && k >= 2 && k <= 16 {
				if _, isSum := base.(*Sum); isSum {
					acc := []Expr{Int(1)}
					bt := additiveTerms(base)
					for i := int64(0); i < k; i++ {
						acc = crossTerms(acc, bt)
					}
					return Add(acc...)
				}
			}
		}
		return Pow(base, Expand(v.exp))
	case *Call:
		return apply(v.name, Expand(v.arg))
	case *Integral:
		return NewIntegral(Expand(v.integrand), v.varName)
	default:
		return e
	}
}

func additiveTerms(e Expr) []Expr {
	if s, ok := e.(*Sum); ok {
		return s.terms
	}
	return []Expr{e}
}

func crossTerms(a, b []Expr) []Expr {
	out := make([]Expr, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			out = append(out, Mul(x, y))
		}
	}
	return out
}
