package gocas

// ============================================================
// Integration table — pattern-matched standard forms
// ============================================================

// binding maps wildcard labels to the subexpressions they matched.
type binding map[string]Expr

// Wildcard roles are keyed on the label's first letter:
//
//	u — any expression linear in the integration variable (a*x+b, a != 0)
//	c, k — any expression free of the integration variable
//	n — like c; rules additionally validate it numerically
//
// The dispatcher strips constant factors before table lookup, so patterns
// never need a leading coefficient slot.
func wildcardAccepts(label string, e Expr, varName string) bool {
	switch label[0] {
	case 'u':
		return isLinearIn(e, varName)
	default:
		return !dependsOn(e, varName)
	}
}

func isLinearIn(e Expr, varName string) bool {
	p, ok := asPoly(e, varName)
	return ok && p.Degree() == 1
}

// linearParts decomposes a*x+b into its slope and intercept.
func linearParts(e Expr, varName string) (a, b Expr, ok bool) {
	p, pok := asPoly(e, varName)
	if !pok || p.Degree() != 1 {
		return nil, nil, false
	}
	return p.Coeff(1), p.Coeff(0), true
}

// match unifies a pattern containing wildcards against a concrete
// expression. Sums and products match as multisets, so canonical ordering
// differences between pattern and candidate do not matter.
func match(pattern, e Expr, varName string, b binding) bool {
	switch p := pattern.(type) {
	case *Wildcard:
		if prev, seen := b[p.label]; seen {
			return prev.Equal(e)
		}
		if !wildcardAccepts(p.label, e, varName) {
			return false
		}
		b[p.label] = e
		return true
	case *Number:
		return p.Equal(e)
	case *Symbol:
		return p.Equal(e)
	case *Call:
		c, ok := e.(*Call)
		return ok && p.name == c.name && match(p.arg, c.arg, varName, b)
	case *Power:
		pw, ok := e.(*Power)
		return ok && match(p.base, pw.base, varName, b) && match(p.exp, pw.exp, varName, b)
	case *Sum:
		s, ok := e.(*Sum)
		return ok && matchMultiset(p.terms, s.terms, varName, b)
	case *Product:
		pr, ok := e.(*Product)
		return ok && matchMultiset(p.factors, pr.factors, varName, b)
	}
	return false
}

// matchMultiset matches pattern elements against candidate elements in any
// order, backtracking through the small permutation space. Bindings commit
// to b only when the whole multiset matches.
func matchMultiset(pats, elems []Expr, varName string, b binding) bool {
	if len(pats) != len(elems) {
		return false
	}
	used := make([]bool, len(elems))
	var assign func(i int, cur binding) bool
	assign = func(i int, cur binding) bool {
		if i == len(pats) {
			for k, v := range cur {
				b[k] = v
			}
			return true
		}
		for j := range elems {
			if used[j] {
				continue
			}
			trial := copyBinding(cur)
			if match(pats[i], elems[j], varName, trial) {
				used[j] = true
				if assign(i+1, trial) {
					return true
				}
				used[j] = false
			}
		}
		return false
	}
	return assign(0, copyBinding(b))
}

func copyBinding(b binding) binding {
	out := make(binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// tableRule is one table entry: a pattern and a builder for the
// antiderivative. The builder may reject a structural match (for example
// the power rule refuses exponent -1), letting later rules try.
type tableRule struct {
	name    string
	pattern Expr
	build   func(varName string, b binding) (Expr, bool)
}

// slopeOf extracts the slope of the matched linear argument.
func slopeOf(b binding, varName string) (u, a Expr, ok bool) {
	u = b["u"]
	if u == nil {
		return nil, nil, false
	}
	a, _, ok = linearParts(u, varName)
	if !ok || isZeroExpr(a.Simplify()) {
		return nil, nil, false
	}
	return u, a, true
}

// overSlope divides by the slope of the linear argument.
func overSlope(e, a Expr) Expr { return Mul(e, Pow(a, Int(-1))) }

var integralTable = buildTable()

func buildTable() []tableRule {
	u := wild("u")
	n := wild("n")
	c := wild("c")

	return []tableRule{
		{
			name:    "power",
			pattern: Pow(u, n),
			build: func(v string, b binding) (Expr, bool) {
				exp, ok := b["n"].(*Number)
				if !ok || exp.IsNegOne() {
					return nil, false
				}
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				n1 := numAdd(exp, Int(1))
				return Mul(Pow(uu, n1), Pow(Mul(a, n1), Int(-1))), true
			},
		},
		{
			name:    "reciprocal",
			pattern: Pow(u, Int(-1)),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return overSlope(Ln(Abs(uu)), a), true
			},
		},
		{
			name:    "linear",
			pattern: wild("u"),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return Mul(Rat(1, 2), Pow(uu, Int(2)), Pow(a, Int(-1))), true
			},
		},
		{
			name:    "exponential",
			pattern: Exp(u),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return overSlope(Exp(uu), a), true
			},
		},
		{
			name:    "const-base exponential",
			pattern: Pow(c, u),
			build: func(v string, b binding) (Expr, bool) {
				base, ok := b["c"].(*Number)
				if !ok || !base.IsPositive() || base.IsOne() {
					return nil, false
				}
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return Mul(Pow(base, uu), Pow(Mul(a, Ln(base)), Int(-1))), true
			},
		},
		simpleRule("sin", Sin(u), func(uu Expr) Expr { return Neg(Cos(uu)) }),
		simpleRule("cos", Cos(u), func(uu Expr) Expr { return Sin(uu) }),
		simpleRule("tan", Tan(u), func(uu Expr) Expr { return Neg(Ln(Abs(Cos(uu)))) }),
		simpleRule("cot", Cot(u), func(uu Expr) Expr { return Ln(Abs(Sin(uu))) }),
		simpleRule("sec", Sec(u), func(uu Expr) Expr { return Ln(Abs(Add(Sec(uu), Tan(uu)))) }),
		simpleRule("csc", Csc(u), func(uu Expr) Expr { return Neg(Ln(Abs(Add(Csc(uu), Cot(uu))))) }),
		simpleRule("sec^2", Pow(Sec(u), Int(2)), func(uu Expr) Expr { return Tan(uu) }),
		simpleRule("csc^2", Pow(Csc(u), Int(2)), func(uu Expr) Expr { return Neg(Cot(uu)) }),
		simpleRule("sec*tan", Mul(Sec(u), Tan(u)), func(uu Expr) Expr { return Sec(uu) }),
		simpleRule("csc*cot", Mul(Csc(u), Cot(u)), func(uu Expr) Expr { return Neg(Csc(uu)) }),
		simpleRule("sinh", Sinh(u), func(uu Expr) Expr { return Cosh(uu) }),
		simpleRule("cosh", Cosh(u), func(uu Expr) Expr { return Sinh(uu) }),
		simpleRule("tanh", Tanh(u), func(uu Expr) Expr { return Ln(Cosh(uu)) }),
		simpleRule("ln", Ln(u), func(uu Expr) Expr { return Sub(Mul(uu, Ln(uu)), uu) }),
		simpleRule("asin", Asin(u), func(uu Expr) Expr {
			return Add(Mul(uu, Asin(uu)), Sqrt(Sub(Int(1), Pow(uu, Int(2)))))
		}),
		simpleRule("acos", Acos(u), func(uu Expr) Expr {
			return Sub(Mul(uu, Acos(uu)), Sqrt(Sub(Int(1), Pow(uu, Int(2)))))
		}),
		simpleRule("atan", Atan(u), func(uu Expr) Expr {
			return Sub(Mul(uu, Atan(uu)), Mul(Rat(1, 2), Ln(Add(Int(1), Pow(uu, Int(2))))))
		}),
		{
			name:    "atan form",
			pattern: Pow(Add(c, Pow(u, Int(2))), Int(-1)),
			build: func(v string, b binding) (Expr, bool) {
				cc, ok := b["c"].(*Number)
				if !ok || !cc.IsPositive() {
					return nil, false
				}
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				s := Sqrt(cc)
				return Mul(Atan(Div(uu, s)), Pow(Mul(a, s), Int(-1))), true
			},
		},
		{
			name:    "asin form",
			pattern: Pow(Add(c, Mul(Int(-1), Pow(u, Int(2)))), Rat(-1, 2)),
			build: func(v string, b binding) (Expr, bool) {
				cc, ok := b["c"].(*Number)
				if !ok || !cc.IsPositive() {
					return nil, false
				}
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return overSlope(Asin(Div(uu, Sqrt(cc))), a), true
			},
		},
		simpleRule("abs", Abs(u), func(uu Expr) Expr {
			return Mul(Rat(1, 2), uu, Abs(uu))
		}),
		{
			name:    "sin*cos",
			pattern: Mul(Cos(u), Sin(u)),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return Mul(Rat(1, 2), Pow(Sin(uu), Int(2)), Pow(a, Int(-1))), true
			},
		},
		halfAngleRule("sin^2", "sin", Int(-1)),
		halfAngleRule("cos^2", "cos", Int(1)),
		{
			name:    "tan^2",
			pattern: Pow(Tan(u), Int(2)),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return overSlope(Sub(Tan(uu), uu), a), true
			},
		},
		{
			name:    "cot^2",
			pattern: Pow(Cot(u), Int(2)),
			build: func(v string, b binding) (Expr, bool) {
				uu, a, ok := slopeOf(b, v)
				if !ok {
					return nil, false
				}
				return overSlope(Neg(Add(Cot(uu), uu)), a), true
			},
		},
	}
}

// simpleRule covers the common shape f(u) -> F(u)/a.
func simpleRule(name string, pattern Expr, anti func(u Expr) Expr) tableRule {
	return tableRule{
		name:    name,
		pattern: pattern,
		build: func(v string, b binding) (Expr, bool) {
			uu, a, ok := slopeOf(b, v)
			if !ok {
				return nil, false
			}
			return overSlope(anti(uu), a), true
		},
	}
}

// halfAngleRule builds the sin^2/cos^2 entries:
// u/(2a) -+ sin(2u)/(4a).
func halfAngleRule(name, fn string, sign *Number) tableRule {
	pattern := Pow(apply(fn, wild("u")), Int(2))
	return tableRule{
		name:    name,
		pattern: pattern,
		build: func(v string, b binding) (Expr, bool) {
			uu, a, ok := slopeOf(b, v)
			if !ok {
				return nil, false
			}
			return Add(
				Mul(Rat(1, 2), uu, Pow(a, Int(-1))),
				Mul(Rat(1, 4), sign, Sin(Mul(Int(2), uu)), Pow(a, Int(-1))),
			), true
		},
	}
}

// tryTable looks the integrand up in the table. Constants integrate to c*x
// directly; everything else must match a pattern.
func (st *integrator) tryTable(f Expr) *IntegrationResult {
	if !dependsOn(f, st.varName) {
		st.trace("table", "match", "constant")
		res := st.closed(Mul(f, Var(st.varName)), "table")
		return &res
	}
	for _, rule := range integralTable {
		b := binding{}
		if !match(rule.pattern, f, st.varName, b) {
			continue
		}
		out, ok := rule.build(st.varName, b)
		if !ok {
			continue
		}
		st.trace("table", "match", rule.name)
		res := st.closed(out, "table")
		return &res
	}
	return nil
}

