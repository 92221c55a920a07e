package gocas

// ============================================================
// Trigonometric powers
// ============================================================

// trigPowers is an integrand of the form sin(arg)^m * cos(arg)^n with a
// shared argument.
type trigPowers struct {
	m, n int
	arg  Expr
}

func (tp *trigPowers) addCall(c *Call, k int) bool {
	if c.name != "sin" && c.name != "cos" {
		return false
	}
	if tp.arg == nil {
		tp.arg = c.arg
	} else if !tp.arg.Equal(c.arg) {
		return false
	}
	if c.name == "sin" {
		tp.m += k
	} else {
		tp.n += k
	}
	return true
}

// sinCosPowers decomposes f as a product of positive integer powers of sine
// and cosine of one linear argument.
func sinCosPowers(f Expr, varName string) (trigPowers, bool) {
	var tp trigPowers
	var consume func(e Expr) bool
	consume = func(e Expr) bool {
		switch v := e.(type) {
		case *Call:
			return tp.addCall(v, 1)
		case *Power:
			c, ok := v.base.(*Call)
			if !ok {
				return false
			}
			n, ok := v.exp.(*Number)
			if !ok {
				return false
			}
			k, fits := n.Int64()
			if !fits || k < 1 {
				return false
			}
			return tp.addCall(c, int(k))
		case *Product:
			for _, fac := range v.factors {
				if !consume(fac) {
					return false
				}
			}
			return true
		}
		return false
	}
	if !consume(f) || tp.arg == nil {
		return tp, false
	}
	if !isLinearIn(tp.arg, varName) {
		return tp, false
	}
	return tp, true
}

// tryTrig reduces products of sine and cosine powers. An odd power peels
// one factor for a polynomial substitution; even-even products are
// rewritten by the half-angle identities and re-dispatched.
func (st *integrator) tryTrig(f Expr) *IntegrationResult {
	tp, ok := sinCosPowers(f, st.varName)
	if !ok || tp.m+tp.n < 2 {
		return nil
	}
	slope, _, ok := linearParts(tp.arg, st.varName)
	if !ok || isZeroExpr(slope) {
		return nil
	}
	switch {
	case tp.n%2 == 1:
		return st.trigOddCosine(tp, slope)
	case tp.m%2 == 1:
		return st.trigOddSine(tp, slope)
	default:
		return st.trigEven(tp)
	}
}

// trigOddCosine substitutes u = sin(arg): cos^n splits into
// (1-u^2)^((n-1)/2) times the differential, leaving a polynomial in u.
func (st *integrator) trigOddCosine(tp trigPowers, slope Expr) *IntegrationResult {
	const tvar = "_s"
	oneMinusSq := newPoly(tvar, Int(1), Int(0), Int(-1))
	p := constPoly(tvar, Int(1)).MulXPow(tp.m)
	p = p.Mul(oneMinusSq.Pow((tp.n - 1) / 2))
	anti := p.Antiderivative().Expr()
	out := Mul(Pow(slope, Int(-1)), anti.Substitute(tvar, Sin(tp.arg)))
	st.trace("trig", "odd cosine power", "u = "+Sin(tp.arg).String())
	res := st.closed(out, "trig")
	return &res
}

// trigOddSine substitutes u = cos(arg), which flips the sign of the
// differential.
func (st *integrator) trigOddSine(tp trigPowers, slope Expr) *IntegrationResult {
	const tvar = "_s"
	oneMinusSq := newPoly(tvar, Int(1), Int(0), Int(-1))
	p := oneMinusSq.Pow((tp.m - 1) / 2)
	p = p.Mul(constPoly(tvar, Int(1)).MulXPow(tp.n))
	anti := p.Antiderivative().Expr()
	out := Mul(Int(-1), Pow(slope, Int(-1)), anti.Substitute(tvar, Cos(tp.arg)))
	st.trace("trig", "odd sine power", "u = "+Cos(tp.arg).String())
	res := st.closed(out, "trig")
	return &res
}

// trigEven rewrites even-even products with the half-angle identities
// sin^2 = (1-cos(2w))/2 and cos^2 = (1+cos(2w))/2, expands, and
// re-dispatches the result.
func (st *integrator) trigEven(tp trigPowers) *IntegrationResult {
	double := Cos(Mul(Int(2), tp.arg))
	sinSq := Mul(Rat(1, 2), Sub(Int(1), double))
	cosSq := Mul(Rat(1, 2), Add(Int(1), double))
	rewritten := Expand(Mul(
		Pow(sinSq, Int(int64(tp.m/2))),
		Pow(cosSq, Int(int64(tp.n/2))),
	)).Simplify()
	st.trace("trig", "half-angle rewrite", rewritten.String())
	inner := st.recurse(rewritten)
	if inner.Kind != ClosedForm {
		return nil
	}
	res := st.closed(inner.Expr, "trig")
	return &res
}
