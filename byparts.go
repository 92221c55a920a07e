package gocas

// ============================================================
// Integration by parts
// ============================================================

// LIATE classes, in order of preference for the u factor: logarithmic,
// inverse trigonometric, algebraic, trigonometric, exponential.
const (
	classLog = iota
	classInverse
	classAlgebraic
	classTrig
	classExponential
	classOther
)

func liateClass(f Expr, varName string) int {
	switch v := f.(type) {
	case *Call:
		switch v.name {
		case "ln":
			return classLog
		case "asin", "acos", "atan":
			return classInverse
		case "sin", "cos", "tan", "sec", "csc", "cot", "sinh", "cosh", "tanh":
			return classTrig
		case "exp":
			return classExponential
		}
		return classOther
	case *Power:
		if !dependsOn(v.base, varName) && dependsOn(v.exp, varName) {
			return classExponential
		}
		return liateClass(v.base, varName)
	}
	if _, ok := asPoly(f, varName); ok {
		return classAlgebraic
	}
	return classOther
}

// chooseParts picks the u factor by LIATE, breaking class ties toward the
// structurally larger factor. A non-product integrand is only eligible when
// it is itself logarithmic or inverse trigonometric, integrating against
// dv = dx.
func chooseParts(f Expr, varName string) (u, dv Expr, ok bool) {
	p, isProd := f.(*Product)
	if !isProd {
		cls := liateClass(f, varName)
		if cls == classLog || cls == classInverse {
			return f, Int(1), true
		}
		return nil, nil, false
	}
	best := -1
	bestClass := classOther + 1
	bestNodes := -1
	for i, fac := range p.factors {
		if !dependsOn(fac, varName) {
			continue
		}
		cls := liateClass(fac, varName)
		nc := nodeCount(fac)
		if cls < bestClass || (cls == bestClass && nc > bestNodes) {
			best, bestClass, bestNodes = i, cls, nc
		}
	}
	if best < 0 {
		return nil, nil, false
	}
	rest := make([]Expr, 0, len(p.factors)-1)
	for i, fac := range p.factors {
		if i != best {
			rest = append(rest, fac)
		}
	}
	return p.factors[best], Mul(rest...), true
}

// tryParts applies integration by parts, retrying once with the roles
// swapped when the preferred split leads nowhere.
func (st *integrator) tryParts(f Expr) *IntegrationResult {
	// Pure sine/cosine power products belong to the trig power reducer.
	// Splitting them by parts only spends the shared recursion budget on
	// residuals that never lose a power.
	if tp, ok := sinCosPowers(f, st.varName); ok && tp.m+tp.n >= 2 {
		return nil
	}
	u, dv, ok := chooseParts(f, st.varName)
	if !ok {
		return nil
	}
	if res := st.partsAttempt(f, u, dv); res != nil {
		return res
	}
	if !isOneExpr(dv) {
		if res := st.partsAttempt(f, dv, u); res != nil {
			return res
		}
	}
	return nil
}

func (st *integrator) partsAttempt(f, u, dv Expr) *IntegrationResult {
	du := u.Derivative(st.varName).Simplify()
	if isZeroExpr(du) {
		return nil
	}
	var v Expr
	if isOneExpr(dv) {
		v = Var(st.varName)
	} else {
		inner := st.recurse(dv)
		if inner.Kind != ClosedForm {
			return nil
		}
		v = inner.Expr
	}
	st.trace("parts", "split", "u = "+u.String()+", dv = ("+dv.String()+") dx")
	uv := Mul(u, v).Simplify()
	residual := Mul(v, du).Simplify()
	if isZeroExpr(residual) {
		res := st.closed(uv, "parts")
		return &res
	}

	// One-step cycle: residual = k*f turns the identity
	// integral(f) = u*v - integral(residual) into (1+k)*integral(f) = u*v.
	if k, ok := scalarRatio(residual, f, st.varName); ok {
		den := Add(Int(1), k).Simplify()
		if isZeroExpr(den) {
			return nil
		}
		st.trace("parts", "cycle", "residual = ("+k.String()+") * integrand")
		res := st.closed(Div(uv, den), "parts")
		return &res
	}

	if res := st.partsTwoStep(f, uv, residual); res != nil {
		return res
	}

	// Recurse only when the residual is no larger than the integrand, or
	// is a rational function, which always terminates.
	if nodeCount(residual) <= nodeCount(f) || isNumericRational(residual, st.varName) {
		inner := st.recurse(residual)
		if inner.Kind == ClosedForm {
			res := st.closed(Sub(uv, inner.Expr), "parts")
			return &res
		}
	}
	return nil
}

// partsTwoStep handles the exp-times-trig family: integrating the residual
// by parts once more returns a constant multiple of the original integrand,
// so integral(f) = (u*v - u2*v2)/(1-k). The closed form is verified against
// the integrand before being accepted.
func (st *integrator) partsTwoStep(f, uv, residual Expr) *IntegrationResult {
	u2, dv2, ok := chooseParts(residual, st.varName)
	if !ok || isOneExpr(dv2) {
		return nil
	}
	du2 := u2.Derivative(st.varName).Simplify()
	inner := st.recurse(dv2)
	if inner.Kind != ClosedForm {
		return nil
	}
	v2 := inner.Expr
	residual2 := Mul(v2, du2).Simplify()
	k, ok := scalarRatio(residual2, f, st.varName)
	if !ok {
		return nil
	}
	den := Sub(Int(1), k).Simplify()
	if isZeroExpr(den) {
		return nil
	}
	out := Div(Sub(uv, Mul(u2, v2)), den).Simplify()
	if !Equivalent(Derivative(out, st.varName), f) {
		return nil
	}
	st.trace("parts", "two-step cycle", "k = "+k.String())
	res := st.closed(out, "parts")
	return &res
}

// scalarRatio reports k with a = k*b when the ratio simplifies to an
// expression free of the integration variable.
func scalarRatio(a, b Expr, varName string) (Expr, bool) {
	a = a.Simplify()
	if isZeroExpr(a) {
		return Int(0), true
	}
	r := cancelRat(Div(a, b).Simplify(), varName)
	if dependsOn(r, varName) {
		return nil, false
	}
	return r, true
}

// isNumericRational reports whether e is a ratio of polynomials in the
// variable with rational number coefficients.
func isNumericRational(e Expr, varName string) bool {
	num, den, ok := reducedRational(e, varName)
	if !ok {
		return false
	}
	if _, ok := numericCoeffs(num); !ok {
		return false
	}
	_, ok = numericCoeffs(den)
	return ok
}
