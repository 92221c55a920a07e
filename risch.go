package gocas

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ============================================================
// Risch procedure — transcendental exp/log towers
// ============================================================
//
// The integrand is rewritten over a tower of monomial extensions
// Q(x) < Q(x, t1) < ... < Q(x, tn), each ti standing for exp(u) or ln(u)
// with u in the field below. Integration then proceeds top-down: Hermite
// reduction removes repeated denominator factors, Rothstein-Trager finds
// the logarithmic part from resultant residues, and the exponential case
// reduces polynomial coefficients to Risch differential equations. A
// residue that is not a constant, or a residual equation with no solution,
// proves the antiderivative is not elementary.

type extKind int

const (
	extExp extKind = iota
	extLog
)

// extension is one tower level: name stands for the generator gen, whose
// argument arg is written in the coordinates of the levels below.
type extension struct {
	kind extKind
	name string
	arg  Expr
	gen  Expr
}

type tower struct {
	x    string
	exts []extension
}

// extDeriv is D(ti) in tower coordinates: exp(u) differentiates to u'*t,
// ln(u) to u'/u.
func (tw *tower) extDeriv(i int) Expr {
	e := tw.exts[i]
	da := tw.deriv(e.arg)
	if e.kind == extExp {
		return Mul(da, Var(e.name))
	}
	return Div(da, e.arg)
}

// deriv is the total derivation: d/dx plus the chain contributions of every
// tower variable. Tower variables are algebraically independent symbols in
// rewritten expressions, so the partials come straight from the kernel.
func (tw *tower) deriv(e Expr) Expr {
	total := e.Derivative(tw.x)
	for i, ext := range tw.exts {
		part := e.Derivative(ext.name)
		if isZeroExpr(part) {
			continue
		}
		total = Add(total, Mul(part, tw.extDeriv(i)))
	}
	return total.Simplify()
}

func (tw *tower) varNames() []string {
	out := []string{tw.x}
	for _, e := range tw.exts {
		out = append(out, e.name)
	}
	return out
}

func dependsOnAny(e Expr, names []string) bool {
	free := FreeSymbols(e)
	for _, n := range names {
		if free[n] {
			return true
		}
	}
	return false
}

func (tw *tower) String() string {
	parts := make([]string, len(tw.exts))
	for i, e := range tw.exts {
		parts[i] = e.name + " = " + e.gen.String()
	}
	return strings.Join(parts, ", ")
}

// buildTower rewrites f over exp/log monomials, innermost first. It fails
// when some transcendental subexpression (a trigonometric call, say) cannot
// be modeled, or when no extension is needed at all.
func buildTower(f Expr, varName string) (*tower, Expr, bool) {
	tw := &tower{x: varName}
	cur := f.Simplify()
	for len(tw.exts) < 8 {
		cand := innermostMonomial(cur, tw)
		if cand == nil {
			break
		}
		kind := extExp
		if cand.name == "ln" {
			kind = extLog
		}
		gen := Expr(cand)
		for i := len(tw.exts) - 1; i >= 0; i-- {
			gen = gen.Substitute(tw.exts[i].name, tw.exts[i].gen)
		}
		name := fmt.Sprintf("_t%d", len(tw.exts)+1)
		tw.exts = append(tw.exts, extension{kind: kind, name: name, arg: cand.arg, gen: gen.Simplify()})
		cur = ReplaceAll(cur, cand, Var(name))
	}
	if len(tw.exts) == 0 {
		return nil, nil, false
	}
	if hasForeignCall(cur, tw) {
		return nil, nil, false
	}
	return tw, cur.Simplify(), true
}

// innermostMonomial finds an exp or ln call whose argument depends on the
// tower variables but contains no further such call, choosing
// deterministically among peers.
func innermostMonomial(e Expr, tw *tower) *Call {
	names := tw.varNames()
	var found []*Call
	var walk func(Expr)
	walk = func(n Expr) {
		switch v := n.(type) {
		case *Sum:
			for _, t := range v.terms {
				walk(t)
			}
		case *Product:
			for _, f := range v.factors {
				walk(f)
			}
		case *Power:
			walk(v.base)
			walk(v.exp)
		case *Integral:
			walk(v.integrand)
		case *Call:
			walk(v.arg)
			if (v.name == "exp" || v.name == "ln") &&
				dependsOnAny(v.arg, names) &&
				!hasDependentCall(v.arg, names) {
				found = append(found, v)
			}
		}
	}
	walk(e)
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].String() < found[j].String() })
	return found[0]
}

// hasDependentCall reports whether any function call depends on the listed
// variables.
func hasDependentCall(e Expr, names []string) bool {
	switch v := e.(type) {
	case *Call:
		return dependsOnAny(v, names)
	case *Sum:
		for _, t := range v.terms {
			if hasDependentCall(t, names) {
				return true
			}
		}
	case *Product:
		for _, f := range v.factors {
			if hasDependentCall(f, names) {
				return true
			}
		}
	case *Power:
		return hasDependentCall(v.base, names) || hasDependentCall(v.exp, names)
	case *Integral:
		return hasDependentCall(v.integrand, names)
	}
	return false
}

// hasForeignCall reports whether the rewritten integrand still contains a
// function call depending on the tower, which the procedure cannot model.
func hasForeignCall(e Expr, tw *tower) bool {
	return hasDependentCall(e, tw.varNames())
}

// ============================================================
// Derivation-aware polynomial arithmetic
// ============================================================

// derivation applies the tower derivation to polynomials in the level's
// monomial. level -1 is the base field Q(x).
type derivation struct {
	tw    *tower
	level int
}

func (d derivation) mainVar() string {
	if d.level < 0 {
		return d.tw.x
	}
	return d.tw.exts[d.level].name
}

// mainPoly is D(theta) as a polynomial in theta: t' = eta*t for
// exponentials, a level-below constant for logarithms, 1 for x itself.
func (d derivation) mainPoly() Poly {
	v := d.mainVar()
	if d.level < 0 {
		return constPoly(v, Int(1))
	}
	ext := d.tw.exts[d.level]
	if ext.kind == extExp {
		return newPoly(v, Int(0), d.eta())
	}
	return constPoly(v, d.tw.extDeriv(d.level))
}

// eta is u' for the exponential level t = exp(u).
func (d derivation) eta() Expr {
	return d.tw.deriv(d.tw.exts[d.level].arg)
}

// coeffDeriv derives a coefficient, which lives strictly below this level.
func (d derivation) coeffDeriv(e Expr) Expr {
	return d.tw.deriv(e)
}

// poly applies the derivation: D(sum a_i th^i) =
// sum D(a_i) th^i + sum i a_i D(th) th^(i-1).
func (d derivation) poly(p Poly) Poly {
	v := d.mainVar()
	out := zeroPoly(v)
	dMain := d.mainPoly()
	for i, a := range p.Coeffs {
		out = out.Add(constPoly(v, d.coeffDeriv(a)).MulXPow(i).trim())
		if i > 0 {
			scaled := dMain.Scale(Mul(Int(int64(i)), a))
			out = out.Add(scaled.MulXPow(i - 1))
		}
	}
	return out.trim()
}

// normalizeCoeffs cancels each coefficient as a rational function of x,
// keeping structural zero tests honest during Euclidean reductions.
func (d derivation) normalizeCoeffs(p Poly) Poly {
	cs := make([]Expr, len(p.Coeffs))
	for i, c := range p.Coeffs {
		cs[i] = cancelRat(c, d.tw.x)
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

// divide is long division with every remainder re-cancelled over the base
// field. Leading-coefficient inverses from lower tower levels otherwise
// compound into nested products that Simplify cannot reduce, so without the
// per-step cancellation each elimination multiplies the coefficient size.
// The context check lets an expired deadline abandon the division mid-flight;
// ok is then false.
func (d derivation) divide(ctx context.Context, a, b Poly) (q, r Poly, ok bool) {
	if b.IsZero() {
		return zeroPoly(a.Var), zeroPoly(a.Var), false
	}
	q = zeroPoly(a.Var)
	r = d.normalizeCoeffs(a)
	b = d.normalizeCoeffs(b)
	leadInv := cancelRat(Pow(b.Lead(), Int(-1)), d.tw.x)
	for !r.IsZero() && r.Degree() >= b.Degree() {
		if ctx.Err() != nil {
			return q, r, false
		}
		shift := r.Degree() - b.Degree()
		c := cancelRat(Mul(r.Lead(), leadInv), d.tw.x)
		term := constPoly(a.Var, c).MulXPow(shift)
		q = q.Add(term)
		r = d.normalizeCoeffs(r.Sub(term.Mul(b)))
	}
	return q, r, true
}

// gcd is Euclid's algorithm over the tower with per-step normalization.
// ok is false only when the context is cancelled.
func (d derivation) gcd(ctx context.Context, a, b Poly) (Poly, bool) {
	a = d.normalizeCoeffs(a)
	b = d.normalizeCoeffs(b)
	for !b.IsZero() {
		if ctx.Err() != nil {
			return Poly{}, false
		}
		_, r, ok := d.divide(ctx, a, b)
		if !ok {
			return Poly{}, false
		}
		a, b = b, d.normalizeCoeffs(r.Monic())
	}
	if a.IsZero() {
		return a, true
	}
	return d.normalizeCoeffs(a.Monic()), true
}

// extGCD is the extended Euclidean algorithm over the tower, returning a
// monic g with s*a + t*b = g.
func (d derivation) extGCD(ctx context.Context, a, b Poly) (g, s, t Poly, ok bool) {
	v := a.Var
	r0, r1 := d.normalizeCoeffs(a), d.normalizeCoeffs(b)
	s0, s1 := constPoly(v, Int(1)), zeroPoly(v)
	t0, t1 := zeroPoly(v), constPoly(v, Int(1))
	for !r1.IsZero() {
		q, r, okDiv := d.divide(ctx, r0, r1)
		if !okDiv {
			return Poly{}, Poly{}, Poly{}, false
		}
		r0, r1 = r1, d.normalizeCoeffs(r)
		s0, s1 = s1, d.normalizeCoeffs(s0.Sub(q.Mul(s1)))
		t0, t1 = t1, d.normalizeCoeffs(t0.Sub(q.Mul(t1)))
	}
	if r0.IsZero() {
		return r0, s0, t0, true
	}
	leadInv := cancelRat(Pow(r0.Lead(), Int(-1)), d.tw.x)
	return d.normalizeCoeffs(r0.Scale(leadInv)),
		d.normalizeCoeffs(s0.Scale(leadInv)),
		d.normalizeCoeffs(t0.Scale(leadInv)), true
}

// squareFree is Musser's decomposition with tower-aware arithmetic.
func (d derivation) squareFree(ctx context.Context, p Poly) ([]squareFreePart, bool) {
	p = d.normalizeCoeffs(p.Monic())
	if p.Degree() < 1 {
		return nil, true
	}
	g, ok := d.gcd(ctx, p, p.Deriv())
	if !ok {
		return nil, false
	}
	if g.Degree() < 1 {
		return []squareFreePart{{Factor: p, Mult: 1}}, true
	}
	w, _, ok := d.divide(ctx, p, g)
	if !ok {
		return nil, false
	}
	var out []squareFreePart
	for i := 1; w.Degree() > 0; i++ {
		y, okStep := d.gcd(ctx, w, g)
		if !okStep {
			return nil, false
		}
		z, _, okStep := d.divide(ctx, w, y)
		if !okStep {
			return nil, false
		}
		if z.Degree() > 0 {
			out = append(out, squareFreePart{Factor: d.normalizeCoeffs(z.Monic()), Mult: i})
		}
		w = y
		g, _, okStep = d.divide(ctx, g, y)
		if !okStep {
			return nil, false
		}
	}
	return out, true
}

// ============================================================
// Top-level integration over the tower
// ============================================================

type rischVerdict int

const (
	vSolved rischVerdict = iota
	vNonElementary
	vDecline
	vCancelled
)

// tryRisch is the dispatcher entry point for the Risch stage.
func (st *integrator) tryRisch(f Expr) *IntegrationResult {
	if reason, ok := recognizeNonElementary(f, st.varName); ok {
		st.trace("risch", "recognized", reason)
		res := nonElementary(reason)
		return &res
	}
	tw, ft, ok := buildTower(f, st.varName)
	if !ok {
		return nil
	}
	st.trace("risch", "tower", tw.String())

	out, reason, verdict := st.rischInTower(tw, ft, len(tw.exts)-1)
	switch verdict {
	case vSolved:
		res := out
		for i := len(tw.exts) - 1; i >= 0; i-- {
			res = res.Substitute(tw.exts[i].name, tw.exts[i].gen)
		}
		res = res.Simplify()
		if !Equivalent(Derivative(res, st.varName), f) {
			st.trace("risch", "verification failed", res.String())
			return nil
		}
		st.trace("risch", "solved", res.String())
		r := st.closed(res, "risch")
		return &r
	case vNonElementary:
		st.trace("risch", "proved non-elementary", reason)
		r := nonElementary(reason)
		return &r
	case vCancelled:
		st.trace("risch", "cancelled", reason)
		r := st.fallback(f, "cancelled: "+reason)
		return &r
	default:
		return nil
	}
}

// rischInTower integrates an expression written in tower coordinates,
// working at the highest level it actually uses.
func (st *integrator) rischInTower(tw *tower, f Expr, level int) (Expr, string, rischVerdict) {
	if err := st.ctx.Err(); err != nil {
		return nil, "context cancelled: " + err.Error(), vCancelled
	}
	f = f.Simplify()
	for level >= 0 && !dependsOn(f, tw.exts[level].name) {
		level--
	}
	if level < 0 {
		return st.rischBase(tw, f)
	}
	d := derivation{tw: tw, level: level}
	num, den, ok := asRational(f, d.mainVar())
	if !ok {
		return nil, "", vDecline
	}
	num = d.normalizeCoeffs(num)
	den = d.normalizeCoeffs(den)
	g, gok := d.gcd(st.ctx, num, den)
	if !gok {
		return st.towerFailure()
	}
	if g.Degree() > 0 {
		var okN, okD bool
		num, _, okN = d.divide(st.ctx, num, g)
		den, _, okD = d.divide(st.ctx, den, g)
		if !okN || !okD {
			return st.towerFailure()
		}
	}
	if tw.exts[level].kind == extExp {
		return st.rischExp(tw, d, num, den, level)
	}
	return st.rischLog(tw, d, num, den, level)
}

// towerFailure maps a failed polynomial step to cancellation when the
// context has expired, and to a plain decline otherwise.
func (st *integrator) towerFailure() (Expr, string, rischVerdict) {
	if err := st.ctx.Err(); err != nil {
		return nil, "context cancelled: " + err.Error(), vCancelled
	}
	return nil, "", vDecline
}

// rischBase integrates over Q(x): constants and rational functions.
func (st *integrator) rischBase(tw *tower, f Expr) (Expr, string, rischVerdict) {
	if isZeroExpr(f) {
		return Int(0), "", vSolved
	}
	if !dependsOn(f, tw.x) {
		return Mul(f, Var(tw.x)), "", vSolved
	}
	if out, ok := rationalAntiderivative(f, tw.x); ok {
		return out, "", vSolved
	}
	return nil, "", vDecline
}

// rischExp handles a top variable t = exp(u). The integrand splits into a
// Laurent polynomial in t plus a proper fraction with denominator coprime
// to t. Each Laurent coefficient a_i (i != 0) must solve the differential
// equation Dy + i*u'*y = a_i; the i = 0 coefficient, corrected by the
// residue degrees from the logarithmic part, integrates one level down.
func (st *integrator) rischExp(tw *tower, d derivation, num, den Poly, level int) (Expr, string, rischVerdict) {
	t := d.mainVar()
	eta := cancelRat(d.eta(), tw.x)

	whole, rem, ok := d.divide(st.ctx, num, den)
	if !ok {
		return st.towerFailure()
	}

	// Strip the t^k content of the denominator.
	k := 0
	for k < len(den.Coeffs) && isZeroExpr(den.Coeffs[k]) {
		k++
	}
	b := Poly{Var: t, Coeffs: den.Coeffs[k:]}.trim()

	laurent := map[int]Expr{}
	addLaurent := func(i int, c Expr) {
		c = cancelRat(c, tw.x)
		if isZeroExpr(c) {
			return
		}
		prev, okPrev := laurent[i]
		if okPrev {
			laurent[i] = Add(prev, c)
			return
		}
		laurent[i] = c
	}
	for i, c := range whole.Coeffs {
		addLaurent(i, c)
	}

	proper := zeroPoly(t)
	if !rem.IsZero() {
		if k == 0 {
			proper = rem
		} else {
			// rem/(t^k b) = negative Laurent terms + proper/b, by the
			// extended Euclidean identity sigma*t^k + tau*b = 1.
			tk := constPoly(t, Int(1)).MulXPow(k)
			g, sigma, tau, okExt := d.extGCD(st.ctx, tk, b)
			if !okExt {
				return st.towerFailure()
			}
			if g.Degree() != 0 {
				return nil, "", vDecline
			}
			qs, s, okDiv := d.divide(st.ctx, rem.Mul(tau), tk)
			if !okDiv {
				return st.towerFailure()
			}
			qa, a, okDiv := d.divide(st.ctx, rem.Mul(sigma), b)
			if !okDiv {
				return st.towerFailure()
			}
			for i, c := range s.Coeffs {
				addLaurent(i-k, c)
			}
			for _, q := range []Poly{qs, qa} {
				for i, c := range q.Coeffs {
					addLaurent(i, c)
				}
			}
			proper = a
		}
	}

	var parts []Expr

	// Proper part: Hermite reduction, then the logarithmic part.
	degCorrection := Expr(Int(0))
	if !proper.IsZero() {
		ratPart, extra, a2, b2, hok := hermiteReduce(st.ctx, d, proper, b)
		if !hok {
			return st.towerFailure()
		}
		parts = append(parts, ratPart)
		for i, c := range extra.Coeffs {
			addLaurent(i, c)
		}
		if !a2.IsZero() {
			terms, reason, verdict := rothsteinTrager(st.ctx, d, a2, b2)
			if verdict != vSolved {
				return nil, reason, verdict
			}
			for _, lt := range terms {
				parts = append(parts, Mul(lt.c, Ln(lt.arg.Expr())))
				// d/dx ln(g(t)) carries a deg(g)*u' polynomial part in
				// the exponential case; compensate at level zero.
				degCorrection = Add(degCorrection, Mul(lt.c, Int(int64(lt.arg.Degree())), eta))
			}
		}
	}

	// Laurent coefficients.
	indices := make([]int, 0, len(laurent))
	for i := range laurent {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	a0 := Expr(Int(0))
	for _, i := range indices {
		ai := laurent[i]
		if i == 0 {
			a0 = ai
			continue
		}
		fc := Mul(Int(int64(i)), eta).Simplify()
		y, status := solveRDE(st.ctx, fc, ai, tw)
		switch status {
		case rdeSolved:
			parts = append(parts, Mul(y, Pow(Var(t), Int(int64(i)))))
		case rdeNoSolution:
			reason := fmt.Sprintf(
				"no elementary antiderivative: the residual risch equation y' + (%s)*y = %s has no polynomial solution",
				fc.String(), ai.Simplify().String())
			return nil, reason, vNonElementary
		case rdeCancelled:
			return nil, "context cancelled during risch differential equation", vCancelled
		default:
			return nil, "", vDecline
		}
	}

	// Constant coefficient, corrected, integrates one level down.
	rest := Sub(a0, degCorrection).Simplify()
	if !isZeroExpr(rest) {
		sub, reason, verdict := st.rischInTower(tw, rest, level-1)
		if verdict != vSolved {
			return nil, reason, verdict
		}
		parts = append(parts, sub)
	}
	return Add(parts...), "", vSolved
}

// rischLog handles a top variable t = ln(u). Only a constant polynomial
// part is supported; the proper part goes through Hermite reduction and
// Rothstein-Trager, whose residues must be constants.
func (st *integrator) rischLog(tw *tower, d derivation, num, den Poly, level int) (Expr, string, rischVerdict) {
	whole, rem, ok := d.divide(st.ctx, num, den)
	if !ok {
		return st.towerFailure()
	}
	if whole.Degree() > 0 {
		// Integrating a genuine polynomial in ln(u) needs the
		// cancellation-prone recursion this engine does not carry.
		return nil, "", vDecline
	}
	var parts []Expr

	if !rem.IsZero() {
		ratPart, extra, a2, b2, hok := hermiteReduce(st.ctx, d, rem, den)
		if !hok {
			return st.towerFailure()
		}
		parts = append(parts, ratPart)
		if extra.Degree() > 0 {
			return nil, "", vDecline
		}
		if !extra.IsZero() {
			whole = whole.Add(extra)
		}
		if !a2.IsZero() {
			terms, reason, verdict := rothsteinTrager(st.ctx, d, a2, b2)
			if verdict != vSolved {
				return nil, reason, verdict
			}
			for _, lt := range terms {
				parts = append(parts, Mul(lt.c, Ln(lt.arg.Expr())))
			}
		}
	}

	if !whole.IsZero() {
		sub, reason, verdict := st.rischInTower(tw, whole.Coeff(0), level-1)
		if verdict != vSolved {
			return nil, reason, verdict
		}
		parts = append(parts, sub)
	}
	return Add(parts...), "", vSolved
}

// ============================================================
// Recognized non-elementary shapes
// ============================================================

// recognizeNonElementary spots classic integrands whose antiderivatives
// are known to require special functions the engine does not model:
// sin(u)/u, cos(u)/u, exp(u)/u, and sin/cos of quadratics. The exp/log
// tower machinery proves its own cases; this list covers shapes outside
// those towers.
func recognizeNonElementary(f Expr, varName string) (string, bool) {
	if p, ok := f.(*Product); ok && len(p.factors) == 2 {
		var call *Call
		var inv *Power
		for _, fac := range p.factors {
			switch v := fac.(type) {
			case *Call:
				call = v
			case *Power:
				if n, ok := v.exp.(*Number); ok && n.IsNegOne() {
					inv = v
				}
			}
		}
		if call != nil && inv != nil && isLinearIn(call.arg, varName) {
			if ratio, ok := scalarRatio(call.arg, inv.base, varName); ok && !isZeroExpr(ratio) {
				switch call.name {
				case "sin":
					return "no elementary antiderivative: requires the sine integral Si", true
				case "cos":
					return "no elementary antiderivative: requires the cosine integral Ci", true
				case "exp":
					return "no elementary antiderivative: requires the exponential integral Ei", true
				}
			}
		}
	}
	if c, ok := f.(*Call); ok && (c.name == "sin" || c.name == "cos") {
		if p, ok := asPoly(c.arg, varName); ok && p.Degree() == 2 {
			if c.name == "sin" {
				return "no elementary antiderivative: requires the Fresnel integral S", true
			}
			return "no elementary antiderivative: requires the Fresnel integral C", true
		}
	}
	return "", false
}
