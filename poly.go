package gocas

import (
	"math/big"
	"sort"
)

// ============================================================
// Polynomial layer — dense univariate polynomials
// ============================================================

// Poly is a dense univariate polynomial in Var. Coefficients are arbitrary
// expressions, which lets the same machinery serve plain rational functions
// (coefficients are Numbers) and differential-field towers (coefficients
// mention lower tower variables). Coeffs[i] is the coefficient of Var^i and
// the slice never ends in a structural zero; the zero polynomial has an
// empty slice.
type Poly struct {
	Var    string
	Coeffs []Expr
}

func newPoly(varName string, coeffs ...Expr) Poly {
	cs := make([]Expr, len(coeffs))
	for i, c := range coeffs {
		cs[i] = c.Simplify()
	}
	return Poly{Var: varName, Coeffs: cs}.trim()
}

func zeroPoly(varName string) Poly { return Poly{Var: varName} }

func constPoly(varName string, c Expr) Poly {
	return newPoly(varName, c)
}
func varPoly(varName string) Poly { return newPoly(varName, Int(0), Int(1)) }

func ratsToPoly(varName string, coeffs []*big.Rat) Poly {
	cs := make([]Expr, len(coeffs))
	for i, c := range coeffs {
		cs[i] = fromRat(c)
	}
	return Poly{Var: varName, Coeffs: cs}.trim()
}

func (p Poly) trim() Poly {
	n := len(p.Coeffs)
	for n > 0 && isZeroExpr(p.Coeffs[n-1]) {
		n--
	}
	return Poly{Var: p.Var, Coeffs: p.Coeffs[:n]}
}

func (p Poly) IsZero() bool { return len(p.Coeffs) == 0 }
func (p Poly) Degree() int  { return len(p.Coeffs) - 1 }

func (p Poly) Coeff(i int) Expr {
	if i < 0 || i >= len(p.Coeffs) {
		return Int(0)
	}
	return p.Coeffs[i]
}

func (p Poly) Lead() Expr { return p.Coeff(p.Degree()) }

func (p Poly) clone() Poly {
	return Poly{Var: p.Var, Coeffs: append([]Expr{}, p.Coeffs...)}
}

func (p Poly) Add(q Poly) Poly {
	n := len(p.Coeffs)
	if len(q.Coeffs) > n {
		n = len(q.Coeffs)
	}
	cs := make([]Expr, n)
	for i := 0; i < n; i++ {
		cs[i] = Add(p.Coeff(i), q.Coeff(i))
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

func (p Poly) Sub(q Poly) Poly { return p.Add(q.Scale(Int(-1))) }

func (p Poly) Scale(k Expr) Poly {
	if isZeroExpr(k.Simplify()) {
		return zeroPoly(p.Var)
	}
	cs := make([]Expr, len(p.Coeffs))
	for i, c := range p.Coeffs {
		cs[i] = Mul(k, c)
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

func (p Poly) Mul(q Poly) Poly {
	if p.IsZero() || q.IsZero() {
		return zeroPoly(p.Var)
	}
	cs := make([]Expr, len(p.Coeffs)+len(q.Coeffs)-1)
	for i := range cs {
		cs[i] = Int(0)
	}
	for i, a := range p.Coeffs {
		for j, b := range q.Coeffs {
			cs[i+j] = Add(cs[i+j], Mul(a, b))
		}
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

// MulXPow multiplies by Var^k.
func (p Poly) MulXPow(k int) Poly {
	if p.IsZero() || k == 0 {
		return p
	}
	cs := make([]Expr, k+len(p.Coeffs))
	for i := range cs {
		cs[i] = Int(0)
	}
	copy(cs[k:], p.Coeffs)
	return Poly{Var: p.Var, Coeffs: cs}
}

func (p Poly) Pow(k int) Poly {
	out := constPoly(p.Var, Int(1))
	for i := 0; i < k; i++ {
		out = out.Mul(p)
	}
	return out
}

// Monic divides by the leading coefficient.
func (p Poly) Monic() Poly {
	if p.IsZero() {
		return p
	}
	lead := p.Lead()
	if isOneExpr(lead) {
		return p
	}
	return p.Scale(Pow(lead, Int(-1)))
}

// Deriv is the formal derivative with respect to Var. Coefficients are
// treated as constants; derivation-aware variants live in the Risch layer.
func (p Poly) Deriv() Poly {
	if p.Degree() < 1 {
		return zeroPoly(p.Var)
	}
	cs := make([]Expr, p.Degree())
	for i := 1; i < len(p.Coeffs); i++ {
		cs[i-1] = Mul(Int(int64(i)), p.Coeffs[i])
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

// Antiderivative integrates term by term.
func (p Poly) Antiderivative() Poly {
	if p.IsZero() {
		return zeroPoly(p.Var)
	}
	cs := make([]Expr, len(p.Coeffs)+1)
	cs[0] = Int(0)
	for i, c := range p.Coeffs {
		cs[i+1] = Mul(Rat(1, int64(i+1)), c)
	}
	return Poly{Var: p.Var, Coeffs: cs}.trim()
}

// Value evaluates the polynomial at an expression point, by Horner's rule.
func (p Poly) Value(at Expr) Expr {
	if p.IsZero() {
		return Int(0)
	}
	acc := p.Coeffs[len(p.Coeffs)-1]
	for i := len(p.Coeffs) - 2; i >= 0; i-- {
		acc = Add(Mul(acc, at), p.Coeffs[i])
	}
	return acc.Simplify()
}

// Expr renders the polynomial back into the expression tree.
func (p Poly) Expr() Expr {
	if p.IsZero() {
		return Int(0)
	}
	terms := make([]Expr, 0, len(p.Coeffs))
	for i, c := range p.Coeffs {
		switch i {
		case 0:
			terms = append(terms, c)
		case 1:
			terms = append(terms, Mul(c, Var(p.Var)))
		default:
			terms = append(terms, Mul(c, Pow(Var(p.Var), Int(int64(i)))))
		}
	}
	return Add(terms...)
}

// ============================================================
// Euclidean algorithms
// ============================================================

// LongDiv computes p = q*d + r with deg r < deg d. Coefficient arithmetic is
// symbolic, so the divisor's leading coefficient only needs to be nonzero.
func (p Poly) LongDiv(d Poly) (q, r Poly, ok bool) {
	if d.IsZero() {
		return zeroPoly(p.Var), zeroPoly(p.Var), false
	}
	q = zeroPoly(p.Var)
	r = p.clone().trim()
	leadInv := Pow(d.Lead(), Int(-1))
	for !r.IsZero() && r.Degree() >= d.Degree() {
		shift := r.Degree() - d.Degree()
		c := Mul(r.Lead(), leadInv)
		term := constPoly(p.Var, c).MulXPow(shift)
		q = q.Add(term)
		r = r.Sub(term.Mul(d))
		r = r.trim()
	}
	return q, r, true
}

// polyGCD computes the monic greatest common divisor by Euclid's algorithm.
func polyGCD(a, b Poly) Poly {
	a = a.trim()
	b = b.trim()
	for !b.IsZero() {
		_, r, ok := a.LongDiv(b)
		if !ok {
			return constPoly(a.Var, Int(1))
		}
		a, b = b, r.Monic().trim()
		if !b.IsZero() {
			b = b.Monic()
		}
	}
	if a.IsZero() {
		return a
	}
	return a.Monic()
}

// polyExtGCD computes g = gcd(a, b) along with s, t such that s*a + t*b = g,
// with g monic.
func polyExtGCD(a, b Poly) (g, s, t Poly) {
	v := a.Var
	r0, r1 := a.trim(), b.trim()
	s0, s1 := constPoly(v, Int(1)), zeroPoly(v)
	t0, t1 := zeroPoly(v), constPoly(v, Int(1))
	for !r1.IsZero() {
		q, r, ok := r0.LongDiv(r1)
		if !ok {
			break
		}
		r0, r1 = r1, r
		s0, s1 = s1, s0.Sub(q.Mul(s1))
		t0, t1 = t1, t0.Sub(q.Mul(t1))
	}
	if r0.IsZero() {
		return r0, s0, t0
	}
	leadInv := Pow(r0.Lead(), Int(-1))
	return r0.Scale(leadInv), s0.Scale(leadInv), t0.Scale(leadInv)
}

// squareFreePart holds one factor of a square-free decomposition.
type squareFreePart struct {
	Factor Poly
	Mult   int
}

// squareFree performs Musser's square-free decomposition of a monic
// polynomial: p = prod Factor_i^Mult_i with the factors pairwise coprime
// and individually square-free.
func squareFree(p Poly) []squareFreePart {
	p = p.Monic().trim()
	if p.Degree() < 1 {
		return nil
	}
	g := polyGCD(p, p.Deriv())
	if g.Degree() < 1 {
		return []squareFreePart{{Factor: p, Mult: 1}}
	}
	w, _, _ := p.LongDiv(g)
	var out []squareFreePart
	for i := 1; w.Degree() > 0; i++ {
		y := polyGCD(w, g)
		z, _, _ := w.LongDiv(y)
		if z.Degree() > 0 {
			out = append(out, squareFreePart{Factor: z.Monic(), Mult: i})
		}
		w = y
		g, _, _ = g.LongDiv(y)
	}
	return out
}

// ============================================================
// Resultants
// ============================================================

// resultant computes res(a, b) with respect to their shared variable, as the
// determinant of the Sylvester matrix.
func resultant(a, b Poly) Expr {
	a = a.trim()
	b = b.trim()
	if a.IsZero() || b.IsZero() {
		return Int(0)
	}
	n, m := a.Degree(), b.Degree()
	if n == 0 {
		return Pow(a.Coeff(0), Int(int64(m))).Simplify()
	}
	if m == 0 {
		return Pow(b.Coeff(0), Int(int64(n))).Simplify()
	}
	size := n + m
	mat := make([][]Expr, size)
	for i := range mat {
		mat[i] = make([]Expr, size)
		for j := range mat[i] {
			mat[i][j] = Int(0)
		}
	}
	for row := 0; row < m; row++ {
		for k := 0; k <= n; k++ {
			mat[row][row+k] = a.Coeff(n - k)
		}
	}
	for row := 0; row < n; row++ {
		for k := 0; k <= m; k++ {
			mat[m+row][row+k] = b.Coeff(m - k)
		}
	}
	return detExpr(mat)
}

// detExpr computes a determinant of symbolic entries by cofactor expansion.
// Matrices arriving here are small (Sylvester matrices of low-degree
// operands), so the exponential expansion is acceptable.
func detExpr(m [][]Expr) Expr {
	n := len(m)
	if n == 1 {
		return m[0][0].Simplify()
	}
	if n == 2 {
		return Sub(Mul(m[0][0], m[1][1]), Mul(m[0][1], m[1][0])).Simplify()
	}
	var terms []Expr
	sign := int64(1)
	for col := 0; col < n; col++ {
		entry := m[0][col]
		if !isZeroExpr(entry.Simplify()) {
			minor := minorExpr(m, 0, col)
			terms = append(terms, Mul(Int(sign), entry, detExpr(minor)))
		}
		sign = -sign
	}
	return Add(terms...)
}

func minorExpr(m [][]Expr, row, col int) [][]Expr {
	n := len(m)
	out := make([][]Expr, 0, n-1)
	for i := 0; i < n; i++ {
		if i == row {
			continue
		}
		r := make([]Expr, 0, n-1)
		for j := 0; j < n; j++ {
			if j == col {
				continue
			}
			r = append(r, m[i][j])
		}
		out = append(out, r)
	}
	return out
}

// ============================================================
// Expression <-> polynomial conversion
// ============================================================

// asPoly interprets an expression as a polynomial in varName. Subtrees free
// of varName become coefficients, whatever symbols they mention.
func asPoly(e Expr, varName string) (Poly, bool) {
	num, den, ok := asRational(e, varName)
	if !ok || den.Degree() != 0 {
		return zeroPoly(varName), false
	}
	return num.Scale(Pow(den.Coeff(0), Int(-1))), true
}

// asRational interprets an expression as a ratio of polynomials in varName.
func asRational(e Expr, varName string) (num, den Poly, ok bool) {
	one := constPoly(varName, Int(1))
	switch t := e.(type) {
	case *Number:
		return constPoly(varName, t), one, true
	case *Symbol:
		if t.name == varName {
			return varPoly(varName), one, true
		}
		return constPoly(varName, t), one, true
	case *Sum:
		num = zeroPoly(varName)
		den = one
		for _, term := range t.terms {
			tn, td, ok := asRational(term, varName)
			if !ok {
				return num, den, false
			}
			num = num.Mul(td).Add(tn.Mul(den))
			den = den.Mul(td)
		}
		return num, den, true
	case *Product:
		num = one
		den = one
		for _, f := range t.factors {
			fn, fd, ok := asRational(f, varName)
			if !ok {
				return num, den, false
			}
			num = num.Mul(fn)
			den = den.Mul(fd)
		}
		return num, den, true
	case *Power:
		n, isNum := t.exp.(*Number)
		if isNum && n.IsInteger() {
			k, fits := n.Int64()
			if fits && k >= -32 && k <= 32 {
				bn, bd, ok := asRational(t.base, varName)
				if !ok {
					return bn, bd, false
				}
				if k >= 0 {
					return bn.Pow(int(k)), bd.Pow(int(k)), true
				}
				if bn.IsZero() {
					return bn, bd, false
				}
				return bd.Pow(int(-k)), bn.Pow(int(-k)), true
			}
		}
		if !dependsOn(e, varName) {
			return constPoly(varName, e), one, true
		}
		return zeroPoly(varName), one, false
	default:
		if !dependsOn(e, varName) {
			return constPoly(varName, e), one, true
		}
		return zeroPoly(varName), one, false
	}
}

// reducedRational is asRational followed by cancellation of the common
// polynomial factor, when coefficients are plain numbers.
func reducedRational(e Expr, varName string) (num, den Poly, ok bool) {
	num, den, ok = asRational(e, varName)
	if !ok {
		return num, den, false
	}
	if den.IsZero() {
		return num, den, false
	}
	if _, numOK := numericCoeffs(num); !numOK {
		return num, den, true
	}
	if _, denOK := numericCoeffs(den); !denOK {
		return num, den, true
	}
	g := polyGCD(num, den)
	if g.Degree() > 0 {
		num, _, _ = num.LongDiv(g)
		den, _, _ = den.LongDiv(g)
	}
	return num, den, true
}

// numericCoeffs extracts coefficients when they are all rational constants.
func numericCoeffs(p Poly) ([]*big.Rat, bool) {
	out := make([]*big.Rat, len(p.Coeffs))
	for i, c := range p.Coeffs {
		n, ok := c.(*Number)
		if !ok {
			return nil, false
		}
		out[i] = n.Rat()
	}
	return out, true
}

// cancelRat reduces an expression as a rational function of varName. It is
// a best-effort normalizer: expressions that are not rational in varName
// come back merely simplified.
func cancelRat(e Expr, varName string) Expr {
	num, den, ok := reducedRational(e, varName)
	if !ok {
		return e.Simplify()
	}
	if den.Degree() == 0 {
		return num.Scale(Pow(den.Coeff(0), Int(-1))).Expr()
	}
	return Div(num.Expr(), den.Expr())
}

// ============================================================
// Rational root extraction
// ============================================================

// rationalRoot pairs a root with its multiplicity.
type rationalRoot struct {
	Root *big.Rat
	Mult int
}

// rationalRoots finds all rational roots of a polynomial with rational
// coefficients, with multiplicities, and returns the deflated cofactor.
func rationalRoots(p Poly) ([]rationalRoot, Poly) {
	coeffs, ok := numericCoeffs(p)
	if !ok || len(coeffs) == 0 {
		return nil, p
	}
	var roots []rationalRoot

	// Roots at zero come from trailing zero coefficients.
	zeros := 0
	for zeros < len(coeffs)-1 && coeffs[zeros].Sign() == 0 {
		zeros++
	}
	if zeros > 0 {
		roots = append(roots, rationalRoot{Root: new(big.Rat), Mult: zeros})
		coeffs = coeffs[zeros:]
	}

	for len(coeffs) > 1 {
		root, found := findRationalRoot(coeffs)
		if !found {
			break
		}
		mult := 0
		for {
			deflated, isRoot := deflate(coeffs, root)
			if !isRoot {
				break
			}
			coeffs = deflated
			mult++
		}
		roots = append(roots, rationalRoot{Root: root, Mult: mult})
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Root.Cmp(roots[j].Root) < 0 })
	return roots, ratsToPoly(p.Var, coeffs)
}

// findRationalRoot applies the rational root theorem to integer-scaled
// coefficients.
func findRationalRoot(coeffs []*big.Rat) (*big.Rat, bool) {
	// Scale to integer coefficients.
	lcm := big.NewInt(1)
	for _, c := range coeffs {
		lcm.Mul(lcm, c.Denom())
		g := new(big.Int).GCD(nil, nil, lcm, c.Denom())
		lcm.Div(lcm, g)
	}
	ints := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		v := new(big.Rat).Mul(c, new(big.Rat).SetInt(lcm))
		ints[i] = new(big.Int).Set(v.Num())
	}
	a0 := new(big.Int).Abs(ints[0])
	an := new(big.Int).Abs(ints[len(ints)-1])
	if a0.Sign() == 0 {
		return new(big.Rat), true
	}
	ps := divisors(a0)
	qs := divisors(an)
	for _, p := range ps {
		for _, q := range qs {
			cand := new(big.Rat).SetFrac(p, q)
			for _, sign := range []int64{1, -1} {
				c := new(big.Rat).Mul(cand, big.NewRat(sign, 1))
				if evalRatPoly(coeffs, c).Sign() == 0 {
					return c, true
				}
			}
		}
	}
	return nil, false
}

func evalRatPoly(coeffs []*big.Rat, at *big.Rat) *big.Rat {
	acc := new(big.Rat)
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(acc, at)
		acc.Add(acc, coeffs[i])
	}
	return acc
}

// deflate divides by (x - root) when root is an exact root.
func deflate(coeffs []*big.Rat, root *big.Rat) ([]*big.Rat, bool) {
	n := len(coeffs)
	if n < 2 {
		return coeffs, false
	}
	out := make([]*big.Rat, n-1)
	carry := new(big.Rat)
	for i := n - 1; i >= 1; i-- {
		carry = new(big.Rat).Add(coeffs[i], new(big.Rat).Mul(carry, root))
		out[i-1] = carry
	}
	rem := new(big.Rat).Add(coeffs[0], new(big.Rat).Mul(carry, root))
	if rem.Sign() != 0 {
		return coeffs, false
	}
	return out, true
}

// divisors lists the positive divisors of |n|, giving up past a bound that
// keeps root searching cheap.
func divisors(n *big.Int) []*big.Int {
	abs := new(big.Int).Abs(n)
	if abs.Sign() == 0 {
		return []*big.Int{big.NewInt(1)}
	}
	factors := map[string]*big.Int{}
	add := func(d *big.Int) { factors[d.String()] = new(big.Int).Set(d) }
	add(big.NewInt(1))

	rem := new(big.Int).Set(abs)
	trial := big.NewInt(2)
	limit := big.NewInt(1 << 20)
	for trial.Cmp(limit) <= 0 {
		sq := new(big.Int).Mul(trial, trial)
		if sq.Cmp(rem) > 0 {
			break
		}
		if new(big.Int).Mod(rem, trial).Sign() == 0 {
			// Multiply every known divisor by each prime power.
			power := new(big.Int).Set(trial)
			for new(big.Int).Mod(rem, trial).Sign() == 0 {
				rem.Div(rem, trial)
				for _, d := range values(factors) {
					add(new(big.Int).Mul(d, power))
				}
				power.Mul(power, trial)
				if len(factors) > 4096 {
					return values(factors)
				}
			}
		}
		trial.Add(trial, big.NewInt(1))
	}
	if rem.Cmp(big.NewInt(1)) > 0 {
		for _, d := range values(factors) {
			add(new(big.Int).Mul(d, rem))
		}
	}
	return values(factors)
}

func values(m map[string]*big.Int) []*big.Int {
	out := make([]*big.Int, 0, len(m))
	for _, v := range m {
		out = append(out, new(big.Int).Set(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// ============================================================
// Exact linear systems
// ============================================================

// solveLinearSystem solves A*x = b over the rationals by Gaussian
// elimination. Underdetermined systems take zero for the free variables;
// inconsistent systems report false.
func solveLinearSystem(a [][]*big.Rat, b []*big.Rat) ([]*big.Rat, bool) {
	rows := len(a)
	if rows == 0 {
		return nil, true
	}
	cols := len(a[0])
	m := make([][]*big.Rat, rows)
	for i := range a {
		m[i] = make([]*big.Rat, cols+1)
		for j := 0; j < cols; j++ {
			m[i][j] = new(big.Rat).Set(a[i][j])
		}
		m[i][cols] = new(big.Rat).Set(b[i])
	}

	pivotCols := make([]int, 0, cols)
	row := 0
	for col := 0; col < cols && row < rows; col++ {
		pivot := -1
		for r := row; r < rows; r++ {
			if m[r][col].Sign() != 0 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			continue
		}
		m[row], m[pivot] = m[pivot], m[row]
		inv := new(big.Rat).Inv(m[row][col])
		for j := col; j <= cols; j++ {
			m[row][j].Mul(m[row][j], inv)
		}
		for r := 0; r < rows; r++ {
			if r == row || m[r][col].Sign() == 0 {
				continue
			}
			factor := new(big.Rat).Set(m[r][col])
			for j := col; j <= cols; j++ {
				m[r][j].Sub(m[r][j], new(big.Rat).Mul(factor, m[row][j]))
			}
		}
		pivotCols = append(pivotCols, col)
		row++
	}
	for r := row; r < rows; r++ {
		if m[r][cols].Sign() != 0 {
			return nil, false
		}
	}
	x := make([]*big.Rat, cols)
	for i := range x {
		x[i] = new(big.Rat)
	}
	for i, col := range pivotCols {
		x[col] = new(big.Rat).Set(m[i][cols])
	}
	return x, true
}
