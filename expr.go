// Package gocas provides a deterministic symbolic algebra kernel for Go,
// built around exact symbolic integration.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat)
//   - Deterministic simplification and stable output
//   - A layered integration engine: table lookup, partial fractions,
//     integration by parts, substitution, trigonometric reduction, and a
//     transcendental Risch procedure that can prove non-integrability
//   - AI/LLM friendly: JSON, LaTeX, and MCP-ready APIs
//   - Embeddable in Go services, CLI tools, and agent backends
package gocas

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Substitute(varName string, value Expr) Expr
	Derivative(varName string) Expr
	Eval() (*Number, bool)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Number — exact rational number
// ============================================================

type Number struct{ val *big.Rat }

func Int(n int64) *Number { return &Number{val: new(big.Rat).SetInt64(n)} }
func Rat(p, q int64) *Number {
	if q == 0 {
		panic("gocas: denominator is zero")
	}
	return &Number{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}
func Float(f float64) *Number { return &Number{val: new(big.Rat).SetFloat64(f)} }

func fromRat(r *big.Rat) *Number { return &Number{val: new(big.Rat).Set(r)} }

func (n *Number) Simplify() Expr               { return n }
func (n *Number) Substitute(string, Expr) Expr { return n }
func (n *Number) Derivative(string) Expr       { return Int(0) }
func (n *Number) Eval() (*Number, bool)        { return n, true }
func (n *Number) Equal(other Expr) bool {
	o, ok := other.(*Number)
	return ok && n.val.Cmp(o.val) == 0
}
func (n *Number) exprType() string { return "num" }
func (n *Number) Float64() float64 { f, _ := n.val.Float64(); return f }
func (n *Number) IsZero() bool     { return n.val.Sign() == 0 }
func (n *Number) IsOne() bool      { return n.val.Cmp(ratOne()) == 0 }
func (n *Number) IsNegOne() bool   { return n.val.Cmp(big.NewRat(-1, 1)) == 0 }
func (n *Number) IsInteger() bool  { return n.val.IsInt() }
func (n *Number) Rat() *big.Rat    { return new(big.Rat).Set(n.val) }
func (n *Number) IsPositive() bool { return n.val.Sign() > 0 }
func (n *Number) IsNegative() bool { return n.val.Sign() < 0 }

// Int64 reports the numerator when the value is an integer that fits in 64 bits.
func (n *Number) Int64() (int64, bool) {
	if !n.val.IsInt() || !n.val.Num().IsInt64() {
		return 0, false
	}
	return n.val.Num().Int64(), true
}

func (n *Number) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Number) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
}

func (n *Number) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.String()}
}

func ratOne() *big.Rat  { return big.NewRat(1, 1) }
func ratZero() *big.Rat { return new(big.Rat) }

func numAdd(a, b *Number) *Number { return &Number{val: new(big.Rat).Add(a.val, b.val)} }
func numSub(a, b *Number) *Number { return &Number{val: new(big.Rat).Sub(a.val, b.val)} }
func numMul(a, b *Number) *Number { return &Number{val: new(big.Rat).Mul(a.val, b.val)} }
func numNeg(a *Number) *Number    { return &Number{val: new(big.Rat).Neg(a.val)} }
func numRecip(a *Number) *Number {
	if a.IsZero() {
		panic("gocas: division by zero")
	}
	return &Number{val: new(big.Rat).Inv(a.val)}
}
func numDiv(a, b *Number) *Number { return numMul(a, numRecip(b)) }
func numAbs(a *Number) *Number {
	r := new(big.Rat).Set(a.val)
	if r.Sign() < 0 {
		r.Neg(r)
	}
	return &Number{val: r}
}
func numCmp(a, b *Number) int { return a.val.Cmp(b.val) }

// ratPow raises a rational to a rational power, exactly. It reports false
// when the result is irrational, complex, or too large to fold.
func ratPow(base, exp *big.Rat) (*big.Rat, bool) {
	if exp.IsInt() {
		if !exp.Num().IsInt64() {
			return nil, false
		}
		k := exp.Num().Int64()
		if k > 64 || k < -64 {
			return nil, false
		}
		if base.Sign() == 0 {
			if k <= 0 {
				return nil, false
			}
			return new(big.Rat), true
		}
		neg := k < 0
		if neg {
			k = -k
		}
		out := big.NewRat(1, 1)
		for i := int64(0); i < k; i++ {
			out.Mul(out, base)
		}
		if neg {
			out.Inv(out)
		}
		return out, true
	}
	// p/q power: both numerator and denominator must be perfect q-th powers.
	if base.Sign() < 0 {
		return nil, false
	}
	if base.Sign() == 0 {
		if exp.Sign() > 0 {
			return new(big.Rat), true
		}
		return nil, false
	}
	q := exp.Denom()
	if !q.IsInt64() || q.Int64() > 8 {
		return nil, false
	}
	k := q.Int64()
	rn, ok := perfectRoot(base.Num(), k)
	if !ok {
		return nil, false
	}
	rd, ok := perfectRoot(base.Denom(), k)
	if !ok {
		return nil, false
	}
	root := new(big.Rat).SetFrac(rn, rd)
	return ratPow(root, new(big.Rat).SetInt(exp.Num()))
}

// perfectRoot finds the exact k-th root of a non-negative integer, if one exists.
func perfectRoot(n *big.Int, k int64) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	if n.Sign() == 0 || n.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int).Set(n), true
	}
	lo, hi := big.NewInt(1), new(big.Int).Set(n)
	for lo.Cmp(hi) <= 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		p := new(big.Int).Exp(mid, big.NewInt(k), nil)
		switch p.Cmp(n) {
		case 0:
			return mid, true
		case -1:
			lo = new(big.Int).Add(mid, big.NewInt(1))
		default:
			hi = new(big.Int).Sub(mid, big.NewInt(1))
		}
	}
	return nil, false
}

// ============================================================
// Symbol — symbolic variable
// ============================================================

type Symbol struct{ name string }

func Var(name string) *Symbol { return &Symbol{name: name} }

func (s *Symbol) Name() string   { return s.name }
func (s *Symbol) Simplify() Expr { return s }
func (s *Symbol) Substitute(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}
func (s *Symbol) Derivative(varName string) Expr {
	if s.name == varName {
		return Int(1)
	}
	return Int(0)
}
func (s *Symbol) Eval() (*Number, bool) { return nil, false }
func (s *Symbol) Equal(other Expr) bool {
	o, ok := other.(*Symbol)
	return ok && s.name == o.name
}
func (s *Symbol) exprType() string { return "sym" }
func (s *Symbol) String() string   { return s.name }
func (s *Symbol) LaTeX() string    { return s.name }
func (s *Symbol) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}

// ============================================================
// Sum — n-ary addition
// ============================================================

type Sum struct{ terms []Expr }

// Add builds a simplified sum.
func Add(terms ...Expr) Expr {
	if len(terms) == 0 {
		return Int(0)
	}
	if len(terms) == 1 {
		return terms[0].Simplify()
	}
	return (&Sum{terms: terms}).Simplify()
}

func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }
func Neg(e Expr) Expr    { return Mul(Int(-1), e) }

func (s *Sum) Terms() []Expr { return append([]Expr{}, s.terms...) }

func (s *Sum) Simplify() Expr {
	var flat []Expr
	var flatten func(list []Expr)
	flatten = func(list []Expr) {
		for _, t := range list {
			st := t.Simplify()
			if inner, ok := st.(*Sum); ok {
				flatten(inner.terms)
				continue
			}
			flat = append(flat, st)
		}
	}
	flatten(s.terms)

	// Combine like terms: group by the non-numeric core of each term and
	// accumulate rational coefficients.
	type bucket struct {
		coeff *big.Rat
		core  Expr
	}
	constant := new(big.Rat)
	buckets := map[string]*bucket{}
	var order []string
	for _, t := range flat {
		c, core := splitCoefficient(t)
		if core == nil {
			constant.Add(constant, c)
			continue
		}
		key := core.String()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{coeff: new(big.Rat), core: core}
			buckets[key] = b
			order = append(order, key)
		}
		b.coeff.Add(b.coeff, c)
	}
	sort.Strings(order)

	out := make([]Expr, 0, len(order)+1)
	for _, key := range order {
		b := buckets[key]
		switch {
		case b.coeff.Sign() == 0:
		case b.coeff.Cmp(ratOne()) == 0:
			out = append(out, b.core)
		default:
			out = append(out, withCoefficient(b.coeff, b.core))
		}
	}
	if constant.Sign() != 0 || len(out) == 0 {
		out = append(out, &Number{val: constant})
	}
	if len(out) == 1 {
		return out[0]
	}
	return &Sum{terms: out}
}

// splitCoefficient separates a simplified term into a rational coefficient
// and a non-numeric core. A nil core means the term is a bare number.
func splitCoefficient(e Expr) (*big.Rat, Expr) {
	switch v := e.(type) {
	case *Number:
		return new(big.Rat).Set(v.val), nil
	case *Product:
		if len(v.factors) > 0 {
			if n, ok := v.factors[0].(*Number); ok {
				rest := v.factors[1:]
				if len(rest) == 1 {
					return new(big.Rat).Set(n.val), rest[0]
				}
				return new(big.Rat).Set(n.val), &Product{factors: append([]Expr{}, rest...)}
			}
		}
	}
	return ratOne(), e
}

// withCoefficient attaches a rational coefficient (not 0, not 1) to a core.
func withCoefficient(c *big.Rat, core Expr) Expr {
	n := &Number{val: new(big.Rat).Set(c)}
	if p, ok := core.(*Product); ok {
		return &Product{factors: append([]Expr{n}, p.factors...)}
	}
	return &Product{factors: []Expr{n, core}}
}

func (s *Sum) Substitute(varName string, value Expr) Expr {
	ts := make([]Expr, len(s.terms))
	for i, t := range s.terms {
		ts[i] = t.Substitute(varName, value)
	}
	return Add(ts...)
}

func (s *Sum) Derivative(varName string) Expr {
	ts := make([]Expr, len(s.terms))
	for i, t := range s.terms {
		ts[i] = t.Derivative(varName)
	}
	return Add(ts...)
}

func (s *Sum) Eval() (*Number, bool) {
	acc := Int(0)
	for _, t := range s.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (s *Sum) Equal(other Expr) bool {
	o, ok := other.(*Sum)
	if !ok || len(s.terms) != len(o.terms) {
		return false
	}
	for i := range s.terms {
		if !s.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (s *Sum) exprType() string { return "sum" }

func (s *Sum) String() string {
	parts := make([]string, len(s.terms))
	for i, t := range s.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (s *Sum) LaTeX() string {
	parts := make([]string, len(s.terms))
	for i, t := range s.terms {
		parts[i] = t.LaTeX()
	}
	return strings.Join(parts, " + ")
}

func (s *Sum) toJSON() map[string]interface{} {
	ts := make([]interface{}, len(s.terms))
	for i, t := range s.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "sum", "terms": ts}
}

// ============================================================
// Product — n-ary multiplication
// ============================================================

type Product struct{ factors []Expr }

// Mul builds a simplified product.
func Mul(factors ...Expr) Expr {
	if len(factors) == 0 {
		return Int(1)
	}
	if len(factors) == 1 {
		return factors[0].Simplify()
	}
	return (&Product{factors: factors}).Simplify()
}

// Div builds a simplified quotient a/b.
func Div(a, b Expr) Expr { return Mul(a, Pow(b, Int(-1))) }

func (p *Product) Factors() []Expr { return append([]Expr{}, p.factors...) }

func (p *Product) Simplify() Expr {
	var flat []Expr
	var flatten func(list []Expr)
	flatten = func(list []Expr) {
		for _, f := range list {
			sf := f.Simplify()
			if inner, ok := sf.(*Product); ok {
				flatten(inner.factors)
				continue
			}
			flat = append(flat, sf)
		}
	}
	flatten(p.factors)

	coeff := ratOne()
	// Combine like factors: group by base and add exponents. Exponential
	// factors are merged separately so exp(a)*exp(b) becomes exp(a+b).
	type bucket struct {
		base Expr
		exps []Expr
	}
	buckets := map[string]*bucket{}
	var order []string
	var expArgs []Expr
	for _, f := range flat {
		if n, ok := f.(*Number); ok {
			if n.IsZero() {
				return Int(0)
			}
			coeff.Mul(coeff, n.val)
			continue
		}
		base, exp := baseExponent(f)
		if c, ok := base.(*Call); ok && c.name == "exp" {
			expArgs = append(expArgs, Mul(exp, c.arg))
			continue
		}
		key := base.String()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{base: base}
			buckets[key] = b
			order = append(order, key)
		}
		b.exps = append(b.exps, exp)
	}

	var out []Expr
	for _, key := range order {
		b := buckets[key]
		var e Expr
		if len(b.exps) == 1 {
			e = b.exps[0]
		} else {
			e = Add(b.exps...)
		}
		f := Pow(b.base, e)
		if n, ok := f.(*Number); ok {
			if n.IsZero() {
				return Int(0)
			}
			coeff.Mul(coeff, n.val)
			continue
		}
		out = append(out, f)
	}
	if len(expArgs) > 0 {
		merged := Exp(Add(expArgs...))
		if n, ok := merged.(*Number); ok {
			coeff.Mul(coeff, n.val)
		} else {
			out = append(out, merged)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	if coeff.Sign() == 0 {
		return Int(0)
	}
	// A rational coefficient on a lone sum distributes over its terms, so
	// 2*(x+1) and 2*x+2 share one canonical form. Terms of a simplified sum
	// are never sums themselves, so this cannot re-enter.
	if coeff.Cmp(ratOne()) != 0 && len(out) == 1 {
		if s, ok := out[0].(*Sum); ok {
			scaled := make([]Expr, len(s.terms))
			for i, t := range s.terms {
				scaled[i] = Mul(&Number{val: new(big.Rat).Set(coeff)}, t)
			}
			return Add(scaled...)
		}
	}
	if coeff.Cmp(ratOne()) != 0 || len(out) == 0 {
		out = append([]Expr{&Number{val: coeff}}, out...)
	}
	if len(out) == 1 {
		return out[0]
	}
	return &Product{factors: out}
}

// baseExponent views a simplified factor as base^exponent.
func baseExponent(f Expr) (Expr, Expr) {
	if pw, ok := f.(*Power); ok {
		return pw.base, pw.exp
	}
	return f, Int(1)
}

func (p *Product) Substitute(varName string, value Expr) Expr {
	fs := make([]Expr, len(p.factors))
	for i, f := range p.factors {
		fs[i] = f.Substitute(varName, value)
	}
	return Mul(fs...)
}

func (p *Product) Derivative(varName string) Expr {
	// General Leibniz rule over n factors.
	terms := make([]Expr, 0, len(p.factors))
	for i := range p.factors {
		parts := make([]Expr, 0, len(p.factors))
		parts = append(parts, p.factors[i].Derivative(varName))
		for j, f := range p.factors {
			if j != i {
				parts = append(parts, f)
			}
		}
		terms = append(terms, Mul(parts...))
	}
	return Add(terms...)
}

func (p *Product) Eval() (*Number, bool) {
	acc := Int(1)
	for _, f := range p.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (p *Product) Equal(other Expr) bool {
	o, ok := other.(*Product)
	if !ok || len(p.factors) != len(o.factors) {
		return false
	}
	for i := range p.factors {
		if !p.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (p *Product) exprType() string { return "product" }

func (p *Product) String() string {
	parts := make([]string, len(p.factors))
	for i, f := range p.factors {
		if _, ok := f.(*Sum); ok {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (p *Product) LaTeX() string {
	parts := make([]string, len(p.factors))
	for i, f := range p.factors {
		if _, ok := f.(*Sum); ok {
			parts[i] = "\\left(" + f.LaTeX() + "\\right)"
		} else {
			parts[i] = f.LaTeX()
		}
	}
	return strings.Join(parts, " \\cdot ")
}

func (p *Product) toJSON() map[string]interface{} {
	fs := make([]interface{}, len(p.factors))
	for i, f := range p.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "product", "factors": fs}
}

// ============================================================
// Power — exponentiation
// ============================================================

type Power struct{ base, exp Expr }

// Pow builds a simplified power.
func Pow(base, exp Expr) Expr { return (&Power{base: base, exp: exp}).Simplify() }

// Sqrt is shorthand for raising to the 1/2 power.
func Sqrt(e Expr) Expr { return Pow(e, Rat(1, 2)) }

func (p *Power) Base() Expr     { return p.base }
func (p *Power) Exponent() Expr { return p.exp }

func (p *Power) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if n, ok := exp.(*Number); ok {
		if n.IsZero() {
			if bn, ok := base.(*Number); ok && bn.IsZero() {
				return &Power{base: base, exp: exp} // 0^0 stays unevaluated
			}
			return Int(1)
		}
		if n.IsOne() {
			return base
		}
	}
	if bn, ok := base.(*Number); ok {
		if bn.IsOne() {
			return Int(1)
		}
		if en, ok := exp.(*Number); ok {
			if r, ok := ratPow(bn.val, en.val); ok {
				return &Number{val: r}
			}
		}
	}
	if inner, ok := base.(*Power); ok {
		return Pow(inner.base, Mul(inner.exp, exp))
	}
	if c, ok := base.(*Call); ok && c.name == "exp" {
		return Exp(Mul(exp, c.arg))
	}
	if pr, ok := base.(*Product); ok {
		if n, ok := exp.(*Number); ok && n.IsInteger() {
			parts := make([]Expr, len(pr.factors))
			for i, f := range pr.factors {
				parts[i] = Pow(f, fromRat(n.val))
			}
			return Mul(parts...)
		}
	}
	return &Power{base: base, exp: exp}
}

func (p *Power) Substitute(varName string, value Expr) Expr {
	return Pow(p.base.Substitute(varName, value), p.exp.Substitute(varName, value))
}

func (p *Power) Derivative(varName string) Expr {
	du := p.base.Derivative(varName)
	dv := p.exp.Derivative(varName)
	dvZero := isZeroExpr(dv)
	duZero := isZeroExpr(du)
	switch {
	case dvZero && duZero:
		return Int(0)
	case dvZero:
		// d(u^c) = c*u^(c-1)*u'
		return Mul(p.exp, Pow(p.base, Sub(p.exp, Int(1))), du)
	case duZero:
		// d(c^v) = c^v*ln(c)*v'
		return Mul(Pow(p.base, p.exp), Ln(p.base), dv)
	default:
		// d(u^v) = u^v*(v'*ln(u) + v*u'/u)
		return Mul(Pow(p.base, p.exp), Add(Mul(dv, Ln(p.base)), Mul(p.exp, du, Pow(p.base, Int(-1)))))
	}
}

func (p *Power) Eval() (*Number, bool) {
	b, ok := p.base.Eval()
	if !ok {
		return nil, false
	}
	e, ok := p.exp.Eval()
	if !ok {
		return nil, false
	}
	if r, ok := ratPow(b.val, e.val); ok {
		return &Number{val: r}, true
	}
	f := math.Pow(b.Float64(), e.Float64())
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return Float(f), true
}

func (p *Power) Equal(other Expr) bool {
	o, ok := other.(*Power)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Power) exprType() string { return "power" }

func (p *Power) String() string {
	bs := p.base.String()
	switch b := p.base.(type) {
	case *Sum, *Product, *Power:
		bs = "(" + bs + ")"
	case *Number:
		if b.IsNegative() || !b.IsInteger() {
			bs = "(" + bs + ")"
		}
	}
	es := p.exp.String()
	switch e := p.exp.(type) {
	case *Sum, *Product, *Power:
		es = "(" + es + ")"
	case *Number:
		if e.IsNegative() || !e.IsInteger() {
			es = "(" + es + ")"
		}
	}
	return bs + "^" + es
}

func (p *Power) LaTeX() string {
	bs := p.base.LaTeX()
	switch b := p.base.(type) {
	case *Sum, *Product, *Power:
		bs = "\\left(" + bs + "\\right)"
	case *Number:
		if b.IsNegative() || !b.IsInteger() {
			bs = "\\left(" + bs + "\\right)"
		}
	}
	return fmt.Sprintf("%s^{%s}", bs, p.exp.LaTeX())
}

func (p *Power) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "power", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}

// ============================================================
// Call — named unary function application
// ============================================================

type Call struct {
	name string
	arg  Expr
}

func Sin(e Expr) Expr  { return apply("sin", e) }
func Cos(e Expr) Expr  { return apply("cos", e) }
func Tan(e Expr) Expr  { return apply("tan", e) }
func Sec(e Expr) Expr  { return apply("sec", e) }
func Csc(e Expr) Expr  { return apply("csc", e) }
func Cot(e Expr) Expr  { return apply("cot", e) }
func Asin(e Expr) Expr { return apply("asin", e) }
func Acos(e Expr) Expr { return apply("acos", e) }
func Atan(e Expr) Expr { return apply("atan", e) }
func Sinh(e Expr) Expr { return apply("sinh", e) }
func Cosh(e Expr) Expr { return apply("cosh", e) }
func Tanh(e Expr) Expr { return apply("tanh", e) }
func Exp(e Expr) Expr  { return apply("exp", e) }
func Ln(e Expr) Expr   { return apply("ln", e) }
func Abs(e Expr) Expr  { return apply("abs", e) }

func apply(name string, arg Expr) Expr {
	return (&Call{name: name, arg: arg}).Simplify()
}

func (c *Call) Name() string { return c.name }
func (c *Call) Arg() Expr    { return c.arg }

// oddFuncs change sign with their argument; evenFuncs do not.
var oddFuncs = map[string]bool{
	"sin": true, "tan": true, "csc": true, "cot": true,
	"asin": true, "atan": true, "sinh": true, "tanh": true,
}
var evenFuncs = map[string]bool{"cos": true, "sec": true, "cosh": true, "abs": true}

func (c *Call) Simplify() Expr {
	arg := c.arg.Simplify()

	// Pull a negative coefficient through odd and even functions.
	if neg, flipped := negatedForm(arg); neg {
		if oddFuncs[c.name] {
			return Neg(apply(c.name, flipped))
		}
		if evenFuncs[c.name] {
			return apply(c.name, flipped)
		}
	}

	if n, ok := arg.(*Number); ok {
		switch c.name {
		case "sin", "tan", "sinh", "tanh", "asin", "atan":
			if n.IsZero() {
				return Int(0)
			}
		case "cos", "cosh", "sec":
			if n.IsZero() {
				return Int(1)
			}
		case "exp":
			if n.IsZero() {
				return Int(1)
			}
		case "ln":
			if n.IsOne() {
				return Int(0)
			}
		case "acos":
			if n.IsOne() {
				return Int(0)
			}
		case "abs":
			return numAbs(n)
		}
	}

	switch c.name {
	case "exp":
		if ln, ok := arg.(*Call); ok && ln.name == "ln" {
			return ln.arg
		}
	case "ln":
		if ex, ok := arg.(*Call); ok && ex.name == "exp" {
			return ex.arg
		}
	case "abs":
		if inner, ok := arg.(*Call); ok && inner.name == "abs" {
			return inner
		}
		if provablyPositive(arg) {
			return arg
		}
		if pr, ok := arg.(*Product); ok && len(pr.factors) > 0 {
			if n, ok := pr.factors[0].(*Number); ok {
				rest := Mul(pr.factors[1:]...)
				return Mul(numAbs(n), apply("abs", rest))
			}
		}
	}
	return &Call{name: c.name, arg: arg}
}

// negatedForm reports whether a simplified expression carries a negative
// rational coefficient, and returns it with the sign flipped.
func negatedForm(e Expr) (bool, Expr) {
	switch v := e.(type) {
	case *Number:
		if v.IsNegative() {
			return true, numNeg(v)
		}
	case *Product:
		if len(v.factors) > 0 {
			if n, ok := v.factors[0].(*Number); ok && n.IsNegative() {
				return true, Mul(append([]Expr{numNeg(n)}, v.factors[1:]...)...)
			}
		}
	}
	return false, e
}

// provablyPositive is a conservative structural positivity check.
func provablyPositive(e Expr) bool {
	switch v := e.(type) {
	case *Number:
		return v.IsPositive()
	case *Call:
		return v.name == "exp" || v.name == "cosh"
	case *Sum:
		for _, t := range v.terms {
			if !provablyPositive(t) {
				return false
			}
		}
		return true
	case *Product:
		for _, f := range v.factors {
			if !provablyPositive(f) {
				return false
			}
		}
		return true
	case *Power:
		return provablyPositive(v.base)
	}
	return false
}

func (c *Call) Substitute(varName string, value Expr) Expr {
	return apply(c.name, c.arg.Substitute(varName, value))
}

func (c *Call) Derivative(varName string) Expr {
	du := c.arg.Derivative(varName)
	if isZeroExpr(du) {
		return Int(0)
	}
	u := c.arg
	var outer Expr
	switch c.name {
	case "sin":
		outer = Cos(u)
	case "cos":
		outer = Neg(Sin(u))
	case "tan":
		outer = Add(Int(1), Pow(Tan(u), Int(2)))
	case "sec":
		outer = Mul(Sec(u), Tan(u))
	case "csc":
		outer = Neg(Mul(Csc(u), Cot(u)))
	case "cot":
		outer = Neg(Add(Int(1), Pow(Cot(u), Int(2))))
	case "exp":
		outer = Exp(u)
	case "ln":
		// d ln|u| and d ln(u) agree: u'/u.
		if inner, ok := u.(*Call); ok && inner.name == "abs" {
			du = inner.arg.Derivative(varName)
			return Mul(du, Pow(inner.arg, Int(-1)))
		}
		outer = Pow(u, Int(-1))
	case "abs":
		// sign(u)*u', written as u/|u|*u'.
		outer = Mul(u, Pow(Abs(u), Int(-1)))
	case "asin":
		outer = Pow(Sub(Int(1), Pow(u, Int(2))), Rat(-1, 2))
	case "acos":
		outer = Neg(Pow(Sub(Int(1), Pow(u, Int(2))), Rat(-1, 2)))
	case "atan":
		outer = Pow(Add(Int(1), Pow(u, Int(2))), Int(-1))
	case "sinh":
		outer = Cosh(u)
	case "cosh":
		outer = Sinh(u)
	case "tanh":
		outer = Sub(Int(1), Pow(Tanh(u), Int(2)))
	default:
		// Formal derivative of an unknown function.
		outer = &Call{name: c.name + "'", arg: u}
	}
	return Mul(outer, du)
}

func (c *Call) Eval() (*Number, bool) {
	v, ok := c.arg.Eval()
	if !ok {
		return nil, false
	}
	x := v.Float64()
	var f float64
	switch c.name {
	case "sin":
		f = math.Sin(x)
	case "cos":
		f = math.Cos(x)
	case "tan":
		f = math.Tan(x)
	case "sec":
		f = 1 / math.Cos(x)
	case "csc":
		f = 1 / math.Sin(x)
	case "cot":
		f = math.Cos(x) / math.Sin(x)
	case "asin":
		f = math.Asin(x)
	case "acos":
		f = math.Acos(x)
	case "atan":
		f = math.Atan(x)
	case "sinh":
		f = math.Sinh(x)
	case "cosh":
		f = math.Cosh(x)
	case "tanh":
		f = math.Tanh(x)
	case "exp":
		f = math.Exp(x)
	case "ln":
		if x <= 0 {
			return nil, false
		}
		f = math.Log(x)
	case "abs":
		return numAbs(v), true
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return Float(f), true
}

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	return ok && c.name == o.name && c.arg.Equal(o.arg)
}

func (c *Call) exprType() string { return "call" }
func (c *Call) String() string   { return c.name + "(" + c.arg.String() + ")" }

func (c *Call) LaTeX() string {
	a := c.arg.LaTeX()
	switch c.name {
	case "exp":
		return fmt.Sprintf("e^{%s}", a)
	case "ln":
		return fmt.Sprintf("\\ln\\left(%s\\right)", a)
	case "abs":
		return fmt.Sprintf("\\left|%s\\right|", a)
	case "asin":
		return fmt.Sprintf("\\arcsin\\left(%s\\right)", a)
	case "acos":
		return fmt.Sprintf("\\arccos\\left(%s\\right)", a)
	case "atan":
		return fmt.Sprintf("\\arctan\\left(%s\\right)", a)
	default:
		return fmt.Sprintf("\\%s\\left(%s\\right)", c.name, a)
	}
}

func (c *Call) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "call", "name": c.name, "arg": c.arg.toJSON()}
}

// ============================================================
// Integral — an unevaluated antiderivative
// ============================================================

// Integral represents an antiderivative the engine did not resolve into
// closed form. It participates in the algebra like any other node.
type Integral struct {
	integrand Expr
	varName   string
}

func NewIntegral(integrand Expr, varName string) *Integral {
	return &Integral{integrand: integrand.Simplify(), varName: varName}
}

func (it *Integral) Integrand() Expr { return it.integrand }
func (it *Integral) Var() string     { return it.varName }

func (it *Integral) Simplify() Expr {
	return &Integral{integrand: it.integrand.Simplify(), varName: it.varName}
}

func (it *Integral) Substitute(varName string, value Expr) Expr {
	if varName == it.varName {
		return it // bound variable
	}
	return &Integral{integrand: it.integrand.Substitute(varName, value), varName: it.varName}
}

func (it *Integral) Derivative(varName string) Expr {
	if varName == it.varName {
		return it.integrand
	}
	return &Integral{integrand: it.integrand.Derivative(varName), varName: it.varName}
}

func (it *Integral) Eval() (*Number, bool) { return nil, false }

func (it *Integral) Equal(other Expr) bool {
	o, ok := other.(*Integral)
	return ok && it.varName == o.varName && it.integrand.Equal(o.integrand)
}

func (it *Integral) exprType() string { return "integral" }
func (it *Integral) String() string {
	return "integral(" + it.integrand.String() + ", " + it.varName + ")"
}
func (it *Integral) LaTeX() string {
	return fmt.Sprintf("\\int %s \\, d%s", it.integrand.LaTeX(), it.varName)
}
func (it *Integral) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "integral", "integrand": it.integrand.toJSON(), "var": it.varName}
}

// ============================================================
// Wildcard — pattern slot for table matching
// ============================================================

type Wildcard struct{ label string }

func wild(label string) *Wildcard { return &Wildcard{label: label} }

func (w *Wildcard) Simplify() Expr { return w }
func (w *Wildcard) Substitute(varName string, value Expr) Expr {
	return w
}
func (w *Wildcard) Derivative(string) Expr { return Int(0) }
func (w *Wildcard) Eval() (*Number, bool)  { return nil, false }
func (w *Wildcard) Equal(other Expr) bool {
	o, ok := other.(*Wildcard)
	return ok && w.label == o.label
}
func (w *Wildcard) exprType() string { return "wildcard" }
func (w *Wildcard) String() string   { return "?" + w.label }
func (w *Wildcard) LaTeX() string    { return "?" + w.label }
func (w *Wildcard) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "wildcard", "label": w.label}
}

// ============================================================
// Tree helpers
// ============================================================

func isZeroExpr(e Expr) bool {
	n, ok := e.(*Number)
	return ok && n.IsZero()
}

func isOneExpr(e Expr) bool {
	n, ok := e.(*Number)
	return ok && n.IsOne()
}

// FreeSymbols collects the names of all symbols in an expression. Variables
// bound by an unevaluated integral are not free inside it.
func FreeSymbols(e Expr) map[string]bool {
	out := map[string]bool{}
	collectSymbols(e, out)
	return out
}

func collectSymbols(e Expr, out map[string]bool) {
	switch v := e.(type) {
	case *Symbol:
		out[v.name] = true
	case *Sum:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Product:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Power:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Call:
		collectSymbols(v.arg, out)
	case *Integral:
		inner := map[string]bool{}
		collectSymbols(v.integrand, inner)
		delete(inner, v.varName)
		for k := range inner {
			out[k] = true
		}
	}
}

func dependsOn(e Expr, varName string) bool {
	return FreeSymbols(e)[varName]
}

// ReplaceAll substitutes every occurrence of target with repl, matching
// structurally, and simplifies the result.
func ReplaceAll(e, target, repl Expr) Expr {
	return replaceAll(e, target, repl).Simplify()
}

func replaceAll(e, target, repl Expr) Expr {
	if e.Equal(target) {
		return repl
	}
	switch v := e.(type) {
	case *Sum:
		ts := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			ts[i] = replaceAll(t, target, repl)
		}
		return &Sum{terms: ts}
	case *Product:
		fs := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			fs[i] = replaceAll(f, target, repl)
		}
		return &Product{factors: fs}
	case *Power:
		return &Power{base: replaceAll(v.base, target, repl), exp: replaceAll(v.exp, target, repl)}
	case *Call:
		return &Call{name: v.name, arg: replaceAll(v.arg, target, repl)}
	case *Integral:
		return &Integral{integrand: replaceAll(v.integrand, target, repl), varName: v.varName}
	}
	return e
}

// nodeCount measures expression size, used to compare candidate rewrites.
func nodeCount(e Expr) int {
	switch v := e.(type) {
	case *Sum:
		n := 1
		for _, t := range v.terms {
			n += nodeCount(t)
		}
		return n
	case *Product:
		n := 1
		for _, f := range v.factors {
			n += nodeCount(f)
		}
		return n
	case *Power:
		return 1 + nodeCount(v.base) + nodeCount(v.exp)
	case *Call:
		return 1 + nodeCount(v.arg)
	case *Integral:
		return 1 + nodeCount(v.integrand)
	}
	return 1
}

// containsIntegral reports whether any unevaluated integral node remains.
func containsIntegral(e Expr) bool {
	switch v := e.(type) {
	case *Integral:
		return true
	case *Sum:
		for _, t := range v.terms {
			if containsIntegral(t) {
				return true
			}
		}
	case *Product:
		for _, f := range v.factors {
			if containsIntegral(f) {
				return true
			}
		}
	case *Power:
		return containsIntegral(v.base) || containsIntegral(v.exp)
	case *Call:
		return containsIntegral(v.arg)
	}
	return false
}

// ============================================================
// Package-level conveniences
// ============================================================

// Simplify normalizes an expression to its canonical simplified form.
func Simplify(e Expr) Expr { return e.Simplify() }

// Derivative differentiates an expression with respect to a variable.
func Derivative(e Expr, varName string) Expr { return e.Derivative(varName).Simplify() }

// String renders an expression in plain text.
func String(e Expr) string { return e.String() }

// LaTeX renders an expression as LaTeX.
func LaTeX(e Expr) string { return e.LaTeX() }

// Equivalent reports whether two expressions are equal after simplification,
// falling back to numeric sampling when the difference does not cancel
// structurally.
func Equivalent(a, b Expr) bool {
	diff := Sub(a, b)
	if isZeroExpr(diff) {
		return true
	}
	syms := FreeSymbols(diff)
	if len(syms) == 0 {
		if v, ok := diff.Eval(); ok {
			return v.IsZero()
		}
		return false
	}
	names := make([]string, 0, len(syms))
	for s := range syms {
		names = append(names, s)
	}
	sort.Strings(names)
	samples := []float64{0.37, 1.21, 2.83, -0.59, 0.94}
	checked := 0
	for i := 0; i < len(samples); i++ {
		probe := diff
		for j, name := range names {
			probe = probe.Substitute(name, Float(samples[(i+j)%len(samples)]))
		}
		v, ok := probe.Eval()
		if !ok {
			continue
		}
		if math.Abs(v.Float64()) > 1e-6 {
			return false
		}
		checked++
	}
	return checked > 0
}
