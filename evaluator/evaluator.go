// Package evaluator implements the fourth pipeline stage: a tree-
// walking interpreter over the parser's untyped ast.Source. It is the
// Go port of the reference implementation's Evaluator (implements
// Ast.Visitor), walking the AST directly rather than a prior stage's
// typed output — a program can be evaluated without ever running the
// Analyzer. The one structural change recorded in the spec's design
// notes: a RETURN statement is threaded back up as a second return
// value from every statement-evaluating function rather than thrown
// as an exception, since panic/recover in Go is reserved for the four
// error taxa (see internal/diag) and for implementation bugs, not for
// ordinary control flow.
package evaluator

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tawa-lang/tawa/ast"
	"github.com/tawa-lang/tawa/internal/diag"
	"github.com/tawa-lang/tawa/scope"
	"github.com/tawa-lang/tawa/token"
	"github.com/tawa-lang/tawa/value"
)

// Evaluator walks an ast.Source, threading a single mutable scope
// through the walk.
type Evaluator struct {
	scope *scope.Scope[value.Value]
}

// New creates an Evaluator rooted at the given scope, typically one
// pre-populated by internal/stdlib.
func New(root *scope.Scope[value.Value]) *Evaluator {
	return &Evaluator{scope: root}
}

// Evaluate runs a fresh Evaluator over src.
func Evaluate(root *scope.Scope[value.Value], src *ast.Source) (value.Value, error) {
	return New(root).Evaluate(src)
}

// Evaluate runs every statement in src in order, returning the value
// of the last one. An EvaluateError aborts the whole call.
func (e *Evaluator) Evaluate(src *ast.Source) (out value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ee, ok := r.(*diag.EvaluateError); ok {
				err = ee
				return
			}
			panic(r)
		}
	}()

	result, ret := e.evalBlock(src.Statements)
	if ret != nil {
		return nil, &diag.EvaluateError{Message: "return statement outside of a function"}
	}
	return result, nil
}

func (e *Evaluator) fail(sp token.Span, format string, args ...interface{}) {
	panic(&diag.EvaluateError{Message: fmt.Sprintf(format, args...), Span: sp})
}

// evalBlock runs stmts in order, stopping early and propagating a
// Return signal the moment one is produced.
func (e *Evaluator) evalBlock(stmts []ast.Stmt) (value.Value, *value.Return) {
	result := value.Value(value.NilValue)
	for _, s := range stmts {
		v, ret := e.evalStmt(s)
		result = v
		if ret != nil {
			return result, ret
		}
	}
	return result, nil
}

func (e *Evaluator) evalStmt(s ast.Stmt) (value.Value, *value.Return) {
	switch n := s.(type) {
	case *ast.Let:
		return e.evalLet(n), nil
	case *ast.Def:
		return e.evalDef(n), nil
	case *ast.If:
		return e.evalIf(n)
	case *ast.For:
		return e.evalFor(n)
	case *ast.Return:
		return e.evalReturn(n)
	case *ast.Expression:
		return e.evalExpr(n.Expr), nil
	case *ast.Assignment:
		return e.evalAssignment(n), nil
	default:
		diag.Assert(false, "evalStmt: unhandled node type %T", s)
		panic("unreachable")
	}
}

func (e *Evaluator) evalLet(n *ast.Let) value.Value {
	if _, ok := e.scope.Get(n.Name, true); ok {
		e.fail(n.Span, "variable %s already defined", n.Name)
	}
	v := value.Value(value.NilValue)
	if n.Value != nil {
		v = e.evalExpr(n.Value)
	}
	e.scope.Define(n.Name, v)
	return v
}

// evalDef builds a closure over the defining scope so recursive and
// later calls see the binding; the scope is "frozen" by value (the
// pointer captured here never changes, matching the reference
// implementation's Scope currScope = scope capture), unlike the
// Evaluator's own e.scope field, which keeps moving as execution
// proceeds.
func (e *Evaluator) evalDef(n *ast.Def) value.Value {
	if _, ok := e.scope.Get(n.Name, true); ok {
		e.fail(n.Span, "function %s already defined", n.Name)
	}
	closure := e.scope
	params := n.Params
	body := n.Body
	name := n.Name

	call := func(args []value.Value) (value.Value, *value.Return, error) {
		if len(args) != len(params) {
			return nil, nil, fmt.Errorf("%s expects %d argument(s), got %d", name, len(params), len(args))
		}
		callScope := closure.Child()
		for i, p := range params {
			callScope.Define(p.Name, args[i])
		}
		result, ret := (&Evaluator{scope: callScope}).evalBlock(body)
		if ret != nil {
			return ret.Value, nil, nil
		}
		_ = result
		return value.NilValue, nil, nil
	}

	fn := &value.Function{Name: name, Call: call}
	e.scope.Define(name, fn)
	return fn
}

func (e *Evaluator) evalIf(n *ast.If) (value.Value, *value.Return) {
	cond := e.requireBool(e.evalExpr(n.Condition), n.Span)
	stmts := n.Else
	if cond {
		stmts = n.Then
	}
	outer := e.scope
	e.scope = outer.Child()
	result, ret := e.evalBlock(stmts)
	e.scope = outer
	return result, ret
}

func (e *Evaluator) evalFor(n *ast.For) (value.Value, *value.Return) {
	items, err := requireList(e.evalExpr(n.Iterable))
	if err != nil {
		e.fail(n.Span, "%s", err)
	}
	outer := e.scope
	defer func() { e.scope = outer }()
	for _, item := range items {
		e.scope = outer.Child()
		e.scope.Define(n.Name, item)
		_, ret := e.evalBlock(n.Body)
		if ret != nil {
			return value.NilValue, ret
		}
	}
	e.scope = outer
	return value.NilValue, nil
}

func (e *Evaluator) evalReturn(n *ast.Return) (value.Value, *value.Return) {
	v := value.Value(value.NilValue)
	if n.Value != nil {
		v = e.evalExpr(n.Value)
	}
	return v, &value.Return{Value: v}
}

// evalAssignment runtime-discriminates the assignment target the way
// the reference Evaluator does (it has no static analysis to tell it
// apart ahead of time): a Variable target must already be bound
// somewhere in the scope chain, a Property target's receiver must be
// an ObjectValue whose field already exists.
func (e *Evaluator) evalAssignment(n *ast.Assignment) value.Value {
	switch target := n.Target.(type) {
	case *ast.Variable:
		if _, ok := e.scope.Get(target.Name, false); !ok {
			e.fail(n.Span, "variable %s is not defined", target.Name)
		}
		v := e.evalExpr(n.Value)
		e.scope.Set(target.Name, v)
		return v
	case *ast.Property:
		receiver := e.evalExpr(target.Receiver)
		obj, ok := receiver.(*value.ObjectValue)
		if !ok {
			e.fail(n.Span, "receiver is not an object")
		}
		if _, ok := obj.Members.Get(target.Name, true); !ok {
			e.fail(n.Span, "property %s is not defined", target.Name)
		}
		v := e.evalExpr(n.Value)
		obj.Members.Set(target.Name, v)
		return v
	default:
		e.fail(n.Span, "assignment target must be a variable or property")
		panic("unreachable")
	}
}

func (e *Evaluator) evalExpr(expr ast.Expr) value.Value {
	switch n := expr.(type) {
	case *ast.Literal:
		return literalValue(n.Value)
	case *ast.Group:
		return e.evalExpr(n.Expr)
	case *ast.Binary:
		return e.evalBinary(n)
	case *ast.Variable:
		v, ok := e.scope.Get(n.Name, false)
		if !ok {
			e.fail(n.Span, "variable %s is not defined", n.Name)
		}
		return v
	case *ast.Property:
		receiver := e.evalExpr(n.Receiver)
		obj, ok := receiver.(*value.ObjectValue)
		if !ok {
			e.fail(n.Span, "cannot access a property of a non-object value")
		}
		v, ok := obj.Members.Get(n.Name, true)
		if !ok {
			e.fail(n.Span, "property %s is not defined", n.Name)
		}
		return v
	case *ast.Function:
		return e.evalFunctionCall(n)
	case *ast.Method:
		return e.evalMethodCall(n)
	case *ast.ObjectExpr:
		return e.evalObjectExpr(n)
	default:
		diag.Assert(false, "evalExpr: unhandled node type %T", expr)
		panic("unreachable")
	}
}

func literalValue(v interface{}) value.Value {
	switch vv := v.(type) {
	case nil:
		return value.NilValue
	case bool:
		return value.Bool(vv)
	case *big.Int:
		return value.Int(vv)
	case *value.Decimal:
		return value.Primitive{Value: vv}
	case rune:
		return value.Char(vv)
	case string:
		return value.Str(vv)
	default:
		diag.Assert(false, "literalValue: unexpected literal value type %T", v)
		return value.NilValue
	}
}

func (e *Evaluator) evalBinary(n *ast.Binary) value.Value {
	switch n.Operator {
	case "AND":
		if !e.requireBool(e.evalExpr(n.Left), n.Span) {
			return value.Bool(false)
		}
		return value.Bool(e.requireBool(e.evalExpr(n.Right), n.Span))
	case "OR":
		if e.requireBool(e.evalExpr(n.Left), n.Span) {
			return value.Bool(true)
		}
		return value.Bool(e.requireBool(e.evalExpr(n.Right), n.Span))
	}

	x := e.evalExpr(n.Left)
	y := e.evalExpr(n.Right)

	switch n.Operator {
	case "+":
		// The standalone Evaluator has no static type to consult, so the
		// concatenation-vs-numeric choice is made from the evaluated
		// operands themselves: if either is a runtime String, stringify
		// both sides (Print already renders NIL, Primitives, and
		// ObjectValues the way the rule requires) and concatenate.
		if isRuntimeString(x) || isRuntimeString(y) {
			return value.Str(x.Print() + y.Print())
		}
		return e.evalNumeric(n.Operator, x, y, n.Span)
	case "-", "*", "/":
		return e.evalNumeric(n.Operator, x, y, n.Span)
	case "==", "!=":
		eq := valuesEqual(x, y)
		if n.Operator == "!=" {
			eq = !eq
		}
		return value.Bool(eq)
	case "<", "<=", ">", ">=":
		cmp := e.compareValues(x, y, n.Span)
		switch n.Operator {
		case "<":
			return value.Bool(cmp < 0)
		case "<=":
			return value.Bool(cmp <= 0)
		case ">":
			return value.Bool(cmp > 0)
		default:
			return value.Bool(cmp >= 0)
		}
	default:
		diag.Assert(false, "evalBinary: unknown operator %s", n.Operator)
		return value.NilValue
	}
}

// isRuntimeString reports whether v is a Primitive wrapping a Go
// string (i.e. a STRING literal or concatenation result), as opposed
// to a CHARACTER (rune) or any other primitive kind.
func isRuntimeString(v value.Value) bool {
	p, ok := v.(value.Primitive)
	if !ok {
		return false
	}
	_, ok = p.Value.(string)
	return ok
}

// evalNumeric dispatches + - * / between two same-typed numeric
// primitives, trying big.Int first and falling back to Decimal, since
// the standalone Evaluator has no static type information to tell it
// which kind to expect ahead of time — matching the reference
// implementation's own try/catch-driven dispatch.
func (e *Evaluator) evalNumeric(op string, x, y value.Value, sp token.Span) value.Value {
	xp, xok := x.(value.Primitive)
	yp, yok := y.(value.Primitive)
	if !xok || !yok {
		e.fail(sp, "operands are not numeric")
	}

	if xi, ok := xp.Value.(*big.Int); ok {
		yi, ok := yp.Value.(*big.Int)
		if !ok {
			e.fail(sp, "operands must be the same numeric kind")
		}
		switch op {
		case "+":
			return value.Int(new(big.Int).Add(xi, yi))
		case "-":
			return value.Int(new(big.Int).Sub(xi, yi))
		case "*":
			return value.Int(new(big.Int).Mul(xi, yi))
		case "/":
			if yi.Sign() == 0 {
				e.fail(sp, "division by zero")
			}
			return value.Int(new(big.Int).Quo(xi, yi))
		}
	}

	if xd, ok := xp.Value.(*value.Decimal); ok {
		yd, ok := yp.Value.(*value.Decimal)
		if !ok {
			e.fail(sp, "operands must be the same numeric kind")
		}
		switch op {
		case "+":
			return value.Primitive{Value: xd.Add(yd)}
		case "-":
			return value.Primitive{Value: xd.Sub(yd)}
		case "*":
			return value.Primitive{Value: xd.Mul(yd)}
		case "/":
			result, err := xd.Div(yd)
			if err != nil {
				e.fail(sp, "%s", err)
			}
			return value.Primitive{Value: result}
		}
	}

	e.fail(sp, "operands are not numeric")
	return value.NilValue
}

func (e *Evaluator) requireBool(v value.Value, sp token.Span) bool {
	if p, ok := v.(value.Primitive); ok {
		if b, ok := p.Value.(bool); ok {
			return b
		}
	}
	e.fail(sp, "expected a Boolean value")
	return false
}

func requireList(v value.Value) ([]value.Value, error) {
	p, ok := v.(value.Primitive)
	if !ok {
		return nil, fmt.Errorf("expected an Iterable value")
	}
	list, ok := p.Value.([]value.Value)
	if !ok {
		return nil, fmt.Errorf("expected an Iterable value")
	}
	return list, nil
}

// normalizeChar folds a CHARACTER's rune representation down to a
// single-character string so CHARACTER and STRING values compare and
// order against each other transparently.
func normalizeChar(v interface{}) interface{} {
	if r, ok := v.(rune); ok {
		return string(r)
	}
	return v
}

func valuesEqual(x, y value.Value) bool {
	xo, xIsObj := x.(*value.ObjectValue)
	yo, yIsObj := y.(*value.ObjectValue)
	if xIsObj || yIsObj {
		return xIsObj && yIsObj && xo == yo
	}
	xp, _ := x.(value.Primitive)
	yp, _ := y.(value.Primitive)
	return primitivesEqual(xp.Value, yp.Value)
}

func primitivesEqual(a, b interface{}) bool {
	a, b = normalizeChar(a), normalizeChar(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case *big.Int:
		bv, ok := b.(*big.Int)
		return ok && av.Cmp(bv) == 0
	case *value.Decimal:
		bv, ok := b.(*value.Decimal)
		return ok && av.Equal(bv)
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []value.Value:
		bv, ok := b.([]value.Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (e *Evaluator) compareValues(x, y value.Value, sp token.Span) int {
	xp, xok := x.(value.Primitive)
	yp, yok := y.(value.Primitive)
	if !xok || !yok {
		e.fail(sp, "operands are not comparable")
	}
	xa, ya := normalizeChar(xp.Value), normalizeChar(yp.Value)
	switch xv := xa.(type) {
	case bool:
		yv, _ := ya.(bool)
		switch {
		case xv == yv:
			return 0
		case !xv:
			return -1
		default:
			return 1
		}
	case *big.Int:
		yv, ok := ya.(*big.Int)
		if !ok {
			e.fail(sp, "operands are not comparable")
		}
		return xv.Cmp(yv)
	case *value.Decimal:
		yv, ok := ya.(*value.Decimal)
		if !ok {
			e.fail(sp, "operands are not comparable")
		}
		return xv.Cmp(yv)
	case string:
		yv, ok := ya.(string)
		if !ok {
			e.fail(sp, "operands are not comparable")
		}
		return strings.Compare(xv, yv)
	default:
		e.fail(sp, "operands are not comparable")
		return 0
	}
}

func (e *Evaluator) evalFunctionCall(n *ast.Function) value.Value {
	fnVal, ok := e.scope.Get(n.Name, false)
	if !ok {
		e.fail(n.Span, "undefined function: %s", n.Name)
	}
	fn, ok := fnVal.(*value.Function)
	if !ok {
		e.fail(n.Span, "%s is not callable", n.Name)
	}
	args := make([]value.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = e.evalExpr(a)
	}
	result, _, err := fn.Call(args)
	if err != nil {
		e.fail(n.Span, "%s", err)
	}
	return result
}

func (e *Evaluator) evalMethodCall(n *ast.Method) value.Value {
	receiver := e.evalExpr(n.Receiver)
	obj, ok := receiver.(*value.ObjectValue)
	if !ok {
		e.fail(n.Span, "receiver is not an object")
	}
	methodVal, ok := obj.Members.Get(n.Name, true)
	if !ok {
		e.fail(n.Span, "method %s is not defined", n.Name)
	}
	fn, ok := methodVal.(*value.Function)
	if !ok {
		e.fail(n.Span, "%s is not callable", n.Name)
	}
	args := make([]value.Value, len(n.Arguments)+1)
	args[0] = obj
	for i, a := range n.Arguments {
		args[i+1] = e.evalExpr(a)
	}
	result, _, err := fn.Call(args)
	if err != nil {
		e.fail(n.Span, "%s", err)
	}
	return result
}

// evalObjectExpr evaluates field initializers in the enclosing scope
// (not the new object's own scope: a field initializer cannot refer to
// a sibling field or to "this"), then installs methods as closures
// over the object's scope, matching the reference implementation. The
// analyzer's static pass disagrees here (it type-checks field
// initializers in the object's own scope), a known, intentional
// divergence between the two passes recorded in DESIGN.md.
func (e *Evaluator) evalObjectExpr(n *ast.ObjectExpr) value.Value {
	objectScope := e.scope.Child()
	typeName := ""
	if n.Name != nil {
		typeName = *n.Name
	}
	for _, f := range n.Fields {
		v := value.Value(value.NilValue)
		if f.Value != nil {
			v = e.evalExpr(f.Value)
		}
		objectScope.Define(f.Name, v)
	}
	objectValue := &value.ObjectValue{TypeName: typeName, Members: objectScope}

	for _, m := range n.Methods {
		params := m.Params
		body := m.Body
		name := m.Name
		call := func(args []value.Value) (value.Value, *value.Return, error) {
			if len(args) != len(params)+1 {
				return nil, nil, fmt.Errorf("method %s expects %d argument(s), got %d", name, len(params), len(args)-1)
			}
			methodScope := objectScope.Child()
			methodScope.Define("this", args[0])
			for i, p := range params {
				methodScope.Define(p.Name, args[i+1])
			}
			result, ret := (&Evaluator{scope: methodScope}).evalBlock(body)
			if ret != nil {
				return ret.Value, nil, nil
			}
			_ = result
			return value.NilValue, nil, nil
		}
		objectScope.Define(name, &value.Function{Name: name, Call: call})
	}

	return objectValue
}
