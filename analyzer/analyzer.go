// Package analyzer implements the third pipeline stage: walking the
// untyped ast.Source and producing a fully typed ir.Source, checking
// every static typing rule along the way. It is the Go port of the
// reference implementation's Analyzer, which visits the AST via a
// double-dispatch Visitor; here a single type switch per node does the
// same job, which is the idiomatic Go shape for a closed sum type.
package analyzer

import (
	"fmt"
	"math/big"

	"github.com/tawa-lang/tawa/ast"
	"github.com/tawa-lang/tawa/internal/diag"
	"github.com/tawa-lang/tawa/ir"
	"github.com/tawa-lang/tawa/scope"
	"github.com/tawa-lang/tawa/token"
	"github.com/tawa-lang/tawa/types"
	"github.com/tawa-lang/tawa/value"
)

// returnsKey is the sentinel scope binding holding the declared return
// type of the nearest enclosing Def, the way the reference
// implementation stashes it under the name "$RETURNS". Identifiers
// never contain '$', so it can never collide with a user name.
const returnsKey = "$RETURNS"

// thisKey is the sentinel binding for a method's implicit receiver.
const thisKey = "this"

// Analyzer walks an ast.Source, threading a single mutable scope
// through the walk, swapped out and restored around every nested
// scope (Def bodies, If branches, For bodies, object/method scopes).
type Analyzer struct {
	scope *scope.Scope[types.Type]
}

// New creates an Analyzer rooted at the given scope, typically one
// pre-populated by internal/stdlib with the built-in bindings.
func New(root *scope.Scope[types.Type]) *Analyzer {
	return &Analyzer{scope: root}
}

// Analyze runs a fresh Analyzer over src.
func Analyze(root *scope.Scope[types.Type], src *ast.Source) (*ir.Source, error) {
	return New(root).Analyze(src)
}

// Analyze walks every statement in src. An AnalyzeError aborts the
// whole call; there is no partial result and no recovery.
func (a *Analyzer) Analyze(src *ast.Source) (out *ir.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*diag.AnalyzeError); ok {
				err = ae
				return
			}
			panic(r)
		}
	}()

	statements := make([]ir.Stmt, 0, len(src.Statements))
	for _, stmt := range src.Statements {
		statements = append(statements, a.analyzeStmt(stmt))
	}
	return &ir.Source{Statements: statements}, nil
}

func (a *Analyzer) fail(sp token.Span, format string, args ...interface{}) {
	panic(&diag.AnalyzeError{Message: fmt.Sprintf(format, args...), Span: sp})
}

func (a *Analyzer) requireSubtype(sub, super types.Type, sp token.Span) {
	if !types.IsSubtype(sub, super) {
		a.fail(sp, "type %s is not a subtype of %s", sub.Name(), super.Name())
	}
}

func (a *Analyzer) analyzeStmt(s ast.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ast.Let:
		return a.analyzeLet(n)
	case *ast.Def:
		return a.analyzeDef(n)
	case *ast.If:
		return a.analyzeIf(n)
	case *ast.For:
		return a.analyzeFor(n)
	case *ast.Return:
		return a.analyzeReturn(n)
	case *ast.Expression:
		return &ir.Expression{Expr: a.analyzeExpr(n.Expr)}
	case *ast.Assignment:
		return a.analyzeAssignment(n)
	default:
		diag.Assert(false, "analyzeStmt: unhandled node type %T", s)
		panic("unreachable")
	}
}

func (a *Analyzer) analyzeLet(n *ast.Let) *ir.Let {
	if _, ok := a.scope.Get(n.Name, true); ok {
		a.fail(n.Span, "%s is already defined", n.Name)
	}
	var value ir.Expr
	if n.Value != nil {
		value = a.analyzeExpr(n.Value)
	}
	typ := a.resolveType(n.Type, value, n.Span)
	a.scope.Define(n.Name, typ)
	return &ir.Let{Name: n.Name, Type: typ, Value: value, Span: n.Span}
}

// resolveType resolves an optional declared type name against an
// optional already-analyzed initializer expression: a present
// declared name wins (after checking the initializer is assignable to
// it), otherwise the initializer's own type is inferred, otherwise ANY.
func (a *Analyzer) resolveType(typeName *string, value ir.Expr, sp token.Span) types.Type {
	var declared types.Type
	if typeName != nil {
		t, ok := types.Lookup(*typeName)
		if !ok {
			a.fail(sp, "type %s is not defined", *typeName)
		}
		declared = t
	}
	var inferred types.Type = types.Any
	if value != nil {
		inferred = value.StaticType()
	}
	if declared != nil && value != nil {
		a.requireSubtype(value.StaticType(), declared, sp)
	}
	if declared != nil {
		return declared
	}
	return inferred
}

func (a *Analyzer) analyzeDef(n *ast.Def) *ir.Def {
	if _, ok := a.scope.Get(n.Name, true); ok {
		a.fail(n.Span, "%s is already defined", n.Name)
	}
	seen := make(map[string]bool, len(n.Params))
	for _, p := range n.Params {
		if seen[p.Name] {
			a.fail(n.Span, "parameter names must be unique; %s repeated", p.Name)
		}
		seen[p.Name] = true
	}

	paramTypes := make([]types.Type, len(n.Params))
	for i, p := range n.Params {
		paramTypes[i] = a.resolveType(p.Type, nil, n.Span)
	}
	returnType := a.resolveType(n.ReturnType, nil, n.Span)

	// Declared before the body is analyzed so recursive calls resolve.
	funcType := &types.Function{Parameters: paramTypes, Returns: returnType}
	a.scope.Define(n.Name, funcType)

	outer := a.scope
	a.scope = outer.Child()
	defer func() { a.scope = outer }()
	for i, p := range n.Params {
		a.scope.Define(p.Name, paramTypes[i])
	}
	a.scope.Define(returnsKey, returnType)

	body := make([]ir.Stmt, 0, len(n.Body))
	for _, stmt := range n.Body {
		body = append(body, a.analyzeStmt(stmt))
	}

	params := make([]ir.Param, len(n.Params))
	for i, p := range n.Params {
		params[i] = ir.Param{Name: p.Name, Type: paramTypes[i]}
	}
	return &ir.Def{Name: n.Name, Params: params, ReturnType: returnType, Body: body, Span: n.Span}
}

func (a *Analyzer) analyzeIf(n *ast.If) *ir.If {
	condition := a.analyzeExpr(n.Condition)
	a.requireSubtype(condition.StaticType(), types.Boolean, n.Span)

	outer := a.scope
	defer func() { a.scope = outer }()
	a.scope = outer.Child()
	thenIR := make([]ir.Stmt, 0, len(n.Then))
	for _, stmt := range n.Then {
		thenIR = append(thenIR, a.analyzeStmt(stmt))
	}
	a.scope = outer

	a.scope = outer.Child()
	elseIR := make([]ir.Stmt, 0, len(n.Else))
	for _, stmt := range n.Else {
		elseIR = append(elseIR, a.analyzeStmt(stmt))
	}
	a.scope = outer

	return &ir.If{Condition: condition, Then: thenIR, Else: elseIR, Span: n.Span}
}

func (a *Analyzer) analyzeFor(n *ast.For) *ir.For {
	iterable := a.analyzeExpr(n.Iterable)
	a.requireSubtype(iterable.StaticType(), types.Iterable, n.Span)

	outer := a.scope
	a.scope = outer.Child()
	defer func() { a.scope = outer }()
	a.scope.Define(n.Name, types.Integer)

	body := make([]ir.Stmt, 0, len(n.Body))
	for _, stmt := range n.Body {
		body = append(body, a.analyzeStmt(stmt))
	}
	return &ir.For{Name: n.Name, ElementType: types.Integer, Iterable: iterable, Body: body, Span: n.Span}
}

func (a *Analyzer) analyzeReturn(n *ast.Return) *ir.Return {
	expected, ok := a.scope.Get(returnsKey, false)
	if !ok {
		a.fail(n.Span, "return statement outside of a function")
	}
	var val ir.Expr
	if n.Value != nil {
		val = a.analyzeExpr(n.Value)
	} else {
		val = &ir.Literal{Value: nil, Type: types.Nil, Span: n.Span}
	}
	a.requireSubtype(val.StaticType(), expected, n.Span)
	return &ir.Return{Value: val, Span: n.Span}
}

func (a *Analyzer) analyzeAssignment(n *ast.Assignment) ir.Stmt {
	lhs := a.analyzeExpr(n.Target)
	rhs := a.analyzeExpr(n.Value)

	switch t := n.Target.(type) {
	case *ast.Variable:
		declared, ok := a.scope.Get(t.Name, false)
		if !ok {
			a.fail(n.Span, "cannot assign undeclared variable %s", t.Name)
		}
		a.requireSubtype(rhs.StaticType(), declared, n.Span)
		variable := lhs.(*ir.Variable)
		return &ir.AssignVariable{Name: variable.Name, Type: variable.Type, Value: rhs, Span: n.Span}
	case *ast.Property:
		a.requireSubtype(rhs.StaticType(), lhs.StaticType(), n.Span)
		prop := lhs.(*ir.Property)
		return &ir.AssignProperty{Receiver: prop.Receiver, Name: prop.Name, Type: prop.Type, Value: rhs, Span: n.Span}
	default:
		a.fail(n.Span, "invalid assignment target")
		panic("unreachable")
	}
}

func (a *Analyzer) analyzeExpr(e ast.Expr) ir.Expr {
	switch n := e.(type) {
	case *ast.Literal:
		return a.analyzeLiteral(n)
	case *ast.Group:
		inner := a.analyzeExpr(n.Expr)
		return &ir.Group{Expr: inner, Type: inner.StaticType()}
	case *ast.Binary:
		return a.analyzeBinary(n)
	case *ast.Variable:
		return a.analyzeVariable(n)
	case *ast.Property:
		return a.analyzeProperty(n)
	case *ast.Function:
		return a.analyzeFunction(n)
	case *ast.Method:
		return a.analyzeMethod(n)
	case *ast.ObjectExpr:
		return a.analyzeObjectExpr(n)
	default:
		diag.Assert(false, "analyzeExpr: unhandled node type %T", e)
		panic("unreachable")
	}
}

// analyzeLiteral classifies a literal's Go value into its static type.
// CHARACTER literals (Go rune) have no dedicated type in the lattice —
// they are STRING-typed single-character values, same as the
// reference implementation's Type.STRING, String case; there is no
// separate Character primitive to assign them.
func (a *Analyzer) analyzeLiteral(n *ast.Literal) *ir.Literal {
	var t types.Type
	switch n.Value.(type) {
	case nil:
		t = types.Nil
	case bool:
		t = types.Boolean
	case *big.Int:
		t = types.Integer
	case *value.Decimal:
		t = types.Decimal
	case rune:
		t = types.String
	case string:
		t = types.String
	default:
		diag.Assert(false, "analyzeLiteral: unexpected literal value type %T", n.Value)
	}
	return &ir.Literal{Value: n.Value, Type: t, Span: n.Span}
}

func (a *Analyzer) analyzeBinary(n *ast.Binary) *ir.Binary {
	left := a.analyzeExpr(n.Left)
	right := a.analyzeExpr(n.Right)
	var t types.Type

	switch n.Operator {
	case "+":
		switch {
		case types.Equal(left.StaticType(), types.String) || types.Equal(right.StaticType(), types.String):
			t = types.String
		case types.IsSubtype(left.StaticType(), types.Integer) || types.IsSubtype(left.StaticType(), types.Decimal):
			if !types.Equal(left.StaticType(), right.StaticType()) {
				a.fail(n.Span, "operands of '+' must be the same type")
			}
			t = left.StaticType()
		default:
			a.fail(n.Span, "operands of '+' must be String or numeric")
		}
	case "-", "*", "/":
		if types.IsSubtype(left.StaticType(), types.Integer) || types.IsSubtype(left.StaticType(), types.Decimal) {
			if !types.Equal(left.StaticType(), right.StaticType()) {
				a.fail(n.Span, "operands of '%s' must be the same type", n.Operator)
			}
			t = left.StaticType()
		} else {
			a.fail(n.Span, "operands of '%s' must be numeric", n.Operator)
		}
	case "<", "<=", ">", ">=":
		if !types.IsSubtype(left.StaticType(), types.Comparable) {
			a.fail(n.Span, "left operand of '%s' must be Comparable", n.Operator)
		}
		if !types.Equal(left.StaticType(), right.StaticType()) {
			a.fail(n.Span, "operands of '%s' must be the same type", n.Operator)
		}
		t = types.Boolean
	case "==", "!=":
		if !types.IsSubtype(left.StaticType(), types.Equatable) || !types.IsSubtype(right.StaticType(), types.Equatable) {
			a.fail(n.Span, "operands of '%s' must be Equatable", n.Operator)
		}
		t = types.Boolean
	case "AND", "OR":
		a.requireSubtype(left.StaticType(), types.Boolean, n.Span)
		a.requireSubtype(right.StaticType(), types.Boolean, n.Span)
		t = types.Boolean
	default:
		a.fail(n.Span, "unknown operator: %s", n.Operator)
	}
	return &ir.Binary{Operator: n.Operator, Left: left, Right: right, Type: t, Span: n.Span}
}

func (a *Analyzer) analyzeVariable(n *ast.Variable) *ir.Variable {
	if thisType, ok := a.scope.Get(thisKey, false); ok {
		if obj, ok := thisType.(*types.Object); ok {
			_, isMember := obj.Members.Get(n.Name, true)
			_, isLocal := a.scope.Get(n.Name, true)
			if isMember && !isLocal {
				a.fail(n.Span, "direct field access not allowed for %s, use this.%s", n.Name, n.Name)
			}
		}
	}
	t, ok := a.scope.Get(n.Name, false)
	if !ok {
		a.fail(n.Span, "%s not found in scope", n.Name)
	}
	return &ir.Variable{Name: n.Name, Type: t, Span: n.Span}
}

func (a *Analyzer) analyzeProperty(n *ast.Property) *ir.Property {
	receiver := a.analyzeExpr(n.Receiver)
	obj, ok := receiver.StaticType().(*types.Object)
	if !ok {
		a.fail(n.Span, "receiver is not an object")
	}
	t, ok := obj.Members.Get(n.Name, true)
	if !ok {
		a.fail(n.Span, "property %s not defined in object", n.Name)
	}
	return &ir.Property{Receiver: receiver, Name: n.Name, Type: t, Span: n.Span}
}

// analyzeArguments type-checks a call's arguments against a Function
// type's parameter list. A nil Parameters slice marks a variadic
// stdlib binding (list, function, method): neither the count nor the
// types of its arguments are checked here — see internal/stdlib.
func (a *Analyzer) analyzeArguments(fn *types.Function, astArgs []ast.Expr, subject string, sp token.Span) []ir.Expr {
	variadic := fn.Parameters == nil
	if !variadic && len(astArgs) != len(fn.Parameters) {
		a.fail(sp, "%s expects %d argument(s), got %d", subject, len(fn.Parameters), len(astArgs))
	}
	args := make([]ir.Expr, len(astArgs))
	for i, argAst := range astArgs {
		arg := a.analyzeExpr(argAst)
		if !variadic {
			a.requireSubtype(arg.StaticType(), fn.Parameters[i], sp)
		}
		args[i] = arg
	}
	return args
}

func (a *Analyzer) analyzeFunction(n *ast.Function) *ir.Function {
	t, ok := a.scope.Get(n.Name, false)
	if !ok {
		a.fail(n.Span, "function %s is not defined", n.Name)
	}
	fn, ok := t.(*types.Function)
	if !ok {
		a.fail(n.Span, "%s is not a function", n.Name)
	}
	args := a.analyzeArguments(fn, n.Arguments, n.Name, n.Span)
	return &ir.Function{Name: n.Name, Arguments: args, Type: fn.Returns, Span: n.Span}
}

func (a *Analyzer) analyzeMethod(n *ast.Method) *ir.Method {
	receiver := a.analyzeExpr(n.Receiver)
	obj, ok := receiver.StaticType().(*types.Object)
	if !ok {
		a.fail(n.Span, "receiver is not an object")
	}
	t, ok := obj.Members.Get(n.Name, false)
	if !ok {
		a.fail(n.Span, "method %s is not defined in the object", n.Name)
	}
	fn, ok := t.(*types.Function)
	if !ok {
		a.fail(n.Span, "method %s is not a function", n.Name)
	}
	args := a.analyzeArguments(fn, n.Arguments, "method "+n.Name, n.Span)
	return &ir.Method{Receiver: receiver, Name: n.Name, Arguments: args, Type: fn.Returns, Span: n.Span}
}

func (a *Analyzer) analyzeObjectExpr(n *ast.ObjectExpr) *ir.ObjectExpr {
	if n.Name != nil {
		if _, ok := types.Lookup(*n.Name); ok {
			a.fail(n.Span, "object name %s cannot be a type name", *n.Name)
		}
	}

	objectScope := scope.New[types.Type]()
	typeName := ""
	if n.Name != nil {
		typeName = *n.Name
	}
	objectType := &types.Object{TypeName: typeName, Members: objectScope}

	outer := a.scope
	a.scope = objectScope
	defer func() { a.scope = outer }()

	fields := make([]*ir.Let, 0, len(n.Fields))
	fieldNames := make(map[string]bool, len(n.Fields))
	for _, f := range n.Fields {
		if fieldNames[f.Name] {
			a.fail(f.Span, "field %s is defined more than once", f.Name)
		}
		fieldNames[f.Name] = true
		fields = append(fields, a.analyzeLet(f))
	}

	methodNames := make(map[string]bool, len(n.Methods))
	methodTypes := make([]*types.Function, len(n.Methods))
	for i, m := range n.Methods {
		if fieldNames[m.Name] || methodNames[m.Name] {
			a.fail(m.Span, "method %s conflicts with a field or another method", m.Name)
		}
		methodNames[m.Name] = true
		paramTypes := make([]types.Type, len(m.Params))
		for j, p := range m.Params {
			paramTypes[j] = a.resolveType(p.Type, nil, m.Span)
		}
		rt := a.resolveType(m.ReturnType, nil, m.Span)
		ft := &types.Function{Parameters: paramTypes, Returns: rt}
		methodTypes[i] = ft
		objectScope.Define(m.Name, ft)
	}

	methods := make([]*ir.Def, 0, len(n.Methods))
	for i, m := range n.Methods {
		ft := methodTypes[i]
		methodScope := objectScope.Child()
		methodScope.Define(thisKey, objectType)
		for j, p := range m.Params {
			methodScope.Define(p.Name, ft.Parameters[j])
		}
		methodScope.Define(returnsKey, ft.Returns)

		prevScope := a.scope
		a.scope = methodScope
		body := make([]ir.Stmt, 0, len(m.Body))
		for _, stmt := range m.Body {
			body = append(body, a.analyzeStmt(stmt))
		}
		a.scope = prevScope

		params := make([]ir.Param, len(m.Params))
		for j, p := range m.Params {
			params[j] = ir.Param{Name: p.Name, Type: ft.Parameters[j]}
		}
		methods = append(methods, &ir.Def{Name: m.Name, Params: params, ReturnType: ft.Returns, Body: body, Span: m.Span})
	}

	return &ir.ObjectExpr{ObjectType: objectType, Fields: fields, Methods: methods, Span: n.Span}
}
