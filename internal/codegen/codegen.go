// Package codegen emits LLVM IR text from an analyzed ir.Source. It is
// the Go port of the teacher's codegen.go: the same ctx-with-scope-
// stack walk over a program tree, adapted from a statically-typed
// struct/function language to tawa's dynamically-typed one.
//
// Every tawa runtime value (NIL, BOOLEAN, INTEGER, DECIMAL, STRING,
// ITERABLE, a Function, or an Object) is represented at the LLVM level
// as an opaque %tawa.value* produced and consumed by an external
// runtime (librtawa) that the emitted module must be linked against;
// `tawa build` only writes the .ll text and does not compile or link
// it. codegen's job is to turn the typed tree into a
// sequence of calls into that runtime, not to pick machine
// representations for each tawa type itself.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	tawair "github.com/tawa-lang/tawa/ir"
)

// valueType is the opaque boxed-value type every runtime helper
// trades in.
var valueType = types.NewStruct()

// ctx mirrors the teacher's scope-stack codegen context; here a
// scope only ever holds LLVM values (tawa functions or bound
// parameters/locals), never types, since tawa has no struct-level
// codegen types of its own.
type ctx struct {
	names   []map[string]value.Value
	runtime map[string]*ir.Func
	module  *ir.Module
	strings map[string]value.Value
}

func (c *ctx) pushScope()        { c.names = append(c.names, make(map[string]value.Value)) }
func (c *ctx) popScope()         { c.names = c.names[:len(c.names)-1] }
func (c *ctx) top() map[string]value.Value { return c.names[len(c.names)-1] }

func (c *ctx) define(name string, v value.Value) { c.top()[name] = v }

func (c *ctx) lookup(name string) value.Value {
	for i := len(c.names) - 1; i >= 0; i-- {
		if v, ok := c.names[i][name]; ok {
			return v
		}
	}
	panic("codegen: undefined name " + name)
}

func (c *ctx) assign(name string, v value.Value) {
	for i := len(c.names) - 1; i >= 0; i-- {
		if _, ok := c.names[i][name]; ok {
			c.names[i][name] = v
			return
		}
	}
	panic("codegen: assignment to undefined name " + name)
}

// rt returns the declared extern for a runtime helper, declaring it on
// first use (a poor man's forward-declaration pass, playing the same
// role as the teacher's two-pass codegen() over TopLevels).
func (c *ctx) rt(name string, ret types.Type, params ...types.Type) *ir.Func {
	if fn, ok := c.runtime[name]; ok {
		return fn
	}
	var ps []*ir.Param
	for i, p := range params {
		ps = append(ps, ir.NewParam(fmt.Sprintf("a%d", i), p))
	}
	fn := c.module.NewFunc(name, ret, ps...)
	c.runtime[name] = fn
	return fn
}

func ptrTy() types.Type { return types.NewPointer(valueType) }

// Emit walks src and returns the LLVM module representing it (its
// String method renders the text).
// packageName becomes the module's source filename, matching how the
// teacher's `build` command names the module after Tawa Module
// Information's Package field.
func Emit(src *tawair.Source, packageName string) (m *ir.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok {
				err = fmt.Errorf("codegen: %s", s)
				return
			}
			panic(r)
		}
	}()

	m = ir.NewModule()
	m.SourceFilename = packageName
	valueType.SetName("tawa.value")
	m.NewTypeDef("tawa.value", valueType)

	c := &ctx{
		runtime: make(map[string]*ir.Func),
		module:  m,
		strings: make(map[string]value.Value),
	}
	c.pushScope()

	var defs []*tawair.Def
	var rest []tawair.Stmt
	for _, s := range src.Statements {
		if d, ok := s.(*tawair.Def); ok {
			defs = append(defs, d)
			continue
		}
		rest = append(rest, s)
	}

	// Forward-declare every top-level function first so mutually
	// recursive calls resolve regardless of declaration order, the
	// same two-pass shape as the teacher's codegen().
	for _, d := range defs {
		params := make([]*ir.Param, len(d.Params))
		for i, p := range d.Params {
			params[i] = ir.NewParam(p.Name, ptrTy())
		}
		fn := m.NewFunc(mangle(d.Name), ptrTy(), params...)
		c.define(d.Name, fn)
	}
	for _, d := range defs {
		c.emitDef(d)
	}

	entry := m.NewFunc("_tawa_main", types.Void)
	block := entry.NewBlock("entry")
	for _, s := range rest {
		block = c.emitStmt(s, block)
	}
	if block.Term == nil {
		block.NewRet(nil)
	}

	return m, nil
}

func mangle(name string) string { return "tawa_fn_" + name }

func (c *ctx) emitDef(d *tawair.Def) {
	fn := c.lookup(d.Name).(*ir.Func)
	block := fn.NewBlock("entry")

	c.pushScope()
	for i, p := range d.Params {
		c.define(p.Name, fn.Params[i])
	}
	var last value.Value = c.rtNil(block)
	for _, s := range d.Body {
		var v value.Value
		v, block = c.emitStmtValue(s, block)
		if v != nil {
			last = v
		}
		if block.Term != nil {
			break
		}
	}
	c.popScope()
	if block.Term == nil {
		block.NewRet(last)
	}
}

func (c *ctx) rtNil(b *ir.Block) value.Value {
	fn := c.rt("tawa_rt_nil", ptrTy())
	return b.NewCall(fn)
}

// emitStmt runs a statement purely for effect, discarding its value;
// used for the implicit top-level _tawa_main body.
func (c *ctx) emitStmt(s tawair.Stmt, b *ir.Block) *ir.Block {
	_, b = c.emitStmtValue(s, b)
	return b
}

// emitStmtValue lowers one statement, returning both its value (for
// blocks whose last statement's value the caller wants, mirroring the
// teacher's Block case folding to the final sub-expression's value)
// and the block execution should continue in.
func (c *ctx) emitStmtValue(s tawair.Stmt, b *ir.Block) (value.Value, *ir.Block) {
	switch n := s.(type) {
	case *tawair.Let:
		var v value.Value = c.rtNil(b)
		if n.Value != nil {
			v = c.emitExpr(n.Value, b)
		}
		c.define(n.Name, v)
		return v, b
	case *tawair.Def:
		// Nested DEFs inside a DEF/IF/FOR body are only declared: a
		// parameterless module function with no body is added and bound
		// to the name. Their parameters and bodies are not emitted,
		// unlike top-level DEFs.
		fn := c.module.NewFunc(mangle(n.Name)+"_"+fmt.Sprint(len(c.runtime)), ptrTy())
		c.define(n.Name, fn)
		return fn, b
	case *tawair.If:
		return c.emitIf(n, b)
	case *tawair.For:
		return c.emitFor(n, b)
	case *tawair.Return:
		var v value.Value = c.rtNil(b)
		if n.Value != nil {
			v = c.emitExpr(n.Value, b)
		}
		b.NewRet(v)
		return v, b
	case *tawair.Expression:
		return c.emitExpr(n.Expr, b), b
	case *tawair.AssignVariable:
		v := c.emitExpr(n.Value, b)
		c.assign(n.Name, v)
		return v, b
	case *tawair.AssignProperty:
		receiver := c.emitExpr(n.Receiver, b)
		v := c.emitExpr(n.Value, b)
		setProp := c.rt("tawa_rt_set_property", types.Void, ptrTy(), ptrTy(), ptrTy())
		name := c.constString(n.Name, b)
		b.NewCall(setProp, receiver, name, v)
		return v, b
	default:
		panic(fmt.Sprintf("codegen: unhandled statement %T", s))
	}
}

func (c *ctx) emitIf(n *tawair.If, b *ir.Block) (value.Value, *ir.Block) {
	cond := c.emitExpr(n.Condition, b)
	truthy := c.rt("tawa_rt_truthy", types.I1, ptrTy())
	condBit := b.NewCall(truthy, cond)

	fn := b.Parent
	thenBlock := fn.NewBlock(blockName("then"))
	elseBlock := fn.NewBlock(blockName("else"))
	mergeBlock := fn.NewBlock(blockName("ifcont"))
	b.NewCondBr(condBit, thenBlock, elseBlock)

	c.pushScope()
	thenVal := c.rtNil(thenBlock)
	cur := thenBlock
	for _, s := range n.Then {
		var v value.Value
		v, cur = c.emitStmtValue(s, cur)
		if v != nil {
			thenVal = v
		}
		if cur.Term != nil {
			break
		}
	}
	c.popScope()
	if cur.Term == nil {
		cur.NewBr(mergeBlock)
	}
	thenEnd := cur

	c.pushScope()
	elseVal := c.rtNil(elseBlock)
	cur = elseBlock
	for _, s := range n.Else {
		var v value.Value
		v, cur = c.emitStmtValue(s, cur)
		if v != nil {
			elseVal = v
		}
		if cur.Term != nil {
			break
		}
	}
	c.popScope()
	if cur.Term == nil {
		cur.NewBr(mergeBlock)
	}
	elseEnd := cur

	// A branch that ended in RETURN already terminated with a TermRet
	// and never reached mergeBlock; only branches that fell through to
	// the unconditional Br above contribute an incoming phi value.
	var incoming []*ir.Incoming
	if _, terminatedEarly := thenEnd.Term.(*ir.TermRet); !terminatedEarly {
		incoming = append(incoming, ir.NewIncoming(thenVal, thenEnd))
	}
	if _, terminatedEarly := elseEnd.Term.(*ir.TermRet); !terminatedEarly {
		incoming = append(incoming, ir.NewIncoming(elseVal, elseEnd))
	}
	if len(incoming) == 0 {
		return c.rtNil(mergeBlock), mergeBlock
	}
	phi := mergeBlock.NewPhi(incoming...)
	return phi, mergeBlock
}

func (c *ctx) emitFor(n *tawair.For, b *ir.Block) (value.Value, *ir.Block) {
	iterable := c.emitExpr(n.Iterable, b)
	iterNew := c.rt("tawa_rt_iter_new", ptrTy(), ptrTy())
	iterNext := c.rt("tawa_rt_iter_next", types.I1, ptrTy(), ptrTy())

	iter := b.NewCall(iterNew, iterable)

	fn := b.Parent
	headBlock := fn.NewBlock(blockName("forhead"))
	bodyBlock := fn.NewBlock(blockName("forbody"))
	doneBlock := fn.NewBlock(blockName("fordone"))
	b.NewBr(headBlock)

	itemAlloca := headBlock.NewAlloca(ptrTy())
	hasNext := headBlock.NewCall(iterNext, iter, itemAlloca)
	headBlock.NewCondBr(hasNext, bodyBlock, doneBlock)

	c.pushScope()
	item := bodyBlock.NewLoad(ptrTy(), itemAlloca)
	c.define(n.Name, item)
	cur := bodyBlock
	for _, s := range n.Body {
		_, cur = c.emitStmtValue(s, cur)
		if cur.Term != nil {
			break
		}
	}
	c.popScope()
	if cur.Term == nil {
		cur.NewBr(headBlock)
	}

	return c.rtNil(doneBlock), doneBlock
}

var blockCounter int

func blockName(prefix string) string {
	blockCounter++
	return fmt.Sprintf("%s.%d", prefix, blockCounter)
}

func (c *ctx) constString(s string, b *ir.Block) value.Value {
	if v, ok := c.strings[s]; ok {
		return v
	}
	global := c.module.NewGlobalDef(fmt.Sprintf("str.%d", len(c.strings)), constant.NewCharArrayFromString(s+"\x00"))
	mk := c.rt("tawa_rt_string", ptrTy(), types.NewPointer(types.I8), types.I64)
	casted := b.NewBitCast(global, types.NewPointer(types.I8))
	v := b.NewCall(mk, casted, constant.NewInt(types.I64, int64(len(s))))
	c.strings[s] = v
	return v
}

func (c *ctx) emitExpr(e tawair.Expr, b *ir.Block) value.Value {
	switch n := e.(type) {
	case *tawair.Literal:
		return c.emitLiteral(n.Value, b)
	case *tawair.Group:
		return c.emitExpr(n.Expr, b)
	case *tawair.Binary:
		return c.emitBinary(n, b)
	case *tawair.Variable:
		return c.lookup(n.Name)
	case *tawair.Property:
		receiver := c.emitExpr(n.Receiver, b)
		get := c.rt("tawa_rt_get_property", ptrTy(), ptrTy(), ptrTy())
		name := c.constString(n.Name, b)
		return b.NewCall(get, receiver, name)
	case *tawair.Function:
		return c.emitCall(n.Name, n.Arguments, b)
	case *tawair.Method:
		receiver := c.emitExpr(n.Receiver, b)
		get := c.rt("tawa_rt_get_property", ptrTy(), ptrTy(), ptrTy())
		name := c.constString(n.Name, b)
		fn := b.NewCall(get, receiver, name)
		args := []value.Value{receiver}
		for _, a := range n.Arguments {
			args = append(args, c.emitExpr(a, b))
		}
		call := c.rt("tawa_rt_call", ptrTy(), ptrTy(), types.NewPointer(ptrTy()), types.I64)
		return c.emitDynamicCall(call, fn, args, b)
	case *tawair.ObjectExpr:
		return c.emitObjectExpr(n, b)
	default:
		panic(fmt.Sprintf("codegen: unhandled expression %T", e))
	}
}

func (c *ctx) emitLiteral(v interface{}, b *ir.Block) value.Value {
	switch vv := v.(type) {
	case nil:
		return c.rtNil(b)
	case bool:
		mk := c.rt("tawa_rt_bool", ptrTy(), types.I1)
		lit := constant.False
		if vv {
			lit = constant.True
		}
		return b.NewCall(mk, lit)
	case string:
		return c.constString(vv, b)
	case rune:
		return c.constString(string(vv), b)
	default:
		// Integer and Decimal literals are handed to the runtime as
		// their decimal-text spelling: the runtime owns big-integer
		// and fixed-point arithmetic, so codegen never needs to bit-
		// pack arbitrary precision values itself.
		mk := c.rt("tawa_rt_number", ptrTy(), types.NewPointer(types.I8), types.I64)
		text := fmt.Sprintf("%v", vv)
		str := c.constString(text, b)
		asText := c.rt("tawa_rt_string_bytes", types.NewPointer(types.I8), ptrTy())
		ptr := b.NewCall(asText, str)
		return b.NewCall(mk, ptr, constant.NewInt(types.I64, int64(len(text))))
	}
}

var binaryRuntimeOp = map[string]string{
	"+": "tawa_rt_add", "-": "tawa_rt_sub", "*": "tawa_rt_mul", "/": "tawa_rt_div",
	"==": "tawa_rt_eq", "!=": "tawa_rt_ne",
	"<": "tawa_rt_lt", "<=": "tawa_rt_le", ">": "tawa_rt_gt", ">=": "tawa_rt_ge",
}

func (c *ctx) emitBinary(n *tawair.Binary, b *ir.Block) value.Value {
	if n.Operator == "AND" || n.Operator == "OR" {
		return c.emitShortCircuit(n, b)
	}
	name, ok := binaryRuntimeOp[n.Operator]
	if !ok {
		panic("codegen: unknown binary operator " + n.Operator)
	}
	left := c.emitExpr(n.Left, b)
	right := c.emitExpr(n.Right, b)
	fn := c.rt(name, ptrTy(), ptrTy(), ptrTy())
	return b.NewCall(fn, left, right)
}

func (c *ctx) emitShortCircuit(n *tawair.Binary, b *ir.Block) value.Value {
	truthy := c.rt("tawa_rt_truthy", types.I1, ptrTy())
	left := c.emitExpr(n.Left, b)
	leftBit := b.NewCall(truthy, left)

	fn := b.Parent
	rhsBlock := fn.NewBlock(blockName("shortcircuit.rhs"))
	mergeBlock := fn.NewBlock(blockName("shortcircuit.merge"))

	shortCircuitsOn := n.Operator == "OR"
	var thenBlock, elseBlock *ir.Block
	if shortCircuitsOn {
		thenBlock, elseBlock = mergeBlock, rhsBlock
	} else {
		thenBlock, elseBlock = rhsBlock, mergeBlock
	}
	b.NewCondBr(leftBit, thenBlock, elseBlock)

	right := c.emitExpr(n.Right, rhsBlock)
	rhsBlock.NewBr(mergeBlock)

	mk := c.rt("tawa_rt_bool", ptrTy(), types.I1)
	shortCircuitLit := constant.False
	if shortCircuitsOn {
		shortCircuitLit = constant.True
	}
	phi := mergeBlock.NewPhi(
		ir.NewIncoming(b.NewCall(mk, shortCircuitLit), b),
		ir.NewIncoming(right, rhsBlock),
	)
	return phi
}

func (c *ctx) emitCall(name string, args []tawair.Expr, b *ir.Block) value.Value {
	callee := c.lookup(name)
	var vals []value.Value
	for _, a := range args {
		vals = append(vals, c.emitExpr(a, b))
	}
	if fn, ok := callee.(*ir.Func); ok && len(fn.Params) == len(vals) {
		return b.NewCall(fn, vals...)
	}
	call := c.rt("tawa_rt_call", ptrTy(), ptrTy(), types.NewPointer(ptrTy()), types.I64)
	return c.emitDynamicCall(call, callee, vals, b)
}

// emitDynamicCall routes a call through the runtime's variadic
// invocation helper when the callee's static arity is not known at
// codegen time (builtins like list/function/method are variadic; see
// internal/stdlib), packing arguments onto the stack the same way the
// reference Environment builtins accept a Java varargs array.
func (c *ctx) emitDynamicCall(rt *ir.Func, callee value.Value, args []value.Value, b *ir.Block) value.Value {
	arrType := types.NewArray(uint64(len(args)), ptrTy())
	arr := b.NewAlloca(arrType)
	for i, a := range args {
		idx := constant.NewInt(types.I32, int64(i))
		gep := b.NewGetElementPtr(arrType, arr, constant.NewInt(types.I32, 0), idx)
		b.NewStore(a, gep)
	}
	first := b.NewGetElementPtr(arrType, arr, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	return b.NewCall(rt, callee, first, constant.NewInt(types.I64, int64(len(args))))
}

func (c *ctx) emitObjectExpr(n *tawair.ObjectExpr, b *ir.Block) value.Value {
	newObj := c.rt("tawa_rt_object_new", ptrTy(), types.NewPointer(types.I8))
	typeName := n.ObjectType.TypeName
	if typeName == "" {
		typeName = "Object"
	}
	nameStr := c.constString(typeName, b)
	asText := c.rt("tawa_rt_string_bytes", types.NewPointer(types.I8), ptrTy())
	namePtr := b.NewCall(asText, nameStr)
	obj := b.NewCall(newObj, namePtr)

	setProp := c.rt("tawa_rt_set_property", types.Void, ptrTy(), ptrTy(), ptrTy())
	for _, f := range n.Fields {
		var v value.Value = c.rtNil(b)
		if f.Value != nil {
			v = c.emitExpr(f.Value, b)
		}
		fname := c.constString(f.Name, b)
		b.NewCall(setProp, obj, fname, v)
	}
	for _, m := range n.Methods {
		fn := c.module.NewFunc(mangle(typeName+"_"+m.Name)+"_"+fmt.Sprint(len(c.runtime)), ptrTy(), ir.NewParam("this", ptrTy()))
		mname := c.constString(m.Name, b)
		b.NewCall(setProp, obj, mname, fn)
	}
	return obj
}
