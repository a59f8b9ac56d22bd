// Package stdlib builds the root scopes the analyzer and evaluator
// start from: the built-in name bindings available to every program
// without an explicit LET or DEF. It is the Go port of the reference
// implementation's Environment.scope(), split into a typed half (for
// the analyzer) and a runtime half (for the evaluator), one for each
// instantiation of the generic scope.Scope[T].
package stdlib

import (
	"fmt"
	"math/big"

	"github.com/tawa-lang/tawa/scope"
	"github.com/tawa-lang/tawa/types"
	"github.com/tawa-lang/tawa/value"
)

// Types builds the analyzer's root scope: a Type for every binding
// Values installs. list, function, and method accept a variable
// number of arguments, which the fixed-arity types.Function shape
// cannot express; a nil Parameters slice marks such a binding so the
// analyzer skips arity checking for it (see analyzer.analyzeArguments).
// Their runtime halves do not check the argument count either, matching
// how Environment's list/function/method never validate their argument
// list.
func Types() *scope.Scope[types.Type] {
	sc := scope.New[types.Type]()
	sc.Define("print", &types.Function{Parameters: []types.Type{types.Any}, Returns: types.Nil})
	sc.Define("log", &types.Function{Parameters: []types.Type{types.Any}, Returns: types.Any})
	sc.Define("list", &types.Function{Parameters: nil, Returns: types.Iterable})
	sc.Define("range", &types.Function{Parameters: []types.Type{types.Integer, types.Integer}, Returns: types.Iterable})
	sc.Define("variable", types.String)
	sc.Define("function", &types.Function{Parameters: nil, Returns: types.Iterable})

	objectMembers := scope.New[types.Type]()
	sc.Define("object", &types.Object{TypeName: "Object", Members: objectMembers})
	objectMembers.Define("property", types.String)
	objectMembers.Define("method", &types.Function{Parameters: nil, Returns: types.Iterable})

	return sc
}

// Values builds the evaluator's root scope with the runtime
// counterpart of every Types() binding.
func Values() *scope.Scope[value.Value] {
	sc := scope.New[value.Value]()
	sc.Define("print", &value.Function{Name: "print", Call: biPrint})
	sc.Define("log", &value.Function{Name: "log", Call: biLog})
	sc.Define("list", &value.Function{Name: "list", Call: biList})
	sc.Define("range", &value.Function{Name: "range", Call: biRange})
	sc.Define("variable", value.Str("variable"))
	sc.Define("function", &value.Function{Name: "function", Call: biFunction})

	objectMembers := scope.New[value.Value]()
	sc.Define("object", &value.ObjectValue{TypeName: "Object", Members: objectMembers})
	objectMembers.Define("property", value.Str("property"))
	objectMembers.Define("method", &value.Function{Name: "method", Call: biMethod})

	return sc
}

func biPrint(args []value.Value) (value.Value, *value.Return, error) {
	if len(args) != 1 {
		return nil, nil, fmt.Errorf("expected print to be called with 1 argument")
	}
	fmt.Println(args[0].Print())
	return value.NilValue, nil, nil
}

func biLog(args []value.Value) (value.Value, *value.Return, error) {
	if len(args) != 1 {
		return nil, nil, fmt.Errorf("expected log to be called with 1 argument")
	}
	fmt.Println("log: " + args[0].Print())
	return args[0], nil, nil
}

func biList(args []value.Value) (value.Value, *value.Return, error) {
	return value.List(args), nil, nil
}

func biRange(args []value.Value) (value.Value, *value.Return, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("expected range to be called with 2 arguments")
	}
	lo, err := requireInt(args[0])
	if err != nil {
		return nil, nil, err
	}
	hi, err := requireInt(args[1])
	if err != nil {
		return nil, nil, err
	}
	if hi.Cmp(lo) < 0 {
		return nil, nil, fmt.Errorf("invalid range bounds: %s is greater than %s", lo, hi)
	}
	var out []value.Value
	for i := new(big.Int).Set(lo); i.Cmp(hi) < 0; i.Add(i, big.NewInt(1)) {
		out = append(out, value.Int(new(big.Int).Set(i)))
	}
	return value.List(out), nil, nil
}

func biFunction(args []value.Value) (value.Value, *value.Return, error) {
	return value.List(args), nil, nil
}

func biMethod(args []value.Value) (value.Value, *value.Return, error) {
	rest := args
	if len(rest) > 0 {
		rest = rest[1:]
	}
	return value.List(rest), nil, nil
}

func requireInt(v value.Value) (*big.Int, error) {
	p, ok := v.(value.Primitive)
	if ok {
		if i, ok := p.Value.(*big.Int); ok {
			return i, nil
		}
	}
	return nil, fmt.Errorf("expected an Integer, got %s", v.Print())
}
