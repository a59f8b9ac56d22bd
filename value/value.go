// Package value implements the runtime value representation produced
// and consumed by the evaluator: the Go port of the reference
// implementation's sealed RuntimeValue hierarchy (Evaluator/
// RuntimeValue.java equivalent, folded into Environment.java).
package value

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tawa-lang/tawa/scope"
)

// Value is the sum of runtime value kinds: Primitive, Function, and
// ObjectValue.
type Value interface {
	isValue()
	// Print renders v the way the print/log builtins render their
	// argument: unquoted strings and characters, "NIL" for the absence
	// of a value, and a best-effort summary for objects.
	Print() string
}

// Primitive wraps one of: nil, bool, *big.Int, *Decimal, rune, string,
// or []Value (the runtime form of an ITERABLE list).
type Primitive struct {
	Value interface{}
}

func (Primitive) isValue() {}

func (p Primitive) Print() string {
	switch v := p.Value.(type) {
	case nil:
		return "NIL"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case *big.Int:
		return v.String()
	case *Decimal:
		return v.String()
	case rune:
		return string(v)
	case string:
		return v
	case []Value:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = e.Print()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Function is a callable runtime value: a name for diagnostics and a
// Go closure implementing its behavior. User-defined DEF statements
// and built-in stdlib bindings share this representation.
type Function struct {
	Name string
	Call func(args []Value) (Value, *Return, error)
}

func (*Function) isValue() {}

func (f *Function) Print() string {
	return fmt.Sprintf("Function<%s>", f.Name)
}

// ObjectValue is a runtime object: an optional type name and a scope
// holding its field and method bindings.
type ObjectValue struct {
	TypeName string
	Members  *scope.Scope[Value]
}

func (*ObjectValue) isValue() {}

func (o *ObjectValue) Print() string {
	name := o.TypeName
	if name == "" {
		name = "Object"
	}
	return fmt.Sprintf("<%s>", name)
}

// Return is a non-local control-transfer signal threaded back up
// through statement execution as a distinguished second return value,
// per the spec's design notes (never implemented via panic/recover,
// which is reserved for fatal per-stage errors).
type Return struct {
	Value Value
}

// NilValue is the canonical NIL runtime value.
var NilValue = Primitive{Value: nil}

// Bool wraps a Go bool as a Primitive.
func Bool(b bool) Primitive { return Primitive{Value: b} }

// Int wraps a *big.Int as a Primitive.
func Int(i *big.Int) Primitive { return Primitive{Value: i} }

// Str wraps a Go string as a Primitive.
func Str(s string) Primitive { return Primitive{Value: s} }

// Char wraps a rune as a Primitive.
func Char(r rune) Primitive { return Primitive{Value: r} }

// List wraps a slice of Values as a Primitive ITERABLE.
func List(vs []Value) Primitive { return Primitive{Value: vs} }

// Truthy reports whether v is the BOOLEAN true; callers that need
// to branch on a condition expression's value call this after
// confirming the static type was BOOLEAN.
func Truthy(v Value) bool {
	p, ok := v.(Primitive)
	if !ok {
		return false
	}
	b, ok := p.Value.(bool)
	return ok && b
}
