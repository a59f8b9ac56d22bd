// Package types implements the static type algebra used by the
// analyzer: the primitive lattice, function and object types, and the
// subtyping relation between them. It is the Go port of the reference
// implementation's sealed Type hierarchy (Analyzer/Type.java).
package types

import "github.com/tawa-lang/tawa/scope"

// Type is the sum of primitive, function, and object types.
type Type interface {
	isType()
	// Name is the declared-type-name spelling used in diagnostics and
	// in TYPES lookups (e.g. "Integer", "Function", "Object").
	Name() string
}

// Primitive is one of the built-in atomic or abstract types forming
// the subtype lattice described in the spec: ANY at the top,
// EQUATABLE and COMPARABLE as abstract middle tiers, and the concrete
// leaves NIL, BOOLEAN, INTEGER, DECIMAL, STRING, ITERABLE.
type Primitive string

const (
	Any        Primitive = "Any"
	Equatable  Primitive = "Equatable"
	Comparable Primitive = "Comparable"
	Iterable   Primitive = "Iterable"
	Nil        Primitive = "Nil"
	Boolean    Primitive = "Boolean"
	Integer    Primitive = "Integer"
	Decimal    Primitive = "Decimal"
	String     Primitive = "String"
)

func (p Primitive) isType()     {}
func (p Primitive) Name() string { return string(p) }

// Function is the type of a callable value: an ordered parameter-type
// list and a return type.
type Function struct {
	Parameters []Type
	Returns    Type
}

func (*Function) isType()     {}
func (*Function) Name() string { return "Function" }

// Object is the type of an object value, carrying the static types of
// its fields and methods in a scope so property/method lookups can be
// type-checked the same way variable lookups are.
type Object struct {
	// TypeName is the object's declared name, or "" for an anonymous
	// object literal.
	TypeName string
	Members  *scope.Scope[Type]
}

func (*Object) isType() {}
func (o *Object) Name() string {
	if o.TypeName != "" {
		return o.TypeName
	}
	return "Object"
}

// Equal reports structural equality: Primitives compare by name,
// Functions compare parameter-and-return lists recursively (so two
// independently-built Functions with the same shape are equal, as
// Java record equality would give them), and Objects compare by
// identity (an object type is only ever equal to itself).
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av == bv
	case *Function:
		bv, ok := b.(*Function)
		if !ok || len(av.Parameters) != len(bv.Parameters) {
			return false
		}
		for i := range av.Parameters {
			if !Equal(av.Parameters[i], bv.Parameters[i]) {
				return false
			}
		}
		return Equal(av.Returns, bv.Returns)
	case *Object:
		return a == b
	default:
		return false
	}
}

// IsSubtype reports whether sub is assignable where super is expected,
// per the spec's subtyping rules:
//
//	ANY is a supertype of everything.
//	EQUATABLE is a supertype of NIL, ITERABLE, and COMPARABLE's subtypes.
//	COMPARABLE is a supertype of BOOLEAN, INTEGER, DECIMAL, STRING.
//	Function and Object types are subtypes only of themselves and ANY;
//	no structural or covariant function subtyping is defined.
func IsSubtype(sub, super Type) bool {
	if super == Any {
		return true
	}
	if Equal(sub, super) {
		return true
	}
	if superPrim, ok := super.(Primitive); ok {
		switch superPrim {
		case Equatable:
			if sub == Nil || sub == Iterable {
				return true
			}
			return IsSubtype(sub, Comparable)
		case Comparable:
			if sub == Boolean || sub == Integer || sub == Decimal || sub == String {
				return true
			}
		}
	}
	return false
}

// TYPES is the process-wide registry mapping declared type-name
// spellings (as they appear after a ':' in source) to their Type,
// mirroring the reference implementation's static Environment.TYPES
// map. Named ObjectExpr literals are never added to it: an object's
// name is only a label and cannot be used as a declared type name.
var TYPES = map[string]Type{
	"Any":        Any,
	"Equatable":  Equatable,
	"Comparable": Comparable,
	"Iterable":   Iterable,
	"Nil":        Nil,
	"Boolean":    Boolean,
	"Integer":    Integer,
	"Decimal":    Decimal,
	"String":     String,
}

// Lookup resolves a declared type name, reporting whether it is known.
func Lookup(name string) (Type, bool) {
	t, ok := TYPES[name]
	return t, ok
}
