package parser

import (
	"math/big"
	"testing"

	"github.com/tawa-lang/tawa/ast"
	"github.com/tawa-lang/tawa/lexer"
)

func mustParse(t *testing.T, src string) *ast.Source {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): unexpected error: %v", src, err)
	}
	out, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return out
}

func mustFailParse(t *testing.T, src string) {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): unexpected error: %v", src, err)
	}
	if _, err := Parse(toks); err == nil {
		t.Fatalf("Parse(%q): expected a ParseError", src)
	}
}

func TestParseLetStmt(t *testing.T) {
	src := mustParse(t, `LET x: Integer = 1;`)
	if len(src.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(src.Statements))
	}
	let, ok := src.Statements[0].(*ast.Let)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Let", src.Statements[0])
	}
	if let.Name != "x" || let.Type == nil || *let.Type != "Integer" {
		t.Fatalf("let = %+v", let)
	}
	lit, ok := let.Value.(*ast.Literal)
	if !ok {
		t.Fatalf("let.Value = %T, want *ast.Literal", let.Value)
	}
	bi, ok := lit.Value.(*big.Int)
	if !ok || bi.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("let.Value = %#v, want big.Int(1)", lit.Value)
	}
}

func TestParseLetStmtNoInitializer(t *testing.T) {
	src := mustParse(t, `LET x;`)
	let := src.Statements[0].(*ast.Let)
	if let.Value != nil {
		t.Fatalf("let.Value = %#v, want nil", let.Value)
	}
}

func TestParseDefStmt(t *testing.T) {
	src := mustParse(t, `
		DEF add(x: Integer, y: Integer): Integer DO
			RETURN x + y;
		END
	`)
	def, ok := src.Statements[0].(*ast.Def)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Def", src.Statements[0])
	}
	if def.Name != "add" || len(def.Params) != 2 {
		t.Fatalf("def = %+v", def)
	}
	if def.Params[0].Name != "x" || *def.Params[0].Type != "Integer" {
		t.Fatalf("param[0] = %+v", def.Params[0])
	}
	if def.ReturnType == nil || *def.ReturnType != "Integer" {
		t.Fatalf("def.ReturnType = %v", def.ReturnType)
	}
	if len(def.Body) != 1 {
		t.Fatalf("def.Body = %+v", def.Body)
	}
	ret, ok := def.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.Return", def.Body[0])
	}
	bin, ok := ret.Value.(*ast.Binary)
	if !ok || bin.Operator != "+" {
		t.Fatalf("ret.Value = %#v", ret.Value)
	}
}

func TestParseIfElse(t *testing.T) {
	src := mustParse(t, `
		IF TRUE DO
			RETURN 1;
		ELSE
			RETURN 2;
		END
	`)
	ifStmt, ok := src.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("statement = %T, want *ast.If", src.Statements[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("if = %+v", ifStmt)
	}
}

func TestParseForStmt(t *testing.T) {
	src := mustParse(t, `
		FOR x IN list(1, 2, 3) DO
			RETURN x;
		END
	`)
	forStmt, ok := src.Statements[0].(*ast.For)
	if !ok {
		t.Fatalf("statement = %T, want *ast.For", src.Statements[0])
	}
	if forStmt.Name != "x" {
		t.Fatalf("for.Name = %q", forStmt.Name)
	}
	fn, ok := forStmt.Iterable.(*ast.Function)
	if !ok || fn.Name != "list" || len(fn.Arguments) != 3 {
		t.Fatalf("for.Iterable = %#v", forStmt.Iterable)
	}
}

func TestParseAssignment(t *testing.T) {
	src := mustParse(t, `x = 1;`)
	assign, ok := src.Statements[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Assignment", src.Statements[0])
	}
	if _, ok := assign.Target.(*ast.Variable); !ok {
		t.Fatalf("assign.Target = %#v", assign.Target)
	}
}

func TestParsePropertyAssignment(t *testing.T) {
	src := mustParse(t, `x.field = 1;`)
	assign := src.Statements[0].(*ast.Assignment)
	prop, ok := assign.Target.(*ast.Property)
	if !ok || prop.Name != "field" {
		t.Fatalf("assign.Target = %#v", assign.Target)
	}
}

func TestParseComparisonOperatorsLongestFirst(t *testing.T) {
	cases := []string{"<=", ">=", "==", "!=", "<", ">"}
	for _, op := range cases {
		src := mustParse(t, "1 "+op+" 2;")
		expr := src.Statements[0].(*ast.Expression)
		bin, ok := expr.Expr.(*ast.Binary)
		if !ok || bin.Operator != op {
			t.Fatalf("op %q: expr = %#v", op, expr.Expr)
		}
	}
}

func TestParseLogicalAndArithmeticPrecedence(t *testing.T) {
	src := mustParse(t, `1 + 2 * 3 == 7 AND TRUE;`)
	expr := src.Statements[0].(*ast.Expression).Expr
	top, ok := expr.(*ast.Binary)
	if !ok || top.Operator != "AND" {
		t.Fatalf("top = %#v, want AND", expr)
	}
	eq, ok := top.Left.(*ast.Binary)
	if !ok || eq.Operator != "==" {
		t.Fatalf("top.Left = %#v, want ==", top.Left)
	}
	add, ok := eq.Left.(*ast.Binary)
	if !ok || add.Operator != "+" {
		t.Fatalf("eq.Left = %#v, want +", eq.Left)
	}
	mul, ok := add.Right.(*ast.Binary)
	if !ok || mul.Operator != "*" {
		t.Fatalf("add.Right = %#v, want *", add.Right)
	}
}

func TestParseMethodAndPropertyChain(t *testing.T) {
	src := mustParse(t, `x.foo().bar;`)
	expr := src.Statements[0].(*ast.Expression).Expr
	prop, ok := expr.(*ast.Property)
	if !ok || prop.Name != "bar" {
		t.Fatalf("expr = %#v, want trailing .bar property", expr)
	}
	method, ok := prop.Receiver.(*ast.Method)
	if !ok || method.Name != "foo" {
		t.Fatalf("prop.Receiver = %#v, want .foo() method", prop.Receiver)
	}
}

func TestParseObjectExprNamedAndAnonymous(t *testing.T) {
	src := mustParse(t, `
		OBJECT Point DO
			LET x: Integer = 0;
			LET y: Integer = 0;
			DEF sum(): Integer DO
				RETURN x + y;
			END
		END;
	`)
	obj, ok := src.Statements[0].(*ast.Expression).Expr.(*ast.ObjectExpr)
	if !ok {
		t.Fatalf("expr = %#v, want *ast.ObjectExpr", src.Statements[0])
	}
	if obj.Name == nil || *obj.Name != "Point" {
		t.Fatalf("obj.Name = %v", obj.Name)
	}
	if len(obj.Fields) != 2 || len(obj.Methods) != 1 {
		t.Fatalf("obj = %+v", obj)
	}

	anon := mustParse(t, `OBJECT DO END;`)
	obj2 := anon.Statements[0].(*ast.Expression).Expr.(*ast.ObjectExpr)
	if obj2.Name != nil {
		t.Fatalf("obj2.Name = %v, want nil", obj2.Name)
	}
}

func TestParseGroupExpr(t *testing.T) {
	src := mustParse(t, `(1 + 2) * 3;`)
	expr := src.Statements[0].(*ast.Expression).Expr
	mul := expr.(*ast.Binary)
	if mul.Operator != "*" {
		t.Fatalf("expr = %#v", expr)
	}
	if _, ok := mul.Left.(*ast.Group); !ok {
		t.Fatalf("mul.Left = %#v, want *ast.Group", mul.Left)
	}
}

func TestParseCharacterAndStringEscapes(t *testing.T) {
	src := mustParse(t, `'\n'; "a\tb";`)
	char := src.Statements[0].(*ast.Expression).Expr.(*ast.Literal)
	if char.Value.(rune) != '\n' {
		t.Fatalf("char literal = %#v", char.Value)
	}
	str := src.Statements[1].(*ast.Expression).Expr.(*ast.Literal)
	if str.Value.(string) != "a\tb" {
		t.Fatalf("string literal = %q", str.Value)
	}
}

func TestParseIntegerWithExponent(t *testing.T) {
	src := mustParse(t, `1e2;`)
	lit := src.Statements[0].(*ast.Expression).Expr.(*ast.Literal)
	bi, ok := lit.Value.(*big.Int)
	if !ok || bi.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("literal = %#v, want big.Int(100)", lit.Value)
	}
}

func TestParseInvalidSyntaxFails(t *testing.T) {
	mustFailParse(t, `LET x = 1`) // missing semicolon
	mustFailParse(t, `DEF f() DO RETURN 1;`) // missing END
	mustFailParse(t, `IF TRUE RETURN 1; END`) // missing DO
}
