// Package parser implements the second pipeline stage: recursive
// descent over a token.Token slice producing an ast.Source. Each
// grammar rule has a dedicated function; precedence is encoded in the
// call chain parseExpr -> logical -> comparison -> additive ->
// multiplicative -> secondary -> primary, exactly as laid out in the
// reference implementation's Parser.
package parser

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/tawa-lang/tawa/ast"
	"github.com/tawa-lang/tawa/internal/diag"
	"github.com/tawa-lang/tawa/token"
	"github.com/tawa-lang/tawa/value"
)

// Parser turns a token slice into an ast.Source.
type Parser struct {
	tokens *tokenStream
}

// New creates a Parser over the given tokens.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: newTokenStream(tokens)}
}

// Parse parses an already-lexed token slice in one call.
func Parse(tokens []token.Token) (*ast.Source, error) {
	return New(tokens).Parse()
}

// Parse consumes every token, returning the parsed source or the first
// ParseError encountered. Like the Lexer, parse failures are raised as
// panics internally and converted at this boundary; genuine internal
// bugs (AssertionFailure) are allowed to propagate and crash the
// process rather than being reported as user-facing syntax errors.
func (p *Parser) Parse() (src *ast.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*diag.ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	var statements []ast.Stmt
	for p.tokens.has(0) {
		statements = append(statements, p.parseStmt())
	}
	return &ast.Source{Statements: statements}, nil
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.tokens.peek("LET"):
		return p.parseLetStmt()
	case p.tokens.peek("DEF"):
		return p.parseDefStmt()
	case p.tokens.peek("IF"):
		return p.parseIfStmt()
	case p.tokens.peek("FOR"):
		return p.parseForStmt()
	case p.tokens.peek("RETURN"):
		return p.parseReturnStmt()
	default:
		return p.parseExpressionOrAssignmentStmt()
	}
}

func (p *Parser) parseLetStmt() *ast.Let {
	start := p.tokens.get(0)
	p.checkMacro("LET")
	name := p.getIdentifier()
	typeName := p.parseOptionalTypeName()
	var val ast.Expr
	if p.tokens.match("=") {
		val = p.parseExpr()
	}
	end := p.checkSemicolon()
	return &ast.Let{Name: name, Type: typeName, Value: val, Span: span(start, end)}
}

func (p *Parser) parseDefStmt() *ast.Def {
	start := p.tokens.get(0)
	p.checkMacro("DEF")
	name := p.getIdentifier()
	params := p.parseParamList()
	returnType := p.parseOptionalTypeName()

	p.checkMacro("DO")
	var body []ast.Stmt
	for !p.tokens.peek("END") {
		if !p.tokens.has(0) {
			p.fail("expected END to close DEF body")
		}
		body = append(body, p.parseStmt())
	}
	end := p.tokens.get(0)
	p.checkMacro("END")

	return &ast.Def{Name: name, Params: params, ReturnType: returnType, Body: body, Span: span(start, end)}
}

func (p *Parser) parseIfStmt() *ast.If {
	start := p.tokens.get(0)
	p.checkMacro("IF")
	condition := p.parseExpr()
	p.checkMacro("DO")

	var thenBody, elseBody []ast.Stmt
	for !p.tokens.peek("ELSE") && !p.tokens.peek("END") {
		if !p.tokens.has(0) {
			p.fail("expected END or ELSE to close IF body")
		}
		thenBody = append(thenBody, p.parseStmt())
	}
	if p.tokens.match("ELSE") {
		for !p.tokens.peek("END") {
			if !p.tokens.has(0) {
				p.fail("expected END to close ELSE body")
			}
			elseBody = append(elseBody, p.parseStmt())
		}
	}
	end := p.tokens.get(0)
	p.checkMacro("END")
	return &ast.If{Condition: condition, Then: thenBody, Else: elseBody, Span: span(start, end)}
}

func (p *Parser) parseForStmt() *ast.For {
	start := p.tokens.get(0)
	p.checkMacro("FOR")
	name := p.getIdentifier()
	p.checkMacro("IN")
	iterable := p.parseExpr()
	p.checkMacro("DO")

	var body []ast.Stmt
	for !p.tokens.peek("END") {
		if !p.tokens.has(0) {
			p.fail("expected END to close FOR body")
		}
		body = append(body, p.parseStmt())
	}
	end := p.tokens.get(0)
	p.checkMacro("END")

	return &ast.For{Name: name, Iterable: iterable, Body: body, Span: span(start, end)}
}

func (p *Parser) parseReturnStmt() *ast.Return {
	start := p.tokens.get(0)
	p.checkMacro("RETURN")
	var val ast.Expr
	if !p.tokens.peek(";") {
		if !p.tokens.has(0) {
			p.fail("expected an expression or ';' after RETURN")
		}
		val = p.parseExpr()
	}
	end := p.checkSemicolon()
	return &ast.Return{Value: val, Span: span(start, end)}
}

func (p *Parser) parseExpressionOrAssignmentStmt() ast.Stmt {
	start := p.tokens.get(0)
	expr := p.parseExpr()
	if p.tokens.match("=") {
		val := p.parseExpr()
		end := p.checkSemicolon()
		return &ast.Assignment{Target: expr, Value: val, Span: span(start, end)}
	}
	p.checkSemicolon()
	return &ast.Expression{Expr: expr}
}

// parseExpr is the grammar entry point; AND/OR bind loosest.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseLogicalExpr()
}

func (p *Parser) parseLogicalExpr() ast.Expr {
	expr := p.parseComparisonExpr()
	for p.tokens.peek("AND") || p.tokens.peek("OR") {
		op := "AND"
		if p.tokens.peek("OR") {
			op = "OR"
		}
		opTok := p.tokens.get(0)
		p.tokens.match(op)
		if !p.tokens.has(0) {
			p.fail("expected an expression after " + op)
		}
		right := p.parseComparisonExpr()
		expr = &ast.Binary{Operator: op, Left: expr, Right: right, Span: opTok.Span}
	}
	return expr
}

// comparisonOperators is probed longest-first so that e.g. "<=" is
// never mistakenly split into "<" followed by "=".
var comparisonOperators = []string{"<=", ">=", "==", "!=", "<", ">"}

func (p *Parser) parseComparisonExpr() ast.Expr {
	expr := p.parseAdditiveExpr()
	for {
		op := ""
		for _, candidate := range comparisonOperators {
			if p.tokens.peek(candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			break
		}
		opTok := p.tokens.get(0)
		p.tokens.match(op)
		if !p.tokens.has(0) {
			p.fail("expected an expression after " + op)
		}
		right := p.parseAdditiveExpr()
		expr = &ast.Binary{Operator: op, Left: expr, Right: right, Span: opTok.Span}
	}
	return expr
}

func (p *Parser) parseAdditiveExpr() ast.Expr {
	expr := p.parseMultiplicativeExpr()
	for p.tokens.peek("+") || p.tokens.peek("-") {
		op := "+"
		if p.tokens.peek("-") {
			op = "-"
		}
		opTok := p.tokens.get(0)
		p.tokens.match(op)
		if !p.tokens.has(0) {
			p.fail("expected an expression after " + op)
		}
		right := p.parseMultiplicativeExpr()
		expr = &ast.Binary{Operator: op, Left: expr, Right: right, Span: opTok.Span}
	}
	return expr
}

func (p *Parser) parseMultiplicativeExpr() ast.Expr {
	expr := p.parseSecondaryExpr()
	for p.tokens.peek("*") || p.tokens.peek("/") {
		op := "*"
		if p.tokens.peek("/") {
			op = "/"
		}
		opTok := p.tokens.get(0)
		p.tokens.match(op)
		if !p.tokens.has(0) {
			p.fail("expected an expression after " + op)
		}
		right := p.parseSecondaryExpr()
		expr = &ast.Binary{Operator: op, Left: expr, Right: right, Span: opTok.Span}
	}
	return expr
}

func (p *Parser) parseSecondaryExpr() ast.Expr {
	expr := p.parsePrimaryExpr()
	for p.tokens.match(".") {
		if !p.tokens.has(0) {
			p.fail("expected an identifier")
		}
		nameTok := p.tokens.get(0)
		name := p.getIdentifier()
		if p.tokens.peek("(") {
			args := p.parseArgumentList()
			expr = &ast.Method{Receiver: expr, Name: name, Arguments: args, Span: nameTok.Span}
		} else {
			expr = &ast.Property{Receiver: expr, Name: name, Span: nameTok.Span}
		}
	}
	return expr
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	switch {
	case p.tokens.peek(token.INTEGER), p.tokens.peek(token.DECIMAL), p.tokens.peek(token.CHARACTER),
		p.tokens.peek(token.STRING), p.tokens.peek("NIL"), p.tokens.peek("TRUE"), p.tokens.peek("FALSE"):
		return p.parseLiteralExpr()
	case p.tokens.peek("("):
		return p.parseGroupExpr()
	case p.tokens.peek("OBJECT"):
		return p.parseObjectExpr()
	case p.tokens.peek(token.IDENTIFIER):
		return p.parseVariableOrFunctionExpr()
	default:
		p.fail("unexpected token")
		panic("unreachable")
	}
}

func (p *Parser) parseLiteralExpr() *ast.Literal {
	tok := p.tokens.get(0)
	switch {
	case p.tokens.match("NIL"):
		return &ast.Literal{Value: nil, Span: tok.Span}
	case p.tokens.match("TRUE"):
		return &ast.Literal{Value: true, Span: tok.Span}
	case p.tokens.match("FALSE"):
		return &ast.Literal{Value: false, Span: tok.Span}
	case p.tokens.peek(token.INTEGER):
		p.tokens.match(token.INTEGER)
		return &ast.Literal{Value: parseIntegerLiteral(tok.Literal), Span: tok.Span}
	case p.tokens.peek(token.DECIMAL):
		p.tokens.match(token.DECIMAL)
		return &ast.Literal{Value: parseDecimalLiteral(tok.Literal), Span: tok.Span}
	case p.tokens.peek(token.CHARACTER):
		p.tokens.match(token.CHARACTER)
		noQuotes := tok.Literal[1 : len(tok.Literal)-1]
		unescaped := unescape(noQuotes)
		r := []rune(unescaped)[0]
		return &ast.Literal{Value: r, Span: tok.Span}
	case p.tokens.peek(token.STRING):
		p.tokens.match(token.STRING)
		noQuotes := tok.Literal[1 : len(tok.Literal)-1]
		return &ast.Literal{Value: unescape(noQuotes), Span: tok.Span}
	default:
		p.fail("invalid literal expression")
		panic("unreachable")
	}
}

func (p *Parser) parseGroupExpr() *ast.Group {
	p.checkMacro("(")
	expr := p.parseExpr()
	p.checkMacro(")")
	return &ast.Group{Expr: expr}
}

func (p *Parser) parseObjectExpr() *ast.ObjectExpr {
	start := p.tokens.get(0)
	p.checkMacro("OBJECT")
	var name *string
	if p.tokens.peek(token.IDENTIFIER) && !p.tokens.peek("DO") {
		id := p.getIdentifier()
		name = &id
	}
	p.checkMacro("DO")
	var fields []*ast.Let
	for p.tokens.peek("LET") {
		fields = append(fields, p.parseLetStmt())
	}
	var methods []*ast.Def
	for p.tokens.peek("DEF") {
		methods = append(methods, p.parseDefStmt())
	}
	if !p.tokens.has(0) {
		p.fail("expected END to close OBJECT body")
	}
	end := p.tokens.get(0)
	p.checkMacro("END")
	return &ast.ObjectExpr{Name: name, Fields: fields, Methods: methods, Span: span(start, end)}
}

func (p *Parser) parseVariableOrFunctionExpr() ast.Expr {
	tok := p.tokens.get(0)
	name := p.getIdentifier()
	if !p.tokens.peek("(") {
		return &ast.Variable{Name: name, Span: tok.Span}
	}
	args := p.parseArgumentList()
	return &ast.Function{Name: name, Arguments: args, Span: tok.Span}
}

// --- helpers ---

func (p *Parser) checkMacro(lit string) {
	if !p.tokens.match(lit) {
		p.fail("expected '" + lit + "'")
	}
}

func (p *Parser) checkSemicolon() token.Token {
	if !p.tokens.peek(";") {
		p.fail("expected ';'")
	}
	tok := p.tokens.get(0)
	p.tokens.match(";")
	return tok
}

func (p *Parser) getIdentifier() string {
	if !p.tokens.peek(token.IDENTIFIER) {
		p.fail("expected an identifier")
	}
	lit := p.tokens.get(0).Literal
	p.tokens.match(token.IDENTIFIER)
	return lit
}

func (p *Parser) parseOptionalTypeName() *string {
	if !p.tokens.match(":") {
		return nil
	}
	name := p.getIdentifier()
	return &name
}

// parseParamList parses "(" (name [: type] ("," name [: type])*)? ")".
func (p *Parser) parseParamList() []ast.Param {
	if !p.tokens.match("(") {
		p.fail("expected '('")
	}
	var params []ast.Param
	if !p.tokens.peek(")") {
		for {
			name := p.getIdentifier()
			typeName := p.parseOptionalTypeName()
			params = append(params, ast.Param{Name: name, Type: typeName})
			if !p.tokens.match(",") {
				break
			}
		}
	}
	if !p.tokens.match(")") {
		p.fail("expected ')'")
	}
	return params
}

// parseArgumentList parses "(" (expr ("," expr)*)? ")".
func (p *Parser) parseArgumentList() []ast.Expr {
	if !p.tokens.match("(") {
		p.fail("expected '('")
	}
	var args []ast.Expr
	if !p.tokens.peek(")") {
		for {
			args = append(args, p.parseExpr())
			if !p.tokens.match(",") {
				break
			}
		}
	}
	if !p.tokens.match(")") {
		p.fail("expected ')'")
	}
	return args
}

func (p *Parser) fail(msg string) {
	var sp token.Span
	if p.tokens.has(0) {
		sp = p.tokens.get(0).Span
	}
	panic(&diag.ParseError{Message: msg, Span: sp})
}

func span(from, to token.Token) token.Span {
	return token.Span{From: from.Span.From, To: to.Span.To}
}

// --- literal decoding ---

var ten = big.NewInt(10)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// decimalParts splits a numeric literal (optionally signed, optionally
// with a fractional part and/or an exponent) into an unscaled integer
// magnitude and a scale, where the literal's value equals unscaled *
// 10^(-scale). scale may come back negative when a positive exponent
// outweighs the written fractional digits.
func decimalParts(lit string) (*big.Int, int) {
	mantissa := lit
	exponent := 0
	if idx := strings.IndexByte(lit, 'e'); idx >= 0 {
		mantissa = lit[:idx]
		e, err := strconv.Atoi(lit[idx+1:])
		diag.Assert(err == nil, "malformed exponent in numeric literal %q", lit)
		exponent = e
	}
	fracDigits := 0
	digits := mantissa
	if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
		fracDigits = len(mantissa) - dot - 1
		digits = mantissa[:dot] + mantissa[dot+1:]
	}
	unscaled := new(big.Int)
	_, ok := unscaled.SetString(digits, 10)
	diag.Assert(ok, "malformed numeric literal %q", lit)
	return unscaled, fracDigits - exponent
}

// normalizeScale folds a negative scale (an exponent larger than the
// written fractional digits) into the unscaled magnitude, since
// value.Decimal only represents non-negative scales.
func normalizeScale(unscaled *big.Int, scale int) (*big.Int, int) {
	if scale < 0 {
		return new(big.Int).Mul(unscaled, pow10(-scale)), 0
	}
	return unscaled, scale
}

// parseIntegerLiteral decodes an INTEGER-kind token. Most such tokens
// have no exponent and parse directly as a big.Int; one whose negative
// exponent leaves a nonzero fractional part (e.g. "5e-1") is not
// actually an integer, so — mirroring the reference implementation's
// fallback to BigDecimal in that case — it is returned as a
// *value.Decimal instead. An exactly integral value such as "10e-1"
// stays a big.Int.
func parseIntegerLiteral(lit string) interface{} {
	if !strings.ContainsRune(lit, 'e') {
		i := new(big.Int)
		_, ok := i.SetString(lit, 10)
		diag.Assert(ok, "malformed integer literal %q", lit)
		return i
	}
	unscaled, scale := decimalParts(lit)
	if scale <= 0 {
		return new(big.Int).Mul(unscaled, pow10(-scale))
	}
	if q, r := new(big.Int).QuoRem(unscaled, pow10(scale), new(big.Int)); r.Sign() == 0 {
		return q
	}
	return value.NewDecimal(unscaled, scale)
}

// parseDecimalLiteral decodes a DECIMAL-kind token into a *value.Decimal.
func parseDecimalLiteral(lit string) *value.Decimal {
	unscaled, scale := decimalParts(lit)
	unscaled, scale = normalizeScale(unscaled, scale)
	return value.NewDecimal(unscaled, scale)
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(s[i])
			}
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
