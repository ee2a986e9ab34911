package listquery

import "fmt"

// Expr is a parsed structured query
type Expr interface {
	Match(fields map[string]string) bool
}

type matchAll struct{}

func (matchAll) Match(map[string]string) bool { return true }

type andExpr struct{ left, right Expr }

func (e andExpr) Match(f map[string]string) bool { return e.left.Match(f) && e.right.Match(f) }

type orExpr struct{ left, right Expr }

func (e orExpr) Match(f map[string]string) bool { return e.left.Match(f) || e.right.Match(f) }

// Condition compares one column against a literal
type Condition struct {
	Column   string
	Operator string
	Value    string
}

// Match evaluates the condition against a row's fields
func (c Condition) Match(fields map[string]string) bool {
	value, _ := lookup(fields, c.Column)
	return evalCondition(value, c.Operator, c.Value)
}

// Parse compiles a structured query. The empty query matches every row.
//
//	expr := or
//	or   := and (("or" | "||") and)*
//	and  := unit (("and" | "&&") unit)*
//	unit := "(" expr ")" | column op value
func Parse(query string) (Expr, error) {
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return matchAll{}, nil
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnit()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnit()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseUnit() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected \")\", got %s", ErrSyntax, closing)
		}
		return expr, nil
	case tokWord, tokString:
		op := p.next()
		if op.kind != tokOp {
			return nil, fmt.Errorf("%w: expected operator after column %q, got %s", ErrSyntax, tok.text, op)
		}
		value := p.next()
		if value.kind != tokWord && value.kind != tokString {
			return nil, fmt.Errorf("%w: expected value after %q, got %s", ErrSyntax, op.text, value)
		}
		return Condition{Column: tok.text, Operator: op.text, Value: value.text}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
	}
}
