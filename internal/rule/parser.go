package rule

// Parse tokenizes and parses a rule string into an AST.
func Parse(s string) (Node, error) {
	return ParseTokens(Tokenize(s))
}

// ParseTokens builds an AST from a token sequence with a shunting-yard pass:
// an output stack of finished subtrees and an operator stack of pending
// connectives and open parentheses. AND binds tighter than OR and equal
// precedence reduces left to right.
//
// Malformed input is rejected with a *ParseError.
func ParseTokens(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	tokens []Token
	pos    int

	output    []Node
	operators []Token
}

func (p *parser) parse() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, &ParseError{Pos: -1, Msg: "empty rule"}
	}

	// expectOperand is true where a comparison or '(' must come next and
	// false where a connective or ')' must come next.
	expectOperand := true

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		switch tok.Kind {
		case TokenLParen:
			if !expectOperand {
				return nil, p.errorAt(tok, "expected AND, OR or ')'")
			}
			p.operators = append(p.operators, tok)
			p.pos++

		case TokenRParen:
			if expectOperand {
				return nil, p.errorAt(tok, "expected a comparison")
			}
			if err := p.closeGroup(tok); err != nil {
				return nil, err
			}
			p.pos++

		case TokenLogical:
			if expectOperand {
				return nil, p.errorAt(tok, "expected a comparison")
			}
			op := LogicalOp(tok.Text)
			if op != And && op != Or {
				return nil, p.errorAt(tok, "expected AND or OR")
			}
			for len(p.operators) > 0 {
				top := p.operators[len(p.operators)-1]
				if top.Kind != TokenLogical || LogicalOp(top.Text).precedence() < op.precedence() {
					break
				}
				p.operators = p.operators[:len(p.operators)-1]
				p.reduce(LogicalOp(top.Text))
			}
			p.operators = append(p.operators, tok)
			expectOperand = true
			p.pos++

		case TokenAtom, TokenComparison:
			if !expectOperand {
				return nil, p.errorAt(tok, "expected AND, OR or ')'")
			}
			operand, err := p.operand()
			if err != nil {
				return nil, err
			}
			p.output = append(p.output, operand)
			expectOperand = false

		default:
			return nil, p.errorAt(tok, "unexpected token")
		}
	}

	if expectOperand {
		return nil, &ParseError{Pos: -1, Msg: "expected a comparison"}
	}

	for len(p.operators) > 0 {
		top := p.operators[len(p.operators)-1]
		p.operators = p.operators[:len(p.operators)-1]
		if top.Kind == TokenLParen {
			return nil, p.errorAt(top, "unclosed '('")
		}
		p.reduce(LogicalOp(top.Text))
	}

	if len(p.output) != 1 {
		return nil, &ParseError{Pos: -1, Msg: "incomplete expression"}
	}
	return p.output[0], nil
}

// operand consumes the field, comparison operator and literal starting at
// the cursor.
func (p *parser) operand() (Node, error) {
	key := p.tokens[p.pos]
	if key.Kind != TokenAtom {
		return nil, p.errorAt(key, "expected a field name")
	}
	if p.pos+1 >= len(p.tokens) {
		return nil, &ParseError{Pos: -1, Msg: "expected a comparison operator after " + key.Text}
	}
	op := p.tokens[p.pos+1]
	if op.Kind != TokenComparison || !ComparisonOp(op.Text).Valid() {
		return nil, p.errorAt(op, "expected a comparison operator")
	}
	if p.pos+2 >= len(p.tokens) {
		return nil, &ParseError{Pos: -1, Msg: "expected a value after " + op.Text}
	}
	value := p.tokens[p.pos+2]
	if value.Kind != TokenAtom {
		return nil, p.errorAt(value, "expected a value")
	}

	p.pos += 3
	return &OperandNode{
		Key:      key.Text,
		Operator: ComparisonOp(op.Text),
		Value:    Literal(value.Text),
	}, nil
}

// closeGroup reduces pending connectives back to the matching '('.
func (p *parser) closeGroup(closing Token) error {
	for len(p.operators) > 0 {
		top := p.operators[len(p.operators)-1]
		p.operators = p.operators[:len(p.operators)-1]
		if top.Kind == TokenLParen {
			return nil
		}
		p.reduce(LogicalOp(top.Text))
	}
	return p.errorAt(closing, "unmatched ')'")
}

// reduce pops right then left from the output stack and pushes op(left, right).
// The grammar checks in parse guarantee two entries are present.
func (p *parser) reduce(op LogicalOp) {
	n := len(p.output)
	right := p.output[n-1]
	left := p.output[n-2]
	p.output = append(p.output[:n-2], &OperatorNode{Operator: op, Left: left, Right: right})
}

func (p *parser) errorAt(tok Token, msg string) *ParseError {
	return &ParseError{Pos: tok.Pos, Token: tok.Text, Msg: msg}
}
