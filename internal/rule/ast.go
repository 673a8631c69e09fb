package rule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LogicalOp joins two sub-expressions.
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

// ParseLogicalOp accepts AND or OR in any letter case.
func ParseLogicalOp(s string) (LogicalOp, error) {
	switch LogicalOp(strings.ToUpper(strings.TrimSpace(s))) {
	case And:
		return And, nil
	case Or:
		return Or, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
}

// precedence of logical operators; higher binds tighter.
func (op LogicalOp) precedence() int {
	switch op {
	case And:
		return 2
	case Or:
		return 1
	default:
		return 0
	}
}

// ComparisonOp compares a data field with a literal.
type ComparisonOp string

const (
	Less         ComparisonOp = "<"
	Greater      ComparisonOp = ">"
	LessEqual    ComparisonOp = "<="
	GreaterEqual ComparisonOp = ">="
	Equal        ComparisonOp = "="
	DoubleEqual  ComparisonOp = "=="
	NotEqual     ComparisonOp = "!="
)

// Valid reports whether op is one of the known comparison operators.
func (op ComparisonOp) Valid() bool {
	switch op {
	case Less, Greater, LessEqual, GreaterEqual, Equal, DoubleEqual, NotEqual:
		return true
	default:
		return false
	}
}

// Literal is the right-hand side of a comparison in its lexical form. A
// quoted string keeps its single quotes; they are removed at evaluation time.
type Literal string

// Quoted reports whether the literal is wrapped in single quotes.
func (l Literal) Quoted() bool {
	return len(l) >= 2 && l[0] == '\'' && l[len(l)-1] == '\''
}

// Text returns the literal with surrounding quotes removed.
func (l Literal) Text() string {
	if l.Quoted() {
		return string(l[1 : len(l)-1])
	}
	return string(l)
}

// UnmarshalJSON accepts a JSON string, number or boolean.
func (l *Literal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Literal(s)
		return nil
	}
	switch string(data) {
	case "true", "false":
		*l = Literal(data)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("literal must be a string, number or boolean: %s", data)
	}
	*l = Literal(data)
	return nil
}

// Node is an AST node: either *OperandNode or *OperatorNode.
// Nodes are never mutated after construction.
type Node interface {
	fmt.Stringer
	node()
}

// OperandNode is a leaf comparing one data field with a literal.
type OperandNode struct {
	Key      string
	Operator ComparisonOp
	Value    Literal
}

func (*OperandNode) node() {}

// String renders the operand as `key op value`.
func (n OperandNode) String() string {
	return n.Key + " " + string(n.Operator) + " " + string(n.Value)
}

// OperatorNode joins two sub-trees with AND or OR.
type OperatorNode struct {
	Operator LogicalOp
	Left     Node
	Right    Node
}

func (*OperatorNode) node() {}

// String renders the subtree fully parenthesized, so the result parses back
// into the same tree.
func (n OperatorNode) String() string {
	return "(" + nodeString(n.Left) + " " + string(n.Operator) + " " + nodeString(n.Right) + ")"
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

const (
	typeOperand  = "operand"
	typeOperator = "operator"
)

// wireNode is the persisted document shape shared by both variants.
type wireNode struct {
	Type     string          `json:"type"`
	Key      string          `json:"key,omitempty"`
	Operator string          `json:"operator"`
	Value    *Literal        `json:"value,omitempty"`
	Left     json.RawMessage `json:"left,omitempty"`
	Right    json.RawMessage `json:"right,omitempty"`
}

// MarshalJSON encodes the operand as {"type":"operand",...}.
func (n *OperandNode) MarshalJSON() ([]byte, error) {
	v := n.Value
	return json.Marshal(wireNode{
		Type:     typeOperand,
		Key:      n.Key,
		Operator: string(n.Operator),
		Value:    &v,
	})
}

// MarshalJSON encodes the operator as {"type":"operator",...}.
func (n *OperatorNode) MarshalJSON() ([]byte, error) {
	left, err := json.Marshal(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := json.Marshal(n.Right)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireNode{
		Type:     typeOperator,
		Operator: string(n.Operator),
		Left:     left,
		Right:    right,
	})
}

// UnmarshalNode decodes a persisted AST document.
func UnmarshalNode(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}

	switch w.Type {
	case typeOperand:
		if w.Key == "" {
			return nil, fmt.Errorf("decode node: operand without key")
		}
		op := ComparisonOp(w.Operator)
		if !op.Valid() {
			return nil, fmt.Errorf("decode node: unknown comparison operator %q", w.Operator)
		}
		if w.Value == nil {
			return nil, fmt.Errorf("decode node: operand %q without value", w.Key)
		}
		return &OperandNode{Key: w.Key, Operator: op, Value: *w.Value}, nil

	case typeOperator:
		op, err := ParseLogicalOp(w.Operator)
		if err != nil {
			return nil, fmt.Errorf("decode node: %w", err)
		}
		if isNullJSON(w.Left) || isNullJSON(w.Right) {
			return nil, fmt.Errorf("decode node: %s node requires two children", op)
		}
		left, err := UnmarshalNode(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := UnmarshalNode(w.Right)
		if err != nil {
			return nil, err
		}
		return &OperatorNode{Operator: op, Left: left, Right: right}, nil

	default:
		return nil, fmt.Errorf("decode node: unknown node type %q", w.Type)
	}
}

func isNullJSON(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// Walk calls fn for every node in depth-first, left-to-right order.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	if op, ok := n.(*OperatorNode); ok {
		Walk(op.Left, fn)
		Walk(op.Right, fn)
	}
}
