package cel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aescanero/dago-rule-engine/internal/rule"
)

// Translate renders a rule AST as a CEL expression over a map variable
// named data. Each comparison is guarded by a presence test so that a
// missing field yields false rather than an evaluation error:
//
//	age > 30 AND department = 'Sales'
//
// becomes
//
//	(("age" in data && data["age"] > 30.0) && ("department" in data && data["department"] == "Sales"))
//
// Numeric literals are emitted as doubles; use NormalizeRecord on the data
// so that integer fields compare as doubles too.
func Translate(node rule.Node) (string, error) {
	var b strings.Builder
	if err := translate(&b, node); err != nil {
		return "", err
	}
	return b.String(), nil
}

func translate(b *strings.Builder, node rule.Node) error {
	switch n := node.(type) {
	case *rule.OperatorNode:
		var op string
		switch n.Operator {
		case rule.And:
			op = " && "
		case rule.Or:
			op = " || "
		default:
			return fmt.Errorf("unsupported logical operator %q", n.Operator)
		}
		b.WriteByte('(')
		if err := translate(b, n.Left); err != nil {
			return err
		}
		b.WriteString(op)
		if err := translate(b, n.Right); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil

	case *rule.OperandNode:
		op, err := comparison(n.Operator)
		if err != nil {
			return err
		}
		key := strconv.Quote(n.Key)
		fmt.Fprintf(b, "(%s in data && data[%s] %s %s)", key, key, op, literal(n.Value))
		return nil

	default:
		return fmt.Errorf("unsupported node %T", node)
	}
}

func comparison(op rule.ComparisonOp) (string, error) {
	switch op {
	case rule.Equal, rule.DoubleEqual:
		return "==", nil
	case rule.NotEqual:
		return "!=", nil
	case rule.Less:
		return "<", nil
	case rule.Greater:
		return ">", nil
	case rule.LessEqual:
		return "<=", nil
	case rule.GreaterEqual:
		return ">=", nil
	default:
		return "", fmt.Errorf("unsupported comparison operator %q", op)
	}
}

// literal renders a rule literal as a CEL constant. Quoted and non-numeric
// literals, including non-finite numbers, become strings.
func literal(l rule.Literal) string {
	text := l.Text()
	if l.Quoted() {
		return strconv.Quote(text)
	}
	if text == "true" || text == "false" {
		return text
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	return strconv.Quote(text)
}

// NormalizeRecord returns a copy of data with every integer or float value
// converted to float64.
func NormalizeRecord(data rule.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch n := v.(type) {
		case int:
			out[k] = float64(n)
		case int8:
			out[k] = float64(n)
		case int16:
			out[k] = float64(n)
		case int32:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case uint:
			out[k] = float64(n)
		case uint8:
			out[k] = float64(n)
		case uint16:
			out[k] = float64(n)
		case uint32:
			out[k] = float64(n)
		case uint64:
			out[k] = float64(n)
		case float32:
			out[k] = float64(n)
		case interface{ Float64() (float64, error) }:
			if f, err := n.Float64(); err == nil {
				out[k] = f
			} else {
				out[k] = v
			}
		default:
			out[k] = v
		}
	}
	return out
}
