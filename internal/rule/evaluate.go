package rule

import (
	"math"
	"strconv"
	"strings"
)

// Record is the data a rule is evaluated against.
type Record map[string]any

// Evaluate reports whether data satisfies the rule rooted at node. Both
// branches of every connective are evaluated. A nil node, a missing or null
// field and an unknown operator all yield false; Evaluate never fails.
func Evaluate(node Node, data Record) bool {
	switch n := node.(type) {
	case *OperatorNode:
		if n == nil {
			return false
		}
		left := Evaluate(n.Left, data)
		right := Evaluate(n.Right, data)
		switch n.Operator {
		case And:
			return left && right
		case Or:
			return left || right
		default:
			return false
		}
	case *OperandNode:
		if n == nil {
			return false
		}
		return evaluateOperand(n, data)
	default:
		return false
	}
}

func evaluateOperand(n *OperandNode, data Record) bool {
	actual, ok := data[n.Key]
	if !ok || actual == nil {
		return false
	}

	switch n.Operator {
	case Equal, DoubleEqual:
		return looseEqual(actual, n.Value)
	case NotEqual:
		return !looseEqual(actual, n.Value)
	case Less, Greater, LessEqual, GreaterEqual:
		cmp, ok := looseCompare(actual, n.Value)
		if !ok {
			return false
		}
		switch n.Operator {
		case Less:
			return cmp < 0
		case Greater:
			return cmp > 0
		case LessEqual:
			return cmp <= 0
		default:
			return cmp >= 0
		}
	default:
		return false
	}
}

// looseEqual compares a data value with a literal, coercing the literal to
// the type of the data value. Strings compare as text, numbers numerically,
// booleans against true/false or a numeric 1/0.
func looseEqual(actual any, lit Literal) bool {
	text := lit.Text()
	switch v := actual.(type) {
	case string:
		return v == text
	case bool:
		if text == "true" || text == "false" {
			return v == (text == "true")
		}
		f, ok := parseNumber(text)
		return ok && boolNumber(v) == f
	default:
		a, ok := toNumber(actual)
		if !ok {
			return false
		}
		f, ok := parseNumber(text)
		return ok && a == f
	}
}

// looseCompare orders a data value against a literal. Strings order
// lexically; numbers and booleans order numerically against a numeric
// literal. ok is false when the two sides are not comparable.
func looseCompare(actual any, lit Literal) (int, bool) {
	text := lit.Text()
	switch v := actual.(type) {
	case string:
		return strings.Compare(v, text), true
	case bool:
		f, ok := parseNumber(text)
		if !ok {
			return 0, false
		}
		return compareFloat(boolNumber(v), f), true
	default:
		a, ok := toNumber(actual)
		if !ok {
			return 0, false
		}
		f, ok := parseNumber(text)
		if !ok {
			return 0, false
		}
		return compareFloat(a, f), true
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
