package rule

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cmp(key string, op ComparisonOp, value string) *OperandNode {
	return &OperandNode{Key: key, Operator: op, Value: Literal(value)}
}

func and(l, r Node) *OperatorNode { return &OperatorNode{Operator: And, Left: l, Right: r} }
func or(l, r Node) *OperatorNode  { return &OperatorNode{Operator: Or, Left: l, Right: r} }

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{
			input: "age > 30 AND (department = 'Sales' OR department = 'Marketing')",
			want: []string{"age", ">", "30", "AND", "(", "department", "=", "'Sales'",
				"OR", "department", "=", "'Marketing'", ")"},
		},
		{input: "age>=30", want: []string{"age", ">=", "30"}},
		{input: "a<=1 OR b!=2", want: []string{"a", "<=", "1", "OR", "b", "!=", "2"}},
		{input: "status == 1", want: []string{"status", "==", "1"}},
		{input: "city = 'New York'", want: []string{"city", "=", "'New York'"}},
		{input: "name = 'a(b)'", want: []string{"name", "=", "'a(b)'"}},
		{input: "name = 'open", want: []string{"name", "=", "'open"}},
		{input: "ANDROID = 1", want: []string{"ANDROID", "=", "1"}},
		{input: "  \t ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(Tokenize(tt.input)))
		})
	}
}

func TestTokenize_Kinds(t *testing.T) {
	tokens := Tokenize("(a = 1) OR b > 'x y'")
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokenLParen, TokenAtom, TokenComparison, TokenAtom, TokenRParen,
		TokenLogical, TokenAtom, TokenComparison, TokenAtom,
	}, kinds)
	assert.Equal(t, 8, tokens[5].Pos)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Node
	}{
		{
			name:  "single comparison",
			input: "age > 30",
			want:  cmp("age", Greater, "30"),
		},
		{
			name:  "AND binds tighter than OR",
			input: "a=1 OR b=2 AND c=3",
			want:  or(cmp("a", Equal, "1"), and(cmp("b", Equal, "2"), cmp("c", Equal, "3"))),
		},
		{
			name:  "parentheses override precedence",
			input: "(a=1 OR b=2) AND c=3",
			want:  and(or(cmp("a", Equal, "1"), cmp("b", Equal, "2")), cmp("c", Equal, "3")),
		},
		{
			name:  "left associative",
			input: "a=1 AND b=2 AND c=3",
			want:  and(and(cmp("a", Equal, "1"), cmp("b", Equal, "2")), cmp("c", Equal, "3")),
		},
		{
			name:  "AND after OR group",
			input: "a=1 AND b=2 OR c=3",
			want:  or(and(cmp("a", Equal, "1"), cmp("b", Equal, "2")), cmp("c", Equal, "3")),
		},
		{
			name:  "nested parentheses",
			input: "((age > 30 AND department = 'Sales') OR (age < 25 AND department = 'Marketing')) AND (salary > 50000 OR experience > 5)",
			want: and(
				or(
					and(cmp("age", Greater, "30"), cmp("department", Equal, "'Sales'")),
					and(cmp("age", Less, "25"), cmp("department", Equal, "'Marketing'")),
				),
				or(cmp("salary", Greater, "50000"), cmp("experience", Greater, "5")),
			),
		},
		{
			name:  "quoted value with spaces",
			input: "city = 'New York' AND zip != 10001",
			want:  and(cmp("city", Equal, "'New York'"), cmp("zip", NotEqual, "10001")),
		},
		{
			name:  "redundant parentheses",
			input: "((a = 1))",
			want:  cmp("a", Equal, "1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"a = 1 AND",
		"AND a = 1",
		"a = 1 OR OR b = 2",
		"(a = 1",
		"a = 1)",
		"(a = 1))",
		"()",
		"a 1",
		"a =",
		"a",
		"= 1",
		"a = =",
		"a = 1 b = 2",
		"a = 1 (b = 2)",
		"(a = 1) b = 2",
		"a = (1)",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			node, err := Parse(input)
			require.Error(t, err)
			assert.Nil(t, node)
			assert.ErrorIs(t, err, ErrParse)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestParseTokens_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		tokens []Token
	}{
		{"unknown kind", []Token{{Kind: TokenKind(42), Text: "?", Pos: 0}}},
		{"unknown kind after operand", []Token{
			{Kind: TokenAtom, Text: "a", Pos: 0},
			{Kind: TokenComparison, Text: "=", Pos: 2},
			{Kind: TokenAtom, Text: "1", Pos: 4},
			{Kind: TokenKind(-1), Text: "~", Pos: 6},
		}},
		{"unknown connective", []Token{
			{Kind: TokenAtom, Text: "a", Pos: 0},
			{Kind: TokenComparison, Text: "=", Pos: 2},
			{Kind: TokenAtom, Text: "1", Pos: 4},
			{Kind: TokenLogical, Text: "XOR", Pos: 6},
			{Kind: TokenAtom, Text: "b", Pos: 10},
			{Kind: TokenComparison, Text: "=", Pos: 12},
			{Kind: TokenAtom, Text: "2", Pos: 14},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := ParseTokens(tt.tokens)
				done <- err
			}()

			select {
			case err := <-done:
				assert.ErrorIs(t, err, ErrParse)
			case <-time.After(2 * time.Second):
				t.Fatal("ParseTokens did not return")
			}
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("a = 1 AND b = 2)")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 15, perr.Pos)
	assert.Equal(t, ")", perr.Token)
	assert.Contains(t, perr.Error(), "unmatched")

	_, err = Parse("a = 1 AND")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, -1, perr.Pos)
	assert.Contains(t, perr.Error(), "end of input")
}

func TestParse_RoundTrip(t *testing.T) {
	rules := []string{
		"age > 30 AND department = 'Sales'",
		"a=1 OR b=2 AND c=3",
		"(a=1 OR b=2) AND c=3",
		"a = 1 OR b = 2 OR c = 3 OR d = 4",
		"city = 'New York' AND (x <= 1.5 OR flag == true) AND y != 'z'",
	}

	for _, r := range rules {
		t.Run(r, func(t *testing.T) {
			first, err := Parse(r)
			require.NoError(t, err)

			second, err := Parse(first.String())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParse_LeafCount(t *testing.T) {
	node, err := Parse("a=1 AND (b=2 OR c=3) OR d=4 AND e=5")
	require.NoError(t, err)

	var leaves, internal int
	Walk(node, func(n Node) {
		switch n.(type) {
		case *OperandNode:
			leaves++
		case *OperatorNode:
			internal++
		}
	})
	assert.Equal(t, 5, leaves)
	assert.Equal(t, 4, internal)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		rule string
		data Record
		want bool
	}{
		{"eligible", "age > 30 AND department = 'Sales'", Record{"age": 35, "department": "Sales"}, true},
		{"too young", "age > 30 AND department = 'Sales'", Record{"age": 20, "department": "Sales"}, false},
		{"json number", "age > 30", Record{"age": float64(31)}, true},
		{"loose equality number literal string data", "status = 1", Record{"status": "1"}, true},
		{"double equal mismatch", "status == 1", Record{"status": 2}, false},
		{"double equal match", "status == 2", Record{"status": 2.0}, true},
		{"not equal", "status != 1", Record{"status": 2}, true},
		{"not equal same", "status != 'open'", Record{"status": "open"}, false},
		{"less equal", "score <= 10", Record{"score": 10}, true},
		{"greater equal", "score >= 10.5", Record{"score": 10}, false},
		{"less", "score < 10", Record{"score": int64(-3)}, true},
		{"string ordering", "name < 'b'", Record{"name": "alice"}, true},
		{"number vs text", "age > 'old'", Record{"age": 40}, false},
		{"bool equality", "active = true", Record{"active": true}, true},
		{"bool vs numeric", "active = 1", Record{"active": true}, true},
		{"bool mismatch", "active = false", Record{"active": true}, false},
		{"quoted space value", "city = 'New York'", Record{"city": "New York"}, true},
		{"or either side", "a = 1 OR b = 2", Record{"a": 0, "b": 2}, true},
		{"or neither", "a = 1 OR b = 2", Record{"a": 0, "b": 0}, false},
		{"json.Number", "n > 2", Record{"n": json.Number("3")}, true},
		{"unsupported type", "n = 1", Record{"n": []int{1}}, false},
		{"infinite literal", "n < Inf", Record{"n": 5}, false},
		{"infinity literal equal", "n = -Infinity", Record{"n": math.Inf(-1)}, false},
		{"inf as text", "s = Inf", Record{"s": "Inf"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Evaluate(node, tt.data))
		})
	}
}

func TestEvaluate_MissingField(t *testing.T) {
	for _, op := range []string{"<", ">", "<=", ">=", "=", "==", "!="} {
		t.Run(op, func(t *testing.T) {
			node, err := Parse("missing " + op + " 1")
			require.NoError(t, err)
			assert.False(t, Evaluate(node, Record{"other": 1}))
			assert.False(t, Evaluate(node, Record{"missing": nil}))
			assert.False(t, Evaluate(node, nil))
		})
	}
}

func TestEvaluate_Degenerate(t *testing.T) {
	assert.False(t, Evaluate(nil, Record{"a": 1}))
	assert.False(t, Evaluate((*OperandNode)(nil), Record{"a": 1}))
	assert.False(t, Evaluate(&OperandNode{Key: "a", Operator: "~", Value: "1"}, Record{"a": 1}))
	assert.False(t, Evaluate(&OperatorNode{Operator: "XOR", Left: cmp("a", Equal, "1"), Right: cmp("a", Equal, "1")}, Record{"a": 1}))
	assert.False(t, Evaluate(&OperatorNode{Operator: Or, Left: cmp("a", Equal, "1")}, Record{"a": 2}))
}

func TestEvaluate_Idempotent(t *testing.T) {
	node, err := Parse("age > 30 AND (department = 'Sales' OR department = 'Marketing')")
	require.NoError(t, err)

	data := Record{"age": 40, "department": "Marketing"}
	first := Evaluate(node, data)
	second := Evaluate(node, data)
	assert.True(t, first)
	assert.Equal(t, first, second)
}

func TestCombine(t *testing.T) {
	a := cmp("a", Equal, "1")
	b := cmp("b", Equal, "2")
	c := cmp("c", Equal, "3")

	got, err := Combine([]Node{a, b, c}, And)
	require.NoError(t, err)
	assert.Equal(t, and(and(a, b), c), got)

	single, err := Combine([]Node{a}, Or)
	require.NoError(t, err)
	assert.Same(t, a, single)

	_, err = Combine(nil, And)
	assert.ErrorIs(t, err, ErrEmptyCombination)

	_, err = Combine([]Node{a, b}, "XOR")
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestCombine_EvaluatesAsConjunction(t *testing.T) {
	rules := []string{"age > 30", "department = 'Sales'", "salary >= 50000"}
	nodes := make([]Node, len(rules))
	for i, r := range rules {
		n, err := Parse(r)
		require.NoError(t, err)
		nodes[i] = n
	}

	combined, err := Combine(nodes, And)
	require.NoError(t, err)

	records := []Record{
		{"age": 35, "department": "Sales", "salary": 60000},
		{"age": 35, "department": "Sales", "salary": 40000},
		{"age": 25, "department": "Sales", "salary": 60000},
		{"department": "Sales"},
	}
	for _, rec := range records {
		want := Evaluate(nodes[0], rec) && Evaluate(nodes[1], rec) && Evaluate(nodes[2], rec)
		assert.Equal(t, want, Evaluate(combined, rec), "record %v", rec)
	}
}

func TestParseLogicalOp(t *testing.T) {
	op, err := ParseLogicalOp("and")
	require.NoError(t, err)
	assert.Equal(t, And, op)

	op, err = ParseLogicalOp(" OR ")
	require.NoError(t, err)
	assert.Equal(t, Or, op)

	_, err = ParseLogicalOp("")
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestNodeJSON(t *testing.T) {
	node, err := Parse("age > 30 AND (department = 'Sales' OR active == true)")
	require.NoError(t, err)

	data, err := json.Marshal(node)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"operator"`)
	assert.Contains(t, string(data), `"value":"'Sales'"`)

	decoded, err := UnmarshalNode(data)
	require.NoError(t, err)
	assert.Equal(t, node, decoded)
}

func TestUnmarshalNode_TypedValues(t *testing.T) {
	doc := `{"type":"operator","operator":"OR",
		"left":{"type":"operand","key":"age","operator":">","value":30},
		"right":{"type":"operand","key":"vip","operator":"=","value":true}}`

	node, err := UnmarshalNode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, or(cmp("age", Greater, "30"), cmp("vip", Equal, "true")), node)
}

func TestUnmarshalNode_Invalid(t *testing.T) {
	docs := []string{
		`{}`,
		`{"type":"leaf"}`,
		`{"type":"operand","operator":"=","value":"1"}`,
		`{"type":"operand","key":"a","operator":"~","value":"1"}`,
		`{"type":"operand","key":"a","operator":"="}`,
		`{"type":"operand","key":"a","operator":"=","value":{"x":1}}`,
		`{"type":"operator","operator":"AND","left":{"type":"operand","key":"a","operator":"=","value":"1"}}`,
		`{"type":"operator","operator":"NAND","left":null,"right":null}`,
		`not json`,
	}
	for _, doc := range docs {
		_, err := UnmarshalNode([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestNameGenerator(t *testing.T) {
	g1 := NewNameGenerator("combined", 6, rand.NewPCG(1, 2))
	g2 := NewNameGenerator("combined", 6, rand.NewPCG(1, 2))

	name := g1.Next()
	assert.Equal(t, name, g2.Next())
	assert.True(t, strings.HasPrefix(name, "combined"))
	assert.Len(t, name, len("combined")+6)
	for _, c := range strings.TrimPrefix(name, "combined") {
		assert.True(t, strings.ContainsRune(nameAlphabet, c))
	}

	assert.NotEqual(t, name, g1.Next())
}

func TestNameGenerator_Defaults(t *testing.T) {
	g := NewNameGenerator("r", 0, nil)
	assert.Len(t, g.Next(), 9)
}
