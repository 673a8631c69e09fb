package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/metrics"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/aescanero/dago-rule-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()
	e := New(st, rule.NewNameGenerator("combined", 4, rand.NewPCG(7, 7)), metrics.New(), zap.NewNop())
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestCreateRule(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	r, err := e.CreateRule(ctx, "rule1", "age > 30 AND department = 'Sales'")
	require.NoError(t, err)
	assert.Equal(t, "rule1", r.Name)
	assert.Equal(t, "(age > 30 AND department = 'Sales')", r.AST.String())
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), r.CreatedAt)

	stored, err := e.GetRule(ctx, "rule1")
	require.NoError(t, err)
	assert.Equal(t, r.AST, stored.AST)
}

func TestCreateRule_Errors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "", "a = 1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.CreateRule(ctx, "r", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.CreateRule(ctx, "r", "a = 1 AND")
	assert.ErrorIs(t, err, rule.ErrParse)

	_, err = e.CreateRule(ctx, "r", "a = 1")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "r", "b = 2")
	assert.ErrorIs(t, err, store.ErrDuplicateName)
}

func TestCombineRules(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "age", "age > 30")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "dept", "department = 'Sales' OR department = 'Marketing'")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "salary", "salary >= 50000")
	require.NoError(t, err)

	combined, err := e.CombineRules(ctx, []string{"age", "dept", "salary"}, "and")
	require.NoError(t, err)
	assert.Regexp(t, `^combined[A-Za-z0-9]{4}$`, combined.Name)
	assert.Equal(t,
		"((age > 30 AND (department = 'Sales' OR department = 'Marketing')) AND salary >= 50000)",
		combined.AST.String())

	ok, err := e.EvaluateRule(ctx, combined.Name, rule.Record{"age": 35, "department": "Marketing", "salary": 60000})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateRule(ctx, combined.Name, rule.Record{"age": 35, "department": "Engineering", "salary": 60000})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCombineRules_SkipsMissingAndDuplicates(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "a", "a = 1")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "b", "b = 2")
	require.NoError(t, err)

	combined, err := e.CombineRules(ctx, []string{"b", "ghost", "a", "b", " "}, "OR")
	require.NoError(t, err)
	assert.Equal(t, "(b = 2 OR a = 1)", combined.AST.String())

	single, err := e.CombineRules(ctx, []string{"a"}, "AND")
	require.NoError(t, err)
	assert.Equal(t, "a = 1", single.AST.String())
	assert.NotEqual(t, "a", single.Name)
}

func TestCombineRules_Errors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "a", "a = 1")
	require.NoError(t, err)

	_, err = e.CombineRules(ctx, nil, "AND")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.CombineRules(ctx, []string{"a"}, "XOR")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, rule.ErrInvalidOperator)

	_, err = e.CombineRules(ctx, []string{"x", "y"}, "AND")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCombineRules_RetriesTakenName(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	e := newTestEngine(t, st)

	// Same seed as the engine's generator: the first generated name is taken.
	taken := rule.NewNameGenerator("combined", 4, rand.NewPCG(7, 7)).Next()
	_, err := e.CreateRule(ctx, taken, "z = 0")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "a", "a = 1")
	require.NoError(t, err)

	combined, err := e.CombineRules(ctx, []string{"a"}, "AND")
	require.NoError(t, err)
	assert.NotEqual(t, taken, combined.Name)
}

// takenStore reports every save as a duplicate.
type takenStore struct {
	store.Store
	mu    sync.Mutex
	saves int
}

func (s *takenStore) Save(context.Context, *store.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return store.ErrDuplicateName
}

func TestCombineRules_GivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, &store.Rule{Name: "a", AST: &rule.OperandNode{Key: "a", Operator: rule.Equal, Value: "1"}}))

	st := &takenStore{Store: mem}
	e := newTestEngine(t, st)

	_, err := e.CombineRules(ctx, []string{"a"}, "AND")
	assert.ErrorIs(t, err, store.ErrDuplicateName)
	assert.Equal(t, maxNameAttempts, st.saves)
}

func TestEvaluateRule(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "rule1", "age > 30 AND department = 'Sales'")
	require.NoError(t, err)

	ok, err := e.EvaluateRule(ctx, "rule1", rule.Record{"age": 35, "department": "Sales"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateRule(ctx, "rule1", rule.Record{"age": 20, "department": "Sales"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.EvaluateRule(ctx, "missing", rule.Record{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.EvaluateRule(ctx, "", rule.Record{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListAndDeleteRules(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, store.NewMemoryStore())

	_, err := e.CreateRule(ctx, "b", "b = 1")
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, "a", "a = 1")
	require.NoError(t, err)

	list, err := e.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	require.NoError(t, e.DeleteRule(ctx, "a"))
	assert.ErrorIs(t, e.DeleteRule(ctx, "a"), store.ErrNotFound)

	_, err = e.GetRule(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "invalid_input", outcome(ErrInvalidInput))
	assert.Equal(t, "parse_error", outcome(&rule.ParseError{Pos: -1, Msg: "x"}))
	assert.Equal(t, "duplicate", outcome(store.ErrDuplicateName))
	assert.Equal(t, "not_found", outcome(store.ErrNotFound))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
