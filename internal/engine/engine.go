package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/metrics"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/aescanero/dago-rule-engine/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a required argument is missing or malformed.
var ErrInvalidInput = errors.New("invalid input")

// maxNameAttempts bounds retries when a generated name is already taken.
const maxNameAttempts = 3

// Engine creates, combines and evaluates stored rules.
type Engine struct {
	store   store.Store
	names   *rule.NameGenerator
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an engine. m may be nil.
func New(st store.Store, names *rule.NameGenerator, m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		store:   st,
		names:   names,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateRule parses ruleString and stores the AST under name.
func (e *Engine) CreateRule(ctx context.Context, name, ruleString string) (*store.Rule, error) {
	r, err := e.createRule(ctx, name, ruleString)
	e.metrics.RecordCreate(outcome(err))
	return r, err
}

func (e *Engine) createRule(ctx context.Context, name, ruleString string) (*store.Rule, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(ruleString) == "" {
		return nil, fmt.Errorf("%w: ruleName and ruleString are required", ErrInvalidInput)
	}

	ast, err := rule.Parse(ruleString)
	if err != nil {
		e.logger.Debug("rule parse failed",
			zap.String("rule_name", name),
			zap.String("rule_string", ruleString),
			zap.Error(err),
		)
		return nil, err
	}

	r := &store.Rule{Name: name, AST: ast, CreatedAt: e.now().UTC()}
	if err := e.store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save rule %q: %w", name, err)
	}

	e.logger.Info("rule created",
		zap.String("rule_name", name),
		zap.String("expression", ast.String()),
	)
	return r, nil
}

// CombineRules folds the named rules with op (AND or OR) into a new rule
// stored under a generated name. Names that do not exist are skipped; if none
// exist the error wraps store.ErrNotFound.
func (e *Engine) CombineRules(ctx context.Context, names []string, op string) (*store.Rule, error) {
	r, err := e.combineRules(ctx, names, op)

	label := "invalid"
	if logical, opErr := rule.ParseLogicalOp(op); opErr == nil {
		label = string(logical)
	}
	e.metrics.RecordCombine(label, outcome(err))
	return r, err
}

func (e *Engine) combineRules(ctx context.Context, names []string, op string) (*store.Rule, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: rules are required", ErrInvalidInput)
	}

	logical, err := rule.ParseLogicalOp(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	found, err := e.store.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("find rules: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no matching rules found: %w", store.ErrNotFound)
	}
	if len(found) < len(names) {
		e.logger.Warn("some rules not found, combining the rest",
			zap.Strings("requested", names),
			zap.Int("found", len(found)),
		)
	}

	asts := make([]rule.Node, len(found))
	for i, r := range found {
		asts[i] = r.AST
	}
	combined, err := rule.Combine(asts, logical)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		r := &store.Rule{Name: e.names.Next(), AST: combined, CreatedAt: e.now().UTC()}
		err := e.store.Save(ctx, r)
		if err == nil {
			e.logger.Info("rules combined",
				zap.String("rule_name", r.Name),
				zap.String("operator", string(logical)),
				zap.Int("rules", len(found)),
			)
			return r, nil
		}
		if !errors.Is(err, store.ErrDuplicateName) || attempt >= maxNameAttempts {
			return nil, fmt.Errorf("save combined rule: %w", err)
		}
		e.logger.Debug("generated rule name taken, retrying",
			zap.String("rule_name", r.Name),
			zap.Int("attempt", attempt),
		)
	}
}

// EvaluateRule evaluates the rule stored under ref against data.
func (e *Engine) EvaluateRule(ctx context.Context, ref string, data rule.Record) (bool, error) {
	start := time.Now()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		e.metrics.RecordEvaluation("error", time.Since(start))
		return false, fmt.Errorf("%w: rule reference is required", ErrInvalidInput)
	}

	r, err := e.store.FindByName(ctx, ref)
	if err != nil {
		e.metrics.RecordEvaluation("error", time.Since(start))
		return false, fmt.Errorf("rule %q: %w", ref, err)
	}

	result := rule.Evaluate(r.AST, data)
	e.metrics.RecordEvaluation(fmt.Sprint(result), time.Since(start))

	e.logger.Debug("rule evaluated",
		zap.String("rule_name", ref),
		zap.Bool("result", result),
	)
	return result, nil
}

// GetRule returns the stored rule.
func (e *Engine) GetRule(ctx context.Context, name string) (*store.Rule, error) {
	r, err := e.store.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	return r, nil
}

// ListRules returns all stored rules.
func (e *Engine) ListRules(ctx context.Context) ([]*store.Rule, error) {
	return e.store.List(ctx)
}

// DeleteRule removes a stored rule.
func (e *Engine) DeleteRule(ctx context.Context, name string) error {
	if err := e.store.Delete(ctx, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	e.logger.Info("rule deleted", zap.String("rule_name", name))
	return nil
}

// cleanNames trims names and drops blanks and repeats, keeping order.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, rule.ErrParse):
		return "parse_error"
	case errors.Is(err, store.ErrDuplicateName):
		return "duplicate"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
