package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/rule"
)

var (
	// ErrNotFound is returned when no rule has the requested name.
	ErrNotFound = errors.New("rule not found")

	// ErrDuplicateName is returned by Save when the name is taken.
	ErrDuplicateName = errors.New("rule name already exists")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// Rule is a stored rule: a unique name and its parsed AST.
type Rule struct {
	Name      string    `json:"ruleName"`
	AST       rule.Node `json:"ruleAST"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON decodes the AST through rule.UnmarshalNode.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var doc struct {
		Name      string          `json:"ruleName"`
		AST       json.RawMessage `json:"ruleAST"`
		CreatedAt time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	ast, err := rule.UnmarshalNode(doc.AST)
	if err != nil {
		return fmt.Errorf("rule %q: %w", doc.Name, err)
	}
	r.Name = doc.Name
	r.AST = ast
	r.CreatedAt = doc.CreatedAt
	return nil
}

// Store is the storage collaborator of the rule engine.
type Store interface {
	// Save stores a new rule. It fails with ErrDuplicateName if the name
	// already exists.
	Save(ctx context.Context, r *Rule) error

	// FindByName returns the rule or ErrNotFound.
	FindByName(ctx context.Context, name string) (*Rule, error)

	// FindByNames returns the rules that exist among names, in the order
	// of names. Unknown names are skipped.
	FindByNames(ctx context.Context, names []string) ([]*Rule, error)

	// List returns every rule ordered by name.
	List(ctx context.Context) ([]*Rule, error)

	// Delete removes a rule or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// orderByNames arranges found rules in the order of names, dropping
// duplicates and names with no rule.
func orderByNames(names []string, found map[string]*Rule) []*Rule {
	out := make([]*Rule, 0, len(found))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if r, ok := found[name]; ok {
			out = append(out, r)
		}
	}
	return out
}
