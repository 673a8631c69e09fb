package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aescanero/dago-rule-engine/internal/engine"
	celeval "github.com/aescanero/dago-rule-engine/internal/eval/cel"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/aescanero/dago-rule-engine/internal/store"
	"go.uber.org/zap"
)

// CreateRuleRequest is the body of POST /api/rules/create_rule.
type CreateRuleRequest struct {
	RuleName   string `json:"ruleName"`
	RuleString string `json:"ruleString"`
}

// CombineRulesRequest is the body of POST /api/rules/combine_rules.
type CombineRulesRequest struct {
	Rules []string `json:"rules"`
	Op    string   `json:"op"`
}

// EvaluateRuleRequest is the body of POST /api/rules/evaluate_rule.
// AST holds the name of the stored rule to evaluate.
type EvaluateRuleRequest struct {
	AST  string      `json:"ast"`
	Data rule.Record `json:"data"`
	Mode string      `json:"mode,omitempty"`
}

// EvaluateRuleResponse is the result of an evaluation.
type EvaluateRuleResponse struct {
	Result bool `json:"result"`
}

// RuleCELResponse is the CEL rendering of a stored rule.
type RuleCELResponse struct {
	RuleName   string `json:"ruleName"`
	Expression string `json:"expression"`
}

const modeCEL = "cel"

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	created, err := s.engine.CreateRule(r.Context(), req.RuleName, req.RuleString)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCombineRules(w http.ResponseWriter, r *http.Request) {
	var req CombineRulesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	combined, err := s.engine.CombineRules(r.Context(), req.Rules, req.Op)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, combined)
}

func (s *Server) handleEvaluateRule(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	var (
		result bool
		err    error
	)
	switch strings.ToLower(req.Mode) {
	case "":
		result, err = s.engine.EvaluateRule(r.Context(), req.AST, req.Data)
	case modeCEL:
		result, err = s.evaluateCEL(r, req)
	default:
		err = fmt.Errorf("%w: unknown mode %q", engine.ErrInvalidInput, req.Mode)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, EvaluateRuleResponse{Result: result})
}

func (s *Server) evaluateCEL(r *http.Request, req EvaluateRuleRequest) (bool, error) {
	if s.cel == nil {
		return false, fmt.Errorf("%w: cel mode is disabled", engine.ErrInvalidInput)
	}
	stored, err := s.engine.GetRule(r.Context(), req.AST)
	if err != nil {
		return false, err
	}
	result, err := s.cel.EvaluateRule(r.Context(), stored.AST, req.Data)
	if err != nil {
		return false, fmt.Errorf("%w: %w", engine.ErrInvalidInput, err)
	}
	return result, nil
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.ListRules(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if rules == nil {
		rules = []*store.Rule{}
	}
	s.respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	found, err := s.engine.GetRule(r.Context(), r.PathValue("name"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, found)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRule(r.Context(), r.PathValue("name")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRuleCEL(w http.ResponseWriter, r *http.Request) {
	found, err := s.engine.GetRule(r.Context(), r.PathValue("name"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	expr, err := celeval.Translate(found.AST)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.cel.ValidateExpression(expr); err != nil {
		s.logger.Warn("translated expression does not compile",
			zap.String("rule_name", found.Name),
			zap.Error(err),
		)
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, RuleCELResponse{
		RuleName:   found.Name,
		Expression: expr,
	})
}
