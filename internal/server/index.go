package server

import (
	_ "embed"
	"net/http"

	"github.com/aescanero/dago-rule-engine/internal/rule"
)

//go:embed templates/index.hbs
var indexTemplate string

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.ListRules(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	rows := make([]map[string]interface{}, 0, len(rules))
	for _, rl := range rules {
		kind := "comparison"
		if _, ok := rl.AST.(*rule.OperatorNode); ok {
			kind = "compound"
		}
		rows = append(rows, map[string]interface{}{
			"name":      rl.Name,
			"kind":      kind,
			"ast":       rl.AST,
			"createdAt": rl.CreatedAt,
		})
	}

	page, err := s.templates.Render(indexTemplate, map[string]interface{}{
		"title":      "Rule Engine",
		"rules":      rows,
		"celEnabled": s.cel != nil,
		"empty":      "",
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}
