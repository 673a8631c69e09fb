// Package engine connects the rule expression core with rule storage.
//
// It implements the operations exposed to the HTTP API and the stream worker:
//
//	eng := engine.New(store.NewMemoryStore(), rule.NewNameGenerator("combined", 8, nil), m, logger)
//
//	r, err := eng.CreateRule(ctx, "rule1", "age > 30 AND department = 'Sales'")
//	c, err := eng.CombineRules(ctx, []string{"rule1", "rule2"}, "AND")
//	ok, err := eng.EvaluateRule(ctx, "rule1", rule.Record{"age": 35, "department": "Sales"})
package engine
