// Package cel exports rules as CEL (Common Expression Language) expressions.
//
// Translate turns a rule AST into CEL source that downstream services can
// evaluate without this engine, and Evaluator compiles and runs such
// expressions against a data record:
//
//	expr, _ := cel.Translate(node)
//	// (("age" in data && data["age"] > 30.0) && ("department" in data && data["department"] == "Sales"))
//
//	evaluator := cel.NewEvaluator()
//	ok, err := evaluator.EvaluateRule(ctx, node, rule.Record{"age": 35, "department": "Sales"})
//
// CEL evaluation is strictly typed: comparing a string field with a number
// is an evaluation error, where the native rule evaluator coerces the two
// sides. Compiled programs are cached by expression text.
package cel
