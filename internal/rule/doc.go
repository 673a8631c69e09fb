// Package rule implements the rule expression engine.
//
// A rule is an infix boolean expression over data fields:
//
//	age > 30 AND (department = 'Sales' OR department = 'Marketing')
//
// Rules are tokenized, parsed into a binary AST, and later evaluated
// against a data record:
//
//	node, err := rule.Parse("age > 30 AND department = 'Sales'")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ok := rule.Evaluate(node, rule.Record{"age": 35, "department": "Sales"}) // true
//
// Stored ASTs can be folded into a new rule with Combine:
//
//	combined, err := rule.Combine([]rule.Node{a, b, c}, rule.And) // ((a AND b) AND c)
//
// Supported comparisons: <, >, <=, >=, =, ==, !=. AND binds tighter than OR,
// parentheses override precedence. All functions in this package are pure and
// safe for concurrent use; NameGenerator guards its random source.
package rule
