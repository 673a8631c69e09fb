// Package template provides a Handlebars template engine for the HTML pages
// served by the rule engine.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	data := map[string]interface{}{
//	    "rules": []map[string]interface{}{
//	        {"name": "rule1", "ast": node, "createdAt": time.Now()},
//	    },
//	}
//
//	out, err := engine.Render("{{len rules}} rules: {{#each rules}}{{name}} {{expression ast}} {{/each}}", data)
//
// Built-in helpers:
//   - default - Return default value if first arg is empty
//   - eq - Equality comparison
//   - expression - Canonical text of a rule tree
//   - rfc3339 - Format a timestamp in UTC
//   - len - Get length of array/slice/string/map
package template
