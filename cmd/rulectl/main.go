// Rulectl parses, evaluates and combines rules offline, without a running
// rule engine.
//
// Usage:
//
//	# Print the canonical form of a rule
//	rulectl parse "age > 30 AND department = 'Sales'"
//
//	# Print the stored JSON shape of a rule
//	rulectl parse --format json "age > 30"
//
//	# Evaluate a rule against a YAML or JSON record
//	rulectl eval "age > 30" --data user.yaml
//	echo '{"age": 35}' | rulectl eval "age > 30" --data -
//
//	# Translate a rule to CEL
//	rulectl cel "age > 30 AND department = 'Sales'"
//
//	# Combine rules
//	rulectl combine --op OR "age > 30" "salary > 50000"
package main

import (
	"fmt"
	"os"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
