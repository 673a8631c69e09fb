package main

import (
	"fmt"

	celeval "github.com/aescanero/dago-rule-engine/internal/eval/cel"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/spf13/cobra"
)

func newCELCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cel <rule>",
		Short: "Translate a rule to a CEL expression",
		Long: `Translate a rule to a CEL expression over a map variable named "data".
The expression is compiled before it is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := rule.Parse(args[0])
			if err != nil {
				return err
			}

			expr, err := celeval.Translate(node)
			if err != nil {
				return err
			}
			if err := celeval.NewEvaluator().ValidateExpression(expr); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), expr)
			return nil
		},
	}
}
