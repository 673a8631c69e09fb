package main

import (
	"encoding/json"
	"fmt"

	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/spf13/cobra"
)

func newCombineCmd() *cobra.Command {
	var (
		op     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "combine <rule>...",
		Short: "Combine rules with AND or OR",
		Long: `Combine rules left to right with one logical operator.

Example:
  rulectl combine --op OR "age > 30" "salary > 50000" "level = 'senior'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logical, err := rule.ParseLogicalOp(op)
			if err != nil {
				return err
			}

			nodes := make([]rule.Node, 0, len(args))
			for _, s := range args {
				node, err := rule.Parse(s)
				if err != nil {
					return fmt.Errorf("rule %q: %w", s, err)
				}
				nodes = append(nodes, node)
			}

			combined, err := rule.Combine(nodes, logical)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(combined, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode tree: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, combined.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "AND", "logical operator: AND, OR")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}
