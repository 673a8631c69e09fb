package main

import (
	"encoding/json"
	"fmt"

	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <rule>",
		Short: "Parse a rule and print its tree",
		Long: `Parse a rule string and print it.

Formats:
  text    fully parenthesized canonical form (default)
  json    the tree as stored by the rule engine
  tokens  one token per line with its kind and position`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if format == "tokens" {
				for _, tok := range rule.Tokenize(args[0]) {
					fmt.Fprintf(out, "%d\t%s\t%s\n", tok.Pos, tok.Kind, tok.Text)
				}
				return nil
			}

			node, err := rule.Parse(args[0])
			if err != nil {
				return err
			}

			switch format {
			case "text":
				fmt.Fprintln(out, node.String())
			case "json":
				data, err := json.MarshalIndent(node, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode tree: %w", err)
				}
				fmt.Fprintln(out, string(data))
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, tokens")
	return cmd
}
