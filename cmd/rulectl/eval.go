package main

import (
	"context"
	"fmt"
	"io"
	"os"

	celeval "github.com/aescanero/dago-rule-engine/internal/eval/cel"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEvalCmd() *cobra.Command {
	var (
		dataFile string
		useCEL   bool
	)

	cmd := &cobra.Command{
		Use:   "eval <rule>",
		Short: "Evaluate a rule against a record",
		Long: `Evaluate a rule against a record read from a YAML or JSON file.
Use "-" to read the record from standard input.

Examples:
  rulectl eval "age > 30" --data user.yaml
  echo '{"age": 35}' | rulectl eval "age > 30" --data -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := rule.Parse(args[0])
			if err != nil {
				return err
			}

			record, err := loadRecord(cmd.InOrStdin(), dataFile)
			if err != nil {
				return err
			}

			result := rule.Evaluate(node, record)
			if useCEL {
				result, err = celeval.NewEvaluator().EvaluateRule(context.Background(), node, record)
				if err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "record file (YAML or JSON), - for stdin")
	cmd.Flags().BoolVar(&useCEL, "cel", false, "evaluate the CEL translation instead")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// loadRecord reads a record from path, or from stdin when path is "-".
// JSON is read as YAML.
func loadRecord(stdin io.Reader, path string) (rule.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	record := rule.Record{}
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}
