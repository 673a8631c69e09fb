package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rulectl",
		Short: "Offline tool for rule strings",
		Long: `rulectl works on rule strings such as

  (age > 30 AND department = 'Sales') OR (salary > 50000)

without a running rule engine. It parses rules into their tree form,
evaluates them against records, translates them to CEL and combines
several rules into one.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newParseCmd(),
		newEvalCmd(),
		newCELCmd(),
		newCombineCmd(),
	)
	return root
}
