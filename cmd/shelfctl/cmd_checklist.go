package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/shelfcheck/internal/core/checklist"
)

var checklistPath string

var checklistCmd = &cobra.Command{
	Use:   "checklist [category]",
	Short: "Print the inspection checklist for a category",
	Long: `Prints the checklist interpolated into the prompt for the given category.
Unknown categories print the OTHER checklist. Without an argument every
category is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChecklist,
}

func init() {
	checklistCmd.Flags().StringVar(&checklistPath, "file", "", "YAML checklist table (defaults to the built-in table)")
}

func runChecklist(cmd *cobra.Command, args []string) error {
	table := checklist.Default()
	if checklistPath != "" {
		var err error
		if table, err = checklist.Load(checklistPath); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		fmt.Fprintln(out, table.FeaturesFor(args[0]))
		return nil
	}
	for _, c := range checklist.Categories {
		fmt.Fprintf(out, "[%s]\n%s\n\n", c, table.FeaturesFor(string(c)))
	}
	return nil
}
