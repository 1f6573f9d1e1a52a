package main

import (
	"github.com/spf13/cobra"

	"github.com/agenthands/shelfcheck/internal/server"
)

var referencesCmd = &cobra.Command{
	Use:   "references <category> <product-id>",
	Short: "Show which reference images a verification would use",
	Args:  cobra.ExactArgs(2),
	RunE:  runReferences,
}

func runReferences(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	components, err := server.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	keys, err := components.Catalog.References(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"prefix":   components.Catalog.ProductPrefix(args[0], args[1]),
		"label":    nonNil(keys.Label),
		"overview": nonNil(keys.Overview),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
