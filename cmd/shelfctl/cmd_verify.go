package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/server"
)

var (
	verifyProduct  string
	verifyCategory string
	verifyLabel    string
	verifyOverview string
	verifyLegacy   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one product display from local image files",
	Long: `Reads the label and overview photos from disk, runs the full verification
pipeline and prints the response JSON. The record is written to the configured store.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyProduct, "product", "p", "", "product id (required)")
	verifyCmd.Flags().StringVarP(&verifyCategory, "category", "k", "", "product category: REF, WM, TV or OTHER (required)")
	verifyCmd.Flags().StringVar(&verifyLabel, "label", "", "path to the label photo (required)")
	verifyCmd.Flags().StringVar(&verifyOverview, "overview", "", "path to the overview photo (required)")
	verifyCmd.Flags().BoolVar(&verifyLegacy, "legacy", false, "print the result/transactionId shape")
	for _, f := range []string{"product", "category", "label", "overview"} {
		_ = verifyCmd.MarkFlagRequired(f)
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	label, err := inlineFile(verifyLabel)
	if err != nil {
		return err
	}
	overview, err := inlineFile(verifyOverview)
	if err != nil {
		return err
	}

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

	res, err := components.Verifier.Verify(ctx, model.VerificationRequest{
		ProductID:       verifyProduct,
		ProductCategory: verifyCategory,
		LabelImage:      label,
		OverviewImage:   overview,
	})
	if err != nil {
		return err
	}

	var out any = res.Client
	if verifyLegacy {
		out = res.Legacy
	}
	return printJSON(cmd, out)
}

func inlineFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image '%s': %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
