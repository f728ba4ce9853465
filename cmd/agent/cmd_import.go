package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/support-agent/internal/infrastructure/importer"
)

var (
	importCategory string
	importVerified bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-load FAQs from .json, .txt, .xlsx or .pdf",
	Long: `Bulk-load FAQs into the configured knowledge base.

.json files hold {"faqs": [...]} or a bare array; .txt and .pdf files hold
"Q:" / "A:" blocks separated by blank lines; .xlsx files use the first sheet
with question, answer, category and verified columns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := importer.ReadFile(args[0], importer.Options{
			DefaultCategory: importCategory,
			Verified:        importVerified,
		})
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		added, err := app.Knowledge.ImportFAQs(cmd.Context(), drafts)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d faqs from %s\n", added, len(drafts), args[0])
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importCategory, "category", "general", "category for entries that do not set one")
	importCmd.Flags().BoolVar(&importVerified, "verified", false, "mark imported entries as verified (json entries keep their own flag)")
}
