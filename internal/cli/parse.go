package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/app"
	"github.com/joseph-ayodele/receiptbox/internal/parse"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var confidence float64
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse OCR text into receipt fields",
		Long: `Parse reads recognized receipt text from a file or stdin and prints the
extracted fields as JSON. No OCR provider or database is involved.

Example:
  receiptctl parse receipt.txt
  tesseract receipt.png - | receiptctl parse`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			classifier, err := app.Classifier(cfg.OCR)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			parsed, err := parse.New(classifier, opts.logger(cmd, cfg)).ParseText(string(text), confidence)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), parsed)
		},
	}
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "OCR confidence to report (0 uses the default)")
	return cmd
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "classify <vendor>...",
		Short: "Print the category for each vendor name",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, cat := range constants.AllCategories() {
					fmt.Fprintln(cmd.OutOrStdout(), cat)
				}
				return nil
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			classifier, err := app.Classifier(cfg.OCR)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, vendor := range args {
				cat, _ := classifier.Classify(strings.TrimSpace(vendor))
				fmt.Fprintf(tw, "%s\t%s\n", vendor, cat)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the category list instead")
	return cmd
}
