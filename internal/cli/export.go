package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receiptbox/internal/app"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

func parseDateFlag(name, value string) (*entity.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := entity.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date, use YYYY-MM-DD: %w", name, err)
	}
	return &d, nil
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, out, fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored receipts as CSV or XLSX",
		Long: `Export writes the user's receipts, newest first. --from without --to runs
through today. CSV always includes every receipt.

Example:
  receiptctl export --format csv --out receipts.csv
  receiptctl export --from 2024-01-01 --to 2024-03-31 --out q1.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDateFlag("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDateFlag("to", toStr)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown --format %q (csv or xlsx)", format)
			}

			a, err := opts.open(cmd, app.Options{WithoutOCR: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var data []byte
			if format == "csv" {
				data, err = a.Exports.CSV(cmd.Context(), opts.userID)
			} else {
				data, err = a.Exports.XLSX(cmd.Context(), opts.userID, from, to)
			}
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD")
	return cmd
}
