// Package cli implements the receiptctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receiptbox/internal/app"
	"github.com/joseph-ayodele/receiptbox/internal/common"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

type rootOptions struct {
	cfgFile string
	verbose bool
	userID  string
}

// NewRootCmd builds a fresh command tree; tests call it once per case.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "receiptctl",
		Short: "Scan, parse and export receipts",
		Long: `receiptctl runs the receipt pipeline from the command line:
OCR an image, parse the text into vendor, amount, date, tax and payment
method, categorize the vendor, store the result and export it.

Configuration comes from defaults, then ./receiptbox.yaml or --config,
then RECEIPTBOX_* environment variables.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./receiptbox.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&opts.userID, "user", "local", "user id that owns stored receipts")

	root.AddCommand(
		newParseCmd(opts),
		newClassifyCmd(opts),
		newScanCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newExportCmd(opts),
		newMigrateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *rootOptions) config() (*common.Config, error) {
	cfg, err := common.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// logger writes to stderr so stdout stays machine readable. Below --verbose only warnings show.
func (o *rootOptions) logger(cmd *cobra.Command, cfg *common.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if !o.verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) open(cmd *cobra.Command, appOpts app.Options) (*app.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if !appOpts.WithoutOCR {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return app.New(cmd.Context(), cfg, o.logger(cmd, cfg), appOpts)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "receiptctl %s\n", Version)
		},
	}
}
