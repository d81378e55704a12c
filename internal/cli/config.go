package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/receiptbox/internal/app"
	"github.com/joseph-ayodele/receiptbox/internal/common"
)

const redacted = "********"

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

// redactedConfig hides credentials; the result is safe to print.
func redactedConfig(cfg common.Config) common.Config {
	redact(&cfg.OCR.VisionAPIKey)
	redact(&cfg.OCR.GeminiAPIKey)
	redact(&cfg.OCR.OpenAIAPIKey)
	redact(&cfg.Sheets.ClientSecret)
	if cfg.Database.Driver == "postgres" {
		redact(&cfg.Database.DSN)
	}
	return cfg
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Configuration hierarchy (highest to lowest priority):
1. Environment variables (RECEIPTBOX_*, plus DB_URL, GRPC_ADDR, OPENAI_API_KEY, ...)
2. Config file (--config or ./receiptbox.yaml)
3. Defaults`,
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML, secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(redactedConfig(*cfg))
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	}
	cmd.AddCommand(show, validate)
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, app.Options{WithoutOCR: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.DB == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "bolt store needs no migration")
				return nil
			}
			if err := a.DB.HealthCheck(cmd.Context(), 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.DB.Dialect())
			return nil
		},
	}
}
