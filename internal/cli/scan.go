package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/app"
	"github.com/joseph-ayodele/receiptbox/internal/async"
	"github.com/joseph-ayodele/receiptbox/internal/ingest"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "OCR one receipt image and print the parsed fields",
		Long: `Scan stores the image, runs the configured OCR provider once and parses
the text. With --save the parsed fields are stored as a receipt.

Example:
  receiptctl scan costco.heic
  receiptctl scan lunch.jpg --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			res, err := a.Service.Scan(cmd.Context(), opts.userID, data, constants.MIMEForExt(filepath.Ext(args[0])))
			if err != nil {
				return err
			}
			if !save {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			rec, err := a.Service.Save(cmd.Context(), opts.userID, res.Draft())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the parsed receipt")
	return cmd
}

type queueFlags struct {
	workers       int
	queueSize     int
	scanTimeout   time.Duration
	includeHidden bool
	save          bool
}

func (f *queueFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.workers, "workers", 4, "concurrent OCR workers")
	cmd.Flags().IntVar(&f.queueSize, "queue-size", 64, "pending scans before enqueue blocks")
	cmd.Flags().DurationVar(&f.scanTimeout, "scan-timeout", 2*time.Minute, "timeout for a single scan")
	cmd.Flags().BoolVar(&f.includeHidden, "hidden", false, "include dot-files and dot-directories")
	cmd.Flags().BoolVar(&f.save, "save", false, "store each parsed receipt")
}

type batchSummary struct {
	mu      sync.Mutex
	scanned int
	saved   int
	failed  int
}

// pipeline wires queue results to optional saving and a line of output per file.
func (f *queueFlags) pipeline(cmd *cobra.Command, a *app.App, userID string, summary *batchSummary) (*async.ScanQueue, *ingest.DirectoryScanner) {
	out := cmd.OutOrStdout()
	handle := func(r async.Result) {
		summary.mu.Lock()
		defer summary.mu.Unlock()
		if r.Err != nil {
			summary.failed++
			fmt.Fprintf(out, "FAIL  %s: %v\n", r.Job.Source, r.Err)
			return
		}
		summary.scanned++
		line := fmt.Sprintf("OK    %s", r.Job.Source)
		if v := r.Scan.Parsed.Vendor; v != nil {
			line += " vendor=" + *v
		}
		if amt := r.Scan.Parsed.Amount; amt != nil {
			line += fmt.Sprintf(" amount=%.2f", *amt)
		}
		if f.save {
			// late results can arrive after the command context is done
			rec, err := a.Service.Save(context.Background(), userID, r.Scan.Draft())
			if err != nil {
				summary.failed++
				fmt.Fprintf(out, "FAIL  %s: save: %v\n", r.Job.Source, err)
				return
			}
			summary.saved++
			line += " id=" + rec.ID.String()
		}
		fmt.Fprintln(out, line)
	}

	queue := async.NewScanQueue(a.Service, a.Logger(),
		async.WithWorkers(f.workers),
		async.WithQueueSize(f.queueSize),
		async.WithProcessTimeout(f.scanTimeout),
		async.WithResultHandler(handle),
	)
	scanner := ingest.NewDirectoryScanner(queue, a.Logger(), ingest.WithHidden(f.includeHidden))
	return queue, scanner
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	flags := &queueFlags{}
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Scan every receipt image under a directory",
		Long: `Batch walks a directory, skips files whose content was already queued in
this run, and scans the rest on a worker pool.

Example:
  receiptctl batch ~/receipts/2024 --workers 8 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			summary := &batchSummary{}
			queue, scanner := flags.pipeline(cmd, a, opts.userID, summary)
			_, stats, walkErr := scanner.ScanDir(cmd.Context(), opts.userID, args[0])
			if err := queue.Shutdown(context.Background()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nfiles: %d matched, %d queued, %d duplicate, %d unreadable\n",
				stats.Matched, stats.Queued, stats.Deduplicated, stats.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "scans: %d ok, %d saved, %d failed\n",
				summary.scanned, summary.saved, summary.failed)
			return walkErr
		},
	}
	flags.register(cmd)
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	flags := &queueFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Scan receipt images as they appear in directories",
		Long: `Watch scans existing images, then keeps scanning new or rewritten files
until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			queue, scanner := flags.pipeline(cmd, a, opts.userID, &batchSummary{})
			err = scanner.Watch(cmd.Context(), opts.userID, args, debounce)
			if shutdownErr := queue.Shutdown(context.Background()); shutdownErr != nil {
				return shutdownErr
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "wait for writes to settle")
	return cmd
}
