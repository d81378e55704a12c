package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs a local OCR engine binary. The first argument is always the image path.
type execRunner struct {
	provider string
	logger   *slog.Logger
}

// Run reports a killed process as the context error that killed it, so callers can
// tell a timeout from an engine failure.
func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var image string
	if len(args) > 0 {
		image = args[0]
	}
	log := r.logger.With("provider", r.provider, "binary", name, "image", image, "mode", runMode(args))

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	start := time.Now()
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	if err != nil {
		log.Error("ocr.exec.failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
		return out.Bytes(), errb.Bytes(), err
	}
	log.Debug("ocr.exec.ok",
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", out.Len(),
	)
	return out.Bytes(), errb.Bytes(), nil
}

// runMode is "tsv" for confidence passes and "text" otherwise.
func runMode(args []string) string {
	if n := len(args); n > 0 && args[n-1] == "tsv" {
		return "tsv"
	}
	return "text"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
