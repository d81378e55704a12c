package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receiptbox/constants"
)

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default
}

// TesseractProvider shells out to a local tesseract install.
type TesseractProvider struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

// NewTesseractProvider uses os/exec when runner is nil.
func NewTesseractProvider(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = execRunner{provider: constants.ProviderTesseract, logger: logger}
	}
	return &TesseractProvider{cfg: cfg, runner: runner, logger: logger}
}

func (p *TesseractProvider) Name() string {
	return constants.ProviderTesseract
}

// DetectText expects PNG bytes (see Prepare). Confidence is the mean word confidence
// from TSV mode; a failed TSV pass leaves it at zero.
func (p *TesseractProvider) DetectText(ctx context.Context, image []byte) (Detection, error) {
	f, err := os.CreateTemp("", "receiptbox-ocr-*.png")
	if err != nil {
		return Detection{}, fmt.Errorf("temp image: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("failed to remove temp image", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return Detection{}, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return Detection{}, fmt.Errorf("close temp image: %w", err)
	}

	out, errb, err := p.runner.Run(ctx, p.cfg.Binary, p.args(path)...)
	if err != nil {
		return Detection{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	text := Normalize(string(out))
	if text == "" {
		return Detection{}, ErrNoAnnotations
	}

	conf, err := p.meanConfidence(ctx, path)
	if err != nil {
		p.logger.Warn("tesseract tsv confidence unavailable", "error", err)
	}
	return Detection{FullText: text, Confidence: conf}, nil
}

func (p *TesseractProvider) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", p.cfg.Lang}
	if p.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(p.cfg.PSM))
	}
	if p.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(p.cfg.OEM))
	}
	if p.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// meanConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (p *TesseractProvider) meanConfidence(ctx context.Context, path string) (float64, error) {
	out, errb, err := p.runner.Run(ctx, p.cfg.Binary, p.args(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	return parseTSVConfidence(string(out)), nil
}

// parseTSVConfidence skips the header and the -1 rows tesseract emits for non-word levels.
func parseTSVConfidence(tsv string) float64 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || strings.HasPrefix(confStr, "-1") {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n / 100.0
}
