// Package ocr turns receipt images into raw text through an interchangeable provider.
package ocr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

// ErrNoAnnotations is returned by providers that found no text block at all.
var ErrNoAnnotations = errors.New("provider returned no text annotations")

// Detection is a provider's raw answer. Confidence is zero when the provider has none.
type Detection struct {
	FullText   string
	Confidence float64
}

// Provider is the single external OCR call.
type Provider interface {
	Name() string
	DetectText(ctx context.Context, image []byte) (Detection, error)
}

// Result is what the parser consumes.
type Result struct {
	Text       string
	Confidence float64
}

// Gateway makes exactly one provider call per ExtractText. It never retries or caches.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

type GatewayOption func(*Gateway)

// WithTimeout bounds each provider call in addition to the caller's context.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func NewGateway(provider Provider, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{provider: provider, logger: logger}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Provider() string {
	return g.provider.Name()
}

// ExtractText returns *common.OCRError when the call fails, is cancelled, times out,
// or comes back without any text. Whitespace-only text is passed through for the
// parser to reject.
func (g *Gateway) ExtractText(ctx context.Context, image []byte) (Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	det, err := g.provider.DetectText(ctx, image)
	if err == nil && det.FullText == "" {
		err = ErrNoAnnotations
	}
	if err != nil {
		oerr := common.NewOCRError(g.provider.Name(), err)
		g.logger.Error("ocr.detect.failed",
			"provider", g.provider.Name(),
			"timeout", oerr.Timeout,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return Result{}, oerr
	}

	g.logger.Info("ocr.detect.ok",
		"provider", g.provider.Name(),
		"chars", len(det.FullText),
		"confidence", det.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: det.FullText, Confidence: det.Confidence}, nil
}
