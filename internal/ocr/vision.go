package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// VisionProvider calls Google Cloud Vision TEXT_DETECTION.
type VisionProvider struct {
	svc    *vision.Service
	logger *slog.Logger
}

// NewVisionProvider accepts the usual client options (API key, credentials file, endpoint).
func NewVisionProvider(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*VisionProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionProvider{svc: svc, logger: logger}, nil
}

func (p *VisionProvider) Name() string {
	return constants.ProviderVision
}

// DetectText returns the first annotation, which Vision fills with the full text.
// Vision rarely sets a confidence on it, in which case zero is reported.
func (p *VisionProvider) DetectText(ctx context.Context, image []byte) (Detection, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := p.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Detection{}, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return Detection{}, ErrNoAnnotations
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return Detection{}, fmt.Errorf("vision annotate: code %d: %s", r.Error.Code, r.Error.Message)
	}
	if len(r.TextAnnotations) == 0 {
		return Detection{}, ErrNoAnnotations
	}
	first := r.TextAnnotations[0]
	p.logger.Debug("vision annotations", "count", len(r.TextAnnotations), "locale", first.Locale)
	return Detection{FullText: first.Description, Confidence: first.Confidence}, nil
}
