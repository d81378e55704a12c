// Package parse turns raw OCR text into a ParsedReceipt ready for human review.
package parse

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/classify"
	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/extract"
	"github.com/joseph-ayodele/receiptbox/internal/ocr"
)

// DefaultConfidence is reported when the OCR provider gave none.
const DefaultConfidence = 0.5

// Parser is stateless apart from its classifier and safe for concurrent use.
type Parser struct {
	classifier *classify.Classifier
	logger     *slog.Logger
}

// New uses the default category table when classifier is nil.
func New(classifier *classify.Classifier, logger *slog.Logger) *Parser {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{classifier: classifier, logger: logger}
}

func (p *Parser) Parse(res ocr.Result) (*entity.ParsedReceipt, error) {
	return p.ParseText(res.Text, res.Confidence)
}

// ParseText returns common.ErrNoTextDetected, unwrapped, for empty or blank text.
// Every other input yields a receipt, possibly with all fields nil.
func (p *Parser) ParseText(text string, confidence float64) (*entity.ParsedReceipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrNoTextDetected
	}
	if confidence <= 0 {
		confidence = DefaultConfidence
	}

	out := &entity.ParsedReceipt{
		Vendor:        extract.Vendor(text),
		Amount:        extract.Amount(text),
		Date:          entity.DatePtr(extract.Date(text)),
		TaxAmount:     extract.Tax(text),
		PaymentMethod: extract.PaymentMethod(text),
		RawText:       text,
		Confidence:    confidence,
	}
	if out.Vendor != nil {
		if cat, ok := p.classifier.Classify(*out.Vendor); ok {
			out.Category = &cat
		}
	}

	p.logger.Debug("receipt parsed",
		"vendor_found", out.Vendor != nil,
		"amount_found", out.Amount != nil,
		"date_found", out.Date != nil,
		"category", categoryAttr(out.Category),
		"confidence", confidence,
	)
	return out, nil
}

func categoryAttr(c *constants.Category) string {
	if c == nil {
		return ""
	}
	return string(*c)
}
