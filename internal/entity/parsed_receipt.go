package entity

import "github.com/joseph-ayodele/receiptbox/constants"

// ParsedReceipt is the unreviewed result of parsing OCR text.
// Any field other than RawText and Confidence may be nil.
type ParsedReceipt struct {
	Vendor        *string             `json:"vendor"`
	Amount        *float64            `json:"amount"`
	Date          *Date               `json:"date"`
	Category      *constants.Category `json:"category"`
	TaxAmount     *float64            `json:"tax_amount"`
	PaymentMethod *string             `json:"payment_method"`
	RawText       string              `json:"raw_text"`
	Confidence    float64             `json:"confidence"`
}
