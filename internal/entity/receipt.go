package entity

import (
	"time"

	"github.com/google/uuid"
)

// Receipt represents a receipt for data transfer between layers.
type Receipt struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	ImageURL      string    `json:"image_url"`
	Vendor        *string   `json:"vendor"`
	Amount        *float64  `json:"amount"`
	Date          *Date     `json:"date"`
	Category      *string   `json:"category"`
	TaxAmount     *float64  `json:"tax_amount"`
	PaymentMethod *string   `json:"payment_method"`
	Notes         *string   `json:"notes"`
	RawOCRData    *string   `json:"raw_ocr_data"`
	SheetID       *string   `json:"sheet_id"`
	SheetRowID    *string   `json:"sheet_row_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReceiptDraft is the reviewed form submitted by the user for persistence.
type ReceiptDraft struct {
	ImageURL      string   `json:"image_url"`
	Vendor        *string  `json:"vendor,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Date          *Date    `json:"date,omitempty"`
	Category      *string  `json:"category,omitempty"`
	TaxAmount     *float64 `json:"tax_amount,omitempty"`
	PaymentMethod *string  `json:"payment_method,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	RawOCRData    *string  `json:"raw_ocr_data,omitempty"`
}

// ReceiptPatch updates only the non-nil fields.
type ReceiptPatch struct {
	Vendor        *string  `json:"vendor,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Date          *Date    `json:"date,omitempty"`
	Category      *string  `json:"category,omitempty"`
	TaxAmount     *float64 `json:"tax_amount,omitempty"`
	PaymentMethod *string  `json:"payment_method,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

func (p ReceiptPatch) IsEmpty() bool {
	return p.Vendor == nil && p.Amount == nil && p.Date == nil && p.Category == nil &&
		p.TaxAmount == nil && p.PaymentMethod == nil && p.Notes == nil
}

const DefaultPageSize = 50

// ListOptions pages receipts ordered by date, newest first.
type ListOptions struct {
	Limit  int
	Offset int
	From   *Date
	To     *Date
}

// Normalized applies the default page size and clamps negative offsets.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type ReceiptPage struct {
	Receipts []*Receipt `json:"receipts"`
	Total    int        `json:"total"`
}
