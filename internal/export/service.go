package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/repository"
)

// Headers is the export layout: the sheet columns without the receipt link.
var Headers = []string{"Date", "Vendor", "Category", "Amount", "Tax", "Payment Method", "Notes"}

// Service produces CSV and XLSX downloads of a user's receipts, newest first.
type Service struct {
	receiptsRepo repository.ReceiptRepository
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(repo repository.ReceiptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{receiptsRepo: repo, logger: logger, now: time.Now}
}

// window applies the export date rules.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all receipts.
func (s *Service) window(from, to *entity.Date) (*entity.Date, *entity.Date) {
	if from != nil && to == nil {
		today := entity.NewDate(s.now().UTC())
		to = &today
	}
	return from, to
}

func record(r *entity.Receipt) []string {
	date := ""
	if r.Date != nil {
		date = r.Date.String()
	}
	return []string{date, str(r.Vendor), str(r.Category), money(r.Amount), money(r.TaxAmount), str(r.PaymentMethod), str(r.Notes)}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func money(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

// CSV returns every receipt the user owns.
func (s *Service) CSV(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()
	recs, err := s.receiptsRepo.ListAll(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Headers); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if err := w.Write(record(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"user_id", userID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// XLSX returns a workbook with a single Receipts sheet for the date window.
func (s *Service) XLSX(ctx context.Context, userID string, from, to *entity.Date) ([]byte, error) {
	start := time.Now()
	from, to = s.window(from, to)

	recs, err := s.receiptsRepo.ListAll(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Receipts"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		if r.Date != nil {
			write(1, r.Date.String())
		}
		write(2, str(r.Vendor))
		write(3, str(r.Category))
		if r.Amount != nil {
			write(4, *r.Amount)
		}
		if r.TaxAmount != nil {
			write(5, *r.TaxAmount)
		}
		write(6, str(r.PaymentMethod))
		write(7, truncate(str(r.Notes), 140))
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // vendor
	_ = f.SetColWidth(sheet, "C", "C", 22) // category
	_ = f.SetColWidth(sheet, "D", "E", 12) // amounts
	_ = f.SetColWidth(sheet, "F", "F", 16)
	_ = f.SetColWidth(sheet, "G", "G", 48) // notes

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
