package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// XLSXAppender keeps one workbook per spreadsheet id under dir, for offline use.
type XLSXAppender struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewXLSXAppender(dir string, logger *slog.Logger) (*XLSXAppender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating workbook directory: %w", err)
	}
	return &XLSXAppender{dir: dir, logger: logger}, nil
}

// Path is where the workbook for spreadsheetID lives.
func (a *XLSXAppender) Path(spreadsheetID string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}
		return r
	}, spreadsheetID)
	return filepath.Join(a.dir, name+".xlsx")
}

func (a *XLSXAppender) Append(_ context.Context, t Target, row []any) (string, error) {
	if t.SpreadsheetID == "" {
		return "", fmt.Errorf("spreadsheet id is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.Path(t.SpreadsheetID)
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = newWorkbook(t.Sheet)
	}
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", err
		}
		if err := writeHeader(f, sheet); err != nil {
			return "", err
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("read rows: %w", err)
	}
	n := len(rows) + 1
	cell, _ := excelize.CoordinatesToCellName(1, n)
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return "", fmt.Errorf("write row: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	ref := fmt.Sprintf("%s!A%d:H%d", a1Sheet(sheet), n, n)
	a.logger.Info("sheets.append.ok", "workbook", path, "range", ref)
	return ref, nil
}

func newWorkbook(sheet string) (*excelize.File, error) {
	if sheet == "" {
		sheet = constants.DefaultSheetName
	}
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheet); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "C", 24)
	_ = f.SetColWidth(sheet, "G", "H", 40)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string) error {
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	return f.SetSheetRow(sheet, "A1", &header)
}

var _ Appender = (*XLSXAppender)(nil)
