// Package sheets appends reviewed receipts to a user's spreadsheet.
package sheets

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

// Columns is the fixed row layout existing spreadsheets rely on. Do not reorder.
var Columns = []string{"Date", "Vendor", "Category", "Amount", "Tax", "Payment Method", "Receipt Link", "Notes"}

// BuildRow flattens a receipt in Columns order. Missing values become empty cells;
// amounts stay numeric so sheet formulas keep working.
func BuildRow(r *entity.Receipt) []any {
	row := make([]any, len(Columns))
	row[0] = ""
	if r.Date != nil {
		row[0] = r.Date.String()
	}
	row[1] = deref(r.Vendor)
	row[2] = deref(r.Category)
	row[3] = number(r.Amount)
	row[4] = number(r.TaxAmount)
	row[5] = deref(r.PaymentMethod)
	row[6] = r.ImageURL
	row[7] = deref(r.Notes)
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func number(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

// Target names the spreadsheet and, optionally, the sheet inside it.
// An empty Sheet means the first sheet of the spreadsheet.
type Target struct {
	SpreadsheetID string
	Sheet         string
	Token         *oauth2.Token
}

// TargetFor builds the target for a stored connection.
func TargetFor(c *entity.SheetConnection) Target {
	t := Target{SpreadsheetID: c.SheetID, Sheet: c.SheetName}
	if c.AccessToken != "" || c.RefreshToken != "" {
		t.Token = &oauth2.Token{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken, TokenType: "Bearer"}
		if c.TokenExpiry != nil {
			t.Token.Expiry = *c.TokenExpiry
		}
	}
	return t
}

// Appender adds one row and returns a reference to where it landed, such as "Sheet1!A7:H7".
type Appender interface {
	Append(ctx context.Context, target Target, row []any) (string, error)
}

// a1Sheet quotes a sheet title for use in an A1 range.
func a1Sheet(title string) string {
	for _, r := range title {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(title, "'", "''") + "'"
		}
	}
	return title
}
