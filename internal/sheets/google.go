package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// GoogleAppender writes through the Sheets API with the user's stored OAuth grant.
type GoogleAppender struct {
	oauth  *oauth2.Config
	opts   []option.ClientOption
	logger *slog.Logger
}

// NewGoogleAppender refreshes expired tokens with the given OAuth client. Extra options
// are appended after the token source.
func NewGoogleAppender(clientID, clientSecret string, logger *slog.Logger, opts ...option.ClientOption) *GoogleAppender {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleAppender{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gsheets.SpreadsheetsScope},
		},
		opts:   opts,
		logger: logger,
	}
}

func (a *GoogleAppender) service(ctx context.Context, t Target) (*gsheets.Service, error) {
	var opts []option.ClientOption
	if t.Token != nil {
		opts = append(opts, option.WithTokenSource(a.oauth.TokenSource(ctx, t.Token)))
	}
	opts = append(opts, a.opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (a *GoogleAppender) Append(ctx context.Context, t Target, row []any) (string, error) {
	if t.SpreadsheetID == "" {
		return "", fmt.Errorf("spreadsheet id is required")
	}
	svc, err := a.service(ctx, t)
	if err != nil {
		return "", err
	}

	sheet := t.Sheet
	if sheet == "" {
		if sheet, err = a.firstSheet(ctx, svc, t.SpreadsheetID); err != nil {
			return "", err
		}
	}

	rng := a1Sheet(sheet) + "!A:H"
	resp, err := svc.Spreadsheets.Values.Append(t.SpreadsheetID, rng, &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]any{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		a.logger.Error("sheets.append.failed", "spreadsheet_id", t.SpreadsheetID, "range", rng, "error", err)
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	a.logger.Info("sheets.append.ok", "spreadsheet_id", t.SpreadsheetID, "range", ref)
	return ref, nil
}

func (a *GoogleAppender) firstSheet(ctx context.Context, svc *gsheets.Service, id string) (string, error) {
	ss, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", id, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title != "" {
			return s.Properties.Title, nil
		}
	}
	return constants.DefaultSheetName, nil
}

var _ Appender = (*GoogleAppender)(nil)
