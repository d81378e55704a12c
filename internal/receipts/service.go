package receipts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/ocr"
	"github.com/joseph-ayodele/receiptbox/internal/parse"
	"github.com/joseph-ayodele/receiptbox/internal/repository"
	"github.com/joseph-ayodele/receiptbox/internal/sheets"
	"github.com/joseph-ayodele/receiptbox/internal/storage"
)

// TextExtractor is satisfied by *ocr.Gateway.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (ocr.Result, error)
	Provider() string
}

// Quota is satisfied by *billing.Service.
type Quota interface {
	CheckUploadQuota(ctx context.Context, userID string, now time.Time) error
	CheckSheetQuota(ctx context.Context, userID string, connected int) error
}

// RateLimiter is satisfied by *billing.Limiter.
type RateLimiter interface {
	Allow(userID string) error
	Wait(ctx context.Context, userID string) error
}

// Deps wires the service. Quota, Limiter and Appender may be nil to disable
// quota checks, scan rate limiting and sheet sync respectively.
type Deps struct {
	Receipts repository.ReceiptRepository
	Sheets   repository.SheetConnectionRepository
	Usage    repository.UsageRepository
	Images   storage.ImageStore
	OCR      TextExtractor
	Parser   *parse.Parser
	Quota    Quota
	Limiter  RateLimiter
	Appender sheets.Appender
}

// Service handles receipt business logic.
type Service struct {
	receiptRepo repository.ReceiptRepository
	sheetRepo   repository.SheetConnectionRepository
	usageRepo   repository.UsageRepository
	images      storage.ImageStore
	ocr         TextExtractor
	parser      *parse.Parser
	quota       Quota
	limiter     RateLimiter
	appender    sheets.Appender
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parse.New(nil, logger)
	}
	return &Service{
		receiptRepo: deps.Receipts,
		sheetRepo:   deps.Sheets,
		usageRepo:   deps.Usage,
		images:      deps.Images,
		ocr:         deps.OCR,
		parser:      deps.Parser,
		quota:       deps.Quota,
		limiter:     deps.Limiter,
		appender:    deps.Appender,
		logger:      logger,
		now:         time.Now,
	}
}

// ScanResult is what the review form is populated from.
type ScanResult struct {
	ImageURL string                `json:"image_url"`
	Parsed   *entity.ParsedReceipt `json:"parsed"`
}

// Draft pre-fills the review form from the scan, keeping the OCR text for reparsing.
func (r *ScanResult) Draft() entity.ReceiptDraft {
	d := entity.ReceiptDraft{ImageURL: r.ImageURL}
	if p := r.Parsed; p != nil {
		d.Vendor = p.Vendor
		d.Amount = p.Amount
		d.Date = p.Date
		d.TaxAmount = p.TaxAmount
		d.PaymentMethod = p.PaymentMethod
		if p.Category != nil {
			c := string(*p.Category)
			d.Category = &c
		}
		if p.RawText != "" {
			raw := p.RawText
			d.RawOCRData = &raw
		}
	}
	return d
}

func requireUser(userID string) error {
	if err := common.NewValidator().Field("user_id", userID, common.Required, common.MaxLength(128)).Error(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	return nil
}

// Scan stores the upload, runs OCR once and parses the text. OCR and no-text failures
// are returned unchanged and the stored image is removed again.
func (s *Service) Scan(ctx context.Context, userID string, image []byte, contentType string) (*ScanResult, error) {
	return s.scan(ctx, userID, image, contentType, false)
}

// ScanQueued is Scan for background jobs: it waits for the user's rate limit to admit
// the scan instead of failing with ErrRateLimited.
func (s *Service) ScanQueued(ctx context.Context, userID string, image []byte, contentType string) (*ScanResult, error) {
	return s.scan(ctx, userID, image, contentType, true)
}

func (s *Service) scan(ctx context.Context, userID string, image []byte, contentType string, wait bool) (*ScanResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if s.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR provider configured", common.ErrInvalidInput)
	}
	if s.limiter != nil && wait {
		if err := s.limiter.Wait(ctx, userID); err != nil {
			return nil, fmt.Errorf("wait for scan slot: %w", err)
		}
	} else if s.limiter != nil {
		if err := s.limiter.Allow(userID); err != nil {
			s.logger.Warn("scan rate limited", "user_id", userID)
			return nil, err
		}
	}

	prepared, err := ocr.Prepare(image, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	key := storage.ObjectKey(userID, contentType)
	url, err := s.images.Put(ctx, key, image, contentType)
	if err != nil {
		s.logger.Error("failed to store receipt image", "user_id", userID, "error", err)
		return nil, fmt.Errorf("store image: %w", err)
	}

	res, err := s.ocr.ExtractText(ctx, prepared)
	if err != nil {
		s.discardImage(key)
		return nil, err
	}
	parsed, err := s.parser.Parse(res)
	if err != nil {
		s.discardImage(key)
		return nil, err
	}

	s.logger.Info("receipt scanned", "user_id", userID, "request_id", common.RequestIDFromContext(ctx), "provider", s.ocr.Provider(), "image_url", url, "confidence", parsed.Confidence)
	return &ScanResult{ImageURL: url, Parsed: parsed}, nil
}

func (s *Service) discardImage(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to discard receipt image", "key", key, "error", err)
	}
}

// ParseText parses text that was already recognized elsewhere, or stored raw text.
func (s *Service) ParseText(text string, confidence float64) (*entity.ParsedReceipt, error) {
	return s.parser.ParseText(text, confidence)
}

// Save persists a reviewed receipt and records the upload against the user's quota.
func (s *Service) Save(ctx context.Context, userID string, draft entity.ReceiptDraft) (*entity.Receipt, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}
	if s.quota != nil {
		if err := s.quota.CheckUploadQuota(ctx, userID, s.now()); err != nil {
			return nil, err
		}
	}

	rec, err := s.receiptRepo.Create(ctx, &entity.Receipt{
		UserID:        userID,
		ImageURL:      draft.ImageURL,
		Vendor:        draft.Vendor,
		Amount:        draft.Amount,
		Date:          draft.Date,
		Category:      draft.Category,
		TaxAmount:     draft.TaxAmount,
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
		RawOCRData:    draft.RawOCRData,
	})
	if err != nil {
		return nil, err
	}

	if err := s.usageRepo.Log(ctx, userID, constants.UsageReceiptUpload); err != nil {
		// the receipt is saved; a missed usage row only under-counts the quota
		s.logger.Error("failed to log usage", "user_id", userID, "receipt_id", rec.ID, "error", err)
	}
	s.logger.Info("receipt saved", "user_id", userID, "request_id", common.RequestIDFromContext(ctx), "receipt_id", rec.ID)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*entity.Receipt, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.receiptRepo.Get(ctx, userID, id)
}

// List returns one page, newest first, and the total across pages.
func (s *Service) List(ctx context.Context, userID string, opts entity.ListOptions) (*entity.ReceiptPage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if opts.From != nil && opts.To != nil && opts.From.After(opts.To.Time) {
		return nil, fmt.Errorf("%w: from date is after to date", common.ErrInvalidInput)
	}
	recs, total, err := s.receiptRepo.List(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*entity.Receipt{}
	}
	s.logger.Debug("receipts listed", "user_id", userID, "count", len(recs), "total", total)
	return &entity.ReceiptPage{Receipts: recs, Total: total}, nil
}

// Update applies a reviewer's corrections; the category is canonicalized.
func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, patch entity.ReceiptPatch) (*entity.Receipt, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	rec, err := s.receiptRepo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt updated", "user_id", userID, "receipt_id", id)
	return rec, nil
}

// Delete removes the stored image first, then the row. A missing image does not block deletion.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if rec.ImageURL != "" {
		key, err := s.images.KeyFromURL(rec.ImageURL)
		switch {
		case err != nil:
			s.logger.Warn("receipt image not managed by this store", "receipt_id", id, "image_url", rec.ImageURL)
		default:
			if err := s.images.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrNotFound) {
				s.logger.Error("failed to delete receipt image", "receipt_id", id, "error", err)
				return fmt.Errorf("delete image: %w", err)
			}
		}
	}
	if err := s.receiptRepo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("receipt deleted", "user_id", userID, "receipt_id", id)
	return nil
}

// Reparse runs the parser again over the stored OCR text. The result is not saved.
func (s *Service) Reparse(ctx context.Context, userID string, id uuid.UUID) (*entity.ParsedReceipt, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rec.RawOCRData == nil {
		return nil, common.ErrNoTextDetected
	}
	return s.parser.ParseText(*rec.RawOCRData, 0)
}

// ConnectSheet stores a spreadsheet grant, enforcing the plan's sheet limit for new sheets.
func (s *Service) ConnectSheet(ctx context.Context, userID string, conn entity.SheetConnection) (*entity.SheetConnection, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := common.NewValidator().
		Field("sheet_id", conn.SheetID, common.Required, common.MaxLength(128)).
		Field("sheet_name", conn.SheetName, common.MaxLength(100)).
		Error(); err != nil {
		return nil, err
	}
	conn.UserID = userID

	existing, err := s.sheetRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	isNew := true
	for _, c := range existing {
		if c.SheetID == conn.SheetID {
			isNew = false
		}
	}
	if isNew && s.quota != nil {
		if err := s.quota.CheckSheetQuota(ctx, userID, len(existing)); err != nil {
			return nil, err
		}
	}
	if len(existing) == 0 {
		conn.IsDefault = true
	}
	return s.sheetRepo.Upsert(ctx, &conn)
}

// SyncToSheet appends the receipt to a connected sheet and remembers where it landed.
func (s *Service) SyncToSheet(ctx context.Context, userID string, receiptID uuid.UUID, sheetID string) (string, error) {
	if s.appender == nil {
		return "", fmt.Errorf("%w: sheet sync is not configured", common.ErrInvalidInput)
	}
	rec, err := s.Get(ctx, userID, receiptID)
	if err != nil {
		return "", err
	}
	conn, err := s.sheetRepo.GetBySheetID(ctx, userID, sheetID)
	if err != nil {
		return "", err
	}

	ref, err := s.appender.Append(ctx, sheets.TargetFor(conn), sheets.BuildRow(rec))
	if err != nil {
		s.logger.Error("failed to sync receipt to sheet", "user_id", userID, "receipt_id", receiptID, "sheet_id", sheetID, "error", err)
		return "", fmt.Errorf("append row: %w", err)
	}

	if err := s.receiptRepo.SetSheet(ctx, userID, receiptID, sheetID, ref); err != nil {
		return "", err
	}
	if err := s.sheetRepo.TouchLastSync(ctx, userID, conn.ID, s.now()); err != nil {
		s.logger.Warn("failed to record sheet sync time", "sheet_id", sheetID, "error", err)
	}
	if err := s.usageRepo.Log(ctx, userID, constants.UsageSheetSync); err != nil {
		s.logger.Error("failed to log usage", "user_id", userID, "error", err)
	}
	s.logger.Info("receipt synced to sheet", "user_id", userID, "receipt_id", receiptID, "sheet_id", sheetID, "range", ref)
	return ref, nil
}
