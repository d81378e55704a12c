// Package app assembles the receipt services from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/billing"
	"github.com/joseph-ayodele/receiptbox/internal/classify"
	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/export"
	"github.com/joseph-ayodele/receiptbox/internal/ocr"
	"github.com/joseph-ayodele/receiptbox/internal/parse"
	"github.com/joseph-ayodele/receiptbox/internal/receipts"
	"github.com/joseph-ayodele/receiptbox/internal/repository"
	"github.com/joseph-ayodele/receiptbox/internal/sheets"
	"github.com/joseph-ayodele/receiptbox/internal/storage"
)

// App owns every long-lived dependency. Close releases them in reverse order.
type App struct {
	Config     *common.Config
	DB         *repository.DB // nil in bolt mode
	Receipts   repository.ReceiptRepository
	Classifier *classify.Classifier
	Parser     *parse.Parser
	Service    *receipts.Service
	Exports    *export.Service
	Billing    *billing.Service

	logger  *slog.Logger
	closers []func() error
}

// Options toggles the parts a command does not need.
type Options struct {
	// WithoutOCR skips provider construction, for commands that never scan.
	WithoutOCR bool
}

// Classifier builds the vendor classifier, reading a YAML table when one is configured.
func Classifier(cfg common.OCRConfig) (*classify.Classifier, error) {
	if cfg.CategoryTable == "" {
		return classify.New(nil), nil
	}
	f, err := os.Open(cfg.CategoryTable)
	if err != nil {
		return nil, fmt.Errorf("open category table: %w", err)
	}
	defer f.Close()
	table, err := classify.LoadTable(f)
	if err != nil {
		return nil, err
	}
	return classify.New(table), nil
}

// NewProvider selects the OCR backend named by cfg.Provider.
func NewProvider(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (ocr.Provider, error) {
	switch cfg.Provider {
	case constants.ProviderVision:
		var opts []option.ClientOption
		if cfg.VisionAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.VisionAPIKey))
		} else if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		return ocr.NewVisionProvider(ctx, logger, opts...)
	case constants.ProviderTesseract:
		return ocr.NewTesseractProvider(ocr.TesseractConfig{
			Binary:      cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			PSM:         6,
		}, nil, logger), nil
	case constants.ProviderGemini:
		return ocr.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "", logger)
	case constants.ProviderOpenAI:
		return ocr.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
	default:
		return nil, fmt.Errorf("%w: unknown ocr provider %q", common.ErrInvalidInput, cfg.Provider)
	}
}

// NewImageStore returns the configured image store and its closer, if any.
func NewImageStore(ctx context.Context, cfg common.Config, logger *slog.Logger) (storage.ImageStore, func() error, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		s, err := storage.NewLocalStore(cfg.Storage.LocalDir, logger)
		return s, nil, err
	case "gcs":
		var opts []option.ClientOption
		if cfg.OCR.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.OCR.CredentialsFile))
		}
		s, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, logger, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidInput, cfg.Storage.Driver)
	}
}

// NewAppender picks Google Sheets when OAuth client credentials are configured,
// otherwise local XLSX workbooks.
func NewAppender(cfg common.SheetsConfig, logger *slog.Logger) (sheets.Appender, error) {
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		return sheets.NewGoogleAppender(cfg.ClientID, cfg.ClientSecret, logger), nil
	}
	return sheets.NewXLSXAppender(cfg.XLSXDir, logger)
}

// usageStub stands in for the usage log in bolt mode, where there is no SQL store.
type usageStub struct{}

func (usageStub) Log(context.Context, string, constants.UsageAction) error { return nil }
func (usageStub) CountSince(context.Context, string, constants.UsageAction, time.Time) (int, error) {
	return 0, nil
}

// noSheets rejects sheet operations in bolt mode.
type noSheets struct{}

func (noSheets) Upsert(context.Context, *entity.SheetConnection) (*entity.SheetConnection, error) {
	return nil, fmt.Errorf("%w: sheet connections need a SQL database", common.ErrInvalidInput)
}
func (noSheets) GetBySheetID(context.Context, string, string) (*entity.SheetConnection, error) {
	return nil, fmt.Errorf("%w: sheet connections need a SQL database", common.ErrInvalidInput)
}
func (noSheets) ListByUser(context.Context, string) ([]*entity.SheetConnection, error) {
	return nil, nil
}
func (noSheets) TouchLastSync(context.Context, string, uuid.UUID, time.Time) error { return nil }

// New opens storage and wires the services. The caller must Close the App.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		sheetRepo repository.SheetConnectionRepository = noSheets{}
		usageRepo repository.UsageRepository           = usageStub{}
	)
	switch cfg.Database.Driver {
	case "bolt":
		store, err := repository.OpenBolt(cfg.Database.BoltPath, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Receipts = store
	default:
		db, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		a.DB = db
		a.Receipts = repository.NewReceiptRepository(db, logger)
		sheetRepo = repository.NewSheetConnectionRepository(db, logger)
		usageRepo = repository.NewUsageRepository(db, logger)
	}

	images, closeImages, err := NewImageStore(ctx, *cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeImages != nil {
		a.closers = append(a.closers, closeImages)
	}

	if a.Classifier, err = Classifier(cfg.OCR); err != nil {
		return nil, err
	}
	a.Parser = parse.New(a.Classifier, logger)

	var extractor receipts.TextExtractor
	if !opts.WithoutOCR {
		provider, err := NewProvider(ctx, cfg.OCR, logger)
		if err != nil {
			return nil, err
		}
		extractor = ocr.NewGateway(provider, logger, ocr.WithTimeout(cfg.OCR.Timeout))
	}

	appender, err := NewAppender(cfg.Sheets, logger)
	if err != nil {
		return nil, err
	}

	a.Billing = billing.NewService(billing.StaticPlans{Default: constants.PlanTier(cfg.Billing.DefaultPlan)},
		usageRepo, cfg.Billing.PlanCacheTTL, logger)

	var limiter receipts.RateLimiter
	if cfg.Billing.ScansPerMinute > 0 {
		limiter = billing.NewLimiter(cfg.Billing.ScansPerMinute, cfg.Billing.ScanBurst)
	}

	a.Service = receipts.NewService(receipts.Deps{
		Receipts: a.Receipts,
		Sheets:   sheetRepo,
		Usage:    usageRepo,
		Images:   images,
		OCR:      extractor,
		Parser:   a.Parser,
		Quota:    a.Billing,
		Limiter:  limiter,
		Appender: appender,
	}, logger)
	a.Exports = export.NewService(a.Receipts, logger)

	logger.Info("app ready",
		"database", cfg.Database.Driver,
		"storage", cfg.Storage.Driver,
		"ocr", cfg.OCR.Provider,
		"ocr_enabled", !opts.WithoutOCR)
	return a, nil
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
