package constants

// UsageAction is the canonical action recorded in usage_logs.
type UsageAction string

// Stable values (store these exact strings in DB).
const (
	UsageReceiptUpload UsageAction = "receipt_upload"
	UsageSheetSync     UsageAction = "sheet_sync"
)

// PlanTier names a subscription plan.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanFamily   PlanTier = "family"
	PlanBusiness PlanTier = "business"
)

// OCR provider names accepted in configuration.
const (
	ProviderVision    = "vision"
	ProviderTesseract = "tesseract"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

// DefaultSheetName is used when a spreadsheet exposes no sheet titles.
const DefaultSheetName = "Transactions"
