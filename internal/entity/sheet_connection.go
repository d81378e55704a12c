package entity

import (
	"time"

	"github.com/google/uuid"
)

// SheetConnection links a user to an external spreadsheet and its OAuth grant.
type SheetConnection struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"user_id"`
	SheetID      string     `json:"sheet_id"`
	SheetName    string     `json:"sheet_name"`
	SheetURL     string     `json:"sheet_url"`
	TemplateType *string    `json:"template_type"`
	IsDefault    bool       `json:"is_default"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"-"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
