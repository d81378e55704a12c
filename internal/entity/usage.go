package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptbox/constants"
)

type UsageEntry struct {
	ID        uuid.UUID             `json:"id"`
	UserID    string                `json:"user_id"`
	Action    constants.UsageAction `json:"action"`
	CreatedAt time.Time             `json:"created_at"`
}
