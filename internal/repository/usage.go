package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/common"
)

// UsageRepository records billable actions for quota checks.
type UsageRepository interface {
	Log(ctx context.Context, userID string, action constants.UsageAction) error
	CountSince(ctx context.Context, userID string, action constants.UsageAction, since time.Time) (int, error)
}

type usageRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewUsageRepository(db *DB, logger *slog.Logger) UsageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &usageRepository{db: db, logger: logger, now: time.Now}
}

func (r *usageRepository) Log(ctx context.Context, userID string, action constants.UsageAction) error {
	q := r.db.builder().Insert(usageLogsTable).
		Columns("id", "user_id", "action", "created_at").
		Values(uuid.New(), userID, string(action), formatTimestamp(r.now()))
	if _, err := r.db.exec(ctx, q); err != nil {
		r.logger.Error("failed to log usage", "user_id", userID, "action", action, "error", err)
		return fmt.Errorf("%w: log usage: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *usageRepository) CountSince(ctx context.Context, userID string, action constants.UsageAction, since time.Time) (int, error) {
	n, err := r.db.count(ctx, usageLogsTable, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("action", string(action)),
		entsql.GTE("created_at", formatTimestamp(since)),
	))
	if err != nil {
		r.logger.Error("failed to count usage", "user_id", userID, "action", action, "error", err)
		return 0, fmt.Errorf("%w: count usage: %v", common.ErrDatabase, err)
	}
	return n, nil
}
