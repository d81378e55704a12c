package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

type SheetConnectionRepository interface {
	// Upsert is keyed on (user_id, sheet_id); tokens and names are replaced.
	Upsert(ctx context.Context, c *entity.SheetConnection) (*entity.SheetConnection, error)
	GetBySheetID(ctx context.Context, userID, sheetID string) (*entity.SheetConnection, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.SheetConnection, error)
	TouchLastSync(ctx context.Context, userID string, id uuid.UUID, at time.Time) error
}

var sheetConnectionColumns = []string{
	"id", "user_id", "sheet_id", "sheet_name", "sheet_url", "template_type", "is_default",
	"access_token", "refresh_token", "token_expiry", "last_sync_at", "created_at",
}

type sheetConnectionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSheetConnectionRepository(db *DB, logger *slog.Logger) SheetConnectionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sheetConnectionRepository{db: db, logger: logger}
}

func (r *sheetConnectionRepository) Upsert(ctx context.Context, c *entity.SheetConnection) (*entity.SheetConnection, error) {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	q := r.db.builder().Insert(sheetConnectionsTable).
		Columns(sheetConnectionColumns...).
		Values(
			id, c.UserID, c.SheetID, c.SheetName, c.SheetURL, nullableString(c.TemplateType), c.IsDefault,
			c.AccessToken, c.RefreshToken, nullableTimestamp(c.TokenExpiry), nullableTimestamp(c.LastSyncAt),
			formatTimestamp(created),
		).
		OnConflict(
			entsql.ConflictColumns("user_id", "sheet_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("sheet_name")
				u.SetExcluded("sheet_url")
				u.SetExcluded("template_type")
				u.SetExcluded("is_default")
				u.SetExcluded("access_token")
				u.SetExcluded("refresh_token")
				u.SetExcluded("token_expiry")
			}),
		)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.logger.Error("failed to upsert sheet connection", "user_id", c.UserID, "sheet_id", c.SheetID, "error", err)
		return nil, fmt.Errorf("%w: upsert sheet connection: %v", common.ErrDatabase, err)
	}
	return r.GetBySheetID(ctx, c.UserID, c.SheetID)
}

func (r *sheetConnectionRepository) GetBySheetID(ctx context.Context, userID, sheetID string) (*entity.SheetConnection, error) {
	conns, err := r.selectConnections(ctx, r.db.builder().Select(sheetConnectionColumns...).
		From(entsql.Table(sheetConnectionsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("sheet_id", sheetID))))
	if err != nil {
		r.logger.Error("failed to get sheet connection", "user_id", userID, "sheet_id", sheetID, "error", err)
		return nil, err
	}
	if len(conns) == 0 {
		return nil, fmt.Errorf("sheet connection %s: %w", sheetID, common.ErrNotFound)
	}
	return conns[0], nil
}

func (r *sheetConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*entity.SheetConnection, error) {
	conns, err := r.selectConnections(ctx, r.db.builder().Select(sheetConnectionColumns...).
		From(entsql.Table(sheetConnectionsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("is_default"), "created_at"))
	if err != nil {
		r.logger.Error("failed to list sheet connections", "user_id", userID, "error", err)
		return nil, err
	}
	return conns, nil
}

func (r *sheetConnectionRepository) TouchLastSync(ctx context.Context, userID string, id uuid.UUID, at time.Time) error {
	n, err := r.db.exec(ctx, r.db.builder().Update(sheetConnectionsTable).
		Set("last_sync_at", formatTimestamp(at)).
		Where(ownedBy(userID, id)))
	if err != nil {
		return fmt.Errorf("%w: touch sheet connection: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("sheet connection %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *sheetConnectionRepository) selectConnections(ctx context.Context, sel *entsql.Selector) ([]*entity.SheetConnection, error) {
	rows, err := r.db.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("%w: query sheet connections: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.SheetConnection
	for rows.Next() {
		var (
			c                              entity.SheetConnection
			url, template, access, refresh sql.NullString
			expiry, lastSync               sql.NullString
			created                        string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.SheetID, &c.SheetName, &url, &template, &c.IsDefault,
			&access, &refresh, &expiry, &lastSync, &created); err != nil {
			return nil, fmt.Errorf("%w: scan sheet connection: %v", common.ErrDatabase, err)
		}
		c.SheetURL = url.String
		c.TemplateType = stringPtr(template)
		c.AccessToken = access.String
		c.RefreshToken = refresh.String
		if c.TokenExpiry, err = timestampPtr(expiry); err != nil {
			return nil, err
		}
		if c.LastSyncAt, err = timestampPtr(lastSync); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
