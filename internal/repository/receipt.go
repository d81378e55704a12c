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

// ReceiptRepository scopes every read and write to the owning user.
// A receipt owned by someone else is reported as common.ErrNotFound.
type ReceiptRepository interface {
	Create(ctx context.Context, r *entity.Receipt) (*entity.Receipt, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*entity.Receipt, error)
	// List orders by date, newest first with undated receipts last, then by creation time.
	List(ctx context.Context, userID string, opts entity.ListOptions) ([]*entity.Receipt, int, error)
	ListAll(ctx context.Context, userID string, from, to *entity.Date) ([]*entity.Receipt, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch entity.ReceiptPatch) (*entity.Receipt, error)
	SetSheet(ctx context.Context, userID string, id uuid.UUID, sheetID, rowID string) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

var receiptColumns = []string{
	"id", "user_id", "image_url", "vendor", "amount", "date", "category", "tax_amount",
	"payment_method", "notes", "raw_ocr_data", "sheet_id", "sheet_row_id", "created_at", "updated_at",
}

type receiptRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger, now: time.Now}
}

func (r *receiptRepository) Create(ctx context.Context, rec *entity.Receipt) (*entity.Receipt, error) {
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	now := r.now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = out.CreatedAt

	q := r.db.builder().Insert(receiptsTable).
		Columns(receiptColumns...).
		Values(
			out.ID, out.UserID, out.ImageURL,
			nullableString(out.Vendor), nullableFloat(out.Amount), nullableDate(out.Date),
			nullableString(out.Category), nullableFloat(out.TaxAmount), nullableString(out.PaymentMethod),
			nullableString(out.Notes), nullableString(out.RawOCRData),
			nullableString(out.SheetID), nullableString(out.SheetRowID),
			formatTimestamp(out.CreatedAt), formatTimestamp(out.UpdatedAt),
		)
	if _, err := r.db.exec(ctx, q); err != nil {
		r.logger.Error("failed to create receipt", "user_id", out.UserID, "error", err)
		return nil, fmt.Errorf("%w: create receipt: %v", common.ErrDatabase, err)
	}
	// round-trip through the storage precision
	out.CreatedAt, _ = parseTimestamp(formatTimestamp(out.CreatedAt))
	out.UpdatedAt = out.CreatedAt
	return &out, nil
}

func ownedBy(userID string, id uuid.UUID) *entsql.Predicate {
	return entsql.And(entsql.EQ("user_id", userID), entsql.EQ("id", id))
}

func (r *receiptRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*entity.Receipt, error) {
	recs, err := r.selectReceipts(ctx, r.db.builder().Select(receiptColumns...).
		From(entsql.Table(receiptsTable)).
		Where(ownedBy(userID, id)))
	if err != nil {
		r.logger.Error("failed to get receipt", "user_id", userID, "receipt_id", id, "error", err)
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	return recs[0], nil
}

func receiptFilter(userID string, from, to *entity.Date) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	if from != nil {
		preds = append(preds, entsql.GTE("date", from.String()))
	}
	if to != nil {
		preds = append(preds, entsql.LTE("date", to.String()))
	}
	return entsql.And(preds...)
}

func newestFirst(s *entsql.Selector) *entsql.Selector {
	return s.OrderExpr(entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("COALESCE(").Ident("date").WriteString(", '') DESC")
	})).OrderBy(entsql.Desc("created_at"))
}

func (r *receiptRepository) List(ctx context.Context, userID string, opts entity.ListOptions) ([]*entity.Receipt, int, error) {
	opts = opts.Normalized()

	total, err := r.db.count(ctx, receiptsTable, receiptFilter(userID, opts.From, opts.To))
	if err != nil {
		r.logger.Error("failed to count receipts", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("%w: count receipts: %v", common.ErrDatabase, err)
	}

	sel := r.db.builder().Select(receiptColumns...).
		From(entsql.Table(receiptsTable)).
		Where(receiptFilter(userID, opts.From, opts.To))
	sel = newestFirst(sel).Limit(opts.Limit).Offset(opts.Offset)
	recs, err := r.selectReceipts(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list receipts", "user_id", userID, "error", err)
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *receiptRepository) ListAll(ctx context.Context, userID string, from, to *entity.Date) ([]*entity.Receipt, error) {
	sel := r.db.builder().Select(receiptColumns...).
		From(entsql.Table(receiptsTable)).
		Where(receiptFilter(userID, from, to))
	recs, err := r.selectReceipts(ctx, newestFirst(sel))
	if err != nil {
		r.logger.Error("failed to list receipts", "user_id", userID, "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *receiptRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch entity.ReceiptPatch) (*entity.Receipt, error) {
	if patch.IsEmpty() {
		return r.Get(ctx, userID, id)
	}
	u := r.db.builder().Update(receiptsTable).Where(ownedBy(userID, id))
	if patch.Vendor != nil {
		u.Set("vendor", *patch.Vendor)
	}
	if patch.Amount != nil {
		u.Set("amount", *patch.Amount)
	}
	if patch.Date != nil {
		u.Set("date", patch.Date.String())
	}
	if patch.Category != nil {
		u.Set("category", *patch.Category)
	}
	if patch.TaxAmount != nil {
		u.Set("tax_amount", *patch.TaxAmount)
	}
	if patch.PaymentMethod != nil {
		u.Set("payment_method", *patch.PaymentMethod)
	}
	if patch.Notes != nil {
		u.Set("notes", *patch.Notes)
	}
	u.Set("updated_at", formatTimestamp(r.now()))

	n, err := r.db.exec(ctx, u)
	if err != nil {
		r.logger.Error("failed to update receipt", "user_id", userID, "receipt_id", id, "error", err)
		return nil, fmt.Errorf("%w: update receipt: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	return r.Get(ctx, userID, id)
}

func (r *receiptRepository) SetSheet(ctx context.Context, userID string, id uuid.UUID, sheetID, rowID string) error {
	u := r.db.builder().Update(receiptsTable).
		Set("sheet_id", sheetID).
		Set("sheet_row_id", rowID).
		Set("updated_at", formatTimestamp(r.now())).
		Where(ownedBy(userID, id))
	n, err := r.db.exec(ctx, u)
	if err != nil {
		r.logger.Error("failed to link receipt to sheet", "user_id", userID, "receipt_id", id, "error", err)
		return fmt.Errorf("%w: link sheet: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *receiptRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	n, err := r.db.exec(ctx, r.db.builder().Delete(receiptsTable).Where(ownedBy(userID, id)))
	if err != nil {
		r.logger.Error("failed to delete receipt", "user_id", userID, "receipt_id", id, "error", err)
		return fmt.Errorf("%w: delete receipt: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *receiptRepository) selectReceipts(ctx context.Context, sel *entsql.Selector) ([]*entity.Receipt, error) {
	rows, err := r.db.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("%w: query receipts: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan receipt: %v", common.ErrDatabase, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate receipts: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func scanReceipt(rows *entsql.Rows) (*entity.Receipt, error) {
	var (
		rec                                                   entity.Receipt
		vendor, date, category, payment, notes, raw, sid, row sql.NullString
		amount, tax                                           sql.NullFloat64
		created, updated                                      string
	)
	if err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.ImageURL, &vendor, &amount, &date, &category, &tax,
		&payment, &notes, &raw, &sid, &row, &created, &updated,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.Date, err = datePtr(date); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	rec.Vendor = stringPtr(vendor)
	rec.Amount = floatPtr(amount)
	rec.Category = stringPtr(category)
	rec.TaxAmount = floatPtr(tax)
	rec.PaymentMethod = stringPtr(payment)
	rec.Notes = stringPtr(notes)
	rec.RawOCRData = stringPtr(raw)
	rec.SheetID = stringPtr(sid)
	rec.SheetRowID = stringPtr(row)
	return &rec, nil
}
