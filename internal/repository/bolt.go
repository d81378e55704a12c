package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

const boltReceiptsBucket = "receipts"

// BoltReceiptStore keeps receipts in an embedded bbolt file, one nested bucket per user.
type BoltReceiptStore struct {
	db     *bbolt.DB
	logger *slog.Logger
	now    func() time.Time
}

func OpenBolt(path string, logger *slog.Logger) (*BoltReceiptStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltReceiptsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	logger.Info("opened receipt store", "driver", "bolt", "path", path)
	return &BoltReceiptStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *BoltReceiptStore) Close() error {
	return s.db.Close()
}

func (s *BoltReceiptStore) put(tx *bbolt.Tx, rec *entity.Receipt) error {
	users := tx.Bucket([]byte(boltReceiptsBucket))
	b, err := users.CreateBucketIfNotExists([]byte(rec.UserID))
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return b.Put([]byte(rec.ID.String()), data)
}

func (s *BoltReceiptStore) get(tx *bbolt.Tx, userID string, id uuid.UUID) (*entity.Receipt, error) {
	b := tx.Bucket([]byte(boltReceiptsBucket)).Bucket([]byte(userID))
	if b == nil {
		return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	data := b.Get([]byte(id.String()))
	if data == nil {
		return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	var rec entity.Receipt
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}
	return &rec, nil
}

func (s *BoltReceiptStore) Create(_ context.Context, rec *entity.Receipt) (*entity.Receipt, error) {
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.now().UTC()
	}
	out.UpdatedAt = out.CreatedAt
	if err := s.db.Update(func(tx *bbolt.Tx) error { return s.put(tx, &out) }); err != nil {
		s.logger.Error("failed to create receipt", "user_id", out.UserID, "error", err)
		return nil, fmt.Errorf("%w: create receipt: %v", common.ErrDatabase, err)
	}
	return &out, nil
}

func (s *BoltReceiptStore) Get(_ context.Context, userID string, id uuid.UUID) (*entity.Receipt, error) {
	var rec *entity.Receipt
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = s.get(tx, userID, id)
		return err
	})
	return rec, err
}

func (s *BoltReceiptStore) ListAll(_ context.Context, userID string, from, to *entity.Date) ([]*entity.Receipt, error) {
	out := make([]*entity.Receipt, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(boltReceiptsBucket)).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec entity.Receipt
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if inRange(rec.Date, from, to) {
				out = append(out, &rec)
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Error("failed to list receipts", "user_id", userID, "error", err)
		return nil, err
	}
	SortNewestFirst(out)
	return out, nil
}

func (s *BoltReceiptStore) List(ctx context.Context, userID string, opts entity.ListOptions) ([]*entity.Receipt, int, error) {
	opts = opts.Normalized()
	all, err := s.ListAll(ctx, userID, opts.From, opts.To)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if opts.Offset >= total {
		return []*entity.Receipt{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return all[opts.Offset:end], total, nil
}

func (s *BoltReceiptStore) Update(_ context.Context, userID string, id uuid.UUID, patch entity.ReceiptPatch) (*entity.Receipt, error) {
	var rec *entity.Receipt
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		if rec, err = s.get(tx, userID, id); err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		applyPatch(rec, patch)
		rec.UpdatedAt = s.now().UTC()
		return s.put(tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltReceiptStore) SetSheet(_ context.Context, userID string, id uuid.UUID, sheetID, rowID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := s.get(tx, userID, id)
		if err != nil {
			return err
		}
		rec.SheetID = &sheetID
		rec.SheetRowID = &rowID
		rec.UpdatedAt = s.now().UTC()
		return s.put(tx, rec)
	})
}

func (s *BoltReceiptStore) Delete(_ context.Context, userID string, id uuid.UUID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := s.get(tx, userID, id); err != nil {
			return err
		}
		return tx.Bucket([]byte(boltReceiptsBucket)).Bucket([]byte(userID)).Delete([]byte(id.String()))
	})
}

func applyPatch(rec *entity.Receipt, p entity.ReceiptPatch) {
	if p.Vendor != nil {
		rec.Vendor = p.Vendor
	}
	if p.Amount != nil {
		rec.Amount = p.Amount
	}
	if p.Date != nil {
		rec.Date = p.Date
	}
	if p.Category != nil {
		rec.Category = p.Category
	}
	if p.TaxAmount != nil {
		rec.TaxAmount = p.TaxAmount
	}
	if p.PaymentMethod != nil {
		rec.PaymentMethod = p.PaymentMethod
	}
	if p.Notes != nil {
		rec.Notes = p.Notes
	}
}

func inRange(d, from, to *entity.Date) bool {
	if from == nil && to == nil {
		return true
	}
	if d == nil {
		return false
	}
	if from != nil && d.Before(from.Time) {
		return false
	}
	if to != nil && d.After(to.Time) {
		return false
	}
	return true
}

// SortNewestFirst orders by date descending with undated receipts last, then by creation time.
func SortNewestFirst(recs []*entity.Receipt) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		switch {
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && !a.Date.Equal(b.Date.Time):
			return a.Date.After(b.Date.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

var _ ReceiptRepository = (*BoltReceiptStore)(nil)
