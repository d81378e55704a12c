package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/receiptbox/internal/receipts"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("scan queue is shutting down")

// Job is one image waiting for OCR.
type Job struct {
	UserID      string
	Source      string // file path or upload name, for logs and results
	Image       []byte
	ContentType string
	SubmittedAt time.Time
}

// Result is handed to the result handler once per job.
type Result struct {
	Job      Job
	Scan     *receipts.ScanResult
	Err      error
	Duration time.Duration
}

// Scanner is satisfied by *receipts.Service.
type Scanner interface {
	ScanQueued(ctx context.Context, userID string, image []byte, contentType string) (*receipts.ScanResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}
