// Package ingest feeds receipt images from the filesystem into the scan queue.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/async"
)

// FileResult is the per-file outcome of a directory scan.
type FileResult struct {
	Path         string
	HashHex      string
	Queued       bool
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Queued       uint32
	Deduplicated uint32
	Failed       uint32
}

// DirectoryScanner hashes matching files and enqueues each distinct image once per scanner.
type DirectoryScanner struct {
	queue         async.Queue
	logger        *slog.Logger
	exts          map[string]struct{}
	includeHidden bool

	mu   sync.Mutex
	seen map[string]string
}

type ScannerOption func(*DirectoryScanner)

// WithExtensions replaces the default extension allow-list.
func WithExtensions(exts ...string) ScannerOption {
	return func(s *DirectoryScanner) {
		set := map[string]struct{}{}
		for _, e := range exts {
			if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
				set[e] = struct{}{}
			}
		}
		if len(set) > 0 {
			s.exts = set
		}
	}
}

// WithHidden includes dot-files and dot-directories in walks.
func WithHidden(include bool) ScannerOption {
	return func(s *DirectoryScanner) {
		s.includeHidden = include
	}
}

func NewDirectoryScanner(queue async.Queue, logger *slog.Logger, opts ...ScannerOption) *DirectoryScanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DirectoryScanner{
		queue:  queue,
		logger: logger,
		exts:   constants.AllowedExtensions,
		seen:   map[string]string{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Allowed reports whether path has an extension this scanner accepts.
func (s *DirectoryScanner) Allowed(path string) bool {
	_, ok := s.exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// ScanFile hashes one file and enqueues it unless identical content was already queued.
func (s *DirectoryScanner) ScanFile(ctx context.Context, userID, path string) (FileResult, error) {
	out := FileResult{Path: path}
	if !s.Allowed(path) {
		return out, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	s.mu.Lock()
	first, dup := s.seen[out.HashHex]
	if !dup {
		s.seen[out.HashHex] = path
	}
	s.mu.Unlock()
	if dup {
		s.logger.Info("skipping duplicate receipt", "path", path, "duplicate_of", first)
		out.Deduplicated = true
		return out, nil
	}

	err = s.queue.Enqueue(ctx, async.Job{
		UserID:      userID,
		Source:      path,
		Image:       data,
		ContentType: constants.MIMEForExt(filepath.Ext(path)),
	})
	if err != nil {
		s.mu.Lock()
		delete(s.seen, out.HashHex)
		s.mu.Unlock()
		return out, fmt.Errorf("enqueue: %w", err)
	}
	out.Queued = true
	return out, nil
}

// ScanDir walks root and calls ScanFile for each matching file.
// Per-file failures are recorded and the walk continues; a cancelled ctx or closed queue stops it.
func (s *DirectoryScanner) ScanDir(ctx context.Context, userID, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && !s.includeHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.Allowed(path) {
			return nil
		}
		stats.Matched++

		r, err := s.ScanFile(ctx, userID, path)
		switch {
		case err != nil && (errors.Is(err, async.ErrQueueClosed) || ctx.Err() != nil):
			return fmt.Errorf("%s: %w", path, err)
		case err != nil:
			r.Err = err.Error()
			stats.Failed++
		case r.Deduplicated:
			stats.Deduplicated++
		default:
			stats.Queued++
		}
		results = append(results, r)
		// the file above is counted; stop before the next one
		return ctx.Err()
	})

	s.logger.Info("directory scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"queued", stats.Queued, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
