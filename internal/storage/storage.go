// Package storage keeps uploaded receipt images and hands back the URL saved on the receipt.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// ImageStore persists receipt images. Put returns the URL stored on the receipt;
// KeyFromURL inverts it so the image can be fetched or deleted later.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, error)
}

// ObjectKey builds receipts/<user>/<random>.<ext>, picking the extension from the content type.
func ObjectKey(userID, contentType string) string {
	return path.Join("receipts", sanitize(userID), uuid.NewString()+"."+constants.ExtForMIME(contentType))
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
