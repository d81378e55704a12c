package constants

import "strings"

// AllowedExtensions holds the receipt file extensions accepted for scanning.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"heic": "image/heic",
	"heif": "image/heif",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MIMEForExt falls back to application/octet-stream.
func MIMEForExt(ext string) string {
	if m, ok := mimeByExt[NormalizeExt(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}

// ExtForMIME is the inverse of MIMEForExt, used when naming stored objects.
func ExtForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/heic":
		return "heic"
	case "image/heif":
		return "heif"
	default:
		return "jpg"
	}
}
