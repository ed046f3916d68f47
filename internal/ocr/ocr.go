// Package ocr turns scanned PDF bytes into recognized text. Pages are
// rendered with MuPDF (go-fitz), binarized with Otsu's global threshold and
// fed to Tesseract (gosseract). Recognition quality on scanned question
// papers depends heavily on the binarization step.
package ocr

import (
	"context"
	"errors"
)

// PageSeparator joins the recognized text of consecutive pages.
const PageSeparator = "\n\n--- Page Break ---\n\n"

var (
	// ErrUnreadable is returned when the PDF cannot be opened or rendered.
	ErrUnreadable = errors.New("pdf unreadable or empty")
	// ErrNoText is returned when recognition produced no text at all.
	ErrNoText = errors.New("no text recognized")
)

// Engine extracts plain text from raw PDF bytes.
type Engine interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// Truncate returns the first n runes of s. Header metadata is front-loaded
// on a title page, so a small prefix is enough for the extractor and bounds
// prompt cost. Deterministic and idempotent.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
