package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"qphub/internal/config"
	"qphub/internal/logger"
)

// FitzTesseract implements Engine by rendering PDF pages with MuPDF and
// recognizing text with Tesseract. Each call spins up its own gosseract
// client, so the engine is safe for concurrent use.
type FitzTesseract struct {
	cfg config.OCRConfig
	log zerolog.Logger
}

// NewFitzTesseract creates an OCR engine from the given configuration.
func NewFitzTesseract(cfg config.OCRConfig) *FitzTesseract {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &FitzTesseract{
		cfg: cfg,
		log: logger.WithComponent("ocr"),
	}
}

var _ Engine = (*FitzTesseract)(nil)

// ExtractText renders up to MaxPages pages at the configured DPI, binarizes
// each page and runs Tesseract over it. Pages are joined with PageSeparator.
// There is no timeout on recognition itself; only the context is honored
// between pages.
func (e *FitzTesseract) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		e.log.Error().Err(err).Msg("failed to open pdf")
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return "", ErrUnreadable
	}
	if pages > e.cfg.MaxPages {
		pages = e.cfg.MaxPages
	}

	var texts []string
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		img, err := doc.ImageDPI(i, float64(e.cfg.DPI))
		if err != nil {
			e.log.Error().Err(err).Int("page", i+1).Msg("failed to render page")
			return "", fmt.Errorf("%w: render page %d: %v", ErrUnreadable, i+1, err)
		}

		bw := Binarize(img)

		var buf bytes.Buffer
		if err := png.Encode(&buf, bw); err != nil {
			return "", fmt.Errorf("encode page %d: %w", i+1, err)
		}

		if e.cfg.DebugImages {
			e.dumpDebugImage(buf.Bytes(), i+1)
		}

		text, err := recognize(buf.Bytes())
		if err != nil {
			e.log.Error().Err(err).Int("page", i+1).Msg("tesseract failed")
			return "", fmt.Errorf("recognize page %d: %w", i+1, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	joined := strings.Join(texts, PageSeparator)
	if strings.TrimSpace(joined) == "" {
		return "", ErrNoText
	}

	e.log.Info().Int("pages", pages).Int("chars", len(joined)).Msg("ocr completed")
	return joined, nil
}

func recognize(pngBytes []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(pngBytes); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// dumpDebugImage persists the binarized page for OCR inspection. Failures
// are logged and ignored; the dump is not part of the extraction contract.
func (e *FitzTesseract) dumpDebugImage(pngBytes []byte, page int) {
	dir := e.cfg.DebugDir
	if dir == "" {
		dir = "debug"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.log.Warn().Err(err).Msg("cannot create debug image dir")
		return
	}
	name := filepath.Join(dir, fmt.Sprintf("debug_page_%d.png", page))
	if err := os.WriteFile(name, pngBytes, 0o644); err != nil {
		e.log.Warn().Err(err).Str("path", name).Msg("cannot write debug image")
		return
	}
	e.log.Debug().Str("path", name).Msg("saved debug image")
}
