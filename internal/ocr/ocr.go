// Package ocr is the text-recognition boundary. The extractor only sees
// the Engine interface; the tesseract binding lives behind it.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in a single raster image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Tesseract recognizes text through a local tesseract install. Each call
// gets a fresh client so native recognition state stays scoped to one
// image and is released as soon as the page is done.
type Tesseract struct {
	languages   []string
	tessdataDir string
}

// NewTesseract builds an engine with the given language hints, defaulting
// to English plus Russian, matching the textbooks the service targets.
func NewTesseract(languages []string, tessdataDir string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng", "rus"}
	}
	return &Tesseract{languages: languages, tessdataDir: tessdataDir}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataDir != "" {
		if err := client.SetTessdataPrefix(t.tessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("set languages %s: %w", strings.Join(t.languages, "+"), err)
	}
	// One uniform block of text per page.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page for recognition: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load page into tesseract: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
