// Package extract turns uploaded documents (PDFs and photos of textbook
// pages) into plain text for the model pipeline.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/miaai/langhelper/internal/ocr"
)

// ErrUnsupportedFormat reports an upload whose extension is neither a PDF
// nor a known raster format. Never retried.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyUpload reports a zero-byte upload.
var ErrEmptyUpload = errors.New("empty upload")

var rasterExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
}

// Config bounds the cost of a single extraction run.
type Config struct {
	MaxPages  int
	DPI       int
	MaxWidth  int
	MaxHeight int
}

// DefaultConfig matches typical phone photos and short worksheet PDFs.
func DefaultConfig() Config {
	return Config{MaxPages: 10, DPI: 150, MaxWidth: 1600, MaxHeight: 1200}
}

// Extractor runs rasterization, downsampling and recognition.
type Extractor struct {
	engine ocr.Engine
	cfg    Config
}

func New(engine ocr.Engine, cfg Config) *Extractor {
	return &Extractor{engine: engine, cfg: cfg}
}

// Text converts an upload into plain text. The format is classified by
// file extension. PDF pages beyond MaxPages are skipped; a page whose
// recognition fails contributes an inline error marker instead of
// aborting the run. The result may be empty, which is not an error.
func (e *Extractor) Text(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyUpload, filename)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf":
		return e.fromPDF(ctx, data)
	case rasterExtensions[ext]:
		return e.fromRaster(ctx, data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func (e *Extractor) fromPDF(ctx context.Context, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		slog.Warn("pdf has no pages")
		return "", nil
	}
	pages := min(total, e.cfg.MaxPages)
	slog.Info("recognizing pdf", "pages", pages, "total", total)

	var b strings.Builder
	for page := 0; page < pages; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := e.pdfPageText(ctx, doc, page)
		if err != nil {
			slog.Error("page recognition failed", "page", page+1, "error", err)
			fmt.Fprintf(&b, "\n[error processing page %d]\n", page+1)
			continue
		}
		fmt.Fprintf(&b, "%s\n\n--- Page %d ---\n\n", text, page+1)
	}
	return strings.TrimSpace(b.String()), nil
}

func (e *Extractor) pdfPageText(ctx context.Context, doc *fitz.Document, page int) (string, error) {
	img, err := doc.ImageDPI(page, float64(e.cfg.DPI))
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page+1, err)
	}
	return e.engine.Recognize(ctx, e.prepare(img))
}

func (e *Extractor) fromRaster(ctx context.Context, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	text, err := e.engine.Recognize(ctx, e.prepare(img))
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// prepare downsamples oversized rasters and flattens them to grayscale,
// which measurably improves recognition on phone photos.
func (e *Extractor) prepare(img image.Image) image.Image {
	img = e.downsample(img)
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

func (e *Extractor) downsample(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= e.cfg.MaxWidth && h <= e.cfg.MaxHeight {
		return img
	}
	ratio := math.Min(float64(e.cfg.MaxWidth)/float64(w), float64(e.cfg.MaxHeight)/float64(h))
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	slog.Debug("downsampling image", "from", fmt.Sprintf("%dx%d", w, h), "to", fmt.Sprintf("%dx%d", nw, nh))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
