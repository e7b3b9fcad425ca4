package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/zombor/billscan/internal/preprocess"
)

const pdfMimeType = "application/pdf"

// Document is an uploaded bill split into pages in physical order
type Document struct {
	Pages []image.Image
	// Paged is set for multi-page sources (PDF); their text is joined with page markers
	Paged       bool
	ContentType string
}

// Options controls rasterization of paged documents
type Options struct {
	DPI      float64 // PDF rasterization DPI, default 300
	MaxPages int     // 0 = no limit
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 300
	}
	return o
}

// Decode turns uploaded bytes into pages.
// Unreadable input is reported as a *preprocess.NormalizationError.
func Decode(data []byte, contentType string, opts Options) (*Document, error) {
	opts = opts.withDefaults()
	if len(data) == 0 {
		return nil, &preprocess.NormalizationError{Stage: "decode", Err: fmt.Errorf("empty upload")}
	}

	mimeType := NormalizeContentType(contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = NormalizeContentType(http.DetectContentType(data))
	}

	if mimeType == pdfMimeType {
		pages, err := pdfToImages(data, opts)
		if err != nil {
			return nil, &preprocess.NormalizationError{Stage: "decode", Err: err}
		}
		return &Document{Pages: pages, Paged: true, ContentType: mimeType}, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, &preprocess.NormalizationError{Stage: "decode", Err: err}
	}
	return &Document{Pages: []image.Image{img}, ContentType: mimeType}, nil
}

// pdfToImages renders every page of a PDF
func pdfToImages(pdfData []byte, opts Options) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if opts.MaxPages > 0 && n > opts.MaxPages {
		n = opts.MaxPages
	}

	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// decodeImage decodes any supported raster format, honoring EXIF orientation
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	// Go's standard image package doesn't support HEIC (common on iPhones)
	if isHEICFormat(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, BMP, TIFF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// NormalizeContentType lowercases a MIME type and drops its parameters
func NormalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}

// ContentTypeFromFilename guesses a MIME type from a file extension
func ContentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".pdf":
		return pdfMimeType
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
