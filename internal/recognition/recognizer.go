// Package recognition turns a normalized page image into raw text.
package recognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
)

// Recognizer defines the interface for page text recognition
type Recognizer interface {
	// Recognize returns the text found on a single page image
	Recognize(ctx context.Context, img image.Image) (string, error)
	// Close releases any resources held by the engine
	Close() error
}

// Engine names accepted by New
const (
	EngineTesseract = "tesseract"
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
	EngineGosseract = "gosseract"
)

// Options selects and configures a recognition engine
type Options struct {
	Engine string

	// Tesseract and gosseract
	TesseractPath string
	Language      string
	PSM           int
	OEM           int
	TessdataDir   string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Ollama
	OllamaURL   string
	OllamaModel string

	Logger *slog.Logger
}

// New creates the Recognizer named by opts.Engine. An empty engine means tesseract.
func New(opts Options) (Recognizer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch strings.ToLower(strings.TrimSpace(opts.Engine)) {
	case "", EngineTesseract:
		return NewTesseract(TesseractConfig{
			Path:        opts.TesseractPath,
			Language:    opts.Language,
			PSM:         opts.PSM,
			OEM:         opts.OEM,
			TessdataDir: opts.TessdataDir,
		}, nil, opts.Logger), nil
	case EngineGemini:
		g, err := NewGemini(opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case EngineOllama:
		o, err := NewOllama(opts.OllamaURL, opts.OllamaModel)
		if err != nil {
			return nil, err
		}
		return o, nil
	case EngineGosseract:
		return NewGosseract(opts.Language, opts.PSM)
	default:
		return nil, fmt.Errorf("unknown recognition engine %q", opts.Engine)
	}
}

// transcribePrompt is the shared prompt used by the vision model engines
const transcribePrompt = `You are reading a scanned purchase bill. Transcribe every line of text in the image exactly as printed, top to bottom.

Rules:
- Keep one printed line per output line
- Keep item lines in the form "description quantity price" when the bill prints them that way
- Keep numbers, dates and amounts exactly as printed; do not reformat or total them
- Do not add commentary, headings or explanations
- Do not use markdown code blocks`

// encodePNG encodes a page for engines that take image bytes
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty page image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// cleanReply strips markdown fences that vision models add despite being told not to
func cleanReply(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
