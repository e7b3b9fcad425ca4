//go:build gosseract

package recognition

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract implements the Recognizer interface with an in-process libtesseract client.
// Building it requires the tesseract and leptonica development headers.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseract creates a Gosseract recognizer
func NewGosseract(lang string, psm int) (Recognizer, error) {
	if lang == "" {
		lang = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting language: %w", err)
	}
	if psm > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting page segmentation mode: %w", err)
		}
	}
	return &Gosseract{client: client}, nil
}

// Recognize runs libtesseract over img. Calls are serialized: a client holds one image at a time.
func (g *Gosseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}
	text, err := g.client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}

// Close releases the libtesseract client
func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Close()
}
