package recognition

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
)

// TesseractConfig configures the tesseract command line engine
type TesseractConfig struct {
	Path        string // default "tesseract"
	Language    string // default "eng"
	PSM         int    // page segmentation mode, 0 = engine default
	OEM         int    // OCR engine mode, 0 = engine default
	TessdataDir string
}

// Tesseract implements the Recognizer interface by piping a PNG into the tesseract CLI
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

// NewTesseract creates a Tesseract recognizer. A nil runner executes the real binary.
func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if cfg.Path == "" {
		cfg.Path = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{logger: logger}
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

// Recognize runs tesseract over img
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	// tesseract stdin stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, data, t.cfg.Path, t.args()...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

// Close is a no-op; every call starts its own process
func (t *Tesseract) Close() error {
	return nil
}
