package preprocess

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
)

// ErrEmptyImage is returned for nil images and images with no pixels
var ErrEmptyImage = errors.New("image has no pixels")

// NormalizationError reports that an image could not be prepared for recognition.
// It aborts processing of the whole document.
type NormalizationError struct {
	Stage string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalizing image (%s): %v", e.Stage, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// ThresholdMethod selects how the local threshold of the adaptive pass is computed
type ThresholdMethod int

const (
	// GaussianMean weights the neighborhood with a Gaussian kernel
	GaussianMean ThresholdMethod = iota
	// BoxMean uses the plain neighborhood mean
	BoxMean
)

// Options holds the tunables of the normalizer.
// Zero sizes and sigmas are replaced with the values from DefaultOptions.
// Offset is used as given, so zero disables the bias toward white.
type Options struct {
	BilateralDiameter int
	SigmaColor        float64
	SigmaSpace        float64
	BlockSize         int // odd, >= 3
	Offset            float64
	Method            ThresholdMethod
	SkipDeskew        bool
}

// DefaultOptions returns the settings tuned for scanned bills
func DefaultOptions() Options {
	return Options{
		BilateralDiameter: 9,
		SigmaColor:        75,
		SigmaSpace:        75,
		BlockSize:         31,
		Offset:            2,
		Method:            GaussianMean,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BilateralDiameter <= 0 {
		o.BilateralDiameter = d.BilateralDiameter
	}
	if o.SigmaColor <= 0 {
		o.SigmaColor = d.SigmaColor
	}
	if o.SigmaSpace <= 0 {
		o.SigmaSpace = d.SigmaSpace
	}
	if o.BlockSize < 3 {
		o.BlockSize = d.BlockSize
	}
	if o.BlockSize%2 == 0 {
		o.BlockSize++
	}
	return o
}

// Normalizer deskews and binarizes page images before recognition
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Normalizer
func New(opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize corrects skew and then produces a binary image for recognition.
// The input image is never modified.
func (n *Normalizer) Normalize(img image.Image) (out *image.Gray, err error) {
	if err := checkImage(img); err != nil {
		return nil, &NormalizationError{Stage: "input", Err: err}
	}

	stage := "deskew"
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalization panicked", "stage", stage, "panic", r, "stack", string(debug.Stack()))
			out = nil
			err = &NormalizationError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	deskewed := img
	if !n.opts.SkipDeskew {
		deskewed, _ = n.Deskew(img)
	}

	stage = "binarize"
	return n.Binarize(deskewed), nil
}

// Deskew rotates img so its text lines run horizontally.
// It returns the corrective angle in degrees (counter-clockwise positive).
// When the image has no foreground pixels it is returned unchanged.
func (n *Normalizer) Deskew(img image.Image) (image.Image, float64) {
	angle, ok := DetectSkew(img)
	if !ok {
		n.logger.Warn("no text found for rotation correction; keeping original image")
		return img, 0
	}
	if angle == 0 {
		return img, 0
	}
	n.logger.Debug("corrected image rotation", "degrees", angle)
	return Rotate(img, angle), angle
}

// DetectSkew returns the angle that deskews img. ok is false when the
// globally thresholded image has no foreground pixels.
func DetectSkew(img image.Image) (angle float64, ok bool) {
	gray := Grayscale(img)
	t := OtsuThreshold(gray)
	pts := foregroundExtremes(gray, t)
	if len(pts) == 0 {
		return 0, false
	}
	rect := MinAreaRect(pts)
	return CorrectionAngle(rect.Angle), true
}

// Binarize smooths img with an edge-preserving filter and applies a local
// adaptive threshold. The result only contains 0 and 255.
func (n *Normalizer) Binarize(img image.Image) *image.Gray {
	gray := Grayscale(img)
	smoothed := Bilateral(gray, n.opts.BilateralDiameter, n.opts.SigmaColor, n.opts.SigmaSpace)
	return AdaptiveThreshold(smoothed, n.opts.BlockSize, n.opts.Offset, n.opts.Method)
}

func checkImage(img image.Image) error {
	if img == nil {
		return ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return ErrEmptyImage
	}
	return nil
}
