//go:build !gosseract

package recognition

import "errors"

// ErrGosseractUnavailable is returned when the binary was built without the gosseract tag
var ErrGosseractUnavailable = errors.New("gosseract engine not compiled in; rebuild with -tags gosseract")

// NewGosseract reports that the in-process engine is not available in this build
func NewGosseract(lang string, psm int) (Recognizer, error) {
	return nil, ErrGosseractUnavailable
}
