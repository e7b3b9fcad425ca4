//go:build gosseract

package recognition

import (
	"context"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gosseract", func() {
	var r Recognizer

	BeforeEach(func() {
		var err error
		r, err = New(Options{Engine: EngineGosseract, PSM: 6})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(r.Close)
	})

	It("should reject an empty page", func() {
		_, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0)))
		Expect(err).To(MatchError(ContainSubstring("empty page image")))
	})

	It("should honor a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Recognize(ctx, newPage())
		Expect(err).To(MatchError(context.Canceled))
	})
})
