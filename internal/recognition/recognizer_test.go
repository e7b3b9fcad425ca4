package recognition

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	It("should default to tesseract", func() {
		r, err := New(Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&Tesseract{}))
	})

	It("should build an ollama recognizer", func() {
		r, err := New(Options{Engine: "Ollama", OllamaURL: "http://ollama:11434"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&Ollama{}))
	})

	It("should require a gemini api key", func() {
		_, err := New(Options{Engine: EngineGemini})
		Expect(err).To(MatchError(ContainSubstring("api key")))
	})

	It("should reject unknown engines", func() {
		_, err := New(Options{Engine: "abbyy"})
		Expect(err).To(MatchError(ContainSubstring("unknown recognition engine")))
	})
})

var _ = Describe("cleanReply", func() {
	It("should strip a fenced block", func() {
		Expect(cleanReply("```\nmilk 3 30.00\n```")).To(Equal("milk 3 30.00"))
	})

	It("should leave plain text alone", func() {
		Expect(cleanReply("  milk 3 30.00\n")).To(Equal("milk 3 30.00"))
	})
})
