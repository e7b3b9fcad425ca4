package recognition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockRunner struct {
	stdout []byte
	stderr []byte
	err    error

	calls int
	name  string
	args  []string
	stdin []byte
}

func (m *mockRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	m.calls++
	m.name = name
	m.args = args
	m.stdin = stdin
	return m.stdout, m.stderr, m.err
}

var _ = Describe("Tesseract", func() {
	var (
		runner *mockRunner
		cfg    TesseractConfig
		page   image.Image
		text   string
		err    error
	)

	BeforeEach(func() {
		runner = &mockRunner{stdout: []byte("rice 5 50.00\nTOTAL: 50.00\n")}
		cfg = TesseractConfig{}
		page = newPage()
	})

	JustBeforeEach(func() {
		text, err = NewTesseract(cfg, runner, nil).Recognize(context.Background(), page)
	})

	When("the command succeeds", func() {
		It("should return stdout as the page text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("rice 5 50.00\nTOTAL: 50.00\n"))
		})

		It("should run tesseract with default arguments", func() {
			Expect(runner.name).To(Equal("tesseract"))
			Expect(runner.args).To(Equal([]string{"stdin", "stdout", "-l", "eng"}))
		})

		It("should pipe the page as a PNG", func() {
			decoded, decErr := png.Decode(bytes.NewReader(runner.stdin))
			Expect(decErr).NotTo(HaveOccurred())
			Expect(decoded.Bounds()).To(Equal(page.Bounds()))
		})
	})

	When("the config sets optional flags", func() {
		BeforeEach(func() {
			cfg = TesseractConfig{Path: "/usr/local/bin/tesseract", Language: "eng+hin", PSM: 6, OEM: 1, TessdataDir: "/data"}
		})

		It("should pass them through", func() {
			Expect(runner.name).To(Equal("/usr/local/bin/tesseract"))
			Expect(runner.args).To(Equal([]string{
				"stdin", "stdout", "-l", "eng+hin", "--psm", "6", "--oem", "1", "--tessdata-dir", "/data",
			}))
		})
	})

	When("the command fails", func() {
		BeforeEach(func() {
			runner.err = errors.New("exit status 1")
			runner.stderr = []byte("Error opening data file\n")
		})

		It("should return an error with stderr", func() {
			Expect(err).To(MatchError(ContainSubstring("Error opening data file")))
			Expect(text).To(BeEmpty())
		})
	})

	When("the page is empty", func() {
		BeforeEach(func() {
			page = image.NewGray(image.Rect(0, 0, 0, 0))
		})

		It("should return an error without running the command", func() {
			Expect(err).To(HaveOccurred())
			Expect(runner.calls).To(BeZero())
		})
	})
})
