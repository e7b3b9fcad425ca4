// Package pipeline runs a decoded document through normalization, recognition,
// field extraction and category prediction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/zombor/billscan/internal/category"
	"github.com/zombor/billscan/internal/document"
	"github.com/zombor/billscan/internal/extract"
	"github.com/zombor/billscan/internal/metrics"
	"github.com/zombor/billscan/internal/preprocess"
	"github.com/zombor/billscan/internal/recognition"
)

// ErrNoPages is returned for documents without any page
var ErrNoPages = errors.New("document has no pages")

// Normalizer prepares a page image for recognition
type Normalizer interface {
	Normalize(img image.Image) (*image.Gray, error)
}

// CategorizedBill is the extracted bill plus its predicted category
type CategorizedBill struct {
	extract.ParsedBill
	PredictedCategory string `json:"predicted_category"`
}

// Result is the outcome of processing one document
type Result struct {
	Bill CategorizedBill
	// Text is the joined recognized text the bill was extracted from
	Text        string
	Pages       int
	FailedPages int
}

// Error reports an unexpected failure inside the pipeline, such as a recovered panic
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("processing bill: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DecodeFunc turns uploaded bytes into pages
type DecodeFunc func(data []byte, contentType string, opts document.Options) (*document.Document, error)

// Config holds the collaborators of a Pipeline
type Config struct {
	// Decode defaults to document.Decode
	Decode     DecodeFunc
	Normalizer Normalizer
	Recognizer recognition.Recognizer
	Predictor  category.Predictor
	Document   document.Options
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Pipeline is safe for concurrent use when its collaborators are
type Pipeline struct {
	decode     DecodeFunc
	normalizer Normalizer
	recognizer recognition.Recognizer
	predictor  category.Predictor
	docOpts    document.Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Pipeline. A nil normalizer gets the default preprocess settings.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Recognizer == nil {
		return nil, errors.New("recognizer is required")
	}
	if cfg.Predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = preprocess.New(preprocess.DefaultOptions(), cfg.Logger)
	}
	if cfg.Decode == nil {
		cfg.Decode = document.Decode
	}

	return &Pipeline{
		decode:     cfg.Decode,
		normalizer: cfg.Normalizer,
		recognizer: cfg.Recognizer,
		predictor:  cfg.Predictor,
		docOpts:    cfg.Document,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}, nil
}

// ProcessBytes decodes an upload and processes it
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte, contentType string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, p.panicked(r)
		}
	}()

	start := time.Now()
	doc, err := p.decode(data, contentType, p.docOpts)
	p.metrics.ObserveStage("decode", start)
	if err != nil {
		p.metrics.DocumentProcessed(metrics.OutcomeNormalization, 0)
		return nil, err
	}
	return p.Process(ctx, doc)
}

// Process runs every page of doc through normalization and recognition, then
// extracts and categorizes the bill from the joined text.
//
// A normalization failure aborts the document with a *preprocess.NormalizationError.
// A recognition failure only empties that page's text, unless ctx is done,
// in which case the context error is returned.
func (p *Pipeline) Process(ctx context.Context, doc *document.Document) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, p.panicked(r)
		}
	}()

	if doc == nil || len(doc.Pages) == 0 {
		p.metrics.DocumentProcessed(metrics.OutcomeNormalization, 0)
		return nil, &preprocess.NormalizationError{Stage: "input", Err: ErrNoPages}
	}

	texts := make([]string, len(doc.Pages))
	failed := 0
	for i, page := range doc.Pages {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		normalized, err := p.normalizer.Normalize(page)
		p.metrics.ObserveStage("normalize", start)
		if err != nil {
			p.logger.Error("normalizing page", "page", i+1, "error", err)
			p.metrics.DocumentProcessed(metrics.OutcomeNormalization, 0)
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		p.metrics.PageProcessed()

		start = time.Now()
		text, err := p.recognizer.Recognize(ctx, normalized)
		p.metrics.ObserveStage("recognize", start)
		if err != nil {
			p.logger.Warn("recognition failed; page contributes no text", "page", i+1, "error", err)
			p.metrics.RecognitionFailed()
			failed++
			continue
		}
		texts[i] = text
	}

	if err := ctx.Err(); err != nil {
		p.logger.Warn("bill processing cancelled", "pages", len(doc.Pages), "error", err)
		p.metrics.DocumentProcessed(metrics.OutcomeFailure, 0)
		return nil, fmt.Errorf("recognizing pages: %w", err)
	}

	joined := JoinPages(texts, doc.Paged)

	start := time.Now()
	parsed := extract.Extract(joined)
	p.metrics.ObserveStage("extract", start)

	start = time.Now()
	predicted := Categorize(p.predictor, ItemSummary(parsed.Items))
	p.metrics.ObserveStage("categorize", start)
	p.metrics.CategoryPredicted(predicted)

	p.logger.Info("processed bill",
		"pages", len(doc.Pages),
		"failed_pages", failed,
		"items", len(parsed.Items),
		"category", predicted,
	)
	p.metrics.DocumentProcessed(metrics.OutcomeSuccess, len(parsed.Items))

	return &Result{
		Bill:        CategorizedBill{ParsedBill: parsed, PredictedCategory: predicted},
		Text:        joined,
		Pages:       len(doc.Pages),
		FailedPages: failed,
	}, nil
}

func (p *Pipeline) panicked(r any) error {
	p.logger.Error("pipeline panicked", "panic", r, "stack", string(debug.Stack()))
	p.metrics.DocumentProcessed(metrics.OutcomeFailure, 0)
	return &Error{Err: fmt.Errorf("panic: %v", r)}
}

// JoinPages concatenates per-page text in page order. Paged documents get a
// "=== Page N ===" marker line before each page. The result is trimmed.
func JoinPages(texts []string, paged bool) string {
	var b strings.Builder
	for i, t := range texts {
		if paged {
			fmt.Fprintf(&b, "\n=== Page %d ===\n", i+1)
		} else if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}

// ItemSummary renders items as "description quantity price" joined by single spaces
func ItemSummary(items []extract.ItemLine) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Description+" "+it.Quantity+" "+it.Price)
	}
	return strings.Join(parts, " ")
}

// Categorize predicts a category for summary. Blank summaries are never sent
// to the predictor and yield category.Unknown.
func Categorize(p category.Predictor, summary string) string {
	if p == nil || strings.TrimSpace(summary) == "" {
		return category.Unknown
	}
	return p.Predict(summary)
}
