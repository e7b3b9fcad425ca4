// Package config holds the flags shared by the billscan commands and builds
// the components they configure.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/billscan/internal/category"
	"github.com/zombor/billscan/internal/document"
	"github.com/zombor/billscan/internal/metrics"
	"github.com/zombor/billscan/internal/pipeline"
	"github.com/zombor/billscan/internal/preprocess"
	"github.com/zombor/billscan/internal/recognition"
)

// EnvVarPrefix is prepended to flag names to form environment variables,
// e.g. --model-path becomes BILLSCAN_MODEL_PATH
const EnvVarPrefix = "BILLSCAN"

// Config holds the pipeline flags
type Config struct {
	ConfigFile *string
	LogFormat  *string
	LogLevel   *string

	ModelPath *string

	Engine        *string
	TesseractPath *string
	Language      *string
	PSM           *int
	OEM           *int
	TessdataDir   *string
	GeminiKey     *string
	GeminiModel   *string
	OllamaURL     *string
	OllamaModel   *string

	DPI      *float64
	MaxPages *int

	BlockSize       *int
	Offset          *float64
	ThresholdMethod *string
	SkipDeskew      *bool
}

// Register defines the pipeline flags on fs
func Register(fs *ff.FlagSet) *Config {
	d := preprocess.DefaultOptions()
	return &Config{
		ConfigFile: fs.StringLong("config", "", "Config file with one 'flag value' pair per line (optional)"),
		LogFormat:  fs.StringLong("log-format", "text", "Log format: 'text' or 'json'"),
		LogLevel:   fs.StringLong("log-level", "info", "Log level: debug, info, warn or error"),

		ModelPath: fs.StringLong("model-path", "bill_model.json", "Category model artifact (JSON)"),

		Engine:        fs.StringLong("engine", recognition.EngineTesseract, "Recognition engine: tesseract, gemini, ollama or gosseract"),
		TesseractPath: fs.StringLong("tesseract-path", "tesseract", "Path to the tesseract binary"),
		Language:      fs.StringLong("lang", "eng", "Tesseract language(s), e.g. eng or eng+hin"),
		PSM:           fs.IntLong("psm", 0, "Tesseract page segmentation mode (0 = engine default)"),
		OEM:           fs.IntLong("oem", 0, "Tesseract OCR engine mode (0 = engine default)"),
		TessdataDir:   fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)"),
		GeminiKey:     fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		GeminiModel:   fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		OllamaURL:     fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		OllamaModel:   fs.StringLong("ollama-model", "llava", "Ollama vision model name"),

		DPI:      fs.Float64Long("dpi", 300, "PDF rasterization DPI"),
		MaxPages: fs.IntLong("max-pages", 0, "Maximum PDF pages to process (0 = all)"),

		BlockSize:       fs.IntLong("block-size", d.BlockSize, "Adaptive threshold neighborhood size (odd)"),
		Offset:          fs.Float64Long("threshold-offset", d.Offset, "Constant subtracted from the local mean"),
		ThresholdMethod: fs.StringLong("threshold-method", "gaussian", "Local mean: 'gaussian' or 'mean'"),
		SkipDeskew:      fs.BoolLong("skip-deskew", "Disable skew correction"),
	}
}

// Parse parses args into fs, reading BILLSCAN_* env vars and the --config file
func Parse(fs *ff.FlagSet, args []string) error {
	return ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	)
}

// Logger builds the slog logger selected by --log-format and --log-level
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(*c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", *c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(*c.LogFormat) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", *c.LogFormat)
	}
}

// NormalizerOptions returns the preprocess settings from the flags
func (c *Config) NormalizerOptions() (preprocess.Options, error) {
	opts := preprocess.DefaultOptions()
	opts.BlockSize = *c.BlockSize
	opts.Offset = *c.Offset
	opts.SkipDeskew = *c.SkipDeskew

	switch strings.ToLower(*c.ThresholdMethod) {
	case "gaussian", "":
		opts.Method = preprocess.GaussianMean
	case "mean", "box":
		opts.Method = preprocess.BoxMean
	default:
		return opts, fmt.Errorf("invalid threshold method %q: want gaussian or mean", *c.ThresholdMethod)
	}
	return opts, nil
}

// RecognitionOptions returns the engine settings from the flags.
// geminiEnvKey is used when --gemini-key is empty.
func (c *Config) RecognitionOptions(geminiEnvKey string, logger *slog.Logger) recognition.Options {
	key := *c.GeminiKey
	if key == "" {
		key = geminiEnvKey
	}
	return recognition.Options{
		Engine:        *c.Engine,
		TesseractPath: *c.TesseractPath,
		Language:      *c.Language,
		PSM:           *c.PSM,
		OEM:           *c.OEM,
		TessdataDir:   *c.TessdataDir,
		GeminiAPIKey:  key,
		GeminiModel:   *c.GeminiModel,
		OllamaURL:     *c.OllamaURL,
		OllamaModel:   *c.OllamaModel,
		Logger:        logger,
	}
}

// DocumentOptions returns the upload decoding settings from the flags
func (c *Config) DocumentOptions() document.Options {
	return document.Options{DPI: *c.DPI, MaxPages: *c.MaxPages}
}

// Components is everything a command needs to process bills
type Components struct {
	Pipeline   *pipeline.Pipeline
	Model      *category.Model
	Recognizer recognition.Recognizer
}

// Close releases the recognizer
func (c *Components) Close() error {
	return c.Recognizer.Close()
}

// Build loads the category model and wires the pipeline.
// A model that fails to load is fatal for the caller.
func (c *Config) Build(geminiEnvKey string, m *metrics.Metrics, logger *slog.Logger) (*Components, error) {
	model, err := category.Load(*c.ModelPath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded category model", "path", *c.ModelPath, "classes", len(model.Classes()))

	normOpts, err := c.NormalizerOptions()
	if err != nil {
		return nil, err
	}

	recognizer, err := recognition.New(c.RecognitionOptions(geminiEnvKey, logger))
	if err != nil {
		return nil, fmt.Errorf("creating recognizer: %w", err)
	}
	logger.Info("initialized recognizer", "engine", *c.Engine)

	p, err := pipeline.New(pipeline.Config{
		Normalizer: preprocess.New(normOpts, logger),
		Recognizer: recognizer,
		Predictor:  model,
		Document:   c.DocumentOptions(),
		Metrics:    m,
		Logger:     logger,
	})
	if err != nil {
		recognizer.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return &Components{Pipeline: p, Model: model, Recognizer: recognizer}, nil
}
