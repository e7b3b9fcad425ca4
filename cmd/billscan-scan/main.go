package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billscan/internal/config"
	"github.com/zombor/billscan/internal/document"
	"github.com/zombor/billscan/internal/preprocess"
)

type output struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 1 on failure, 2 on usage errors and
// 3 when the file could not be read as a bill image
func run(args []string, stdout, stderr io.Writer) int {
	fs := ff.NewFlagSet("billscan-scan")
	var (
		showText = fs.BoolLong("text", "Print the recognized text instead of the JSON result")
		pretty   = fs.BoolLong("pretty", "Indent the JSON output")
	)
	cfg := config.Register(fs)

	if err := config.Parse(fs, args); err != nil || len(fs.GetArgs()) != 1 {
		fmt.Fprintf(stderr, "usage: billscan-scan [flags] FILE\n\n%s\n", ffhelp.Flags(fs))
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 2
	}
	path := fs.GetArgs()[0]

	logger, err := cfg.Logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	components, err := cfg.Build(os.Getenv("GEMINI_API_KEY"), nil, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		return 1
	}
	defer components.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read file", "path", path, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}

	result, err := components.Pipeline.ProcessBytes(ctx, data, document.ContentTypeFromFilename(path))
	if err != nil {
		logger.Error("failed to process bill", "path", path, "error", err)
		_ = enc.Encode(output{Status: "error", Message: err.Error()})
		var nerr *preprocess.NormalizationError
		if errors.As(err, &nerr) {
			return 3
		}
		return 1
	}

	if *showText {
		fmt.Fprintln(stdout, result.Text)
		return 0
	}
	_ = enc.Encode(output{Status: "success", Data: result.Bill})
	return 0
}
