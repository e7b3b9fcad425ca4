package bill

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billscan/internal/document"
	"github.com/zombor/billscan/internal/pipeline"
)

// Processor turns uploaded bytes into a categorized bill
type Processor interface {
	ProcessBytes(ctx context.Context, data []byte, contentType string) (*pipeline.Result, error)
}

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now().UTC()
}

// Service handles bill operations
type Service struct {
	db          DB
	processor   Processor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewService creates a new Service with UUID ids and the system clock
func NewService(db DB, processor Processor, storage Storage, logger *slog.Logger) *Service {
	return NewServiceWithDeps(db, processor, storage, uuidGenerator{}, systemTime{}, logger)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, processor Processor, storage Storage, idGen IDGenerator, timeSrc TimeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          db,
		processor:   processor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      logger,
	}
}

var (
	reUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename drops special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "." || reUnsafeChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = reUnsafeChars.ReplaceAllString(base, "")
	base = reSpaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "bill"
	}
	return base + ext
}

// ProcessBill stores an upload, runs it through the pipeline and records the result
func (s *Service) ProcessBill(ctx context.Context, filename string, data []byte, contentType string) (*Record, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	if contentType == "" {
		contentType = document.ContentTypeFromFilename(filename)
	}
	contentType = document.NormalizeContentType(contentType)

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.processor.ProcessBytes(ctx, data, contentType)
	if err != nil {
		s.logger.Error("failed to process bill",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedName)
		return nil, fmt.Errorf("processing bill: %w", err)
	}

	record := &Record{
		ID:               id,
		OriginalFilename: filename,
		Filename:         savedName,
		ContentType:      contentType,
		Pages:            result.Pages,
		FailedPages:      result.FailedPages,
		Bill:             result.Bill,
		Text:             result.Text,
		CreatedAt:        now,
	}

	if err := s.db.SaveBill(record); err != nil {
		s.removeFile(savedName)
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	return record, nil
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		s.logger.Warn("failed to delete file", "filename", name, "error", err)
	}
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*Record, error) {
	record, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return record, nil
}

// ListBills returns all bills, newest first
func (s *Service) ListBills() ([]*Record, error) {
	records, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return records, nil
}

// DeleteBill removes a bill and its file
func (s *Service) DeleteBill(id string) error {
	record, err := s.db.GetBill(id)
	if err != nil {
		return fmt.Errorf("getting bill for deletion: %w", err)
	}

	// a missing file must not keep the record around
	s.removeFile(record.Filename)

	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill from database: %w", err)
	}
	return nil
}

// GetBillFile retrieves the uploaded file for a bill
func (s *Service) GetBillFile(id string) ([]byte, string, error) {
	record, err := s.db.GetBill(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill: %w", err)
	}

	data, err := s.storage.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill file: %w", err)
	}

	return data, record.ContentType, nil
}

// GetBillText returns the recognized text a bill was extracted from
func (s *Service) GetBillText(id string) (string, error) {
	record, err := s.db.GetBill(id)
	if err != nil {
		return "", fmt.Errorf("getting bill: %w", err)
	}
	return record.Text, nil
}
