package bill

import (
	"time"

	"github.com/zombor/billscan/internal/pipeline"
)

// Record is a processed bill kept in the history
type Record struct {
	ID               string                   `json:"id"`
	OriginalFilename string                   `json:"original_filename"`
	Filename         string                   `json:"filename"` // name in Storage
	ContentType      string                   `json:"content_type"`
	Pages            int                      `json:"pages"`
	FailedPages      int                      `json:"failed_pages"`
	Bill             pipeline.CategorizedBill `json:"bill"`
	Text             string                   `json:"-"`
	CreatedAt        time.Time                `json:"created_at"`
}

// storedRecord is the on-disk form; the raw text is kept out of API responses
type storedRecord struct {
	Record
	Text string `json:"text"`
}
