// Package archive persists finished conversion batches so accountants
// can find and re-download past exports. Batch metadata lives in
// Postgres; a bleve index over invoice numbers and descriptions powers
// the search page.
package archive

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus describes how one uploaded PDF fared in its batch.
type FileStatus string

const (
	FileStatusParsed FileStatus = "parsed"
	FileStatusFailed FileStatus = "failed"
)

// Batch is one finished conversion run.
type Batch struct {
	ID           uuid.UUID
	Vendor       string
	Period       string
	DocumentDate string
	// ExportFileID points at the generated workbook in storage.
	ExportFileID uuid.UUID
	InvoiceCount int
	FailedCount  int
	RowCount     int
	// TotalDong is the summed invoice total across the batch.
	TotalDong int64
	CreatedAt time.Time
}

// BatchFile is one uploaded PDF within a batch.
type BatchFile struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	Filename    string
	InvoiceNo   string
	SerialNo    string
	InvoiceDate string
	TotalDong   int64
	Status      FileStatus
	// Error holds the parse failure message for failed files.
	Error string
}
