// Package convert orchestrates a conversion batch: validate the
// uploaded PDFs, extract text, detect the vendor, parse invoices, build
// SAP journal rows and write the export workbook. Per-file failures are
// collected instead of aborting the batch, matching how accountants
// upload a month of invoices at once.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/export"
	"github.com/quangtd/invoice2sap/internal/domain/invoice"
	"github.com/quangtd/invoice2sap/internal/domain/invoice/parser"
	"github.com/quangtd/invoice2sap/internal/domain/invoice/pdftext"
	"github.com/quangtd/invoice2sap/internal/domain/invoice/sniffer"
	"github.com/quangtd/invoice2sap/internal/domain/transform"
	"github.com/quangtd/invoice2sap/internal/metrics"
	"github.com/quangtd/invoice2sap/pkg/storage"
)

// ErrNoFiles indicates a batch request without any uploads.
var ErrNoFiles = errors.New("no files in batch")

// Format selects the export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Extractor turns PDF bytes into normalized text. Split out so tests
// can feed invoice text without building real PDFs.
type Extractor interface {
	Extract(data []byte) (text string, pages int, err error)
}

// pdfExtractor is the production Extractor built on pdfcpu validation
// and ledongthuc/pdf text extraction.
type pdfExtractor struct{}

func (pdfExtractor) Extract(data []byte) (string, int, error) {
	pages, err := pdftext.Validate(data)
	if err != nil {
		return "", 0, err
	}
	text, err := pdftext.Extract(data)
	if err != nil {
		return "", pages, err
	}
	return pdftext.Normalize(text), pages, nil
}

// Upload is one file in a batch request.
type Upload struct {
	Filename string
	Data     []byte
}

// Request describes a conversion batch.
type Request struct {
	// Vendor is the operator's choice; VendorAuto runs detection per file.
	Vendor       invoice.Vendor
	Config       transform.Config
	DocumentDate string
	Format       Format
	Files        []Upload
}

// FileResult is the per-file outcome shown on the result page.
type FileResult struct {
	Filename string
	Pages    int
	Vendor   invoice.Vendor
	Invoice  *invoice.Invoice
	Err      error
}

// Failed reports whether the file produced no usable invoice.
func (r *FileResult) Failed() bool { return r.Err != nil }

// Result is a finished batch.
type Result struct {
	BatchID      uuid.UUID
	Files        []FileResult
	Invoices     []*invoice.Invoice
	Rows         []transform.Row
	Export       []byte
	ExportName   string
	ExportFileID uuid.UUID
	TotalDong    int64
}

// FailedCount counts files that produced no invoice.
func (r *Result) FailedCount() int {
	n := 0
	for i := range r.Files {
		if r.Files[i].Failed() {
			n++
		}
	}
	return n
}

// Archiver persists finished batches. Implemented by the archive
// repository; nil disables archiving.
type Archiver interface {
	SaveBatch(ctx context.Context, batch *archive.Batch, files []archive.BatchFile) error
}

// Indexer adds finished batches to the search index.
type Indexer interface {
	IndexBatch(batch *archive.Batch, files []archive.BatchFile) error
}

// Service runs conversion batches.
type Service struct {
	extractor Extractor
	registry  *parser.Registry
	detector  *sniffer.Detector
	store     storage.Store
	archiver  Archiver
	indexer   Indexer
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewService wires the conversion pipeline. store, archiver and indexer
// may be nil for a parse-only service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		extractor: pdfExtractor{},
		registry:  parser.NewRegistry(),
		detector:  sniffer.NewDetector(),
		store:     store,
		logger:    logger,
		tracer:    otel.Tracer("invoice2sap/convert"),
	}
}

// WithArchive adds batch persistence and search indexing.
func (s *Service) WithArchive(archiver Archiver, indexer Indexer) *Service {
	s.archiver = archiver
	s.indexer = indexer
	return s
}

// WithExtractor replaces the PDF extractor.
func (s *Service) WithExtractor(e Extractor) *Service {
	s.extractor = e
	return s
}

// Convert processes a batch end to end. Per-file parse failures land in
// Result.Files; only batch-level problems (no files, export failure)
// return an error.
func (s *Service) Convert(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}

	batchID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "convert.batch", trace.WithAttributes(
		attribute.String("batch.id", batchID.String()),
		attribute.String("batch.vendor", string(req.Vendor)),
		attribute.Int("batch.files", len(req.Files)),
	))
	defer span.End()

	logger := s.logger.With(
		slog.String("batch_id", batchID.String()),
		slog.String("vendor", string(req.Vendor)),
	)
	logger.Info("conversion batch started", slog.Int("files", len(req.Files)))

	result := &Result{BatchID: batchID}
	result.Files = s.parseFiles(ctx, req, logger)

	for i := range result.Files {
		fr := &result.Files[i]
		if fr.Failed() {
			continue
		}
		result.Invoices = append(result.Invoices, fr.Invoice)
		result.TotalDong += fr.Invoice.Total().IntPart()
	}

	result.Rows = transform.LedgerRows(result.Invoices, req.Config, req.DocumentDate)
	metrics.ExportRowsTotal.Add(float64(len(result.Rows)))

	if err := s.writeExport(ctx, req, result); err != nil {
		return nil, err
	}

	s.storeUploads(ctx, req, result.BatchID, logger)
	s.archiveBatch(ctx, req, result, logger)
	metrics.BatchesTotal.WithLabelValues(string(req.Vendor)).Inc()

	logger.Info("conversion batch completed",
		slog.Int("invoices", len(result.Invoices)),
		slog.Int("failed", result.FailedCount()),
		slog.Int("rows", len(result.Rows)),
		slog.Int64("total_dong", result.TotalDong),
	)
	return result, nil
}

// parseFiles runs extraction and parsing across a small worker pool,
// preserving the upload order in the returned slice.
func (s *Service) parseFiles(ctx context.Context, req *Request, logger *slog.Logger) []FileResult {
	workers := runtime.NumCPU()
	if workers > len(req.Files) {
		workers = len(req.Files)
	}

	type job struct {
		idx    int
		upload Upload
	}
	jobs := make(chan job)
	results := make([]FileResult, len(req.Files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = s.parseFile(ctx, req.Vendor, j.upload)
			}
		}()
	}

	for i, f := range req.Files {
		jobs <- job{idx: i, upload: f}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		fr := &results[i]
		if fr.Failed() {
			logger.Warn("file failed",
				slog.String("file", fr.Filename),
				slog.Any("error", fr.Err),
			)
		}
	}
	return results
}

// parseFile handles one upload: extract, detect, parse.
func (s *Service) parseFile(ctx context.Context, chosen invoice.Vendor, up Upload) FileResult {
	start := time.Now()
	fr := FileResult{Filename: up.Filename, Vendor: chosen}

	_, span := s.tracer.Start(ctx, "convert.file", trace.WithAttributes(
		attribute.String("file.name", up.Filename),
	))
	defer span.End()

	text, pages, err := s.extractor.Extract(up.Data)
	fr.Pages = pages
	if err != nil {
		fr.Err = fmt.Errorf("read pdf: %w", err)
		metrics.ObserveParse(string(chosen), "failed", time.Since(start))
		return fr
	}

	vendor := chosen
	if vendor == invoice.VendorAuto {
		detected, err := s.detector.Detect(text)
		if err != nil {
			fr.Err = err
			metrics.ObserveParse(string(chosen), "failed", time.Since(start))
			return fr
		}
		vendor = detected
	}
	fr.Vendor = vendor

	p, err := s.registry.Get(vendor)
	if err != nil {
		fr.Err = err
		metrics.ObserveParse(string(vendor), "failed", time.Since(start))
		return fr
	}

	inv, err := p.Parse(text)
	if err != nil {
		fr.Err = fmt.Errorf("parse invoice: %w", err)
		metrics.ObserveParse(string(vendor), "failed", time.Since(start))
		return fr
	}
	if inv.Empty() {
		fr.Err = errors.New("no invoice data found in pdf text")
		metrics.ObserveParse(string(vendor), "failed", time.Since(start))
		return fr
	}

	fr.Invoice = inv
	metrics.ObserveParse(string(vendor), "parsed", time.Since(start))
	return fr
}

// writeExport renders the export and stores it under the batch.
func (s *Service) writeExport(ctx context.Context, req *Request, result *Result) error {
	var (
		data []byte
		err  error
	)
	format := req.Format
	if format == "" {
		format = FormatXLSX
	}

	switch format {
	case FormatCSV:
		data, err = export.CSV(result.Rows)
	default:
		data, err = export.Excel(result.Rows)
	}
	if err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	result.Export = data
	result.ExportName = export.Filename(string(format), time.Now())

	if s.store == nil {
		return nil
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if format == FormatCSV {
		contentType = "text/csv"
	}
	info, err := s.store.Save(ctx, result.BatchID, result.ExportName, contentType,
		bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	result.ExportFileID = info.ID
	return nil
}

// storeUploads keeps the original PDFs next to the export, so the
// batch directory holds everything the retention job governs. Failures
// are logged: losing an original never sinks a finished batch.
func (s *Service) storeUploads(ctx context.Context, req *Request, batchID uuid.UUID, logger *slog.Logger) {
	if s.store == nil {
		return
	}
	for _, up := range req.Files {
		_, err := s.store.Save(ctx, batchID, up.Filename, "application/pdf",
			bytes.NewReader(up.Data))
		if err != nil {
			logger.Warn("failed to store uploaded pdf",
				slog.String("file", up.Filename),
				slog.Any("error", err),
			)
		}
	}
}

// archiveBatch records the batch for the archive pages. Failures are
// logged, not returned: the operator already has the export in hand.
func (s *Service) archiveBatch(ctx context.Context, req *Request, result *Result, logger *slog.Logger) {
	if s.archiver == nil {
		return
	}

	batch := &archive.Batch{
		ID:           result.BatchID,
		Vendor:       string(req.Vendor),
		Period:       req.Config.Period,
		DocumentDate: req.DocumentDate,
		ExportFileID: result.ExportFileID,
		InvoiceCount: len(result.Invoices),
		FailedCount:  result.FailedCount(),
		RowCount:     len(result.Rows),
		TotalDong:    result.TotalDong,
	}

	files := make([]archive.BatchFile, 0, len(result.Files))
	for i := range result.Files {
		fr := &result.Files[i]
		bf := archive.BatchFile{
			ID:       uuid.New(),
			BatchID:  batch.ID,
			Filename: fr.Filename,
			Status:   archive.FileStatusParsed,
		}
		if fr.Failed() {
			bf.Status = archive.FileStatusFailed
			bf.Error = fr.Err.Error()
		} else {
			bf.InvoiceNo = fr.Invoice.InvoiceNo
			bf.SerialNo = fr.Invoice.SerialNo
			bf.InvoiceDate = fr.Invoice.InvoiceDate
			bf.TotalDong = fr.Invoice.Total().IntPart()
		}
		files = append(files, bf)
	}

	if err := s.archiver.SaveBatch(ctx, batch, files); err != nil {
		logger.Error("failed to archive batch", slog.Any("error", err))
		return
	}
	if s.indexer != nil {
		if err := s.indexer.IndexBatch(batch, files); err != nil {
			logger.Warn("failed to index batch", slog.Any("error", err))
		}
	}
}
