package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/convert"
	"github.com/quangtd/invoice2sap/internal/domain/invoice"
	"github.com/quangtd/invoice2sap/internal/domain/transform"
	"github.com/quangtd/invoice2sap/internal/logging"
	"github.com/quangtd/invoice2sap/internal/notify"
	"github.com/quangtd/invoice2sap/pkg/money"
)

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "upload.html", uploadView{Vendors: vendorOptions()})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.renderUploadError(w, http.StatusBadRequest, "upload quá lớn hoặc không hợp lệ")
		return
	}

	vendor, err := invoice.ParseVendor(r.FormValue("vendor"))
	if err != nil {
		s.renderUploadError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.renderUploadError(w, http.StatusBadRequest, "chưa chọn tệp PDF nào")
		return
	}
	if max := s.cfg.Server.MaxBatchFiles; max > 0 && len(files) > max {
		s.renderUploadError(w, http.StatusBadRequest,
			fmt.Sprintf("tối đa %d tệp mỗi lần", max))
		return
	}

	uploads, err := readUploads(files)
	if err != nil {
		s.renderUploadError(w, http.StatusBadRequest, "không đọc được tệp upload")
		return
	}

	req := &convert.Request{
		Vendor: vendor,
		Config: transform.Config{
			VendorCode:          r.FormValue("vendor_code"),
			VendorName:          r.FormValue("vendor_name"),
			VendorTaxCode:       r.FormValue("vendor_tax_code"),
			VendorAddress:       r.FormValue("vendor_address"),
			Period:              r.FormValue("period"),
			DescriptionTemplate: r.FormValue("description"),
		},
		DocumentDate: r.FormValue("document_date"),
		Format:       convert.Format(r.FormValue("format")),
		Files:        uploads,
	}

	result, err := s.converter.Convert(r.Context(), req)
	if err != nil {
		if errors.Is(err, convert.ErrNoFiles) {
			s.renderUploadError(w, http.StatusBadRequest, "chưa chọn tệp PDF nào")
			return
		}
		logging.FromContext(r.Context()).Error("conversion failed", slog.Any("error", err))
		s.renderUploadError(w, http.StatusInternalServerError, "chuyển đổi thất bại, thử lại sau")
		return
	}

	view := s.newResultView(result)
	s.notifyBatch(req, result, view.DownloadURL)
	s.render(w, http.StatusOK, "result.html", view)
}

func (s *Server) renderUploadError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "upload.html", uploadView{Vendors: vendorOptions(), Error: msg})
}

func readUploads(files []*multipart.FileHeader) ([]convert.Upload, error) {
	uploads := make([]convert.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, convert.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func (s *Server) newResultView(result *convert.Result) resultView {
	view := resultView{
		BatchID:    result.BatchID.String(),
		Invoices:   len(result.Invoices),
		Failed:     result.FailedCount(),
		Rows:       len(result.Rows),
		Total:      money.New(result.TotalDong).Display(),
		ExportName: result.ExportName,
	}

	for i := range result.Files {
		fr := &result.Files[i]
		fv := fileView{
			Filename: fr.Filename,
			Vendor:   fr.Vendor.DisplayName(),
		}
		if fr.Failed() {
			fv.Error = fr.Err.Error()
		} else {
			fv.InvoiceNo = fr.Invoice.InvoiceNo
			fv.SerialNo = fr.Invoice.SerialNo
			fv.Date = fr.Invoice.InvoiceDate
			fv.Total = money.FromDecimal(fr.Invoice.Total()).Display()
		}
		view.Files = append(view.Files, fv)
	}

	if result.ExportFileID != uuid.Nil {
		url, err := s.downloadURL(result.BatchID, result.ExportFileID)
		if err != nil {
			s.logger.Error("failed to sign download link", slog.Any("error", err))
		} else {
			view.DownloadURL = url
		}
	}
	return view
}

// notifyBatch emails the accounting inbox in the background.
func (s *Server) notifyBatch(req *convert.Request, result *convert.Result, downloadURL string) {
	if s.notifier == nil {
		return
	}
	summary := notify.BatchSummary{
		BatchID:      result.BatchID.String(),
		Vendor:       req.Vendor.DisplayName(),
		Period:       req.Config.Period,
		InvoiceCount: len(result.Invoices),
		FailedCount:  result.FailedCount(),
		TotalDisplay: money.New(result.TotalDong).Display(),
		DownloadURL:  downloadURL,
	}
	go func() {
		if err := s.notifier.BatchCompleted(summary); err != nil {
			s.logger.Warn("batch notification failed",
				slog.String("batch_id", summary.BatchID),
				slog.Any("error", err),
			)
		}
	}()
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		http.Error(w, "archive is not configured", http.StatusNotFound)
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	batches, err := s.batches.ListBatches(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list batches", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := archiveView{}
	for i := range batches {
		view.Batches = append(view.Batches, newBatchView(&batches[i]))
	}
	s.render(w, http.StatusOK, "archive.html", view)
}

func (s *Server) handleBatchDetail(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		http.Error(w, "archive is not configured", http.StatusNotFound)
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	batch, err := s.batches.GetBatch(r.Context(), batchID)
	if err != nil {
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	}
	files, err := s.batches.GetBatchFiles(r.Context(), batchID)
	if err != nil {
		s.logger.Error("failed to load batch files", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := batchDetailView{Batch: newBatchView(batch)}
	for i := range files {
		view.Files = append(view.Files, newBatchFileView(&files[i]))
	}
	if batch.ExportFileID != uuid.Nil {
		if url, err := s.downloadURL(batch.ID, batch.ExportFileID); err == nil {
			view.DownloadURL = url
		}
	}
	s.render(w, http.StatusOK, "batch.html", view)
}

func newBatchFileView(f *archive.BatchFile) fileView {
	fv := fileView{
		Filename:  f.Filename,
		InvoiceNo: f.InvoiceNo,
		SerialNo:  f.SerialNo,
		Date:      f.InvoiceDate,
		Error:     f.Error,
	}
	if f.Status == archive.FileStatusParsed {
		fv.Total = money.New(f.TotalDong).Display()
	}
	return fv
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		http.Error(w, "search is not configured", http.StatusNotFound)
		return
	}

	query := r.URL.Query().Get("q")
	view := searchView{Query: query}
	if query != "" {
		hits, err := s.search.Search(query, 50)
		if err != nil {
			logging.FromContext(r.Context()).Error("search failed",
				slog.String("query", query), slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		for _, hit := range hits {
			view.Hits = append(view.Hits, searchHitView{
				BatchID:   hit.Document.BatchID,
				Vendor:    invoice.Vendor(hit.Document.Vendor).DisplayName(),
				Period:    hit.Document.Period,
				InvoiceNo: hit.Document.InvoiceNo,
				SerialNo:  hit.Document.SerialNo,
				Filename:  hit.Document.Filename,
			})
		}
	}
	s.render(w, http.StatusOK, "search.html", view)
}
