package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/invoice"
	"github.com/quangtd/invoice2sap/pkg/money"
)

//go:embed templates
var templateFiles embed.FS

var pageTemplates = parseTemplates(
	"upload.html",
	"result.html",
	"archive.html",
	"batch.html",
	"search.html",
	"login.html",
)

func parseTemplates(pages ...string) map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		parsed[page] = template.Must(template.ParseFS(templateFiles,
			"templates/layout.html", "templates/"+page))
	}
	return parsed
}

// render writes a page into a buffer first so template errors become a
// clean 500 instead of a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := pageTemplates[page]
	if !ok {
		s.logger.Error("unknown template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("template render failed", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type vendorOption struct {
	Value string
	Label string
}

func vendorOptions() []vendorOption {
	opts := []vendorOption{{Value: string(invoice.VendorAuto), Label: invoice.VendorAuto.DisplayName()}}
	for _, v := range invoice.Vendors {
		opts = append(opts, vendorOption{Value: string(v), Label: v.DisplayName()})
	}
	return opts
}

type uploadView struct {
	Vendors []vendorOption
	Error   string
}

type fileView struct {
	Filename  string
	Vendor    string
	InvoiceNo string
	SerialNo  string
	Date      string
	Total     string
	Error     string
}

type resultView struct {
	BatchID     string
	Files       []fileView
	Invoices    int
	Failed      int
	Rows        int
	Total       string
	DownloadURL string
	ExportName  string
}

type batchView struct {
	ID       string
	Vendor   string
	Period   string
	Invoices int
	Failed   int
	Rows     int
	Total    string
	Created  string
}

type archiveView struct {
	Batches []batchView
}

type batchDetailView struct {
	Batch       batchView
	Files       []fileView
	DownloadURL string
}

type searchHitView struct {
	BatchID   string
	Vendor    string
	Period    string
	InvoiceNo string
	SerialNo  string
	Filename  string
}

type searchView struct {
	Query string
	Hits  []searchHitView
}

type loginView struct {
	Error string
}

func newBatchView(b *archive.Batch) batchView {
	return batchView{
		ID:       b.ID.String(),
		Vendor:   invoice.Vendor(b.Vendor).DisplayName(),
		Period:   b.Period,
		Invoices: b.InvoiceCount,
		Failed:   b.FailedCount,
		Rows:     b.RowCount,
		Total:    money.New(b.TotalDong).Display(),
		Created:  b.CreatedAt.Format("2006-01-02 15:04"),
	}
}
