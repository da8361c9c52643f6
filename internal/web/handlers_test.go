package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/convert"
	"github.com/quangtd/invoice2sap/internal/domain/invoice"
	"github.com/quangtd/invoice2sap/internal/notify"
	"github.com/quangtd/invoice2sap/pkg/config"
	"github.com/quangtd/invoice2sap/pkg/storage"
)

type fakeConverter struct {
	result *convert.Result
	err    error
	gotReq *convert.Request
}

func (f *fakeConverter) Convert(_ context.Context, req *convert.Request) (*convert.Result, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBatchReader struct {
	batch   *archive.Batch
	files   []archive.BatchFile
	batches []archive.Batch
}

func (f *fakeBatchReader) GetBatch(_ context.Context, id uuid.UUID) (*archive.Batch, error) {
	if f.batch == nil || f.batch.ID != id {
		return nil, errors.New("not found")
	}
	return f.batch, nil
}

func (f *fakeBatchReader) GetBatchFiles(_ context.Context, _ uuid.UUID) ([]archive.BatchFile, error) {
	return f.files, nil
}

func (f *fakeBatchReader) ListBatches(_ context.Context, _, _ int) ([]archive.Batch, error) {
	return f.batches, nil
}

type fakeSearcher struct {
	hits []archive.SearchResult
}

func (f *fakeSearcher) Search(_ string, _ int) ([]archive.SearchResult, error) {
	return f.hits, nil
}

type fakeNotifier struct {
	got chan notify.BatchSummary
}

func (f *fakeNotifier) BatchCompleted(summary notify.BatchSummary) error {
	f.got <- summary
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:               "localhost",
			Port:               8080,
			BaseURL:            "http://localhost:8080",
			RateLimitPerSecond: 1000,
			RateLimitBurst:     1000,
			MaxUploadBytes:     50 << 20,
			MaxBatchFiles:      100,
		},
		Auth: config.AuthConfig{
			DownloadSecret: "test-download-secret",
			DownloadTTL:    time.Minute,
		},
	}
}

func sampleResult(t *testing.T) *convert.Result {
	t.Helper()
	inv := &invoice.Invoice{
		Vendor:      invoice.VendorMobifone,
		InvoiceNo:   "5036143",
		SerialNo:    "1C24TMB",
		InvoiceDate: "2024-12-05",
		Lines: []invoice.Line{{
			BaseAmount:  decimal.NewFromInt(44545),
			VATRate:     10,
			VATAmount:   decimal.NewFromInt(4455),
			TotalAmount: decimal.NewFromInt(49000),
		}},
	}
	return &convert.Result{
		BatchID: uuid.New(),
		Files: []convert.FileResult{{
			Filename: "hoadon.pdf",
			Vendor:   invoice.VendorMobifone,
			Invoice:  inv,
		}},
		Invoices:     []*invoice.Invoice{inv},
		Export:       []byte("workbook"),
		ExportName:   "sap_journal_20241205_100000.xlsx",
		ExportFileID: uuid.New(),
		TotalDong:    49000,
	}
}

func newTestServer(t *testing.T, conv Converter, batches BatchReader, search Searcher, notifier Notifier) *Server {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewServer(testConfig(), conv, batches, search, store, notifier, slog.Default())
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleUploadPage(t *testing.T) {
	srv := newTestServer(t, &fakeConverter{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mobifone")
	assert.Contains(t, body, "Auto-detect")
	assert.Contains(t, body, `action="/convert"`)
	assert.Contains(t, body, `name="vendor_address"`)
}

func TestHandleConvert(t *testing.T) {
	t.Run("renders the batch result", func(t *testing.T) {
		conv := &fakeConverter{result: sampleResult(t)}
		srv := newTestServer(t, conv, nil, nil, nil)

		body, contentType := multipartBody(t,
			map[string]string{
				"vendor":         "mobifone",
				"period":         "T12.24",
				"vendor_code":    "V00000262",
				"vendor_address": "Số 01 Phạm Văn Bạch, Hà Nội",
			},
			map[string][]byte{"hoadon.pdf": []byte("%PDF-fake")},
		)
		req := httptest.NewRequest(http.MethodPost, "/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "5036143")
		assert.Contains(t, rec.Body.String(), "49.000")
		assert.Contains(t, rec.Body.String(), "/download/")

		require.NotNil(t, conv.gotReq)
		assert.Equal(t, invoice.VendorMobifone, conv.gotReq.Vendor)
		assert.Equal(t, "T12.24", conv.gotReq.Config.Period)
		assert.Equal(t, "V00000262", conv.gotReq.Config.VendorCode)
		assert.Equal(t, "Số 01 Phạm Văn Bạch, Hà Nội", conv.gotReq.Config.VendorAddress)
		require.Len(t, conv.gotReq.Files, 1)
		assert.Equal(t, "hoadon.pdf", conv.gotReq.Files[0].Filename)
	})

	t.Run("rejects a request without files", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{}, nil, nil, nil)

		body, contentType := multipartBody(t, map[string]string{"vendor": "mobifone"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown vendor", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{}, nil, nil, nil)

		body, contentType := multipartBody(t,
			map[string]string{"vendor": "evn"},
			map[string][]byte{"a.pdf": []byte("x")},
		)
		req := httptest.NewRequest(http.MethodPost, "/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sends the completion email", func(t *testing.T) {
		notifier := &fakeNotifier{got: make(chan notify.BatchSummary, 1)}
		srv := newTestServer(t, &fakeConverter{result: sampleResult(t)}, nil, nil, notifier)

		body, contentType := multipartBody(t,
			map[string]string{"vendor": "mobifone", "period": "T12.24"},
			map[string][]byte{"hoadon.pdf": []byte("x")},
		)
		req := httptest.NewRequest(http.MethodPost, "/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		select {
		case summary := <-notifier.got:
			assert.Equal(t, "Mobifone", summary.Vendor)
			assert.Equal(t, "T12.24", summary.Period)
			assert.Equal(t, 1, summary.InvoiceCount)
		case <-time.After(time.Second):
			t.Fatal("notification not sent")
		}
	})
}

func TestHandleDownload(t *testing.T) {
	srv := newTestServer(t, &fakeConverter{}, nil, nil, nil)

	batchID := uuid.New()
	info, err := srv.store.Save(context.Background(), batchID, "export.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		strings.NewReader("workbook-bytes"))
	require.NoError(t, err)

	t.Run("signed link streams the file", func(t *testing.T) {
		link, err := srv.downloadURL(batchID, info.ID)
		require.NoError(t, err)

		path := strings.TrimPrefix(link, srv.cfg.Server.BaseURL)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "export.xlsx")
		data, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "workbook-bytes", string(data))
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		path := "/download/" + batchID.String() + "/" + info.ID.String() +
			"?token=" + url.QueryEscape("bogus")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("token for another file is rejected", func(t *testing.T) {
		token, err := srv.signDownload(uuid.New(), uuid.New())
		require.NoError(t, err)

		path := "/download/" + batchID.String() + "/" + info.ID.String() +
			"?token=" + url.QueryEscape(token)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleArchive(t *testing.T) {
	batch := archive.Batch{
		ID:           uuid.New(),
		Vendor:       "mobifone",
		Period:       "T12.24",
		InvoiceCount: 3,
		RowCount:     9,
		TotalDong:    1500000,
		CreatedAt:    time.Date(2024, 12, 5, 10, 0, 0, 0, time.UTC),
	}
	reader := &fakeBatchReader{
		batch:   &batch,
		batches: []archive.Batch{batch},
		files: []archive.BatchFile{{
			Filename:  "hoadon.pdf",
			InvoiceNo: "5036143",
			Status:    archive.FileStatusParsed,
			TotalDong: 49000,
		}},
	}
	srv := newTestServer(t, &fakeConverter{}, reader, nil, nil)

	t.Run("list page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/archive", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "T12.24")
		assert.Contains(t, rec.Body.String(), "1.500.000")
	})

	t.Run("detail page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/archive/"+batch.ID.String(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "5036143")
	})

	t.Run("unknown batch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/archive/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleSearch(t *testing.T) {
	search := &fakeSearcher{hits: []archive.SearchResult{{
		Document: archive.SearchDocument{
			BatchID:   uuid.NewString(),
			Vendor:    "viettel",
			Period:    "T01.25",
			InvoiceNo: "0098765",
			Filename:  "viettel.pdf",
		},
	}}}
	srv := newTestServer(t, &fakeConverter{}, nil, search, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=0098765", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0098765")
	assert.Contains(t, rec.Body.String(), "Viettel")
}

func TestAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Auth.PasswordHash = string(hash)
	cfg.Auth.SessionKey = "session-signing-key"

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	srv := NewServer(cfg, &fakeConverter{}, nil, nil, store, nil, slog.Default())

	t.Run("redirects anonymous users to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		form := url.Values{"password": {"nope"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login grants a session cookie", func(t *testing.T) {
		form := url.Values{"password": {"s3cret"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec = httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeConverter{}, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
