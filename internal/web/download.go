package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// downloadClaims scope a signed link to one stored file.
type downloadClaims struct {
	BatchID string `json:"batch_id"`
	FileID  string `json:"file_id"`
	jwt.RegisteredClaims
}

// signDownload issues a short-lived token for one export file.
func (s *Server) signDownload(batchID, fileID uuid.UUID) (string, error) {
	ttl := s.cfg.Auth.DownloadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	claims := downloadClaims{
		BatchID: batchID.String(),
		FileID:  fileID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.downloadSecret)
}

// verifyDownload checks the token and that it matches the requested file.
func (s *Server) verifyDownload(token string, batchID, fileID uuid.UUID) error {
	claims := &downloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.downloadSecret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid download token")
	}
	if claims.BatchID != batchID.String() || claims.FileID != fileID.String() {
		return errors.New("download token does not match file")
	}
	return nil
}

// downloadURL builds the absolute signed link used on the result page
// and in notification emails.
func (s *Server) downloadURL(batchID, fileID uuid.UUID) (string, error) {
	token, err := s.signDownload(batchID, fileID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/download/%s/%s?token=%s",
		s.cfg.Server.BaseURL, batchID, fileID, url.QueryEscape(token)), nil
}

// handleDownload streams a stored export. The signed token authorizes
// the request, so emailed links work without a session.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}

	if err := s.verifyDownload(r.URL.Query().Get("token"), batchID, fileID); err != nil {
		// A session still gets the file after the emailed link expires.
		if !s.authenticated(r) {
			http.Error(w, "download link expired or invalid", http.StatusForbidden)
			return
		}
	}

	rc, info, err := s.store.Open(r.Context(), batchID, fileID)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("download interrupted", "file_id", fileID.String(), "error", err)
	}
}
