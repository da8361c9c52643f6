package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it too, which keeps repository tests off a live database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Repository stores batches and their files in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a batch repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// SaveBatch inserts a batch and its per-file records.
func (r *Repository) SaveBatch(ctx context.Context, batch *Batch, files []BatchFile) error {
	query := `
		INSERT INTO batches (
			id, vendor, period, document_date, export_file_id,
			invoice_count, failed_count, row_count, total_dong
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		batch.ID, batch.Vendor, batch.Period, batch.DocumentDate,
		batch.ExportFileID, batch.InvoiceCount, batch.FailedCount,
		batch.RowCount, batch.TotalDong,
	).Scan(&batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	fileQuery := `
		INSERT INTO batch_files (
			id, batch_id, filename, invoice_no, serial_no,
			invoice_date, total_dong, status, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, f := range files {
		if _, err := r.db.Exec(ctx, fileQuery,
			f.ID, batch.ID, f.Filename, f.InvoiceNo, f.SerialNo,
			f.InvoiceDate, f.TotalDong, f.Status, f.Error,
		); err != nil {
			return fmt.Errorf("insert batch file %s: %w", f.Filename, err)
		}
	}
	return nil
}

// GetBatch loads one batch by id.
func (r *Repository) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	query := `
		SELECT id, vendor, period, document_date, export_file_id,
			invoice_count, failed_count, row_count, total_dong, created_at
		FROM batches
		WHERE id = $1
	`
	var b Batch
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Vendor, &b.Period, &b.DocumentDate, &b.ExportFileID,
		&b.InvoiceCount, &b.FailedCount, &b.RowCount, &b.TotalDong, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	return &b, nil
}

// GetBatchFiles loads the file records of a batch.
func (r *Repository) GetBatchFiles(ctx context.Context, batchID uuid.UUID) ([]BatchFile, error) {
	query := `
		SELECT id, batch_id, filename, invoice_no, serial_no,
			invoice_date, total_dong, status, error
		FROM batch_files
		WHERE batch_id = $1
		ORDER BY filename
	`
	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch files: %w", err)
	}
	defer rows.Close()

	var files []BatchFile
	for rows.Next() {
		var f BatchFile
		if err := rows.Scan(
			&f.ID, &f.BatchID, &f.Filename, &f.InvoiceNo, &f.SerialNo,
			&f.InvoiceDate, &f.TotalDong, &f.Status, &f.Error,
		); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListBatches returns recent batches, newest first.
func (r *Repository) ListBatches(ctx context.Context, limit, offset int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, vendor, period, document_date, export_file_id,
			invoice_count, failed_count, row_count, total_dong, created_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(
			&b.ID, &b.Vendor, &b.Period, &b.DocumentDate, &b.ExportFileID,
			&b.InvoiceCount, &b.FailedCount, &b.RowCount, &b.TotalDong, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// DeleteOlderThan removes batches created before the cutoff and returns
// the removed batch ids so the caller can clean storage and the index.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		DELETE FROM batches
		WHERE created_at < $1
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete old batches: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
