package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RFP status values.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// RFP is a staged request-for-proposal file and its processing state.
type RFP struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Filename       string          `json:"filename"`
	FileURL        string          `json:"file_url"`
	ContentType    string          `json:"content_type"`
	Status         string          `json:"status"`
	DocxURL        *string         `json:"docx_url"`
	PDFURL         *string         `json:"pdf_url"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

const rfpColumns = `id, company_id, filename, file_url, content_type, status, docx_url, pdf_url, structured_data, created_at, updated_at`

// CreateRFP inserts r and returns the stored record. An empty status
// defaults to StatusUploaded.
func (s *Store) CreateRFP(ctx context.Context, r RFP) (*RFP, error) {
	if r.Filename == "" {
		return nil, fmt.Errorf("store: filename is required")
	}
	if r.Status == "" {
		r.Status = StatusUploaded
	}
	now := s.timestamp()

	row := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO rfps (company_id, filename, file_url, content_type, status, docx_url, pdf_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), r.CompanyID, r.Filename, r.FileURL, r.ContentType, r.Status, r.DocxURL, r.PDFURL, now, now)

	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("store: insert rfp: %w", err)
	}
	return s.GetRFP(ctx, id)
}

func (s *Store) GetRFP(ctx context.Context, id int64) (*RFP, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+rfpColumns+` FROM rfps WHERE id = ?`), id)
	return scanRFP(row)
}

// FindRFPByFilename returns the oldest RFP with the given filename.
func (s *Store) FindRFPByFilename(ctx context.Context, filename string) (*RFP, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+rfpColumns+` FROM rfps WHERE filename = ? ORDER BY id LIMIT 1
	`), filename)
	return scanRFP(row)
}

func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	return s.update(ctx, `UPDATE rfps SET status = ?, updated_at = ? WHERE id = ?`, status, s.timestamp(), id)
}

// SaveStructure stores the extracted structure and marks the RFP processed.
func (s *Store) SaveStructure(ctx context.Context, id int64, data []byte) error {
	return s.update(ctx, `UPDATE rfps SET structured_data = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(data), StatusProcessed, s.timestamp(), id)
}

// SetOutputURLs records where the rendered proposal documents live.
func (s *Store) SetOutputURLs(ctx context.Context, id int64, docxURL, pdfURL *string) error {
	return s.update(ctx, `UPDATE rfps SET docx_url = ?, pdf_url = ?, updated_at = ? WHERE id = ?`,
		docxURL, pdfURL, s.timestamp(), id)
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("store: update rfp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRFP(row *sql.Row) (*RFP, error) {
	var (
		r                RFP
		docxURL, pdfURL  sql.NullString
		structured       sql.NullString
		created, updated string
	)
	err := row.Scan(&r.ID, &r.CompanyID, &r.Filename, &r.FileURL, &r.ContentType, &r.Status,
		&docxURL, &pdfURL, &structured, &created, &updated)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan rfp: %w", err)
	}
	if docxURL.Valid {
		r.DocxURL = &docxURL.String
	}
	if pdfURL.Valid {
		r.PDFURL = &pdfURL.String
	}
	if structured.Valid && structured.String != "" {
		r.StructuredData = json.RawMessage(structured.String)
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}
