package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Message is one entry of an RFP's discussion thread.
type Message struct {
	ID        string    `json:"id"`
	RFPID     int64     `json:"rfp_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AddMessage appends a message to the RFP's thread.
func (s *Store) AddMessage(ctx context.Context, rfpID int64, role, content string) (*Message, error) {
	if err := s.exists(ctx, rfpID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		RFPID:     rfpID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO rfp_messages (id, rfp_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), m.ID, m.RFPID, m.Role, m.Content, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store: insert message: %w", err)
	}
	return m, nil
}

// Messages returns the RFP's thread oldest first, never nil.
func (s *Store) Messages(ctx context.Context, rfpID int64) ([]Message, error) {
	if err := s.exists(ctx, rfpID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, rfp_id, role, content, created_at
		FROM rfp_messages WHERE rfp_id = ? ORDER BY seq
	`), rfpID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		var created string
		if err := rows.Scan(&m.ID, &m.RFPID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.CreatedAt = parseTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) exists(ctx context.Context, rfpID int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM rfps WHERE id = ?`), rfpID).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("store: lookup rfp: %w", err)
	}
	return nil
}
