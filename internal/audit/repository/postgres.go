package repository

import (
	"context"
	"database/sql"
	"fmt"

	"neo-auth/backend/internal/audit/domain"
)

// PostgresRepository implements Repository against the session_audit table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends one entry.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_audit (id, session_id, user_id, event_type, old_value, new_value, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.SessionID, e.UserID, e.EventType, e.OldValue, e.NewValue,
		e.IPAddress, e.UserAgent, e.Timestamp)
	return err
}

// List pages through matching entries newest-first. COUNT(*) OVER() rides on
// the same statement as the page, the relational stand-in for a
// facet-with-count aggregation: one snapshot, one consistent total.
func (r *PostgresRepository) List(ctx context.Context, f domain.Filter, page, limit int) ([]*domain.Entry, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	where := "TRUE"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserID != "" {
		where += " AND user_id = " + arg(f.UserID)
	}
	if f.EventType != "" {
		where += " AND event_type = " + arg(f.EventType)
	}
	if !f.Start.IsZero() {
		where += " AND created_at >= " + arg(f.Start)
	}
	if !f.End.IsZero() {
		where += " AND created_at <= " + arg(f.End)
	}

	query := `
		SELECT id, session_id, user_id, event_type, old_value, new_value, ip_address, user_agent, created_at,
		       COUNT(*) OVER() AS total
		FROM session_audit
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Entry
	var total int64
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.EventType, &e.OldValue,
			&e.NewValue, &e.IPAddress, &e.UserAgent, &e.Timestamp, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
