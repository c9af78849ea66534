package repository

import (
	"context"

	"neo-auth/backend/internal/audit/domain"
)

// Repository defines persistence for the append-only audit trail. There is
// no update or delete operation; retention is an external concern.
type Repository interface {
	// Create appends one entry. The entry must have ID set.
	Create(ctx context.Context, e *domain.Entry) error
	// List returns entries matching the filter, newest first, with the page
	// and the total count produced by the same statement so the count stays
	// consistent with the page under concurrent writes.
	List(ctx context.Context, f domain.Filter, page, limit int) ([]*domain.Entry, int64, error)
}
