package repository

import (
	"context"
	"log"

	"neo-auth/backend/internal/token/domain"
)

// LoggingStore decorates a Store with operational logging of write outcomes.
// The implementation is chosen at construction time; callers only ever see
// the Store interface.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore wraps inner with write logging.
func NewLoggingStore(inner Store) *LoggingStore {
	return &LoggingStore{inner: inner}
}

func (s *LoggingStore) Upsert(ctx context.Context, p UpsertParams) error {
	err := s.inner.Upsert(ctx, p)
	if err != nil {
		log.Printf("token store: upsert %s/%s failed: %v", p.Username, p.DeviceID, err)
	} else {
		log.Printf("token store: upsert %s/%s family=%s attempts=%d", p.Username, p.DeviceID, p.FamilyID, p.Attempts)
	}
	return err
}

func (s *LoggingStore) MarkUsed(ctx context.Context, p MarkUsedParams) (int64, error) {
	n, err := s.inner.MarkUsed(ctx, p)
	if err != nil {
		log.Printf("token store: mark used %s/%s failed: %v", p.Username, p.DeviceID, err)
	} else if n == 0 {
		log.Printf("token store: mark used %s/%s matched nothing (lost rotation race or stale snapshot)", p.Username, p.DeviceID)
	}
	return n, err
}

func (s *LoggingStore) Revoke(ctx context.Context, username, deviceID, token string) (int64, error) {
	n, err := s.inner.Revoke(ctx, username, deviceID, token)
	if err != nil {
		log.Printf("token store: revoke %s/%s failed: %v", username, deviceID, err)
	}
	return n, err
}

func (s *LoggingStore) RevokeAllForUser(ctx context.Context, username string) (int64, error) {
	n, err := s.inner.RevokeAllForUser(ctx, username)
	if err != nil {
		log.Printf("token store: revoke all for %s failed: %v", username, err)
	} else if n > 0 {
		log.Printf("token store: revoked %d records for %s", n, username)
	}
	return n, err
}

func (s *LoggingStore) RevokeByDevice(ctx context.Context, deviceID string) (int64, error) {
	n, err := s.inner.RevokeByDevice(ctx, deviceID)
	if err != nil {
		log.Printf("token store: revoke by device %s failed: %v", deviceID, err)
	}
	return n, err
}

func (s *LoggingStore) RevokeByFamily(ctx context.Context, familyID string) (int64, error) {
	n, err := s.inner.RevokeByFamily(ctx, familyID)
	if err != nil {
		log.Printf("token store: revoke family %s failed: %v", familyID, err)
	}
	return n, err
}

func (s *LoggingStore) FindByToken(ctx context.Context, token string) (*domain.Record, error) {
	return s.inner.FindByToken(ctx, token)
}

func (s *LoggingStore) FindActive(ctx context.Context, username, deviceID string) (*domain.Record, error) {
	return s.inner.FindActive(ctx, username, deviceID)
}

func (s *LoggingStore) InUseByUser(ctx context.Context, username string) (*domain.Record, error) {
	return s.inner.InUseByUser(ctx, username)
}
