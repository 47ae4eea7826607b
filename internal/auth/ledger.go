package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/fitness-api/internal/logging"
)

// RevocationCache is a best-effort fast path in front of the ledger table
type RevocationCache interface {
	MarkRevoked(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	Purge(ctx context.Context, userID uuid.UUID) error
}

// Ledger is the source of truth for revoked tokens. A token listed here is
// rejected by the gate even when its signature and expiry are valid.
type Ledger struct {
	repo   InvalidTokenStore
	cache  RevocationCache
	logger *logging.Logger
	now    func() time.Time
}

// NewLedger builds a ledger. cache may be nil.
func NewLedger(repo InvalidTokenStore, cache RevocationCache, logger *logging.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Revoke lists the token for the user. expiresAt bounds how long the cache
// keeps the entry; the table row is permanent until purged.
func (l *Ledger) Revoke(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	if err := l.repo.Create(ctx, userID, token); err != nil {
		return err
	}

	if l.cache != nil {
		if err := l.cache.MarkRevoked(ctx, userID, token, expiresAt.Sub(l.now())); err != nil {
			l.logger.Warn("revocation cache write failed", "user_id", userID, "error", err)
		}
	}

	return nil
}

// IsRevoked checks the cache first and falls back to the table. A table
// hit is written back to the cache until expiresAt.
func (l *Ledger) IsRevoked(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (bool, error) {
	if l.cache != nil {
		revoked, err := l.cache.IsRevoked(ctx, userID, token)
		if err != nil {
			l.logger.Warn("revocation cache read failed", "user_id", userID, "error", err)
		} else if revoked {
			return true, nil
		}
	}

	revoked, err := l.repo.Exists(ctx, userID, token)
	if err != nil {
		return false, err
	}

	if revoked && l.cache != nil {
		if err := l.cache.MarkRevoked(ctx, userID, token, expiresAt.Sub(l.now())); err != nil {
			l.logger.Warn("revocation cache backfill failed", "user_id", userID, "error", err)
		}
	}

	return revoked, nil
}

// PurgeCache drops cached entries of the user. Table rows are deleted by the
// account removal transaction.
func (l *Ledger) PurgeCache(ctx context.Context, userID uuid.UUID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Purge(ctx, userID); err != nil {
		l.logger.Warn("revocation cache purge failed", "user_id", userID, "error", err)
	}
}
