package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"sigfarma/internal/core/apperror"
)

const (
	keyPending = "pending"
	keyDone    = "success"

	defaultIdempotencyTTL = 24 * time.Hour
	// A pending key untouched for this long belongs to a request that died mid-flight.
	defaultPendingTimeout = time.Minute
)

// idempotencyKey is a row of sys_idempotency.
type idempotencyKey struct {
	Key         string    `db:"idempotency_key"`
	UserID      string    `db:"user_id"`
	Operation   string    `db:"operation"`
	Status      string    `db:"status"`
	RequestHash string    `db:"request_hash"`
	Response    []byte    `db:"response"`
	StatusCode  int       `db:"response_status"`
	ContentType string    `db:"response_content_type"`
	UpdatedAt   time.Time `db:"updated_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

func (k *idempotencyKey) matches(userID, operation, requestHash string) bool {
	return k.UserID == userID && k.Operation == operation && k.RequestHash == requestHash
}

// IdempotencyReplay is a stored response served again for a repeated request.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore keeps Idempotency-Key state for document-creating requests.
//
// Only successful responses are stored. A failed request rolled back its
// transaction, so its key is released and the client may retry with it.
type IdempotencyStore struct {
	txManager      *TxManager
	ttl            time.Duration
	pendingTimeout time.Duration
	now            func() time.Time
}

// NewIdempotencyStore creates the store; ttl <= 0 keeps keys for a day.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{
		txManager:      txManager,
		ttl:            ttl,
		pendingTimeout: defaultPendingTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithPendingTimeout sets how long an unfinished key blocks repeats before it is taken over.
func (s *IdempotencyStore) WithPendingTimeout(d time.Duration) *IdempotencyStore {
	if d > 0 {
		s.pendingTimeout = d
	}
	return s
}

func (s *IdempotencyStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// AcquireKey claims key for one request.
//
// It returns (nil, nil) when the caller now owns the key, a replay when the same
// request already succeeded, IDEMPOTENCY_CONFLICT when the key is in flight or
// was used for a different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()
	q := s.txManager.GetQuerier(ctx)

	sql, args, err := s.builder().
		Insert("sys_idempotency").
		Columns("idempotency_key", "user_id", "operation", "status", "request_hash",
			"created_at", "updated_at", "expires_at").
		Values(key, userID, operation, keyPending, requestHash, now, now, now.Add(s.ttl)).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency insert: %w", err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("insert idempotency key: %w", err))
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	existing, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Removed between insert and read by a failing request or cleanup.
		return nil, apperror.NewIdempotencyConflict(key)
	}

	if existing.ExpiresAt.Before(now) {
		return nil, s.takeOver(ctx, existing, userID, operation, requestHash)
	}
	if !existing.matches(userID, operation, requestHash) {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("operation", existing.Operation)
	}
	if existing.Status == keyDone {
		return existing.replay(), nil
	}
	if now.Sub(existing.UpdatedAt) > s.pendingTimeout {
		return nil, s.takeOver(ctx, existing, userID, operation, requestHash)
	}
	return nil, apperror.NewIdempotencyConflict(key)
}

func (s *IdempotencyStore) load(ctx context.Context, key string) (*idempotencyKey, error) {
	sql, args, err := s.builder().
		Select("idempotency_key", "user_id", "operation", "status", "request_hash",
			"COALESCE(response, ''::bytea) AS response", "response_status",
			"response_content_type", "updated_at", "expires_at").
		From("sys_idempotency").
		Where(squirrel.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency select: %w", err)
	}

	var rows []idempotencyKey
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, classify(fmt.Errorf("load idempotency key: %w", err))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// takeOver resets an abandoned or expired key to pending for the new request.
// The update is conditional on the row not having moved since it was read.
func (s *IdempotencyStore) takeOver(ctx context.Context, prev *idempotencyKey, userID, operation, requestHash string) error {
	now := s.now()
	sql, args, err := s.builder().
		Update("sys_idempotency").
		SetMap(map[string]any{
			"user_id":               userID,
			"operation":             operation,
			"status":                keyPending,
			"request_hash":          requestHash,
			"response":              nil,
			"response_status":       0,
			"response_content_type": "",
			"updated_at":            now,
			"expires_at":            now.Add(s.ttl),
		}).
		Where(squirrel.Eq{"idempotency_key": prev.Key, "updated_at": prev.UpdatedAt}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency takeover: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return classify(fmt.Errorf("take over idempotency key: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewIdempotencyConflict(prev.Key)
	}
	return nil
}

// CompleteKey stores the response of a successful request for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		var err error
		if body, err = json.Marshal(response); err != nil {
			return fmt.Errorf("marshal idempotent response: %w", err)
		}
	}

	sql, args, err := s.builder().
		Update("sys_idempotency").
		SetMap(map[string]any{
			"status":                keyDone,
			"response":              body,
			"response_status":       statusCode,
			"response_content_type": contentType,
			"updated_at":            s.now(),
		}).
		Where(squirrel.Eq{"idempotency_key": key, "status": keyPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency complete: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return classify(fmt.Errorf("complete idempotency key: %w", err))
	}
	return nil
}

// FailKey releases a pending key after a failed request. The status and body
// are accepted for interface symmetry and not stored.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, _ int, _ string, _ any) error {
	sql, args, err := s.builder().
		Delete("sys_idempotency").
		Where(squirrel.Eq{"idempotency_key": key, "status": keyPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency release: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return classify(fmt.Errorf("release idempotency key: %w", err))
	}
	return nil
}

// CleanupExpired deletes keys past their expiry and reports how many were removed.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := s.builder().
		Delete("sys_idempotency").
		Where(squirrel.Lt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build idempotency cleanup: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, classify(fmt.Errorf("cleanup idempotency keys: %w", err))
	}
	return tag.RowsAffected(), nil
}

func (k *idempotencyKey) replay() *IdempotencyReplay {
	r := &IdempotencyReplay{
		StatusCode:  k.StatusCode,
		ContentType: k.ContentType,
		Body:        k.Response,
	}
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return r
}
