// Package audit records who created or approved which document, with a
// snapshot of the document at that moment.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
)

// Action is the audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionApprove Action = "approve"
)

// Entry is a single audit record.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Action     Action          `db:"action" json:"action"`
	UserID     string          `db:"user_id" json:"userId"`
	RequestID  string          `db:"request_id" json:"requestId,omitempty"`
	Snapshot   json.RawMessage `db:"snapshot" json:"snapshot"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Recorder stores audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Reader returns the audit trail of one entity, newest entry first.
type Reader interface {
	History(ctx context.Context, entityID id.ID, limit int) ([]Entry, error)
}

// Identified is any document with an id.
type Identified interface {
	GetID() id.ID
}

// NewEntry builds an entry for the caller in ctx.
func NewEntry(ctx context.Context, entityType string, entityID id.ID, action Action, snapshot any) (Entry, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.ActorOrSystem(ctx),
		RequestID:  appctx.GetRequestID(ctx),
		Snapshot:   raw,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Hook returns a lifecycle hook that records action for every document it sees.
// Register it as an after-create or after-approve hook.
func Hook[T Identified](rec Recorder, entityType string, action Action) domain.Hook[T] {
	return func(ctx context.Context, doc T) error {
		entry, err := NewEntry(ctx, entityType, doc.GetID(), action, doc)
		if err != nil {
			return err
		}
		return rec.Record(ctx, entry)
	}
}
