package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/google/uuid"
)

// ChangeLogStore appends change log rows.
// Satisfied by *database.Queries; narrow interface for testability.
type ChangeLogStore interface {
	CreateChangeLog(ctx context.Context, arg database.CreateChangeLogParams) (database.ChangeLog, error)
}

// AuditEntry describes one mutation to record.
type AuditEntry struct {
	EntityType  string
	EntityID    uuid.UUID
	ChangeType  string
	ChangedBy   uuid.UUID
	Changes     []FieldChange
	Description string
}

// AuditRecorder writes change logs after the originating mutation has
// committed. It runs on the pool, never on the mutation's transaction, and
// its failures are logged and dropped.
type AuditRecorder struct {
	store ChangeLogStore
}

// NewAuditRecorder creates a new AuditRecorder.
func NewAuditRecorder(store ChangeLogStore) *AuditRecorder {
	return &AuditRecorder{store: store}
}

// Record appends one change log entry. A nil recorder is a no-op.
func (a *AuditRecorder) Record(ctx context.Context, e AuditEntry) {
	if a == nil || a.store == nil {
		return
	}

	changes, err := json.Marshal(nonNil(e.Changes))
	if err != nil {
		log.Printf("ERROR: audit %s %s %s: encode changes: %v", e.EntityType, e.EntityID, e.ChangeType, err)
		return
	}

	if _, err := a.store.CreateChangeLog(ctx, database.CreateChangeLogParams{
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		ChangeType:  e.ChangeType,
		ChangedBy:   e.ChangedBy,
		Changes:     changes,
		Description: textToPg(e.Description),
	}); err != nil {
		log.Printf("ERROR: audit %s %s %s: %v", e.EntityType, e.EntityID, e.ChangeType, err)
	}
}
