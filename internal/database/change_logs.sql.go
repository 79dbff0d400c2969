package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createChangeLog = `-- name: CreateChangeLog :one
INSERT INTO change_logs (entity_type, entity_id, change_type, changed_by, changes, description)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, entity_type, entity_id, change_type, changed_by, changes, description, created_at
`

type CreateChangeLogParams struct {
	EntityType  string      `json:"entity_type"`
	EntityID    uuid.UUID   `json:"entity_id"`
	ChangeType  string      `json:"change_type"`
	ChangedBy   uuid.UUID   `json:"changed_by"`
	Changes     []byte      `json:"changes"`
	Description pgtype.Text `json:"description"`
}

func (q *Queries) CreateChangeLog(ctx context.Context, arg CreateChangeLogParams) (ChangeLog, error) {
	row := q.db.QueryRow(ctx, createChangeLog,
		arg.EntityType,
		arg.EntityID,
		arg.ChangeType,
		arg.ChangedBy,
		arg.Changes,
		arg.Description,
	)
	var i ChangeLog
	err := row.Scan(
		&i.ID,
		&i.EntityType,
		&i.EntityID,
		&i.ChangeType,
		&i.ChangedBy,
		&i.Changes,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const listChangeLogsByEntity = `-- name: ListChangeLogsByEntity :many
SELECT id, entity_type, entity_id, change_type, changed_by, changes, description, created_at
FROM change_logs
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at DESC
`

type ListChangeLogsByEntityParams struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
}

func (q *Queries) ListChangeLogsByEntity(ctx context.Context, arg ListChangeLogsByEntityParams) ([]ChangeLog, error) {
	rows, err := q.db.Query(ctx, listChangeLogsByEntity, arg.EntityType, arg.EntityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ChangeLog{}
	for rows.Next() {
		var i ChangeLog
		if err := rows.Scan(
			&i.ID,
			&i.EntityType,
			&i.EntityID,
			&i.ChangeType,
			&i.ChangedBy,
			&i.Changes,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
