package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const guestColumns = `id, name, email, phone, address, notes, dietary_requirements, preferred_contact_method,
    total_orders, total_spent, last_order_date, is_deleted, created_by, last_modified_by, created_at, updated_at`

func scanGuest(row rowScanner) (Guest, error) {
	var i Guest
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.Notes,
		&i.DietaryRequirements,
		&i.PreferredContactMethod,
		&i.TotalOrders,
		&i.TotalSpent,
		&i.LastOrderDate,
		&i.IsDeleted,
		&i.CreatedBy,
		&i.LastModifiedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryGuests(ctx context.Context, sql string, args ...interface{}) ([]Guest, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Guest{}
	for rows.Next() {
		i, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActiveGuests = `-- name: CountActiveGuests :one
SELECT COUNT(*) FROM guests WHERE NOT is_deleted
`

func (q *Queries) CountActiveGuests(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countActiveGuests)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countGuests = `-- name: CountGuests :one
SELECT COUNT(*) FROM guests
WHERE NOT is_deleted
  AND ($1::text IS NULL
       OR name ILIKE '%' || $1 || '%'
       OR email ILIKE '%' || $1 || '%'
       OR phone ILIKE '%' || $1 || '%')
`

func (q *Queries) CountGuests(ctx context.Context, search pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countGuests, search)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createGuest = `-- name: CreateGuest :one
INSERT INTO guests (
    name, email, phone, address, notes, dietary_requirements,
    preferred_contact_method, created_by, last_modified_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $8
)
RETURNING ` + guestColumns

type CreateGuestParams struct {
	Name                   string      `json:"name"`
	Email                  string      `json:"email"`
	Phone                  string      `json:"phone"`
	Address                string      `json:"address"`
	Notes                  pgtype.Text `json:"notes"`
	DietaryRequirements    pgtype.Text `json:"dietary_requirements"`
	PreferredContactMethod string      `json:"preferred_contact_method"`
	CreatedBy              uuid.UUID   `json:"created_by"`
}

func (q *Queries) CreateGuest(ctx context.Context, arg CreateGuestParams) (Guest, error) {
	row := q.db.QueryRow(ctx, createGuest,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.Notes,
		arg.DietaryRequirements,
		arg.PreferredContactMethod,
		arg.CreatedBy,
	)
	return scanGuest(row)
}

const getActiveGuestByEmail = `-- name: GetActiveGuestByEmail :one
SELECT ` + guestColumns + ` FROM guests
WHERE lower(email) = lower(trim($1)) AND NOT is_deleted
`

func (q *Queries) GetActiveGuestByEmail(ctx context.Context, email string) (Guest, error) {
	row := q.db.QueryRow(ctx, getActiveGuestByEmail, email)
	return scanGuest(row)
}

const getGuest = `-- name: GetGuest :one
SELECT ` + guestColumns + ` FROM guests
WHERE id = $1
`

func (q *Queries) GetGuest(ctx context.Context, id uuid.UUID) (Guest, error) {
	row := q.db.QueryRow(ctx, getGuest, id)
	return scanGuest(row)
}

const listActiveGuestIDs = `-- name: ListActiveGuestIDs :many
SELECT id FROM guests WHERE NOT is_deleted ORDER BY created_at ASC
`

func (q *Queries) ListActiveGuestIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listActiveGuestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listGuests = `-- name: ListGuests :many
SELECT ` + guestColumns + ` FROM guests
WHERE NOT is_deleted
  AND ($1::text IS NULL
       OR name ILIKE '%' || $1 || '%'
       OR email ILIKE '%' || $1 || '%'
       OR phone ILIKE '%' || $1 || '%')
ORDER BY name ASC
LIMIT $2 OFFSET $3
`

type ListGuestsParams struct {
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListGuests(ctx context.Context, arg ListGuestsParams) ([]Guest, error) {
	return q.queryGuests(ctx, listGuests, arg.Search, arg.Limit, arg.Offset)
}

const searchGuests = `-- name: SearchGuests :many
SELECT ` + guestColumns + ` FROM guests
WHERE NOT is_deleted
  AND (name ILIKE '%' || $1 || '%'
       OR email ILIKE '%' || $1 || '%'
       OR phone ILIKE '%' || $1 || '%')
ORDER BY name ASC
LIMIT $2
`

type SearchGuestsParams struct {
	Query string `json:"query"`
	Limit int32  `json:"limit"`
}

func (q *Queries) SearchGuests(ctx context.Context, arg SearchGuestsParams) ([]Guest, error) {
	return q.queryGuests(ctx, searchGuests, arg.Query, arg.Limit)
}

const softDeleteGuest = `-- name: SoftDeleteGuest :one
UPDATE guests
SET is_deleted = true, last_modified_by = $2, updated_at = now()
WHERE id = $1 AND NOT is_deleted
RETURNING ` + guestColumns

type SoftDeleteGuestParams struct {
	ID             uuid.UUID `json:"id"`
	LastModifiedBy uuid.UUID `json:"last_modified_by"`
}

func (q *Queries) SoftDeleteGuest(ctx context.Context, arg SoftDeleteGuestParams) (Guest, error) {
	row := q.db.QueryRow(ctx, softDeleteGuest, arg.ID, arg.LastModifiedBy)
	return scanGuest(row)
}

const updateGuest = `-- name: UpdateGuest :one
UPDATE guests
SET name = $2,
    email = $3,
    phone = $4,
    address = $5,
    notes = $6,
    dietary_requirements = $7,
    preferred_contact_method = $8,
    last_modified_by = $9,
    updated_at = now()
WHERE id = $1 AND NOT is_deleted
RETURNING ` + guestColumns

type UpdateGuestParams struct {
	ID                     uuid.UUID   `json:"id"`
	Name                   string      `json:"name"`
	Email                  string      `json:"email"`
	Phone                  string      `json:"phone"`
	Address                string      `json:"address"`
	Notes                  pgtype.Text `json:"notes"`
	DietaryRequirements    pgtype.Text `json:"dietary_requirements"`
	PreferredContactMethod string      `json:"preferred_contact_method"`
	LastModifiedBy         uuid.UUID   `json:"last_modified_by"`
}

func (q *Queries) UpdateGuest(ctx context.Context, arg UpdateGuestParams) (Guest, error) {
	row := q.db.QueryRow(ctx, updateGuest,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.Notes,
		arg.DietaryRequirements,
		arg.PreferredContactMethod,
		arg.LastModifiedBy,
	)
	return scanGuest(row)
}

const updateGuestStats = `-- name: UpdateGuestStats :exec
UPDATE guests
SET total_orders = $2, total_spent = $3, last_order_date = $4, updated_at = now()
WHERE id = $1
`

type UpdateGuestStatsParams struct {
	ID            uuid.UUID          `json:"id"`
	TotalOrders   int32              `json:"total_orders"`
	TotalSpent    pgtype.Numeric     `json:"total_spent"`
	LastOrderDate pgtype.Timestamptz `json:"last_order_date"`
}

func (q *Queries) UpdateGuestStats(ctx context.Context, arg UpdateGuestStatsParams) error {
	_, err := q.db.Exec(ctx, updateGuestStats,
		arg.ID,
		arg.TotalOrders,
		arg.TotalSpent,
		arg.LastOrderDate,
	)
	return err
}
