package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const enquiryColumns = `id, guest_name, guest_email, guest_phone, guest_address, enquiry_details,
    desired_collection_date, desired_collection_time, status, converted_to_order, notes,
    created_by, last_modified_by, created_at, updated_at`

func scanEnquiry(row rowScanner) (Enquiry, error) {
	var i Enquiry
	err := row.Scan(
		&i.ID,
		&i.GuestName,
		&i.GuestEmail,
		&i.GuestPhone,
		&i.GuestAddress,
		&i.EnquiryDetails,
		&i.DesiredCollectionDate,
		&i.DesiredCollectionTime,
		&i.Status,
		&i.ConvertedToOrder,
		&i.Notes,
		&i.CreatedBy,
		&i.LastModifiedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createEnquiry = `-- name: CreateEnquiry :one
INSERT INTO enquiries (
    guest_name, guest_email, guest_phone, guest_address, enquiry_details,
    desired_collection_date, desired_collection_time, notes, created_by, last_modified_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $9
)
RETURNING ` + enquiryColumns

type CreateEnquiryParams struct {
	GuestName             string             `json:"guest_name"`
	GuestEmail            string             `json:"guest_email"`
	GuestPhone            string             `json:"guest_phone"`
	GuestAddress          string             `json:"guest_address"`
	EnquiryDetails        string             `json:"enquiry_details"`
	DesiredCollectionDate pgtype.Timestamptz `json:"desired_collection_date"`
	DesiredCollectionTime pgtype.Text        `json:"desired_collection_time"`
	Notes                 pgtype.Text        `json:"notes"`
	CreatedBy             uuid.UUID          `json:"created_by"`
}

func (q *Queries) CreateEnquiry(ctx context.Context, arg CreateEnquiryParams) (Enquiry, error) {
	row := q.db.QueryRow(ctx, createEnquiry,
		arg.GuestName,
		arg.GuestEmail,
		arg.GuestPhone,
		arg.GuestAddress,
		arg.EnquiryDetails,
		arg.DesiredCollectionDate,
		arg.DesiredCollectionTime,
		arg.Notes,
		arg.CreatedBy,
	)
	return scanEnquiry(row)
}

const deleteEnquiry = `-- name: DeleteEnquiry :execrows
DELETE FROM enquiries WHERE id = $1
`

func (q *Queries) DeleteEnquiry(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteEnquiry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getEnquiry = `-- name: GetEnquiry :one
SELECT ` + enquiryColumns + ` FROM enquiries
WHERE id = $1
`

func (q *Queries) GetEnquiry(ctx context.Context, id uuid.UUID) (Enquiry, error) {
	row := q.db.QueryRow(ctx, getEnquiry, id)
	return scanEnquiry(row)
}

const getEnquiryForUpdate = `-- name: GetEnquiryForUpdate :one
SELECT ` + enquiryColumns + ` FROM enquiries
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetEnquiryForUpdate(ctx context.Context, id uuid.UUID) (Enquiry, error) {
	row := q.db.QueryRow(ctx, getEnquiryForUpdate, id)
	return scanEnquiry(row)
}

const listEnquiries = `-- name: ListEnquiries :many
SELECT ` + enquiryColumns + ` FROM enquiries
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListEnquiriesParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListEnquiries(ctx context.Context, arg ListEnquiriesParams) ([]Enquiry, error) {
	rows, err := q.db.Query(ctx, listEnquiries, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Enquiry{}
	for rows.Next() {
		i, err := scanEnquiry(rows)
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

const markEnquiryConverted = `-- name: MarkEnquiryConverted :one
UPDATE enquiries
SET status = 'converted', converted_to_order = $2, last_modified_by = $3, updated_at = now()
WHERE id = $1
RETURNING ` + enquiryColumns

type MarkEnquiryConvertedParams struct {
	ID               uuid.UUID   `json:"id"`
	ConvertedToOrder pgtype.UUID `json:"converted_to_order"`
	LastModifiedBy   uuid.UUID   `json:"last_modified_by"`
}

func (q *Queries) MarkEnquiryConverted(ctx context.Context, arg MarkEnquiryConvertedParams) (Enquiry, error) {
	row := q.db.QueryRow(ctx, markEnquiryConverted, arg.ID, arg.ConvertedToOrder, arg.LastModifiedBy)
	return scanEnquiry(row)
}

const updateEnquiry = `-- name: UpdateEnquiry :one
UPDATE enquiries
SET guest_name = $2,
    guest_email = $3,
    guest_phone = $4,
    guest_address = $5,
    enquiry_details = $6,
    desired_collection_date = $7,
    desired_collection_time = $8,
    status = $9,
    notes = $10,
    last_modified_by = $11,
    updated_at = now()
WHERE id = $1
RETURNING ` + enquiryColumns

type UpdateEnquiryParams struct {
	ID                    uuid.UUID          `json:"id"`
	GuestName             string             `json:"guest_name"`
	GuestEmail            string             `json:"guest_email"`
	GuestPhone            string             `json:"guest_phone"`
	GuestAddress          string             `json:"guest_address"`
	EnquiryDetails        string             `json:"enquiry_details"`
	DesiredCollectionDate pgtype.Timestamptz `json:"desired_collection_date"`
	DesiredCollectionTime pgtype.Text        `json:"desired_collection_time"`
	Status                string             `json:"status"`
	Notes                 pgtype.Text        `json:"notes"`
	LastModifiedBy        uuid.UUID          `json:"last_modified_by"`
}

func (q *Queries) UpdateEnquiry(ctx context.Context, arg UpdateEnquiryParams) (Enquiry, error) {
	row := q.db.QueryRow(ctx, updateEnquiry,
		arg.ID,
		arg.GuestName,
		arg.GuestEmail,
		arg.GuestPhone,
		arg.GuestAddress,
		arg.EnquiryDetails,
		arg.DesiredCollectionDate,
		arg.DesiredCollectionTime,
		arg.Status,
		arg.Notes,
		arg.LastModifiedBy,
	)
	return scanEnquiry(row)
}
