package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ChangeLog struct {
	ID          uuid.UUID   `json:"id"`
	EntityType  string      `json:"entity_type"`
	EntityID    uuid.UUID   `json:"entity_id"`
	ChangeType  string      `json:"change_type"`
	ChangedBy   uuid.UUID   `json:"changed_by"`
	Changes     []byte      `json:"changes"`
	Description pgtype.Text `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Enquiry struct {
	ID                    uuid.UUID          `json:"id"`
	GuestName             string             `json:"guest_name"`
	GuestEmail            string             `json:"guest_email"`
	GuestPhone            string             `json:"guest_phone"`
	GuestAddress          string             `json:"guest_address"`
	EnquiryDetails        string             `json:"enquiry_details"`
	DesiredCollectionDate pgtype.Timestamptz `json:"desired_collection_date"`
	DesiredCollectionTime pgtype.Text        `json:"desired_collection_time"`
	Status                string             `json:"status"`
	ConvertedToOrder      pgtype.UUID        `json:"converted_to_order"`
	Notes                 pgtype.Text        `json:"notes"`
	CreatedBy             uuid.UUID          `json:"created_by"`
	LastModifiedBy        uuid.UUID          `json:"last_modified_by"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

type Guest struct {
	ID                     uuid.UUID          `json:"id"`
	Name                   string             `json:"name"`
	Email                  string             `json:"email"`
	Phone                  string             `json:"phone"`
	Address                string             `json:"address"`
	Notes                  pgtype.Text        `json:"notes"`
	DietaryRequirements    pgtype.Text        `json:"dietary_requirements"`
	PreferredContactMethod string             `json:"preferred_contact_method"`
	TotalOrders            int32              `json:"total_orders"`
	TotalSpent             pgtype.Numeric     `json:"total_spent"`
	LastOrderDate          pgtype.Timestamptz `json:"last_order_date"`
	IsDeleted              bool               `json:"is_deleted"`
	CreatedBy              uuid.UUID          `json:"created_by"`
	LastModifiedBy         uuid.UUID          `json:"last_modified_by"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

type MenuItem struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	Category    string      `json:"category"`
	Pricing     []byte      `json:"pricing"`
	Allergens   []string    `json:"allergens"`
	IsAvailable bool        `json:"is_available"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Order struct {
	ID               uuid.UUID      `json:"id"`
	OrderNumber      string         `json:"order_number"`
	GuestID          pgtype.UUID    `json:"guest_id"`
	GuestDetails     []byte         `json:"guest_details"`
	CollectionPerson []byte         `json:"collection_person"`
	Items            []byte         `json:"items"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	CollectionDate   time.Time      `json:"collection_date"`
	CollectionTime   string         `json:"collection_time"`
	Status           string         `json:"status"`
	StatusHistory    []byte         `json:"status_history"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentRecords   []byte         `json:"payment_records"`
	TotalPaid        pgtype.Numeric `json:"total_paid"`
	IsDeleted        bool           `json:"is_deleted"`
	CreatedBy        uuid.UUID      `json:"created_by"`
	LastModifiedBy   uuid.UUID      `json:"last_modified_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
