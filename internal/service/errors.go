package service

import "errors"

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can map failures with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
)

// kindError carries a caller-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Errors returned by the order service.
var (
	ErrEmptyItems             = newError(ErrInvalidArgument, "items are required")
	ErrInvalidQuantity        = newError(ErrInvalidArgument, "quantity must be >= 1")
	ErrInvalidPrice           = newError(ErrInvalidArgument, "price must be a number >= 0")
	ErrItemNameRequired       = newError(ErrInvalidArgument, "name and serving_size are required")
	ErrInvalidMenuItemID      = newError(ErrInvalidArgument, "invalid menu_item_id")
	ErrInvalidItemID          = newError(ErrInvalidArgument, "invalid item id")
	ErrInvalidItemStatus      = newError(ErrInvalidArgument, "invalid item status")
	ErrGuestRequired          = newError(ErrInvalidArgument, "guest_id or guest_details.name is required")
	ErrInvalidGuestID         = newError(ErrInvalidArgument, "invalid guest_id")
	ErrCollectionDateRequired = newError(ErrInvalidArgument, "collection_date is required")
	ErrInvalidCollectionDate  = newError(ErrInvalidArgument, "invalid collection_date, use YYYY-MM-DD or RFC3339")
	ErrInvalidCollectionTime  = newError(ErrInvalidArgument, "invalid collection_time, use HH:MM")
	ErrInvalidPaymentMethod   = newError(ErrInvalidArgument, "invalid payment_method")
	ErrInvalidStatus          = newError(ErrInvalidArgument, "invalid status")
	ErrStatusRequiresDelete   = newError(ErrInvalidArgument, "use delete to mark an order as deleted")
	ErrInvalidAmount          = newError(ErrInvalidArgument, "amount must be > 0")
	ErrOrderNotFound          = newError(ErrNotFound, "order not found")
	ErrItemNotFound           = newError(ErrNotFound, "item not found")
	ErrOrderDeleted           = newError(ErrInvalidState, "order is deleted")
	ErrOrderNumberConflict    = newError(ErrConflict, "order number already taken")
)

// Errors returned by guest reconciliation and the guest service.
var (
	ErrGuestNotFound        = newError(ErrNotFound, "guest not found")
	ErrGuestDeleted         = newError(ErrInvalidState, "guest is deleted")
	ErrGuestHasOrders       = newError(ErrInvalidState, "guest has active orders")
	ErrGuestEmailExists     = newError(ErrConflict, "a guest with this email already exists")
	ErrGuestNameRequired    = newError(ErrInvalidArgument, "name is required")
	ErrGuestEmailRequired   = newError(ErrInvalidArgument, "email is required")
	ErrInvalidEmail         = newError(ErrInvalidArgument, "invalid email")
	ErrInvalidContactMethod = newError(ErrInvalidArgument, "invalid preferred_contact_method")
	ErrSearchTooShort       = newError(ErrInvalidArgument, "search query must be at least 2 characters")
)

// Errors returned by the enquiry service.
var (
	ErrEnquiryNotFound        = newError(ErrNotFound, "enquiry not found")
	ErrEnquiryConverted       = newError(ErrInvalidState, "enquiry already converted")
	ErrEnquiryDetailsRequired = newError(ErrInvalidArgument, "guest_name and enquiry_details are required")
	ErrEnquiryGuestIncomplete = newError(ErrInvalidArgument, "guest email, phone and address are required to convert")
	ErrInvalidEnquiryStatus   = newError(ErrInvalidArgument, "invalid enquiry status")
)

// Errors returned by the analytics aggregator.
var (
	ErrDateRangeRequired = newError(ErrInvalidArgument, "start_date and end_date are required")
	ErrInvalidDateRange  = newError(ErrInvalidArgument, "end_date must not be before start_date")
	ErrInvalidDate       = newError(ErrInvalidArgument, "invalid date format, use YYYY-MM-DD")
)
