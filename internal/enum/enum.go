package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending            = "pending"
	OrderStatusConfirmed          = "confirmed"
	OrderStatusOnHold             = "on_hold"
	OrderStatusAwaitingCollection = "awaiting_collection"
	OrderStatusDelayed            = "delayed"
	OrderStatusCollected          = "collected"
	OrderStatusCancelled          = "cancelled"
	OrderStatusRefunded           = "refunded"
	OrderStatusDeleted            = "deleted"
)

// OrderStatuses lists every order status in display order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusOnHold,
	OrderStatusAwaitingCollection,
	OrderStatusDelayed,
	OrderStatusCollected,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusDeleted,
}

const (
	ItemStatusPending      = "pending"
	ItemStatusConfirmed    = "confirmed"
	ItemStatusNotCollected = "not_collected"
	ItemStatusCollected    = "collected"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPartial  = "partial"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

const (
	EnquiryStatusNew        = "new"
	EnquiryStatusInProgress = "in_progress"
	EnquiryStatusConverted  = "converted"
	EnquiryStatusClosed     = "closed"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin      = "admin"
	UserRoleOperations = "operations"
	UserRoleOrderTaker = "order-taker"
)

const (
	PaymentMethodCard         = "card"
	PaymentMethodCash         = "cash"
	PaymentMethodServme       = "servme"
	PaymentMethodSecurepay    = "securepay"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOther        = "other"
)

const (
	ContactMethodEmail = "email"
	ContactMethodPhone = "phone"
)

const (
	MenuCategoryRoasts       = "roasts"
	MenuCategorySmokedSalmon = "smoked_salmon"
	MenuCategoryPotatoes     = "potatoes"
	MenuCategoryVegetables   = "vegetables"
	MenuCategorySauces       = "sauces"
	MenuCategoryDesserts     = "desserts"
)

// ── Group B: Audit labels (no DB constraint) ──

const (
	EntityTypeOrder   = "order"
	EntityTypeGuest   = "guest"
	EntityTypeEnquiry = "enquiry"
)

const (
	ChangeTypeCreate       = "create"
	ChangeTypeUpdate       = "update"
	ChangeTypeDelete       = "delete"
	ChangeTypeStatusChange = "status_change"
	ChangeTypeItemUpdate   = "item_update"
	ChangeTypePaymentAdd   = "payment_add"
	ChangeTypeConvert      = "convert"
)

// IsOrderStatus reports whether s is a defined order status.
func IsOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func IsItemStatus(s string) bool {
	switch s {
	case ItemStatusPending, ItemStatusConfirmed, ItemStatusNotCollected, ItemStatusCollected:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodServme,
		PaymentMethodSecurepay, PaymentMethodBankTransfer, PaymentMethodOther:
		return true
	}
	return false
}

func IsEnquiryStatus(s string) bool {
	switch s {
	case EnquiryStatusNew, EnquiryStatusInProgress, EnquiryStatusConverted, EnquiryStatusClosed:
		return true
	}
	return false
}

func IsMenuCategory(s string) bool {
	switch s {
	case MenuCategoryRoasts, MenuCategorySmokedSalmon, MenuCategoryPotatoes,
		MenuCategoryVegetables, MenuCategorySauces, MenuCategoryDesserts:
		return true
	}
	return false
}

func IsUserRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleOperations, UserRoleOrderTaker:
		return true
	}
	return false
}
