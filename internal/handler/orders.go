package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxCreateAttempts bounds how often Create retries after losing an order
// number race to a concurrent insert.
const maxCreateAttempts = 3

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*service.Order, error)
	ListOrders(ctx context.Context, f service.OrderFilter) ([]*service.Order, int64, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*service.Order, error)
	ChangeStatus(ctx context.Context, req service.ChangeStatusRequest) (*service.Order, error)
	UpdateItem(ctx context.Context, req service.UpdateItemRequest) (*service.Order, error)
	DeleteOrder(ctx context.Context, req service.DeleteOrderRequest) (*service.Order, error)
	ListChangeLogs(ctx context.Context, orderID uuid.UUID) ([]service.ChangeLog, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	loc *time.Location
}

// NewOrderHandler creates a new OrderHandler. loc is the business timezone
// used to interpret date filters.
func NewOrderHandler(svc OrderServicer, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, loc: loc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/items/{itemId}", h.UpdateItem)
	r.Get("/{id}/changelogs", h.ChangeLogs)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type guestDetailsRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type collectionPersonRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type orderItemRequest struct {
	ID          string `json:"id"`
	MenuItemID  string `json:"menu_item_id"`
	Name        string `json:"name"`
	ServingSize string `json:"serving_size"`
	Quantity    int32  `json:"quantity"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

type createOrderRequest struct {
	GuestID          string                   `json:"guest_id"`
	GuestDetails     guestDetailsRequest      `json:"guest_details"`
	CollectionPerson *collectionPersonRequest `json:"collection_person"`
	Items            []orderItemRequest       `json:"items"`
	CollectionDate   string                   `json:"collection_date"`
	CollectionTime   string                   `json:"collection_time"`
	PaymentMethod    string                   `json:"payment_method"`
	Note             string                   `json:"note"`
}

type updateOrderRequest struct {
	GuestID          *string                  `json:"guest_id"`
	GuestDetails     *guestDetailsRequest     `json:"guest_details"`
	CollectionPerson *collectionPersonRequest `json:"collection_person"`
	Items            []orderItemRequest       `json:"items"`
	CollectionDate   *string                  `json:"collection_date"`
	CollectionTime   *string                  `json:"collection_time"`
	PaymentMethod    *string                  `json:"payment_method"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type updateItemRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

type deleteOrderRequest struct {
	Note string `json:"note"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	ServingSize string    `json:"serving_size"`
	Quantity    int32     `json:"quantity"`
	Price       string    `json:"price"`
	TotalPrice  string    `json:"total_price"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

type statusEntryResponse struct {
	Status    string    `json:"status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	GuestID          *uuid.UUID              `json:"guest_id"`
	GuestDetails     guestDetailsRequest     `json:"guest_details"`
	CollectionPerson collectionPersonRequest `json:"collection_person"`
	Items            []orderItemResponse     `json:"items"`
	TotalAmount      string                  `json:"total_amount"`
	CollectionDate   time.Time               `json:"collection_date"`
	CollectionTime   string                  `json:"collection_time"`
	Status           string                  `json:"status"`
	StatusHistory    []statusEntryResponse   `json:"status_history"`
	PaymentMethod    string                  `json:"payment_method"`
	PaymentStatus    string                  `json:"payment_status"`
	Payments         []paymentResponse       `json:"payments"`
	TotalPaid        string                  `json:"total_paid"`
	IsDeleted        bool                    `json:"is_deleted"`
	CreatedBy        uuid.UUID               `json:"created_by"`
	LastModifiedBy   uuid.UUID               `json:"last_modified_by"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type changeLogResponse struct {
	ID          uuid.UUID             `json:"id"`
	ChangeType  string                `json:"change_type"`
	ChangedBy   uuid.UUID             `json:"changed_by"`
	Changes     []service.FieldChange `json:"changes"`
	Description string                `json:"description,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /orders. A lost order number race is retried a
// bounded number of times before the conflict is reported.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.CreateOrderRequest{
		CreatedBy:      claims.UserID,
		GuestID:        req.GuestID,
		GuestDetails:   service.GuestDetails(req.GuestDetails),
		Items:          toItemInputs(req.Items),
		CollectionDate: req.CollectionDate,
		CollectionTime: req.CollectionTime,
		PaymentMethod:  req.PaymentMethod,
		Note:           req.Note,
	}
	if req.CollectionPerson != nil {
		cp := service.CollectionPerson(*req.CollectionPerson)
		svcReq.CollectionPerson = &cp
	}

	var (
		order *service.Order
		err   error
	)
	for attempt := 1; ; attempt++ {
		order, err = h.svc.CreateOrder(r.Context(), svcReq)
		if !errors.Is(err, service.ErrOrderNumberConflict) || attempt == maxCreateAttempts {
			break
		}
		log.Printf("WARN: order number conflict on attempt %d, retrying", attempt)
	}
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	q := r.URL.Query()

	f := service.OrderFilter{
		Status:         q.Get("status"),
		IncludeDeleted: q.Get("include_deleted") == "true",
		Limit:          int32(limit),
		Offset:         int32(offset),
	}
	if s := q.Get("guest_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest_id"})
			return
		}
		f.GuestID = &id
	}
	if s := q.Get("collection_from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid collection_from format, use YYYY-MM-DD"})
			return
		}
		f.CollectionFrom = &t
	}
	if s := q.Get("collection_to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid collection_to format, use YYYY-MM-DD"})
			return
		}
		f.CollectionTo = &t
	}

	orders, total, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Update handles PUT /orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.UpdateOrderRequest{
		OrderID:        orderID,
		UpdatedBy:      claims.UserID,
		GuestID:        req.GuestID,
		CollectionDate: req.CollectionDate,
		CollectionTime: req.CollectionTime,
		PaymentMethod:  req.PaymentMethod,
	}
	if req.GuestDetails != nil {
		gd := service.GuestDetails(*req.GuestDetails)
		svcReq.GuestDetails = &gd
	}
	if req.CollectionPerson != nil {
		cp := service.CollectionPerson(*req.CollectionPerson)
		svcReq.CollectionPerson = &cp
	}
	if req.Items != nil {
		svcReq.Items = toItemInputs(req.Items)
	}

	order, err := h.svc.UpdateOrder(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.ChangeStatus(r.Context(), service.ChangeStatusRequest{
		OrderID:   orderID,
		ChangedBy: claims.UserID,
		Status:    req.Status,
		Note:      req.Note,
	})
	if err != nil {
		writeServiceError(w, "change order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateItem handles PATCH /orders/{id}/items/{itemId}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == nil && req.Notes == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status or notes is required"})
		return
	}

	order, err := h.svc.UpdateItem(r.Context(), service.UpdateItemRequest{
		OrderID:   orderID,
		ItemID:    itemID,
		UpdatedBy: claims.UserID,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Delete handles DELETE /orders/{id}. The order is soft deleted; an
// optional JSON body may carry a note.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req deleteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.DeleteOrder(r.Context(), service.DeleteOrderRequest{
		OrderID:   orderID,
		DeletedBy: claims.UserID,
		Note:      req.Note,
	})
	if err != nil {
		writeServiceError(w, "delete order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ChangeLogs handles GET /orders/{id}/changelogs.
func (h *OrderHandler) ChangeLogs(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	logs, err := h.svc.ListChangeLogs(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list order changelogs", err)
		return
	}

	resp := make([]changeLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = changeLogResponse{
			ID:          l.ID,
			ChangeType:  l.ChangeType,
			ChangedBy:   l.ChangedBy,
			Changes:     l.Changes,
			Description: l.Description,
			CreatedAt:   l.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"changelogs": resp})
}

// --- Helpers ---

func toItemInputs(items []orderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = service.OrderItemInput{
			ID:          it.ID,
			MenuItemID:  it.MenuItemID,
			Name:        it.Name,
			ServingSize: it.ServingSize,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Status:      it.Status,
			Notes:       it.Notes,
		}
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toOrderResponse(o *service.Order) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		GuestID:          o.GuestID,
		GuestDetails:     guestDetailsRequest(o.GuestDetails),
		CollectionPerson: collectionPersonRequest(o.CollectionPerson),
		TotalAmount:      money(o.TotalAmount),
		CollectionDate:   o.CollectionDate,
		CollectionTime:   o.CollectionTime,
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		TotalPaid:        money(o.TotalPaid),
		IsDeleted:        o.IsDeleted,
		CreatedBy:        o.CreatedBy,
		LastModifiedBy:   o.LastModifiedBy,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}

	resp.Items = make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		resp.Items[i] = orderItemResponse{
			ID:          it.ID,
			MenuItemID:  it.MenuItemID,
			Name:        it.Name,
			ServingSize: it.ServingSize,
			Quantity:    it.Quantity,
			Price:       money(it.Price),
			TotalPrice:  money(it.TotalPrice),
			Status:      it.Status,
			Notes:       it.Notes,
		}
	}

	resp.StatusHistory = make([]statusEntryResponse, len(o.StatusHistory))
	for i, e := range o.StatusHistory {
		resp.StatusHistory[i] = statusEntryResponse(e)
	}

	resp.Payments = toPaymentResponses(o.PaymentRecords)
	return resp
}
