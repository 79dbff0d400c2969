package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.OrderService.
type PaymentServicer interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*service.Order, error)
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.Order, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type addPaymentRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
	Note   string `json:"note"`
}

type paymentResponse struct {
	ID         uuid.UUID `json:"id"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	ReceivedBy uuid.UUID `json:"received_by"`
	ReceivedAt time.Time `json:"received_at"`
	Note       string    `json:"note,omitempty"`
}

// paymentSummaryResponse is the settlement view of an order.
type paymentSummaryResponse struct {
	OrderID       uuid.UUID         `json:"order_id"`
	PaymentStatus string            `json:"payment_status"`
	TotalAmount   string            `json:"total_amount"`
	TotalPaid     string            `json:"total_paid"`
	Balance       string            `json:"balance"`
	Payments      []paymentResponse `json:"payments"`
}

// --- Handlers ---

// Add handles POST /orders/{id}/payments.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Amount == "" || req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount and method are required"})
		return
	}

	order, err := h.svc.RecordPayment(r.Context(), service.RecordPaymentRequest{
		OrderID:    orderID,
		ReceivedBy: claims.UserID,
		Amount:     req.Amount,
		Method:     req.Method,
		Note:       req.Note,
	})
	if err != nil {
		writeServiceError(w, "record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentSummary(order))
}

// List handles GET /orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentSummary(order))
}

// --- Helpers ---

func toPaymentResponses(records []service.PaymentRecord) []paymentResponse {
	out := make([]paymentResponse, len(records))
	for i, p := range records {
		out[i] = paymentResponse{
			ID:         p.ID,
			Amount:     money(p.Amount),
			Method:     p.Method,
			ReceivedBy: p.ReceivedBy,
			ReceivedAt: p.ReceivedAt,
			Note:       p.Note,
		}
	}
	return out
}

func toPaymentSummary(o *service.Order) paymentSummaryResponse {
	return paymentSummaryResponse{
		OrderID:       o.ID,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   money(o.TotalAmount),
		TotalPaid:     money(o.TotalPaid),
		Balance:       money(o.TotalAmount.Sub(o.TotalPaid)),
		Payments:      toPaymentResponses(o.PaymentRecords),
	}
}
