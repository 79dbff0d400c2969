package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EnquiryServicer defines the service methods needed by enquiry handlers.
// Satisfied by *service.EnquiryService.
type EnquiryServicer interface {
	CreateEnquiry(ctx context.Context, req service.CreateEnquiryRequest) (database.Enquiry, error)
	GetEnquiry(ctx context.Context, id uuid.UUID) (database.Enquiry, error)
	ListEnquiries(ctx context.Context, status string, limit, offset int32) ([]database.Enquiry, error)
	UpdateEnquiry(ctx context.Context, req service.UpdateEnquiryRequest) (database.Enquiry, error)
	DeleteEnquiry(ctx context.Context, id, deletedBy uuid.UUID) error
	ConvertEnquiry(ctx context.Context, req service.ConvertEnquiryRequest) (*service.ConvertEnquiryResult, error)
}

// EnquiryHandler handles pre-order enquiry endpoints.
type EnquiryHandler struct {
	svc EnquiryServicer
}

// NewEnquiryHandler creates a new EnquiryHandler.
func NewEnquiryHandler(svc EnquiryServicer) *EnquiryHandler {
	return &EnquiryHandler{svc: svc}
}

// RegisterRoutes registers enquiry endpoints on the given Chi router.
// Expected to be mounted at /enquiries.
func (h *EnquiryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/convert", h.Convert)
}

// --- Request / Response types ---

type createEnquiryRequest struct {
	GuestName             string `json:"guest_name"`
	GuestEmail            string `json:"guest_email"`
	GuestPhone            string `json:"guest_phone"`
	GuestAddress          string `json:"guest_address"`
	EnquiryDetails        string `json:"enquiry_details"`
	DesiredCollectionDate string `json:"desired_collection_date"`
	DesiredCollectionTime string `json:"desired_collection_time"`
	Notes                 string `json:"notes"`
}

type updateEnquiryRequest struct {
	GuestName             *string `json:"guest_name"`
	GuestEmail            *string `json:"guest_email"`
	GuestPhone            *string `json:"guest_phone"`
	GuestAddress          *string `json:"guest_address"`
	EnquiryDetails        *string `json:"enquiry_details"`
	DesiredCollectionDate *string `json:"desired_collection_date"`
	DesiredCollectionTime *string `json:"desired_collection_time"`
	Status                *string `json:"status"`
	Notes                 *string `json:"notes"`
}

type convertEnquiryRequest struct {
	Items          []orderItemRequest `json:"items"`
	CollectionDate string             `json:"collection_date"`
	CollectionTime string             `json:"collection_time"`
	PaymentMethod  string             `json:"payment_method"`
}

type enquiryResponse struct {
	ID                    uuid.UUID  `json:"id"`
	GuestName             string     `json:"guest_name"`
	GuestEmail            string     `json:"guest_email"`
	GuestPhone            string     `json:"guest_phone"`
	GuestAddress          string     `json:"guest_address"`
	EnquiryDetails        string     `json:"enquiry_details"`
	DesiredCollectionDate *time.Time `json:"desired_collection_date"`
	DesiredCollectionTime *string    `json:"desired_collection_time"`
	Status                string     `json:"status"`
	ConvertedToOrder      *uuid.UUID `json:"converted_to_order"`
	Notes                 *string    `json:"notes"`
	CreatedBy             uuid.UUID  `json:"created_by"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type convertEnquiryResponse struct {
	Enquiry enquiryResponse `json:"enquiry"`
	Order   orderResponse   `json:"order"`
}

func toEnquiryResponse(e database.Enquiry) enquiryResponse {
	resp := enquiryResponse{
		ID:             e.ID,
		GuestName:      e.GuestName,
		GuestEmail:     e.GuestEmail,
		GuestPhone:     e.GuestPhone,
		GuestAddress:   e.GuestAddress,
		EnquiryDetails: e.EnquiryDetails,
		Status:         e.Status,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.DesiredCollectionDate.Valid {
		resp.DesiredCollectionDate = &e.DesiredCollectionDate.Time
	}
	if e.DesiredCollectionTime.Valid {
		resp.DesiredCollectionTime = &e.DesiredCollectionTime.String
	}
	if e.ConvertedToOrder.Valid {
		id := uuid.UUID(e.ConvertedToOrder.Bytes)
		resp.ConvertedToOrder = &id
	}
	if e.Notes.Valid {
		resp.Notes = &e.Notes.String
	}
	return resp
}

// --- Handlers ---

// List returns a page of enquiries, optionally filtered by ?status=.
func (h *EnquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	enquiries, err := h.svc.ListEnquiries(r.Context(), r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeServiceError(w, "list enquiries", err)
		return
	}

	resp := make([]enquiryResponse, len(enquiries))
	for i, e := range enquiries {
		resp[i] = toEnquiryResponse(e)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enquiries": resp,
		"limit":     limit,
		"offset":    offset,
	})
}

// Get returns a single enquiry.
func (h *EnquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid enquiry ID"})
		return
	}

	enquiry, err := h.svc.GetEnquiry(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get enquiry", err)
		return
	}

	writeJSON(w, http.StatusOK, toEnquiryResponse(enquiry))
}

// Create records a new enquiry.
func (h *EnquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createEnquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	enquiry, err := h.svc.CreateEnquiry(r.Context(), service.CreateEnquiryRequest{
		CreatedBy:             claims.UserID,
		GuestName:             req.GuestName,
		GuestEmail:            req.GuestEmail,
		GuestPhone:            req.GuestPhone,
		GuestAddress:          req.GuestAddress,
		EnquiryDetails:        req.EnquiryDetails,
		DesiredCollectionDate: req.DesiredCollectionDate,
		DesiredCollectionTime: req.DesiredCollectionTime,
		Notes:                 req.Notes,
	})
	if err != nil {
		writeServiceError(w, "create enquiry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEnquiryResponse(enquiry))
}

// Update applies partial changes to an open enquiry.
func (h *EnquiryHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid enquiry ID"})
		return
	}

	var req updateEnquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	enquiry, err := h.svc.UpdateEnquiry(r.Context(), service.UpdateEnquiryRequest{
		EnquiryID:             id,
		UpdatedBy:             claims.UserID,
		GuestName:             req.GuestName,
		GuestEmail:            req.GuestEmail,
		GuestPhone:            req.GuestPhone,
		GuestAddress:          req.GuestAddress,
		EnquiryDetails:        req.EnquiryDetails,
		DesiredCollectionDate: req.DesiredCollectionDate,
		DesiredCollectionTime: req.DesiredCollectionTime,
		Status:                req.Status,
		Notes:                 req.Notes,
	})
	if err != nil {
		writeServiceError(w, "update enquiry", err)
		return
	}

	writeJSON(w, http.StatusOK, toEnquiryResponse(enquiry))
}

// Delete removes an enquiry.
func (h *EnquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid enquiry ID"})
		return
	}

	if err := h.svc.DeleteEnquiry(r.Context(), id, claims.UserID); err != nil {
		writeServiceError(w, "delete enquiry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Convert turns an enquiry into an order in one step.
func (h *EnquiryHandler) Convert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid enquiry ID"})
		return
	}

	var req convertEnquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	res, err := h.svc.ConvertEnquiry(r.Context(), service.ConvertEnquiryRequest{
		EnquiryID:      id,
		ConvertedBy:    claims.UserID,
		Items:          toItemInputs(req.Items),
		CollectionDate: req.CollectionDate,
		CollectionTime: req.CollectionTime,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, "convert enquiry", err)
		return
	}

	writeJSON(w, http.StatusCreated, convertEnquiryResponse{
		Enquiry: toEnquiryResponse(res.Enquiry),
		Order:   toOrderResponse(res.Order),
	})
}
