package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/service"
	"go.uber.org/zap"
)

//go:generate mockgen -source=order.go -destination=mocks/mock_order.go -package=mocks

type OrderService interface {
	// Create stores a new order awaiting payment
	Create(ctx context.Context, req service.CreateOrderRequest) (*models.Order, error)
	// Get returns an active order
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// List returns active orders
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// Track returns public tracking by business id
	Track(ctx context.Context, businessID string) (*service.Tracking, error)
	// Transition records a manual status change
	Transition(ctx context.Context, id uuid.UUID, status models.OrderStatus, meta lifecycle.TransitionMeta) (*models.Order, error)
	// ReportIssue attaches a problem report
	ReportIssue(ctx context.Context, id uuid.UUID, kind, description string) (*models.Issue, error)
	// ResolveIssue closes a problem report
	ResolveIssue(ctx context.Context, id, issueID uuid.UUID, resolution string) error
	// SoftDelete hides an order
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("encode response", zap.Error(err))
	}
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	var ite *models.IllegalTransitionError
	switch {
	case errors.As(err, &ite):
		allowed := ite.Allowed
		if allowed == nil {
			allowed = []models.OrderStatus{}
		}
		writeJSON(w, http.StatusBadRequest, transitionErrorResponse{Error: ite.Error(), AllowedNext: allowed})
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrDataNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidOrder), errors.Is(err, models.ErrUnknownStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrConcurrentUpdate):
		http.Error(w, "order was modified concurrently", http.StatusConflict)
	default:
		logger.Log.Error("order request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func orderID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

type createOrderRequest struct {
	Customer       models.Customer `json:"customer"`
	Items          []models.Item   `json:"items"`
	DiscountCode   string          `json:"discountCode"`
	DiscountAmount float64         `json:"discountAmount"`
	Currency       string          `json:"currency"`
	PaymentMethod  string          `json:"paymentMethod"`
	PreferenceID   string          `json:"preferenceId"`
}

type createOrderResponse struct {
	ID            uuid.UUID            `json:"id"`
	BusinessID    string               `json:"businessId"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Total         float64              `json:"total"`
}

// CreateOrder places a new order
// 201 - order created and awaits payment;
// 400 - bad request;
// 500 - internal error.
func (oh *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := oh.svc.Create(r.Context(), service.CreateOrderRequest{
			Customer:       req.Customer,
			Items:          req.Items,
			DiscountCode:   req.DiscountCode,
			DiscountAmount: req.DiscountAmount,
			Currency:       req.Currency,
			PaymentMethod:  req.PaymentMethod,
			PreferenceID:   req.PreferenceID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createOrderResponse{
			ID:            order.ID,
			BusinessID:    order.BusinessID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Total:         order.Total,
		})
	}
}

// TrackOrder returns public tracking of an order
// 200 - ok;
// 404 - order not found.
func (oh *OrderHandler) TrackOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracking, err := oh.svc.Track(r.Context(), chi.URLParam(r, "businessID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tracking)
	}
}

// GetOrder returns an order for operators
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := orderID(r)
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := oh.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

// ListOrders returns active orders filtered by query parameters
// 200 - ok;
// 204 - no orders;
// 400 - bad filter.
func (oh *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.OrderFilter{
			Status:        models.OrderStatus(q.Get("status")),
			PaymentStatus: models.PaymentStatus(q.Get("paymentStatus")),
		}

		var err error
		if v := q.Get("limit"); v != "" {
			if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
		}
		if v := q.Get("offset"); v != "" {
			if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
				http.Error(w, "bad offset", http.StatusBadRequest)
				return
			}
		}

		orders, err := oh.svc.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

type transitionRequest struct {
	Status         models.OrderStatus `json:"status"`
	Description    string             `json:"description"`
	Location       string             `json:"location"`
	AdditionalInfo string             `json:"additionalInfo"`
	UpdatedBy      models.Actor       `json:"updatedBy"`
}

type transitionErrorResponse struct {
	Error       string               `json:"error"`
	AllowedNext []models.OrderStatus `json:"allowedNext"`
}

// UpdateStatus records a manual status transition
// 200 - transition recorded;
// 400 - bad request or illegal transition, allowedNext is returned;
// 404 - order not found;
// 409 - order changed concurrently;
// 500 - internal error.
func (oh *OrderHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := orderID(r)
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req transitionRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := oh.svc.Transition(r.Context(), id, req.Status, lifecycle.TransitionMeta{
			UpdatedBy:      req.UpdatedBy,
			Description:    req.Description,
			Location:       req.Location,
			AdditionalInfo: req.AdditionalInfo,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

type issueRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// ReportIssue attaches a problem report to an order
// 201 - issue created.
func (oh *OrderHandler) ReportIssue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := orderID(r)
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req issueRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		issue, err := oh.svc.ReportIssue(r.Context(), id, req.Kind, req.Description)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, issue)
	}
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

// ResolveIssue closes a problem report
// 204 - resolved;
// 404 - order or issue not found.
func (oh *OrderHandler) ResolveIssue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := orderID(r)
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		issueID, err := uuid.Parse(chi.URLParam(r, "issueID"))
		if err != nil {
			http.Error(w, "invalid issue id", http.StatusBadRequest)
			return
		}

		var req resolveRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := oh.svc.ResolveIssue(r.Context(), id, issueID, req.Resolution); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteOrder soft-deletes an order
// 204 - deleted;
// 404 - order not found.
func (oh *OrderHandler) DeleteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := orderID(r)
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		if err := oh.svc.SoftDelete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type statusResponse struct {
	Status                 models.OrderStatus       `json:"status"`
	Metadata               lifecycle.StatusMetadata `json:"metadata"`
	AllowedNext            []models.OrderStatus     `json:"allowedNext"`
	Terminal               bool                     `json:"terminal"`
	EstimatedDaysRemaining *int                     `json:"estimatedDaysRemaining"`
}

// ListStatuses returns the status table
func ListStatuses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := lifecycle.Statuses()
		resp := make([]statusResponse, 0, len(statuses))

		for _, s := range statuses {
			md, _ := lifecycle.Metadata(s)
			resp = append(resp, statusResponse{
				Status:                 s,
				Metadata:               md,
				AllowedNext:            lifecycle.AllowedNext(s),
				Terminal:               lifecycle.IsTerminal(s),
				EstimatedDaysRemaining: lifecycle.EstimatedDaysRemaining(s),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
