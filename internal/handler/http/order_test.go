package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rookgm/orderflow/internal/handler/http/mocks"
	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderRouter(svc OrderService) http.Handler {
	oh := NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Post("/api/orders", oh.CreateOrder())
	r.Get("/api/orders/{businessID}/tracking", oh.TrackOrder())
	r.Get("/api/statuses", ListStatuses())
	r.Get("/api/admin/orders", oh.ListOrders())
	r.Get("/api/admin/orders/{id}", oh.GetOrder())
	r.Delete("/api/admin/orders/{id}", oh.DeleteOrder())
	r.Post("/api/admin/orders/{id}/status", oh.UpdateStatus())
	r.Post("/api/admin/orders/{id}/issues", oh.ReportIssue())
	r.Post("/api/admin/orders/{id}/issues/{issueID}/resolve", oh.ResolveIssue())
	return r
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		path           string
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       *transitionErrorResponse
	}{
		{
			name: "valid_request_return_200",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"preparing_order","location":"Buenos Aires","updatedBy":"supplier"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, models.OrderStatusPreparingOrder, lifecycle.TransitionMeta{
					UpdatedBy: models.ActorSupplier,
					Location:  "Buenos Aires",
				}).Return(&models.Order{ID: id, Status: models.OrderStatusPreparingOrder}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "illegal_transition_return_400",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"delivered"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, models.OrderStatusDelivered, gomock.Any()).
					Return(nil, &models.IllegalTransitionError{
						From:    models.OrderStatusPaymentConfirmed,
						To:      models.OrderStatusDelivered,
						Allowed: lifecycle.AllowedNext(models.OrderStatusPaymentConfirmed),
					})
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
			wantBody: &transitionErrorResponse{
				Error: "illegal transition payment_confirmed -> delivered, allowed: [preparing_order, on_hold, cancelled]",
				AllowedNext: []models.OrderStatus{
					models.OrderStatusPreparingOrder,
					models.OrderStatusOnHold,
					models.OrderStatusCancelled,
				},
			},
		},
		{
			name: "terminal_status_return_400_empty_allowed",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"preparing_order"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, gomock.Any(), gomock.Any()).
					Return(nil, &models.IllegalTransitionError{From: models.OrderStatusDelivered, To: models.OrderStatusPreparingOrder})
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
			wantBody: &transitionErrorResponse{
				Error:       "illegal transition delivered -> preparing_order, allowed: []",
				AllowedNext: []models.OrderStatus{},
			},
		},
		{
			name: "concurrent_update_return_409",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"preparing_order"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(nil, models.ErrConcurrentUpdate)
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "order_not_found_return_404",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"preparing_order"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(nil, models.ErrOrderNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "unknown_status_return_400",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"teleported"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(nil, models.ErrUnknownStatus)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "bad_id_return_400",
			path: "/api/admin/orders/not-a-uuid/status",
			body: `{"status":"preparing_order"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "empty_body_return_400",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				return mocks.NewMockOrderService(ctrl)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "internal_error_return_500",
			path: "/api/admin/orders/" + id.String() + "/status",
			body: `{"status":"preparing_order"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Transition(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newOrderRouter(tt.setup(t))

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				resBody, err := io.ReadAll(res.Body)
				require.NoError(t, err)

				var got transitionErrorResponse
				err = json.Unmarshal(resBody, &got)
				require.NoError(t, err)

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("response mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       *createOrderResponse
	}{
		{
			name: "valid_request_return_201",
			body: `{"customer":{"name":"Ana","email":"ana@example.com"},"items":[{"id":"b1","unitPrice":50,"quantity":2}],"discountCode":"SUMMER10"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, req service.CreateOrderRequest) (*models.Order, error) {
						assert.Equal(t, "SUMMER10", req.DiscountCode)
						assert.Len(t, req.Items, 1)
						return &models.Order{
							ID:            id,
							BusinessID:    "01J0000000000000000000000",
							Status:        models.OrderStatusPendingPayment,
							PaymentStatus: models.PaymentStatusPending,
							Total:         100,
						}, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
			wantBody: &createOrderResponse{
				ID:            id,
				BusinessID:    "01J0000000000000000000000",
				Status:        models.OrderStatusPendingPayment,
				PaymentStatus: models.PaymentStatusPending,
				Total:         100,
			},
		},
		{
			name: "invalid_order_return_400",
			body: `{"customer":{"name":"Ana"},"items":[]}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidOrder)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "bad_json_return_400",
			body: `{`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				return mocks.NewMockOrderService(gomock.NewController(t))
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newOrderRouter(tt.setup(t))

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				var got createOrderResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("response mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_TrackOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	svcMock := mocks.NewMockOrderService(ctrl)
	days := 1
	svcMock.EXPECT().Track(gomock.Any(), "ORD-1").Return(&service.Tracking{
		BusinessID:             "ORD-1",
		Status:                 models.OrderStatusOutForDelivery,
		EstimatedDaysRemaining: &days,
	}, nil)
	svcMock.EXPECT().Track(gomock.Any(), "ORD-2").Return(nil, models.ErrOrderNotFound)

	router := newOrderRouter(svcMock)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/ORD-1/tracking", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "out_for_delivery", got["status"])
	assert.Equal(t, float64(1), got["estimatedDaysRemaining"])
	assert.NotContains(t, got, "allowedNext")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/ORD-2/tracking", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
	}{
		{
			name:  "valid_request_return_200",
			query: "?status=pending_payment&limit=10",
			setup: func(t *testing.T) *mocks.MockOrderService {
				svcMock := mocks.NewMockOrderService(gomock.NewController(t))
				svcMock.EXPECT().List(gomock.Any(), models.OrderFilter{Status: models.OrderStatusPendingPayment, Limit: 10}).
					Return([]models.Order{{ID: uuid.New()}}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "no_orders_return_204",
			setup: func(t *testing.T) *mocks.MockOrderService {
				svcMock := mocks.NewMockOrderService(gomock.NewController(t))
				svcMock.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)
				return svcMock
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:  "bad_limit_return_400",
			query: "?limit=-1",
			setup: func(t *testing.T) *mocks.MockOrderService {
				return mocks.NewMockOrderService(gomock.NewController(t))
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:  "unknown_status_return_400",
			query: "?status=teleported",
			setup: func(t *testing.T) *mocks.MockOrderService {
				svcMock := mocks.NewMockOrderService(gomock.NewController(t))
				svcMock.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, models.ErrUnknownStatus)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newOrderRouter(tt.setup(t))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/orders"+tt.query, nil))
			assert.Equal(t, tt.wantStatusCode, w.Code)
		})
	}
}

func TestOrderHandler_IssuesAndDelete(t *testing.T) {
	id := uuid.New()
	issueID := uuid.New()

	ctrl := gomock.NewController(t)
	svcMock := mocks.NewMockOrderService(ctrl)
	svcMock.EXPECT().ReportIssue(gomock.Any(), id, "damaged_box", "box arrived wet").
		Return(&models.Issue{ID: issueID, Kind: "damaged_box"}, nil)
	svcMock.EXPECT().ResolveIssue(gomock.Any(), id, issueID, "replaced").Return(nil)
	svcMock.EXPECT().SoftDelete(gomock.Any(), id).Return(nil)
	svcMock.EXPECT().Get(gomock.Any(), id).Return(nil, models.ErrOrderNotFound)

	router := newOrderRouter(svcMock)
	base := "/api/admin/orders/" + id.String()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, base+"/issues",
		strings.NewReader(`{"kind":"damaged_box","description":"box arrived wet"}`)))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, base+"/issues/"+issueID.String()+"/resolve",
		strings.NewReader(`{"resolution":"replaced"}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStatuses(t *testing.T) {
	w := httptest.NewRecorder()
	ListStatuses().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/statuses", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, len(lifecycle.Statuses()))

	byStatus := make(map[models.OrderStatus]statusResponse, len(got))
	for _, s := range got {
		byStatus[s.Status] = s
	}
	assert.True(t, byStatus[models.OrderStatusDelivered].Terminal)
	assert.Empty(t, byStatus[models.OrderStatusDelivered].AllowedNext)
	assert.Nil(t, byStatus[models.OrderStatusDelivered].EstimatedDaysRemaining)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, byStatus[models.OrderStatusPendingPayment].AllowedNext[0])
}
