package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/metrics"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/service"
	"github.com/rookgm/orderflow/internal/webhook"
	"go.uber.org/zap"
)

// maxWebhookBody limits the notification body size
const maxWebhookBody = 1 << 20

//go:generate mockgen -source=webhook.go -destination=mocks/mock_webhook.go -package=mocks

type Reconciler interface {
	// Reconcile applies the provider state of a payment to its order
	Reconcile(ctx context.Context, paymentID, externalReference string) (*service.ReconcileResult, error)
}

// WebhookHandler represents HTTP handler for payment provider notifications
type WebhookHandler struct {
	verifier *webhook.Verifier
	rec      Reconciler
	metrics  *metrics.Recorder
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(verifier *webhook.Verifier, rec Reconciler, m *metrics.Recorder) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		rec:      rec,
		metrics:  m,
	}
}

// PaymentNotification handles provider payment notifications
// 200 - notification processed, dropped or can never succeed;
// 400 - malformed notification;
// 401 - missing or invalid signature;
// 500 - transient failure, the provider should retry.
func (wh *WebhookHandler) PaymentNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			wh.metrics.Webhook("malformed")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		n, err := webhook.Parse(r.URL.Query(), body)
		if err != nil {
			logger.Log.Warn("malformed notification", zap.Error(err))
			wh.metrics.Webhook("malformed")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		parsed := n
		n, err = wh.verifier.Verify(r.Header, parsed)
		if err != nil {
			logger.Log.Warn("notification rejected",
				zap.String("payment_id", parsed.PaymentID),
				zap.String("request_id", r.Header.Get(webhook.RequestIDHeader)),
				zap.Error(err))
			wh.metrics.Webhook("unauthorized")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if !n.IsPayment() {
			logger.Log.Debug("notification dropped", zap.String("type", n.Type))
			wh.metrics.Webhook("dropped")
			w.WriteHeader(http.StatusOK)
			return
		}

		log := logger.Log.With(
			zap.String("payment_id", n.PaymentID),
			zap.String("request_id", n.RequestID),
			zap.String("body_reference", n.ExternalReference))

		// the signature does not cover the body, so its reference is not trusted
		res, err := wh.rec.Reconcile(r.Context(), n.PaymentID, "")
		if err != nil {
			if models.IsRetryable(err) {
				log.Error("reconcile failed, provider will retry", zap.Error(err))
				wh.metrics.Webhook("retry")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			// retrying can not fix it, acknowledge
			log.Error("reconcile failed", zap.Error(err),
				zap.Bool("order_not_found", errors.Is(err, models.ErrOrderNotFound)))
			wh.metrics.Webhook("failed")
			w.WriteHeader(http.StatusOK)
			return
		}

		log.Info("notification processed", zap.String("outcome", string(res.Outcome)))
		wh.metrics.Webhook("processed")
		w.WriteHeader(http.StatusOK)
	}
}
