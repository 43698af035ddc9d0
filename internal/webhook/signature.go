// Package webhook authenticates payment provider notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rookgm/orderflow/internal/models"
)

const (
	SignatureHeader = "x-signature"
	RequestIDHeader = "x-request-id"

	// NotificationTypePayment is the only notification type forwarded for reconciliation
	NotificationTypePayment = "payment"
)

// Notification is an authenticated provider notification
type Notification struct {
	Type              string
	PaymentID         string
	RequestID         string
	ExternalReference string
	Timestamp         time.Time
}

// IsPayment reports whether the notification refers to a payment
func (n Notification) IsPayment() bool {
	return n.Type == NotificationTypePayment
}

// Verifier checks the HMAC-SHA256 signature of provider notifications
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// Option customises the verifier
type Option func(*Verifier)

// WithTolerance rejects signatures older than d. Zero disables the check.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		v.tolerance = d
	}
}

// WithClock injects a custom clock
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates new Verifier with shared secret
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type notificationBody struct {
	Type              string `json:"type"`
	Action            string `json:"action"`
	ExternalReference string `json:"external_reference"`
	Data              struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// Parse extracts notification type and payment id from query parameters, falling back to the JSON body
func Parse(query url.Values, body []byte) (Notification, error) {
	n := Notification{
		Type:      firstNonEmpty(query.Get("type"), query.Get("topic")),
		PaymentID: firstNonEmpty(query.Get("data.id"), query.Get("id")),
	}

	if len(body) > 0 {
		nb := notificationBody{}
		if err := json.Unmarshal(body, &nb); err != nil {
			if n.PaymentID == "" {
				return Notification{}, fmt.Errorf("%w: %v", models.ErrMalformedNotification, err)
			}
		} else {
			n.Type = firstNonEmpty(n.Type, nb.Type)
			n.PaymentID = firstNonEmpty(n.PaymentID, strings.Trim(string(nb.Data.ID), `"`))
			n.ExternalReference = nb.ExternalReference
		}
	}

	if n.PaymentID == "" {
		return Notification{}, fmt.Errorf("%w: payment id is missing", models.ErrMalformedNotification)
	}

	return n, nil
}

// Verify authenticates a notification whose payment id has been parsed.
// It fails closed: a missing or mismatched signature is an error.
func (v *Verifier) Verify(header http.Header, n Notification) (Notification, error) {
	if len(v.secret) == 0 {
		return Notification{}, fmt.Errorf("%w: secret is not configured", models.ErrInvalidSignature)
	}

	raw := strings.TrimSpace(header.Get(SignatureHeader))
	if raw == "" {
		return Notification{}, models.ErrMissingSignature
	}

	ts, sig, err := parseSignature(raw)
	if err != nil {
		return Notification{}, err
	}

	n.RequestID = header.Get(RequestIDHeader)

	got, err := hex.DecodeString(sig)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: signature encoding", models.ErrInvalidSignature)
	}

	if !hmac.Equal(got, Sign(v.secret, n.PaymentID, n.RequestID, ts)) {
		return Notification{}, models.ErrInvalidSignature
	}

	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		n.Timestamp = time.UnixMilli(ms)
	}
	if v.tolerance > 0 {
		if n.Timestamp.IsZero() || v.now().Sub(n.Timestamp) > v.tolerance {
			return Notification{}, fmt.Errorf("%w: timestamp outside allowed window", models.ErrInvalidSignature)
		}
	}

	return n, nil
}

// Manifest builds the signed string
func Manifest(paymentID, requestID, ts string) string {
	return "id:" + paymentID + ";request-id:" + requestID + ";ts:" + ts + ";"
}

// Sign computes the HMAC-SHA256 of the manifest
func Sign(secret []byte, paymentID, requestID, ts string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(Manifest(paymentID, requestID, ts)))
	return mac.Sum(nil)
}

// SignatureHeaderValue renders the x-signature header, used by tests and tooling
func SignatureHeaderValue(secret, paymentID, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(Sign([]byte(secret), paymentID, requestID, ts))
}

// parseSignature splits "ts=<unix-ms>,v1=<hex>"
func parseSignature(raw string) (ts, v1 string, err error) {
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return "", "", fmt.Errorf("%w: malformed signature header", models.ErrInvalidSignature)
	}
	return ts, v1, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
