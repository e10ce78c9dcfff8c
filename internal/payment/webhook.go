package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"movebooking/internal/api"
	"movebooking/internal/validate"
	"movebooking/pkg/logging"
)

const maxCallbackBytes = 64 << 10

// Verify checks a base64(HMAC_SHA256(body)) signature.
func Verify(body []byte, signature string, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CallbackPayload is what the provider posts.
type CallbackPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// WebhookHandler receives provider callbacks. Once the signature is valid it
// always answers 200 so the provider stops retrying.
type WebhookHandler struct {
	Secret   string
	Source   string
	Payments Store
}

func (h WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		api.Fail(w, r, api.BadRequest(validate.CodeFailed, "invalid body"))
		return
	}
	if !Verify(body, strings.TrimSpace(r.Header.Get("X-Signature")), h.Secret) {
		api.Fail(w, r, api.Unauthorized("invalid webhook signature"))
		return
	}

	payloadHash := sha256Hex(body)
	eventID := strings.TrimSpace(r.Header.Get("X-Event-Id"))
	if eventID == "" {
		eventID = payloadHash
	}

	var payload CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil || strings.TrimSpace(payload.Reference) == "" {
		log.Warn("payment callback ignored: unreadable payload", "event_id", eventID)
		w.WriteHeader(http.StatusOK)
		return
	}
	status, err := ParseStatus(strings.TrimSpace(payload.Status))
	if err != nil {
		log.Warn("payment callback ignored: unknown status", "event_id", eventID, "status", payload.Status)
		w.WriteHeader(http.StatusOK)
		return
	}

	source := h.Source
	if source == "" {
		source = "payments"
	}
	res, err := h.Payments.ApplyCallback(r.Context(), Callback{
		Source:      source,
		EventID:     eventID,
		PayloadHash: payloadHash,
		Reference:   strings.TrimSpace(payload.Reference),
		Status:      status,
	})
	switch {
	case err != nil:
		log.Error("payment callback failed", "event_id", eventID, "error", err)
	case res.Duplicate:
		log.Info("payment callback already processed", "event_id", eventID)
	case !res.Applied:
		log.Warn("payment callback not applied", "event_id", eventID, "reference", payload.Reference, "reason", res.Reason)
	default:
		log.Info("payment callback applied", "event_id", eventID, "payment_id", res.PaymentID, "status", status)
	}

	w.WriteHeader(http.StatusOK)
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
