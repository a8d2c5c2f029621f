package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shortformfactory/checkout-service/internal/checkout"
	"github.com/shortformfactory/checkout-service/internal/fulfillment"
	"github.com/shortformfactory/checkout-service/internal/paypal"
)

// FulfillmentNotifier receives confirmation facts for the fulfillment object.
// Calls are best-effort; the webhook path re-delivers the same facts.
type FulfillmentNotifier interface {
	RecordSettlement(req fulfillment.SettlementUpdate) error
	RecordOutcome(req fulfillment.OutcomeUpdate) error
}

// RegisterCheckoutRoutes mounts the create/capture endpoints into the mux.
func RegisterCheckoutRoutes(mux *http.ServeMux, svc *checkout.Service, notifier FulfillmentNotifier) {
	mux.Handle("/api/create-order", withCORS(otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCreateOrder(svc, w, r)
	}), "create-order")))

	mux.Handle("/api/capture-order", withCORS(otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCaptureOrder(svc, notifier, w, r)
	}), "capture-order")))
}

func handleCreateOrder(svc *checkout.Service, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID := uuid.NewString()[:8]

	var req checkout.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	res, err := svc.CreateOrder(r.Context(), req, r.Header.Get("Origin"))
	if err != nil {
		log.Printf("[Checkout %s] create order failed: %v", reqID, err)
		writeCheckoutError(w, err)
		return
	}

	log.Printf("[Checkout %s] created order %s (%s %s)", reqID, res.OrderID, req.Service, req.Tier)
	writeJSON(w, http.StatusOK, map[string]any{
		"orderID": res.OrderID,
		"status":  res.Status,
	})
}

func handleCaptureOrder(svc *checkout.Service, notifier FulfillmentNotifier, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID := uuid.NewString()[:8]

	var req struct {
		OrderID string `json:"orderID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	res, err := svc.CaptureOrder(r.Context(), req.OrderID)
	if err != nil {
		log.Printf("[Checkout %s] capture for order %s failed: %v", reqID, req.OrderID, err)
		writeCheckoutError(w, err)
		return
	}

	log.Printf("[Checkout %s] captured order %s: capture %s, %s %s", reqID, res.OrderID, res.CaptureID, res.Currency, res.AmountPaid)

	// Best-effort handoff to the fulfillment object; the webhook carries the
	// same fact if this call is lost.
	if notifier != nil && res.Status == "COMPLETED" {
		if err := notifier.RecordSettlement(fulfillment.SettlementUpdate{
			OrderID:    res.OrderID,
			CaptureID:  res.CaptureID,
			PayerEmail: res.PayerEmail,
			Amount:     res.AmountPaid,
			Currency:   res.Currency,
			Source:     "capture",
		}); err != nil {
			log.Printf("[Checkout %s] fulfillment notify failed for order %s: %v", reqID, res.OrderID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"status":     res.Status,
		"orderID":    res.OrderID,
		"captureID":  res.CaptureID,
		"payerEmail": res.PayerEmail,
		"amountPaid": res.AmountPaid,
	})
}

// writeCheckoutError maps service errors to HTTP responses. Processor
// rejections keep their original status and diagnostic fields; credential
// and token problems never leak detail to the client.
func writeCheckoutError(w http.ResponseWriter, err error) {
	var rejected *paypal.RejectedError
	var tokenErr *paypal.TokenError

	switch {
	case errors.Is(err, checkout.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.As(err, &rejected):
		body := map[string]any{"error": rejected.Message}
		if rejected.DebugID != "" {
			body["debug_id"] = rejected.DebugID
		}
		if len(rejected.Details) > 0 {
			body["details"] = rejected.Details
		}
		writeJSON(w, rejected.Status, body)
	case errors.Is(err, paypal.ErrMissingCredentials), errors.As(err, &tokenErr):
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "payment processor unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
