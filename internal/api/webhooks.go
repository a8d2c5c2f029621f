package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shortformfactory/checkout-service/internal/events"
	"github.com/shortformfactory/checkout-service/internal/fulfillment"
	"github.com/shortformfactory/checkout-service/internal/idempotency"
	"github.com/shortformfactory/checkout-service/internal/webhook"
)

// Authenticator decides whether a raw webhook delivery really came from the
// payment processor.
type Authenticator interface {
	Verify(ctx context.Context, headers http.Header, rawEvent []byte) bool
}

// EventPublisher emits settlement events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, evt events.Envelope) error
}

// WebhookDeps collects the collaborators of the webhook endpoint. Producer
// and Notifier may be nil; side effects degrade to log-only.
type WebhookDeps struct {
	Verifier Authenticator
	Store    idempotency.Store
	Producer EventPublisher
	Topic    string
	Notifier FulfillmentNotifier
}

// RegisterWebhookRoutes mounts the processor webhook endpoint. No CORS here.
func RegisterWebhookRoutes(mux *http.ServeMux, deps WebhookDeps) {
	mux.Handle("/api/paypal/webhook", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebhook(deps, w, r)
	}), "paypal-webhook"))
}

// handleWebhook acknowledges everything it can. Returning an error status
// makes the processor re-deliver, so only a failed authenticity check gets a
// non-200; internal problems are logged and acked.
func handleWebhook(deps WebhookDeps, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "error": "unreadable body"})
		return
	}

	if !deps.Verifier.Verify(r.Context(), r.Header, raw) {
		log.Printf("[Webhook] rejected delivery with invalid signature")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid webhook signature"})
		return
	}

	var evt webhook.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		log.Printf("[Webhook] unparseable event payload: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "error": "invalid event payload"})
		return
	}

	outcome := webhook.Dispatch(evt)
	applySideEffects(r.Context(), deps, evt, outcome)

	writeJSON(w, http.StatusOK, map[string]any{
		"received":  true,
		"eventId":   evt.ID,
		"eventType": evt.EventType,
		"result":    outcome.Result,
	})
}

// applySideEffects publishes bus events and updates the fulfillment object
// for outcomes that settle, deny, cancel or refund an order. Approvals and
// unhandled types carry no effects. Every delivery id passes through the
// ledger exactly once, so re-deliveries ack without re-publishing.
func applySideEffects(ctx context.Context, deps WebhookDeps, evt webhook.Event, outcome webhook.Outcome) {
	switch outcome.Kind {
	case webhook.KindApproved, webhook.KindUnhandled:
		return
	}

	if evt.ID != "" && deps.Store != nil {
		first, err := deps.Store.MarkProcessed(ctx, evt.ID, evt.EventType)
		if err != nil {
			log.Printf("[Webhook] ledger check failed for event %s, skipping side effects: %v", evt.ID, err)
			return
		}
		if !first {
			log.Printf("[Webhook] duplicate delivery of event %s (%s), side effects skipped", evt.ID, evt.EventType)
			return
		}
	}

	publish(ctx, deps, evt, outcome)
	notify(deps, outcome)
}

func publish(ctx context.Context, deps WebhookDeps, evt webhook.Event, outcome webhook.Outcome) {
	if deps.Producer == nil {
		return
	}

	var eventType, key string
	data := map[string]any{"orderId": outcome.OrderID, "webhookEventId": evt.ID}

	switch outcome.Kind {
	case webhook.KindSettled:
		eventType = events.TypeSettlementRecorded
		key = outcome.OrderID
		if s := outcome.Settlement; s != nil {
			data["captureId"] = s.CaptureID
			data["payerEmail"] = s.PayerEmail
			data["payerName"] = s.PayerName
			data["amount"] = s.Amount
			data["currency"] = s.Currency
			if s.Purchase != nil {
				data["service"] = s.Purchase.Service
				data["package"] = s.Purchase.Tier
				data["addons"] = s.Purchase.Addons
			}
		}
	case webhook.KindDenied:
		eventType = events.TypeSettlementDenied
		key = outcome.OrderID
		data["reason"] = outcome.Reason
	case webhook.KindCancelled:
		eventType = events.TypeOrderCancelled
		key = outcome.OrderID
	case webhook.KindRefunded:
		eventType = events.TypeRefundRecorded
		key = outcome.OrderID
		if key == "" {
			key = outcome.RefundID
		}
		data["refundId"] = outcome.RefundID
		data["amount"] = outcome.Amount
		data["currency"] = outcome.Currency
	default:
		return
	}

	env := events.Envelope{EventType: eventType, EventVersion: "v1", AggregateID: key, Data: data}
	if err := deps.Producer.Publish(ctx, deps.Topic, key, env); err != nil {
		log.Printf("[Webhook] failed to publish %s for event %s: %v", eventType, evt.ID, err)
	}
}

func notify(deps WebhookDeps, outcome webhook.Outcome) {
	if deps.Notifier == nil || outcome.OrderID == "" {
		return
	}

	var err error
	switch outcome.Kind {
	case webhook.KindSettled:
		upd := fulfillment.SettlementUpdate{OrderID: outcome.OrderID, Source: "webhook"}
		if s := outcome.Settlement; s != nil {
			upd.CaptureID = s.CaptureID
			upd.PayerEmail = s.PayerEmail
			upd.Amount = s.Amount
			upd.Currency = s.Currency
		}
		err = deps.Notifier.RecordSettlement(upd)
	case webhook.KindDenied:
		err = deps.Notifier.RecordOutcome(fulfillment.OutcomeUpdate{OrderID: outcome.OrderID, Status: fulfillment.StatusDenied, Reason: outcome.Reason})
	case webhook.KindCancelled:
		err = deps.Notifier.RecordOutcome(fulfillment.OutcomeUpdate{OrderID: outcome.OrderID, Status: fulfillment.StatusCancelled})
	case webhook.KindRefunded:
		err = deps.Notifier.RecordOutcome(fulfillment.OutcomeUpdate{OrderID: outcome.OrderID, Status: fulfillment.StatusRefunded})
	default:
		return
	}
	if err != nil {
		log.Printf("[Webhook] fulfillment notify failed for order %s: %v", outcome.OrderID, err)
	}
}
