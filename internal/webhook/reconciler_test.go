package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortformfactory/checkout-service/internal/checkout"
)

func TestDispatchCaptureCompleted(t *testing.T) {
	evt := Event{
		ID:        "WH-EVT-1",
		EventType: EventCaptureCompleted,
		Resource: json.RawMessage(`{
			"purchase_units": [{
				"amount": {"value": "60.00", "currency_code": "USD"},
				"custom_id": "{\"service\":\"aiReel\",\"package\":\"standard\",\"addons\":[]}",
				"payments": {"captures": [{"id": "CAP1"}]}
			}]
		}`),
	}

	out := Dispatch(evt)
	assert.Equal(t, KindSettled, out.Kind)
	require.NotNil(t, out.Settlement)
	assert.Equal(t, "CAP1", out.Settlement.CaptureID)
	assert.Equal(t, "60.00", out.Settlement.Amount)
	assert.Equal(t, "USD", out.Settlement.Currency)
	require.NotNil(t, out.Settlement.Purchase)
	assert.Equal(t, checkout.PurchaseRequest{Service: "aiReel", Tier: "standard", Addons: []string{}}, *out.Settlement.Purchase)

	assert.Equal(t, "CAP1", out.Result["captureId"])
	assert.Equal(t, "60.00", out.Result["amount"])
	assert.Equal(t, "USD", out.Result["currency"])
	details, ok := out.Result["orderDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aiReel", details["service"])
	assert.Equal(t, "standard", details["package"])
}

func TestDispatchIsIdempotentRead(t *testing.T) {
	evt := Event{
		ID:        "WH-EVT-2",
		EventType: EventCaptureCompleted,
		Resource: json.RawMessage(`{
			"id": "CAP-2",
			"amount": {"value": "25.00", "currency_code": "USD"},
			"supplementary_data": {"related_ids": {"order_id": "ORD-2"}}
		}`),
	}

	first := Dispatch(evt)
	second := Dispatch(evt)
	assert.Equal(t, first, second, "re-dispatching the identical event must yield the identical result")
	assert.Equal(t, "ORD-2", first.OrderID, "order id recovered from supplementary data")
	assert.Equal(t, "25.00", first.Amount, "amount falls back to the resource amount")
}

func TestDispatchCaptureEventKeysByOrderID(t *testing.T) {
	// On capture events resource.id is the capture id; the settlement must
	// still key by the related order id so it merges with the synchronous
	// capture confirmation for the same order.
	evt := Event{
		ID:        "WH-EVT-5",
		EventType: EventCaptureCompleted,
		Resource: json.RawMessage(`{
			"id": "CAP-9",
			"amount": {"value": "35.00", "currency_code": "USD"},
			"payer": {"email_address": "buyer@example.com", "name": {"given_name": "Sam"}},
			"supplementary_data": {"related_ids": {"order_id": "ORD-9"}}
		}`),
	}

	out := Dispatch(evt)
	assert.Equal(t, "ORD-9", out.OrderID)
	require.NotNil(t, out.Settlement)
	assert.Equal(t, "ORD-9", out.Settlement.OrderID)
	assert.Equal(t, "CAP-9", out.Settlement.CaptureID)
	assert.Equal(t, "Sam", out.Settlement.PayerName)
	assert.Equal(t, "ORD-9", out.Result["orderId"])
	assert.Equal(t, "CAP-9", out.Result["captureId"])
}

func TestDispatchAmountFallsBackToNestedCapture(t *testing.T) {
	evt := Event{
		EventType: EventOrderCompleted,
		Resource: json.RawMessage(`{
			"id": "ORD-8",
			"purchase_units": [{
				"payments": {"captures": [{"id": "CAP-8", "amount": {"value": "45.00", "currency_code": "USD"}}]}
			}]
		}`),
	}

	out := Dispatch(evt)
	assert.Equal(t, "ORD-8", out.OrderID)
	assert.Equal(t, "CAP-8", out.Settlement.CaptureID)
	assert.Equal(t, "45.00", out.Amount, "amount recovered from the nested capture")
	assert.Equal(t, "USD", out.Currency)
}

func TestDispatchOrderCompletedAliasesSettlement(t *testing.T) {
	evt := Event{
		EventType: EventOrderCompleted,
		Resource:  json.RawMessage(`{"id": "ORD-3", "purchase_units": [{"payments": {"captures": [{"id": "CAP-3"}]}}]}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindSettled, out.Kind)
	assert.Equal(t, "ORD-3", out.OrderID)
	assert.Equal(t, "CAP-3", out.Settlement.CaptureID)
}

func TestDispatchSwallowsCorruptMetadata(t *testing.T) {
	evt := Event{
		EventType: EventCaptureCompleted,
		Resource:  json.RawMessage(`{"id": "ORD-4", "custom_id": "{not-json"}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindSettled, out.Kind)
	assert.Nil(t, out.Settlement.Purchase, "parse failure is swallowed, enrichment omitted")
	assert.Equal(t, map[string]any{}, out.Result["orderDetails"])
}

func TestDispatchOrderApproved(t *testing.T) {
	evt := Event{
		EventType: EventOrderApproved,
		Resource:  json.RawMessage(`{"id": "ORD-5"}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindApproved, out.Kind)
	assert.Equal(t, "ORD-5", out.OrderID)
	assert.Equal(t, "order_approved", out.Result["status"])
}

func TestDispatchCaptureDenied(t *testing.T) {
	evt := Event{
		EventType: EventCaptureDenied,
		Resource:  json.RawMessage(`{"id": "ORD-6", "status": "DECLINED", "status_details": {"reason": "INSUFFICIENT_FUNDS"}}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindDenied, out.Kind)
	assert.Equal(t, "INSUFFICIENT_FUNDS", out.Reason)

	// Without details the status itself is the reason.
	evt.Resource = json.RawMessage(`{"id": "ORD-6", "status": "DECLINED"}`)
	out = Dispatch(evt)
	assert.Equal(t, "DECLINED", out.Reason)
}

func TestDispatchOrderCancelled(t *testing.T) {
	evt := Event{
		EventType: EventOrderCancelled,
		Resource:  json.RawMessage(`{"id": "ORD-7"}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindCancelled, out.Kind)
	assert.Equal(t, "ORD-7", out.OrderID)
}

func TestDispatchCaptureRefunded(t *testing.T) {
	evt := Event{
		EventType: EventCaptureRefunded,
		Resource:  json.RawMessage(`{"id": "REF-1", "amount": {"value": "15.00", "currency_code": "USD"}}`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindRefunded, out.Kind)
	assert.Equal(t, "REF-1", out.RefundID)
	assert.Equal(t, "15.00", out.Amount)
	assert.Equal(t, "REF-1", out.Result["refundId"])
}

func TestDispatchUnhandledIsAcknowledged(t *testing.T) {
	evt := Event{EventType: "BILLING.SUBSCRIPTION.CREATED"}
	out := Dispatch(evt)
	assert.Equal(t, KindUnhandled, out.Kind)
	assert.Equal(t, "BILLING.SUBSCRIPTION.CREATED", out.Result["eventType"])
}

func TestDispatchToleratesMalformedResource(t *testing.T) {
	evt := Event{
		EventType: EventCaptureCompleted,
		Resource:  json.RawMessage(`"not an object"`),
	}
	out := Dispatch(evt)
	assert.Equal(t, KindSettled, out.Kind, "a broken resource still yields an acknowledgeable outcome")
}
