package webhook

import (
	"encoding/json"
	"log"

	"github.com/shortformfactory/checkout-service/internal/checkout"
	"github.com/shortformfactory/checkout-service/internal/paypal"
	"github.com/shortformfactory/checkout-service/internal/pricing"
)

// Event types the processor delivers. Anything else is acknowledged unhandled.
const (
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventOrderCompleted   = "CHECKOUT.ORDER.COMPLETED"
	EventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	EventOrderCancelled   = "CHECKOUT.ORDER.CANCELLED"
	EventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
)

// Event is an asynchronous, at-least-once-delivered processor notification.
// ID is the deduplication key for anything downstream that adds side effects.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// eventResource is the subset of the resource payload the handlers read.
// The same shape serves capture events (amount, custom_id at the top level)
// and order events (nested purchase units).
type eventResource struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StatusDetails *struct {
		Reason string `json:"reason"`
	} `json:"status_details"`
	Amount            *paypal.Amount        `json:"amount"`
	Payer             *paypal.Payer         `json:"payer"`
	CustomID          string                `json:"custom_id"`
	PurchaseUnits     []paypal.PurchaseUnit `json:"purchase_units"`
	SupplementaryData *struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// Kind classifies what a dispatch derived from the event.
type Kind string

const (
	KindApproved  Kind = "approved"
	KindSettled   Kind = "settled"
	KindDenied    Kind = "denied"
	KindCancelled Kind = "cancelled"
	KindRefunded  Kind = "refunded"
	KindUnhandled Kind = "unhandled"
)

// Settlement carries the facts extracted from a completed capture.
type Settlement struct {
	OrderID    string
	CaptureID  string
	PayerEmail string
	PayerName  string
	Amount     string
	Currency   string
	// Purchase is the decoded round-tripped metadata; nil when the blob was
	// absent or unparseable.
	Purchase *checkout.PurchaseRequest
}

// Outcome is the result of dispatching one event. Result is the acknowledgment
// body returned to the processor; the typed fields feed downstream effects.
type Outcome struct {
	Kind       Kind
	OrderID    string
	RefundID   string
	Reason     string
	Amount     string
	Currency   string
	Settlement *Settlement
	Result     map[string]any
}

// Dispatch routes a verified event to exactly one handler and returns the
// derived result. It is pure: no deduplication, no external state, so
// processing the same event twice produces the same outcome twice. Downstream
// consumers that attach side effects must key on Event.ID to stay idempotent
// under at-least-once delivery.
func Dispatch(evt Event) Outcome {
	var res eventResource
	if len(evt.Resource) > 0 {
		if err := json.Unmarshal(evt.Resource, &res); err != nil {
			log.Printf("[Webhook] could not parse resource for event %s (%s): %v", evt.ID, evt.EventType, err)
		}
	}

	switch evt.EventType {
	case EventOrderApproved:
		log.Printf("[Webhook] order %s approved, awaiting capture", res.ID)
		return Outcome{
			Kind:    KindApproved,
			OrderID: res.ID,
			Result:  map[string]any{"status": "order_approved", "orderId": res.ID},
		}

	case EventCaptureCompleted, EventOrderCompleted:
		return handleSettlement(res)

	case EventCaptureDenied:
		return handleDenial(res)

	case EventOrderCancelled:
		log.Printf("[Webhook] order %s cancelled", res.ID)
		return Outcome{
			Kind:    KindCancelled,
			OrderID: res.ID,
			Result:  map[string]any{"success": false, "orderId": res.ID, "status": "cancelled"},
		}

	case EventCaptureRefunded:
		return handleRefund(res)

	default:
		log.Printf("[Webhook] unhandled event type: %s", evt.EventType)
		return Outcome{
			Kind:   KindUnhandled,
			Result: map[string]any{"status": "unhandled", "eventType": evt.EventType},
		}
	}
}

func handleSettlement(res eventResource) Outcome {
	// On capture events resource.id is the capture id and the order id lives
	// in supplementary_data; both confirmation paths must key the same order,
	// so the related order id wins whenever the processor supplies it.
	orderID := res.ID
	captureID := ""
	if res.SupplementaryData != nil && res.SupplementaryData.RelatedIDs.OrderID != "" {
		orderID = res.SupplementaryData.RelatedIDs.OrderID
		captureID = res.ID
	}

	settlement := &Settlement{OrderID: orderID, CaptureID: captureID, Currency: pricing.Currency}
	if res.Payer != nil {
		settlement.PayerEmail = res.Payer.EmailAddress
		if res.Payer.Name != nil {
			settlement.PayerName = res.Payer.Name.GivenName
		}
	}

	customID := res.CustomID
	if len(res.PurchaseUnits) > 0 {
		unit := res.PurchaseUnits[0]
		if unit.CustomID != "" {
			customID = unit.CustomID
		}
		if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
			capture := unit.Payments.Captures[0]
			settlement.CaptureID = capture.ID
			if capture.Amount != nil {
				settlement.Amount = capture.Amount.Value
				settlement.Currency = capture.Amount.CurrencyCode
			}
		}
		if unit.Amount != nil {
			settlement.Amount = unit.Amount.Value
			settlement.Currency = unit.Amount.CurrencyCode
		}
	}
	if settlement.Amount == "" && res.Amount != nil {
		settlement.Amount = res.Amount.Value
		settlement.Currency = res.Amount.CurrencyCode
	}

	// Metadata corruption must never fail the whole event.
	orderDetails := map[string]any{}
	if customID != "" {
		purchase, err := checkout.DecodeMetadata(customID)
		if err != nil {
			log.Printf("[Webhook] could not parse custom_id %q: %v", customID, err)
		} else {
			settlement.Purchase = &purchase
			orderDetails = map[string]any{
				"service": purchase.Service,
				"package": purchase.Tier,
				"addons":  purchase.Addons,
			}
		}
	}

	log.Printf("[Webhook] payment capture completed: order %s, capture %s, %s %s, payer %s",
		settlement.OrderID, settlement.CaptureID, settlement.Currency, settlement.Amount, settlement.PayerEmail)

	return Outcome{
		Kind:       KindSettled,
		OrderID:    settlement.OrderID,
		Amount:     settlement.Amount,
		Currency:   settlement.Currency,
		Settlement: settlement,
		Result: map[string]any{
			"success":      true,
			"orderId":      settlement.OrderID,
			"captureId":    settlement.CaptureID,
			"payerEmail":   settlement.PayerEmail,
			"payerName":    settlement.PayerName,
			"amount":       settlement.Amount,
			"currency":     settlement.Currency,
			"orderDetails": orderDetails,
		},
	}
}

func handleDenial(res eventResource) Outcome {
	reason := res.Status
	if res.StatusDetails != nil && res.StatusDetails.Reason != "" {
		reason = res.StatusDetails.Reason
	}
	log.Printf("[Webhook] payment denied: order %s, reason %s", res.ID, reason)
	return Outcome{
		Kind:    KindDenied,
		OrderID: res.ID,
		Reason:  reason,
		Result:  map[string]any{"success": false, "orderId": res.ID, "status": "denied", "reason": reason},
	}
}

func handleRefund(res eventResource) Outcome {
	amount, currency := "", pricing.Currency
	if res.Amount != nil {
		amount = res.Amount.Value
		if res.Amount.CurrencyCode != "" {
			currency = res.Amount.CurrencyCode
		}
	}
	var orderID string
	if res.SupplementaryData != nil {
		orderID = res.SupplementaryData.RelatedIDs.OrderID
	}
	log.Printf("[Webhook] refund completed: refund %s, order %s, %s %s", res.ID, orderID, currency, amount)
	return Outcome{
		Kind:     KindRefunded,
		OrderID:  orderID,
		RefundID: res.ID,
		Amount:   amount,
		Currency: currency,
		Result:   map[string]any{"success": true, "refundId": res.ID, "amount": amount, "currency": currency},
	}
}
