package fulfillment

import (
	"context"
	"log"
	"strings"

	restate "github.com/restatedev/sdk-go"

	"github.com/shortformfactory/checkout-service/internal/events"
)

// Order statuses, ordered as a lattice. Updates merge highest-wins; stale or
// duplicate reports are ignored rather than overwriting newer state.
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCaptured  = "CAPTURED"
	StatusDenied    = "DENIED"
	StatusCancelled = "CANCELLED"
	StatusRefunded  = "REFUNDED"
)

func rank(status string) int {
	switch status {
	case StatusCreated:
		return 1
	case StatusApproved:
		return 2
	case StatusCaptured, StatusDenied, StatusCancelled:
		return 3
	case StatusRefunded:
		return 4
	default:
		return 0
	}
}

var (
	producer        *events.Producer
	settlementTopic string
)

// SetProducer wires the kafka producer used for the one-time unlock event.
// Nil is fine; the unlock is then log-only.
func SetProducer(p *events.Producer, topic string) {
	producer = p
	settlementTopic = topic
}

// SettlementUpdate reports a completed capture from either confirmation path.
type SettlementUpdate struct {
	OrderID    string `json:"order_id"`
	CaptureID  string `json:"capture_id,omitempty"`
	PayerEmail string `json:"payer_email,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Source     string `json:"source"` // "capture" or "webhook"
}

// OutcomeUpdate reports a non-settlement terminal outcome.
type OutcomeUpdate struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // DENIED, CANCELLED or REFUNDED
	Reason  string `json:"reason,omitempty"`
}

// UpdateResponse tells the caller whether the update advanced the lattice.
type UpdateResponse struct {
	Applied bool   `json:"applied"`
	Status  string `json:"status"`
}

// GetStatusRequest is empty; the object key names the order.
type GetStatusRequest struct{}

// StatusView is the object's current view of the order.
type StatusView struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	CaptureID string `json:"capture_id,omitempty"`
	Unlocked  bool   `json:"unlocked"`
}

// RecordSettlement merges a "captured" report into the object keyed by order
// id. The synchronous capture response and the asynchronous webhook race here
// by design; whichever arrives second is stale and ignored, and the intake
// unlock runs exactly once per order no matter how many reports arrive.
func RecordSettlement(ctx restate.ObjectContext, req *SettlementUpdate) (*UpdateResponse, error) {
	orderID := restate.Key(ctx)
	current, _ := restate.Get[string](ctx, "status")

	if rank(StatusCaptured) <= rank(current) {
		log.Printf("[Fulfillment %s] settlement report from %s is stale (status=%s)", orderID, req.Source, current)
		return &UpdateResponse{Applied: false, Status: current}, nil
	}

	restate.Set(ctx, "status", StatusCaptured)
	if req.CaptureID != "" {
		restate.Set(ctx, "capture_id", req.CaptureID)
	}
	if req.PayerEmail != "" {
		restate.Set(ctx, "payer_email", req.PayerEmail)
	}
	log.Printf("[Fulfillment %s] settled via %s: capture %s, %s %s", orderID, req.Source, req.CaptureID, req.Currency, req.Amount)

	unlocked, _ := restate.Get[bool](ctx, "unlocked")
	if !unlocked {
		_, err := restate.Run(ctx, func(rc restate.RunContext) (any, error) {
			return nil, publishUnlock(orderID, req)
		})
		if err != nil {
			return nil, err
		}
		restate.Set(ctx, "unlocked", true)
		log.Printf("[Fulfillment %s] intake unlocked", orderID)
	}

	return &UpdateResponse{Applied: true, Status: StatusCaptured}, nil
}

// RecordOutcome merges a denial, cancellation or refund report. Refunds are
// only terminal after a capture; a refund report for an uncaptured order is
// stale noise from reordering and is dropped.
func RecordOutcome(ctx restate.ObjectContext, req *OutcomeUpdate) (*UpdateResponse, error) {
	orderID := restate.Key(ctx)
	current, _ := restate.Get[string](ctx, "status")
	next := strings.ToUpper(req.Status)

	if next == StatusRefunded {
		if current != StatusCaptured {
			log.Printf("[Fulfillment %s] refund report ignored (status=%s)", orderID, current)
			return &UpdateResponse{Applied: false, Status: current}, nil
		}
	} else if rank(next) <= rank(current) {
		log.Printf("[Fulfillment %s] outcome %s is stale (status=%s)", orderID, next, current)
		return &UpdateResponse{Applied: false, Status: current}, nil
	}

	restate.Set(ctx, "status", next)
	if req.Reason != "" {
		restate.Set(ctx, "reason", req.Reason)
	}
	log.Printf("[Fulfillment %s] outcome recorded: %s (reason=%s)", orderID, next, req.Reason)
	return &UpdateResponse{Applied: true, Status: next}, nil
}

// GetStatus is a shared (read-only) handler returning the object's view.
func GetStatus(ctx restate.ObjectSharedContext, _ *GetStatusRequest) (*StatusView, error) {
	orderID := restate.Key(ctx)
	status, _ := restate.Get[string](ctx, "status")
	captureID, _ := restate.Get[string](ctx, "capture_id")
	unlocked, _ := restate.Get[bool](ctx, "unlocked")
	if status == "" {
		status = StatusCreated
	}
	return &StatusView{OrderID: orderID, Status: status, CaptureID: captureID, Unlocked: unlocked}, nil
}

func publishUnlock(orderID string, req *SettlementUpdate) error {
	if producer == nil {
		log.Printf("[Fulfillment %s] no producer configured, unlock is log-only", orderID)
		return nil
	}
	evt := events.Envelope{
		EventType:    events.TypeIntakeUnlocked,
		EventVersion: "v1",
		AggregateID:  orderID,
		Data: map[string]any{
			"orderId":    orderID,
			"captureId":  req.CaptureID,
			"payerEmail": req.PayerEmail,
			"amount":     req.Amount,
			"currency":   req.Currency,
			"source":     req.Source,
		},
	}
	return producer.Publish(context.Background(), settlementTopic, orderID, evt)
}
