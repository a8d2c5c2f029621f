package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shortformfactory/checkout-service/internal/paypal"
	"github.com/shortformfactory/checkout-service/internal/pricing"
)

const (
	brandName     = "ShortFormFactory"
	defaultOrigin = "https://shortformfactory.com"
)

// ErrInvalidRequest marks client-supplied data that fails local validation.
var ErrInvalidRequest = errors.New("invalid request")

// Processor is the slice of the paypal client the checkout services use.
type Processor interface {
	GetAccessToken(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, token string, order paypal.OrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, token, orderID string) (*paypal.CaptureResponse, error)
}

// Service prices purchase requests and drives the order lifecycle against the
// processor. It holds no per-order state; the processor is the source of truth.
type Service struct {
	processor  Processor
	siteOrigin string // configured override for redirect targets, may be empty
}

func NewService(processor Processor, siteOrigin string) *Service {
	return &Service{processor: processor, siteOrigin: siteOrigin}
}

// CreateResult is what the storefront needs to hand the buyer to the
// processor's approval flow.
type CreateResult struct {
	OrderID string
	Status  string
}

// CaptureResult is the synchronous settlement confirmation. The buyer's
// session learns "paid" from this alone, before any webhook arrives.
type CaptureResult struct {
	Status     string
	OrderID    string
	CaptureID  string
	PayerEmail string
	AmountPaid string
	Currency   string
}

// returnOrigin picks the redirect origin: configured site origin, then the
// request's own Origin header, then the production default.
func (s *Service) returnOrigin(requestOrigin string) string {
	if s.siteOrigin != "" {
		return s.siteOrigin
	}
	if requestOrigin != "" {
		return requestOrigin
	}
	return defaultOrigin
}

// CreateOrder validates and prices the selection, then registers an order with
// the processor. The full selection rides along as opaque metadata.
func (s *Service) CreateOrder(ctx context.Context, req PurchaseRequest, requestOrigin string) (*CreateResult, error) {
	if req.Service == "" || req.Tier == "" {
		return nil, fmt.Errorf("%w: missing service or package", ErrInvalidRequest)
	}

	quote, err := pricing.Price(req.Service, req.Tier, req.Addons)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	token, err := s.processor.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	origin := s.returnOrigin(requestOrigin)
	order, err := s.processor.CreateOrder(ctx, token, paypal.OrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount:      &paypal.Amount{CurrencyCode: quote.Currency, Value: quote.Formatted()},
			Description: fmt.Sprintf("%s - %s (%s)", brandName, req.Service, req.Tier),
			CustomID:    EncodeMetadata(req),
		}},
		ApplicationContext: paypal.ApplicationContext{
			BrandName:   brandName,
			LandingPage: "NO_PREFERENCE",
			UserAction:  "PAY_NOW",
			ReturnURL:   origin + "/thank-you.html",
			CancelURL:   origin + "/order.html",
		},
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Checkout] created order %s (%s %s) for %s/%s", order.ID, quote.Currency, quote.Formatted(), req.Service, req.Tier)
	return &CreateResult{OrderID: order.ID, Status: order.Status}, nil
}

// CaptureOrder finalizes a buyer-approved order. Optional nested fields in the
// processor response (payer email, capture id, amount) are best-effort
// enrichment and default to empty when absent.
func (s *Service) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing orderID", ErrInvalidRequest)
	}

	token, err := s.processor.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	resp, err := s.processor.CaptureOrder(ctx, token, orderID)
	if err != nil {
		return nil, err
	}

	result := &CaptureResult{Status: resp.Status, OrderID: orderID, Currency: pricing.Currency}
	if resp.Payer != nil {
		result.PayerEmail = resp.Payer.EmailAddress
	}
	if len(resp.PurchaseUnits) > 0 && resp.PurchaseUnits[0].Payments != nil {
		if captures := resp.PurchaseUnits[0].Payments.Captures; len(captures) > 0 {
			result.CaptureID = captures[0].ID
			if captures[0].Amount != nil {
				result.AmountPaid = captures[0].Amount.Value
				result.Currency = captures[0].Amount.CurrencyCode
			}
		}
	}

	log.Printf("[Checkout] payment captured: order %s, capture %s, amount $%s, payer %s",
		result.OrderID, result.CaptureID, result.AmountPaid, result.PayerEmail)
	return result, nil
}
