package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortformfactory/checkout-service/internal/checkout"
	"github.com/shortformfactory/checkout-service/internal/fulfillment"
	"github.com/shortformfactory/checkout-service/internal/paypal"
)

type fakeProcessor struct {
	tokenErr   error
	createErr  error
	captureErr error
	captured   []string
}

func (f *fakeProcessor) GetAccessToken(ctx context.Context) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "test-token", nil
}

func (f *fakeProcessor) CreateOrder(ctx context.Context, token string, order paypal.OrderRequest) (*paypal.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &paypal.Order{ID: "ORDER-1", Status: "CREATED"}, nil
}

func (f *fakeProcessor) CaptureOrder(ctx context.Context, token, orderID string) (*paypal.CaptureResponse, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	f.captured = append(f.captured, orderID)
	return &paypal.CaptureResponse{
		ID:     orderID,
		Status: "COMPLETED",
		Payer:  &paypal.Payer{EmailAddress: "buyer@example.com"},
		PurchaseUnits: []paypal.PurchaseUnit{{
			Payments: &paypal.Payments{Captures: []paypal.Capture{{
				ID:     "CAP-1",
				Status: "COMPLETED",
				Amount: &paypal.Amount{CurrencyCode: "USD", Value: "60.00"},
			}}},
		}},
	}, nil
}

type fakeNotifier struct {
	settlements []fulfillment.SettlementUpdate
	outcomes    []fulfillment.OutcomeUpdate
}

func (f *fakeNotifier) RecordSettlement(req fulfillment.SettlementUpdate) error {
	f.settlements = append(f.settlements, req)
	return nil
}

func (f *fakeNotifier) RecordOutcome(req fulfillment.OutcomeUpdate) error {
	f.outcomes = append(f.outcomes, req)
	return nil
}

func newCheckoutMux(proc *fakeProcessor, notifier FulfillmentNotifier) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterCheckoutRoutes(mux, checkout.NewService(proc, ""), notifier)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateOrderSuccess(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"service":"aiReel","package":"standard","addons":["rush"]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ORDER-1", body["orderID"])
	assert.Equal(t, "CREATED", body["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateOrderInvalidSelection(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"service":"notAService","package":"basic"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderBadJSON(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderProcessorRejection(t *testing.T) {
	proc := &fakeProcessor{createErr: &paypal.RejectedError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "UNPROCESSABLE_ENTITY",
		Message: "The requested action could not be performed.",
		DebugID: "abc123",
	}}
	mux := newCheckoutMux(proc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"service":"aiReel","package":"standard"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "The requested action could not be performed.", body["error"])
	assert.Equal(t, "abc123", body["debug_id"])
}

func TestCreateOrderCredentialFailureStaysGeneric(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{tokenErr: paypal.ErrMissingCredentials}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"service":"aiReel","package":"standard"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "payment processor unavailable", body["error"])
}

func TestCreateOrderPreflight(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/create-order", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())
}

func TestCaptureOrderSuccessNotifiesFulfillment(t *testing.T) {
	proc := &fakeProcessor{}
	notifier := &fakeNotifier{}
	mux := newCheckoutMux(proc, notifier)

	req := httptest.NewRequest(http.MethodPost, "/api/capture-order", strings.NewReader(`{"orderID":"ORDER-1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "COMPLETED", body["status"])
	assert.Equal(t, "CAP-1", body["captureID"])
	assert.Equal(t, "buyer@example.com", body["payerEmail"])
	assert.Equal(t, "60.00", body["amountPaid"])

	require.Len(t, notifier.settlements, 1)
	assert.Equal(t, "ORDER-1", notifier.settlements[0].OrderID)
	assert.Equal(t, "capture", notifier.settlements[0].Source)
}

func TestCaptureOrderMissingID(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/capture-order", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaptureOrderMethodNotAllowed(t *testing.T) {
	mux := newCheckoutMux(&fakeProcessor{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/capture-order", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConfigRoute(t *testing.T) {
	mux := http.NewServeMux()
	RegisterConfigRoutes(mux, "client-abc", "sandbox")

	req := httptest.NewRequest(http.MethodGet, "/api/paypal/config", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	body := decodeBody(t, rec)
	assert.Equal(t, "client-abc", body["clientId"])
	assert.Equal(t, "sandbox", body["mode"])
	assert.Equal(t, "USD", body["currency"])
}

func TestConfigRouteUnconfigured(t *testing.T) {
	mux := http.NewServeMux()
	RegisterConfigRoutes(mux, "", "sandbox")

	req := httptest.NewRequest(http.MethodGet, "/api/paypal/config", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
