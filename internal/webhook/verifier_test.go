package webhook

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shortformfactory/checkout-service/internal/paypal"
)

type fakeChecker struct {
	tokenErr   error
	tokenCalls int
	verifyOK   bool
	verifyErr  error
	gotHeaders paypal.SignatureHeaders
	gotWebhook string
}

func (f *fakeChecker) GetAccessToken(ctx context.Context) (string, error) {
	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok", nil
}

func (f *fakeChecker) VerifyWebhookSignature(ctx context.Context, token, webhookID string, hdr paypal.SignatureHeaders, rawEvent []byte) (bool, error) {
	f.gotHeaders = hdr
	f.gotWebhook = webhookID
	return f.verifyOK, f.verifyErr
}

func TestVerifyUnconfiguredPassesEverything(t *testing.T) {
	checker := &fakeChecker{}
	v := NewVerifier(checker, "")

	h := http.Header{}
	h.Set("X-Garbage", "whatever")
	ok := v.Verify(context.Background(), h, []byte("not even json"))
	assert.True(t, ok, "unconfigured verifier is a documented insecure pass-through")
	assert.Zero(t, checker.tokenCalls, "no processor contact without a webhook id")
}

func TestVerifyConfiguredSuccess(t *testing.T) {
	checker := &fakeChecker{verifyOK: true}
	v := NewVerifier(checker, "WH-42")

	h := http.Header{}
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	h.Set("Paypal-Cert-Url", "https://api.paypal.com/cert")
	h.Set("Paypal-Transmission-Id", "tid")
	h.Set("Paypal-Transmission-Sig", "sig")
	h.Set("Paypal-Transmission-Time", "2026-01-01T00:00:00Z")

	assert.True(t, v.Verify(context.Background(), h, []byte(`{}`)))
	assert.Equal(t, "WH-42", checker.gotWebhook)
	assert.Equal(t, "SHA256withRSA", checker.gotHeaders.AuthAlgo)
	assert.Equal(t, "tid", checker.gotHeaders.TransmissionID)
}

func TestVerifyConfiguredNonSuccessFailsClosed(t *testing.T) {
	v := NewVerifier(&fakeChecker{verifyOK: false}, "WH-42")
	assert.False(t, v.Verify(context.Background(), http.Header{}, []byte(`{}`)))
}

func TestVerifyConfiguredTransportErrorFailsClosed(t *testing.T) {
	v := NewVerifier(&fakeChecker{verifyErr: errors.New("boom")}, "WH-42")
	assert.False(t, v.Verify(context.Background(), http.Header{}, []byte(`{}`)))
}

func TestVerifyConfiguredTokenFailureFailsClosed(t *testing.T) {
	v := NewVerifier(&fakeChecker{tokenErr: paypal.ErrMissingCredentials}, "WH-42")
	assert.False(t, v.Verify(context.Background(), http.Header{}, []byte(`{}`)))
}
