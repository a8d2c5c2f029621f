package webhook

import (
	"context"
	"log"
	"net/http"

	"github.com/shortformfactory/checkout-service/internal/paypal"
)

// SignatureChecker is the slice of the paypal client the verifier uses.
type SignatureChecker interface {
	GetAccessToken(ctx context.Context) (string, error)
	VerifyWebhookSignature(ctx context.Context, token, webhookID string, hdr paypal.SignatureHeaders, rawEvent []byte) (bool, error)
}

// Verifier confirms that an inbound event genuinely originated from the
// processor. With no webhook id configured it passes everything and logs a
// warning on each call — an explicit development fallback, unsafe for
// production. Once configured it fails closed: any verification outcome other
// than an explicit processor SUCCESS rejects the event.
type Verifier struct {
	processor SignatureChecker
	webhookID string
}

func NewVerifier(processor SignatureChecker, webhookID string) *Verifier {
	return &Verifier{processor: processor, webhookID: webhookID}
}

func (v *Verifier) Verify(ctx context.Context, headers http.Header, rawEvent []byte) bool {
	if v.webhookID == "" {
		log.Printf("[Webhook] WARNING: webhook id not set - skipping signature verification (INSECURE for production!)")
		return true
	}

	token, err := v.processor.GetAccessToken(ctx)
	if err != nil {
		log.Printf("[Webhook] verification token fetch failed: %v", err)
		return false
	}

	hdr := paypal.SignatureHeaders{
		AuthAlgo:         headers.Get("Paypal-Auth-Algo"),
		CertURL:          headers.Get("Paypal-Cert-Url"),
		TransmissionID:   headers.Get("Paypal-Transmission-Id"),
		TransmissionSig:  headers.Get("Paypal-Transmission-Sig"),
		TransmissionTime: headers.Get("Paypal-Transmission-Time"),
	}

	ok, err := v.processor.VerifyWebhookSignature(ctx, token, v.webhookID, hdr, rawEvent)
	if err != nil {
		log.Printf("[Webhook] signature verification failed: %v", err)
		return false
	}
	return ok
}
