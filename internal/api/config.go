package api

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shortformfactory/checkout-service/internal/pricing"
)

// RegisterConfigRoutes mounts the public client configuration endpoint.
// Only the client id is exposed; it is public by nature (the browser SDK
// embeds it in script URLs), and the response is cacheable.
func RegisterConfigRoutes(mux *http.ServeMux, clientID, mode string) {
	mux.Handle("/api/paypal/config", withCORS(otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if clientID == "" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "PayPal is not configured"})
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, map[string]any{
			"clientId": clientID,
			"mode":     mode,
			"currency": pricing.Currency,
		})
	}), "paypal-config")))
}
