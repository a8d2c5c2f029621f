package fulfillment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier forwards confirmation facts to the FulfillmentService object via
// the Restate runtime's HTTP ingress. Callers treat failures as best-effort:
// the webhook path re-delivers, and the object's merge drops duplicates.
type Notifier struct {
	runtimeURL string
	http       *http.Client
}

func NewNotifier(runtimeURL string) *Notifier {
	return &Notifier{
		runtimeURL: runtimeURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// RecordSettlement posts a captured report for the order.
func (n *Notifier) RecordSettlement(req SettlementUpdate) error {
	if req.OrderID == "" {
		return fmt.Errorf("missing order id")
	}
	url := fmt.Sprintf("%s/checkout.sv1.FulfillmentService/%s/RecordSettlement", n.runtimeURL, req.OrderID)
	return n.post(url, req)
}

// RecordOutcome posts a denial, cancellation or refund report for the order.
func (n *Notifier) RecordOutcome(req OutcomeUpdate) error {
	if req.OrderID == "" {
		return fmt.Errorf("missing order id")
	}
	url := fmt.Sprintf("%s/checkout.sv1.FulfillmentService/%s/RecordOutcome", n.runtimeURL, req.OrderID)
	return n.post(url, req)
}

func (n *Notifier) post(url string, body any) error {
	b, _ := json.Marshal(body)
	resp, err := n.http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
