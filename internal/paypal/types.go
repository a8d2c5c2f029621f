package paypal

// Wire types for the subset of the processor's Orders v2 and Notifications v1
// APIs this service touches. Unknown fields are ignored on decode.

// Amount is a currency-tagged decimal string, e.g. {"USD", "35.00"}.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// PurchaseUnit is a single line of an order. CustomID round-trips opaque
// purchase metadata through the processor.
type PurchaseUnit struct {
	Amount      *Amount   `json:"amount,omitempty"`
	Description string    `json:"description,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

// ApplicationContext controls the buyer-facing approval flow.
type ApplicationContext struct {
	BrandName   string `json:"brand_name,omitempty"`
	LandingPage string `json:"landing_page,omitempty"`
	UserAction  string `json:"user_action,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

// OrderRequest registers a new order with the processor.
type OrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []PurchaseUnit     `json:"purchase_units"`
	ApplicationContext ApplicationContext `json:"application_context"`
}

// Order is the processor's view of a registered order.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Payer identifies the buyer once they have approved the order.
type Payer struct {
	EmailAddress string     `json:"email_address"`
	Name         *PayerName `json:"name,omitempty"`
}

type PayerName struct {
	GivenName string `json:"given_name"`
}

// Payments nests the captures made against a purchase unit.
type Payments struct {
	Captures []Capture `json:"captures"`
}

// Capture is a settled collection of previously authorized funds.
type Capture struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount *Amount `json:"amount,omitempty"`
}

// CaptureResponse is the processor's reply to a capture action.
type CaptureResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         *Payer         `json:"payer,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// SignatureHeaders carries the five transport headers the processor signs
// webhook deliveries with.
type SignatureHeaders struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}
