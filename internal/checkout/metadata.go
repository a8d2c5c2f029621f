package checkout

import "encoding/json"

// PurchaseRequest is the buyer's selection. The tier travels as "package" on
// the wire for compatibility with the storefront form.
type PurchaseRequest struct {
	Service string   `json:"service"`
	Tier    string   `json:"package"`
	Addons  []string `json:"addons"`
}

// EncodeMetadata serializes a purchase selection into the opaque custom_id
// blob that rides on the processor order, so later confirmation steps can
// recover it without a local database.
func EncodeMetadata(req PurchaseRequest) string {
	if req.Addons == nil {
		req.Addons = []string{}
	}
	b, _ := json.Marshal(req)
	return string(b)
}

// DecodeMetadata parses a round-tripped custom_id blob back into a purchase
// selection. The blob crossed the processor unvalidated, so failures are
// expected and left to the caller to swallow.
func DecodeMetadata(raw string) (PurchaseRequest, error) {
	var req PurchaseRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return PurchaseRequest{}, err
	}
	return req, nil
}
