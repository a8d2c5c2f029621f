package pricing

import (
	"errors"
	"fmt"
)

// Currency is the only currency the storefront sells in.
const Currency = "USD"

var (
	ErrUnknownService = errors.New("unknown service")
	ErrUnknownTier    = errors.New("unknown tier")
)

// Base prices in cents, keyed by service then tier.
var catalog = map[string]map[string]int64{
	"aiReel":            {"basic": 3500, "standard": 5500, "premium": 8500},
	"socialEdit":        {"basic": 2500, "standard": 4500, "premium": 7000},
	"viralCaptions":     {"basic": 1500, "standard": 3000, "premium": 5000},
	"podcastRepurpose":  {"basic": 4000, "standard": 6500, "premium": 9500},
	"autoCaptions":      {"basic": 1000, "standard": 2000, "premium": 3500},
	"smartCut":          {"basic": 2000, "standard": 3500, "premium": 5500},
	"backgroundRemoval": {"basic": 2500, "standard": 4000, "premium": 6000},
	"audioSync":         {"basic": 2000, "standard": 3500, "premium": 5500},
}

var addonPrices = map[string]int64{
	"rush":            2500,
	"extraClip":       1500,
	"extraMinute":     1000,
	"premiumCaptions": 1500,
	"colorGrade":      2000,
	"advancedEffects": 2500,
	"thumbnails":      2000,
	"musicLicense":    1000,
	"sourceFiles":     1500,
}

// Quote is the computed total for a purchase selection. It is derived data;
// recompute it from the selection rather than storing it.
type Quote struct {
	AmountCents int64
	Currency    string
}

// Formatted renders the total with exactly two decimal places for the wire.
func (q Quote) Formatted() string { return FormatAmount(q.AmountCents) }

// Price computes base(service, tier) plus the price of every known add-on.
// Unknown add-on identifiers contribute zero and are dropped, never reported
// as an error; callers that need strict validation must pre-filter.
func Price(service, tier string, addons []string) (Quote, error) {
	tiers, ok := catalog[service]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	base, ok := tiers[tier]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s for service %s", ErrUnknownTier, tier, service)
	}
	total := base
	for _, addon := range addons {
		total += addonPrices[addon]
	}
	return Quote{AmountCents: total, Currency: Currency}, nil
}

// FormatAmount renders a cent amount as a two-decimal string, e.g. 3500 -> "35.00".
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
