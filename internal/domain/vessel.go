package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceKey identifies one wax/wick combination of a vessel
type PriceKey struct {
	Wax  string
	Wick string
}

// String renders the key the way pricing files write it ("soy/wood")
func (k PriceKey) String() string {
	return k.Wax + "/" + k.Wick
}

// PricingConfig is the desired state of the vessel catalog. Order matters: it
// drives the order vessels are created and updated in.
type PricingConfig struct {
	Vessels []VesselConfig
}

// VesselConfig describes one candle vessel family
type VesselConfig struct {
	Handle      string
	Title       string
	WaxOptions  []string
	WickOptions []string
	Prices      map[PriceKey]decimal.Decimal
	Enabled     bool
	// Remove marks the vessel for permanent deletion. It only takes effect
	// when the handle is also confirmed by the caller for the run.
	Remove bool
}

// DesiredVariant is one variant a vessel should carry in the commerce backend
type DesiredVariant struct {
	SKU   string
	Wax   string
	Wick  string
	Price string // two decimal places, e.g. "19.00"
}

// Variants expands the vessel's wax × wick options, in config order, into the
// variants it should have. Combinations without a price are skipped.
func (v VesselConfig) Variants() []DesiredVariant {
	out := make([]DesiredVariant, 0, len(v.WaxOptions)*len(v.WickOptions))
	for _, wax := range v.WaxOptions {
		for _, wick := range v.WickOptions {
			price, ok := v.Prices[PriceKey{Wax: wax, Wick: wick}]
			if !ok {
				continue
			}
			out = append(out, DesiredVariant{
				SKU:   VariantSKU(v.Handle, wax, wick),
				Wax:   wax,
				Wick:  wick,
				Price: price.StringFixed(2),
			})
		}
	}
	return out
}

// Desired reports whether the vessel belongs to the desired catalog: enabled,
// not marked for removal and with at least one priced variant.
func (v VesselConfig) Desired() bool {
	return v.Enabled && !v.Remove && len(v.Variants()) > 0
}

// Find returns the vessel with the given handle
func (c PricingConfig) Find(handle string) (VesselConfig, bool) {
	for _, v := range c.Vessels {
		if v.Handle == handle {
			return v, true
		}
	}
	return VesselConfig{}, false
}

// VariantSKU builds the stable SKU for a vessel variant: HANDLE-WAX-WICK
func VariantSKU(handle, wax, wick string) string {
	parts := []string{handle, wax, wick}
	for i, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		parts[i] = strings.Join(strings.Fields(p), "-")
	}
	return strings.Join(parts, "-")
}

// RemoteProduct is a read-only snapshot of one vessel product in the commerce backend
type RemoteProduct struct {
	ID       string          `json:"id"`
	Handle   string          `json:"handle"`
	Title    string          `json:"title"`
	Enabled  bool            `json:"enabled"`
	Variants []RemoteVariant `json:"variants"`
}

// RemoteVariant is one variant of a RemoteProduct
type RemoteVariant struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Wax   string `json:"wax"`
	Wick  string `json:"wick"`
	Price string `json:"price"`
}
