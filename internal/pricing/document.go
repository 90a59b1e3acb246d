// Package pricing loads and validates the vessel pricing document that
// describes the desired catalog.
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/pkg/errors"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Document is the on-disk (YAML) and over-the-wire (JSON) pricing format
type Document struct {
	Vessels []Vessel `yaml:"vessels" json:"vessels"`
}

// Vessel is one vessel entry of a Document
type Vessel struct {
	Handle  string                `yaml:"handle" json:"handle"`
	Title   string                `yaml:"title" json:"title"`
	Enabled *bool                 `yaml:"enabled" json:"enabled"` // nil means enabled
	Remove  bool                  `yaml:"remove" json:"remove"`
	Wax     []string              `yaml:"wax" json:"wax"`
	Wick    []string              `yaml:"wick" json:"wick"`
	Prices  map[string]PriceValue `yaml:"prices" json:"prices"` // "wax/wick" -> "19.00"
}

// PriceValue holds a decimal price as written in the document. JSON accepts
// both "19.00" and 19.00.
type PriceValue string

func (p *PriceValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PriceValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*p = PriceValue(n.String())
	return nil
}

// Load reads a YAML pricing document from path and converts it into a validated config
func Load(path string) (domain.PricingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.PricingConfig{}, fmt.Errorf("read pricing file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML pricing document and converts it into a validated config
func Parse(data []byte) (domain.PricingConfig, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return domain.PricingConfig{}, fmt.Errorf("decode pricing document: %w", err)
	}
	return doc.Config()
}

// Config validates the document and converts it to a domain.PricingConfig.
// Every problem found is reported in a single *errors.ErrValidation.
func (d Document) Config() (domain.PricingConfig, error) {
	verr := &errors.ErrValidation{Message: "invalid pricing config"}
	cfg := domain.PricingConfig{Vessels: make([]domain.VesselConfig, 0, len(d.Vessels))}
	seen := make(map[string]int, len(d.Vessels))

	for i, v := range d.Vessels {
		field := fmt.Sprintf("vessels[%d]", i)
		handle := strings.TrimSpace(v.Handle)
		if handle != "" {
			field = fmt.Sprintf("vessels[%d] (%s)", i, handle)
		}

		switch {
		case handle == "":
			verr.Add(field+".handle", "required")
		case !handlePattern.MatchString(handle):
			verr.Add(field+".handle", "must be lowercase letters, digits and dashes")
		}
		if first, dup := seen[handle]; dup && handle != "" {
			verr.Add(field+".handle", fmt.Sprintf("duplicate of vessels[%d]", first))
		} else {
			seen[handle] = i
		}

		enabled := v.Enabled == nil || *v.Enabled
		if v.Remove && v.Enabled != nil && *v.Enabled {
			verr.Add(field+".remove", "cannot be set on an enabled vessel")
		}

		vc := domain.VesselConfig{
			Handle:      handle,
			Title:       strings.TrimSpace(v.Title),
			WaxOptions:  cleanOptions(verr, field+".wax", v.Wax),
			WickOptions: cleanOptions(verr, field+".wick", v.Wick),
			Prices:      make(map[domain.PriceKey]decimal.Decimal, len(v.Prices)),
			Enabled:     enabled && !v.Remove,
			Remove:      v.Remove,
		}
		if vc.Title == "" {
			vc.Title = handle
		}

		parsePrices(verr, field, v.Prices, vc)

		if vc.Enabled {
			if len(vc.WaxOptions) == 0 {
				verr.Add(field+".wax", "at least one wax option is required")
			}
			if len(vc.WickOptions) == 0 {
				verr.Add(field+".wick", "at least one wick option is required")
			}
			for _, wax := range vc.WaxOptions {
				for _, wick := range vc.WickOptions {
					key := domain.PriceKey{Wax: wax, Wick: wick}
					if _, ok := vc.Prices[key]; !ok {
						verr.Add(field+".prices", "missing price for "+key.String())
					}
				}
			}
		}

		cfg.Vessels = append(cfg.Vessels, vc)
	}

	if verr.HasProblems() {
		return domain.PricingConfig{}, verr
	}
	return cfg, nil
}

func cleanOptions(verr *errors.ErrValidation, field string, in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" {
			verr.Add(field, "empty option")
			continue
		}
		if strings.Contains(o, "/") {
			verr.Add(field, fmt.Sprintf("option %q must not contain '/'", o))
			continue
		}
		if seen[o] {
			verr.Add(field, fmt.Sprintf("duplicate option %q", o))
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

func parsePrices(verr *errors.ErrValidation, field string, in map[string]PriceValue, vc domain.VesselConfig) {
	waxes := toSet(vc.WaxOptions)
	wicks := toSet(vc.WickOptions)
	for rawKey, rawPrice := range in {
		wax, wick, ok := strings.Cut(rawKey, "/")
		wax, wick = strings.TrimSpace(wax), strings.TrimSpace(wick)
		if !ok || wax == "" || wick == "" {
			verr.Add(field+".prices", fmt.Sprintf("key %q must be wax/wick", rawKey))
			continue
		}
		if !waxes[wax] || !wicks[wick] {
			verr.Add(field+".prices", fmt.Sprintf("key %q names an unknown wax or wick", rawKey))
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(string(rawPrice)))
		if err != nil {
			verr.Add(field+".prices", fmt.Sprintf("%s: invalid price %q", rawKey, rawPrice))
			continue
		}
		if price.IsNegative() {
			verr.Add(field+".prices", fmt.Sprintf("%s: price must not be negative", rawKey))
			continue
		}
		if !price.Equal(price.Round(2)) {
			verr.Add(field+".prices", fmt.Sprintf("%s: at most two decimal places", rawKey))
			continue
		}
		vc.Prices[domain.PriceKey{Wax: wax, Wick: wick}] = price
	}
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}
