// Package deploy reconciles the vessel pricing config against the commerce
// backend: it computes a diff, applies it and tracks the run.
package deploy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// DiffOptions carries caller-supplied signals that are not part of the config
type DiffOptions struct {
	// ConfirmDelete lists handles the operator confirmed for permanent
	// deletion in this run. A handle is only deleted when it is listed here
	// and marked remove in the config.
	ConfirmDelete []string
}

// ComputeDiff computes the operations needed to move actual towards desired.
// It is pure: no I/O, inputs are not modified and the output is deterministic.
func ComputeDiff(desired domain.PricingConfig, actual []domain.RemoteProduct, opts DiffOptions) domain.DeploymentDiff {
	actualByHandle := make(map[string]domain.RemoteProduct, len(actual))
	shadowed := make(map[string][]string)
	for _, p := range actual {
		if _, dup := actualByHandle[p.Handle]; dup {
			shadowed[p.Handle] = append(shadowed[p.Handle], p.ID)
			continue
		}
		actualByHandle[p.Handle] = p
	}

	confirmed := make(map[string]bool, len(opts.ConfirmDelete))
	for _, h := range opts.ConfirmDelete {
		confirmed[strings.TrimSpace(h)] = true
	}

	diff := domain.DeploymentDiff{
		ToCreate:  []string{},
		ToUpdate:  []string{},
		ToDisable: []string{},
		ToDelete:  []string{},
	}
	wanted := make(map[string]bool, len(desired.Vessels))

	for _, v := range desired.Vessels {
		if !v.Desired() || wanted[v.Handle] {
			continue
		}
		wanted[v.Handle] = true

		remote, ok := actualByHandle[v.Handle]
		if !ok {
			diff.ToCreate = append(diff.ToCreate, v.Handle)
			continue
		}
		if !remote.Enabled || !sameVariants(v.Variants(), remote.Variants) {
			diff.ToUpdate = append(diff.ToUpdate, v.Handle)
		}
	}

	for handle, remote := range actualByHandle {
		if wanted[handle] {
			continue
		}
		cfg, inConfig := desired.Find(handle)
		switch {
		case inConfig && cfg.Remove && confirmed[handle]:
			diff.ToDelete = append(diff.ToDelete, handle)
		case remote.Enabled:
			diff.ToDisable = append(diff.ToDisable, handle)
		}
	}
	sort.Strings(diff.ToDisable)
	sort.Strings(diff.ToDelete)

	diff.Summary = domain.Summarize(len(diff.ToCreate), len(diff.ToUpdate), len(diff.ToDisable), len(diff.ToDelete))
	diff.Warnings = duplicateWarnings(actualByHandle, shadowed)
	return diff
}

// duplicateWarnings reports every handle carried by more than one remote
// product. Only the first product listed for a handle is reconciled.
func duplicateWarnings(kept map[string]domain.RemoteProduct, shadowed map[string][]string) []string {
	if len(shadowed) == 0 {
		return nil
	}
	handles := make([]string, 0, len(shadowed))
	for h := range shadowed {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	out := make([]string, 0, len(handles))
	for _, h := range handles {
		out = append(out, fmt.Sprintf("handle %s is shared by %s and %s; only %s is reconciled",
			h, kept[h].ID, strings.Join(shadowed[h], ", "), kept[h].ID))
	}
	return out
}

type variantKey struct {
	sku, wax, wick, price string
}

// sameVariants compares the full variant sets independent of order
func sameVariants(want []domain.DesiredVariant, have []domain.RemoteVariant) bool {
	if len(want) != len(have) {
		return false
	}
	a := make([]variantKey, 0, len(want))
	for _, v := range want {
		a = append(a, variantKey{v.SKU, v.Wax, v.Wick, normalizePrice(v.Price)})
	}
	b := make([]variantKey, 0, len(have))
	for _, v := range have {
		b = append(b, variantKey{v.SKU, v.Wax, v.Wick, normalizePrice(v.Price)})
	}
	sortVariantKeys(a)
	sortVariantKeys(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortVariantKeys(keys []variantKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sku != keys[j].sku {
			return keys[i].sku < keys[j].sku
		}
		if keys[i].wax != keys[j].wax {
			return keys[i].wax < keys[j].wax
		}
		if keys[i].wick != keys[j].wick {
			return keys[i].wick < keys[j].wick
		}
		return keys[i].price < keys[j].price
	})
}

// normalizePrice renders prices with two decimals so "18", "18.0" and "18.00" compare equal
func normalizePrice(p string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(p))
	if err != nil {
		return p
	}
	return d.StringFixed(2)
}
