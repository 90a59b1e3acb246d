package deploy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// fakeCatalog is an in-memory commerce backend. It records every call and can
// be told to fail specific operations.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.RemoteProduct // by handle
	nextID   int
	calls    []string
	failOn   map[string]error // "create:handle" -> error
	listErr  error
	onCall   func(call string)
	extra    []domain.RemoteProduct // listed after products, may repeat a handle
}

func newFakeCatalog(products ...domain.RemoteProduct) *fakeCatalog {
	f := &fakeCatalog{products: make(map[string]domain.RemoteProduct), failOn: make(map[string]error)}
	for _, p := range products {
		f.products[p.Handle] = p
	}
	return f
}

func (f *fakeCatalog) record(call string) error {
	f.calls = append(f.calls, call)
	if f.onCall != nil {
		f.onCall(call)
	}
	return f.failOn[call]
}

func (f *fakeCatalog) ListVessels(ctx context.Context) ([]domain.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.RemoteProduct, 0, len(f.products))
	for _, p := range f.products {
		p.Variants = append([]domain.RemoteVariant(nil), p.Variants...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	out = append(out, f.extra...)
	return out, nil
}

func toRemoteVariants(productID string, variants []domain.DesiredVariant) []domain.RemoteVariant {
	out := make([]domain.RemoteVariant, 0, len(variants))
	for i, v := range variants {
		out = append(out, domain.RemoteVariant{
			ID: fmt.Sprintf("%s/v%d", productID, i), SKU: v.SKU, Wax: v.Wax, Wick: v.Wick, Price: v.Price,
		})
	}
	return out
}

func (f *fakeCatalog) CreateVessel(ctx context.Context, vessel domain.VesselConfig, variants []domain.DesiredVariant) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create:" + vessel.Handle); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("gid://shopify/Product/%d", f.nextID)
	f.products[vessel.Handle] = domain.RemoteProduct{
		ID: id, Handle: vessel.Handle, Title: vessel.Title, Enabled: true,
		Variants: toRemoteVariants(id, variants),
	}
	return id, nil
}

func (f *fakeCatalog) UpdateVessel(ctx context.Context, current domain.RemoteProduct, vessel domain.VesselConfig, variants []domain.DesiredVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update:" + vessel.Handle); err != nil {
		return err
	}
	p := f.products[vessel.Handle]
	p.Enabled = true
	p.Title = vessel.Title
	p.Variants = toRemoteVariants(p.ID, variants)
	f.products[vessel.Handle] = p
	return nil
}

func (f *fakeCatalog) handleFor(productID string) string {
	for h, p := range f.products {
		if p.ID == productID {
			return h
		}
	}
	return ""
}

func (f *fakeCatalog) SetVesselEnabled(ctx context.Context, productID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.handleFor(productID)
	op := "disable:"
	if enabled {
		op = "enable:"
	}
	if err := f.record(op + h); err != nil {
		return err
	}
	p := f.products[h]
	p.Enabled = enabled
	f.products[h] = p
	return nil
}

func (f *fakeCatalog) DeleteVessel(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.handleFor(productID)
	if err := f.record("delete:" + h); err != nil {
		return err
	}
	delete(f.products, h)
	return nil
}

func (f *fakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
