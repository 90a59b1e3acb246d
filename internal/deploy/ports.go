package deploy

import (
	"context"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// CatalogReader reads the current vessel products from the commerce backend
type CatalogReader interface {
	ListVessels(ctx context.Context) ([]domain.RemoteProduct, error)
}

// CatalogWriter issues vessel mutations against the commerce backend.
// Implementations must not retry; a failed call is reported as an error.
type CatalogWriter interface {
	// CreateVessel creates an enabled product with the given variants and returns its id
	CreateVessel(ctx context.Context, vessel domain.VesselConfig, variants []domain.DesiredVariant) (string, error)
	// UpdateVessel replaces the product's variants and marks it enabled
	UpdateVessel(ctx context.Context, current domain.RemoteProduct, vessel domain.VesselConfig, variants []domain.DesiredVariant) error
	// SetVesselEnabled flips the reversible enabled flag without deleting the product
	SetVesselEnabled(ctx context.Context, productID string, enabled bool) error
	// DeleteVessel permanently removes the product
	DeleteVessel(ctx context.Context, productID string) error
}

// Catalog is the full commerce capability a deployment needs
type Catalog interface {
	CatalogReader
	CatalogWriter
}

// ProgressFunc receives progress events synchronously, in operation order
type ProgressFunc func(domain.DeploymentProgress)
