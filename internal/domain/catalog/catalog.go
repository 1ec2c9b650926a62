// Package catalog defines the boundary to the product/location catalog.
// The catalog itself is owned by another service; reconciliation only
// consumes these lookups and never writes through them.
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRef is the slice of product identity the invoicing domain needs
type ProductRef struct {
	ID   uuid.UUID
	Name string
	Unit string
}

// LocationRef identifies a stock location within a tenant
type LocationRef struct {
	ID        uuid.UUID
	Name      string
	IsDefault bool
}

// ProductResolver resolves product identity for invoice lines
type ProductResolver interface {
	// ResolveProduct returns the product reference for the given product ID
	// within a tenant. Returns shared.ErrNotFound when the product is unknown.
	ResolveProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductRef, error)
}

// LocationResolver resolves a tenant's stock locations
type LocationResolver interface {
	// DefaultLocation returns the tenant's default location, or nil when the
	// tenant has no default location configured. A missing default location
	// is not an error: inventory rows are created with a null location.
	DefaultLocation(ctx context.Context, tenantID uuid.UUID) (*LocationRef, error)
}
