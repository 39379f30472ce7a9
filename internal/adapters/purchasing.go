package adapters

import (
	"context"

	purchasingsvc "production_backend/internal/purchasing/service"

	"github.com/google/uuid"
)

// PurchasingCatalog resolves suppliers and materials for purchase orders.
type PurchasingCatalog struct {
	catalog catalogSource
}

func NewPurchasingCatalog(catalog catalogSource) *PurchasingCatalog {
	return &PurchasingCatalog{catalog: catalog}
}

func (a *PurchasingCatalog) Supplier(ctx context.Context, id uuid.UUID) (purchasingsvc.Supplier, error) {
	s, err := a.catalog.LookupSupplier(ctx, id)
	if err != nil {
		return purchasingsvc.Supplier{}, err
	}
	return purchasingsvc.Supplier{ID: s.ID, TenantID: s.TenantID}, nil
}

func (a *PurchasingCatalog) Material(ctx context.Context, id uuid.UUID) (purchasingsvc.Material, error) {
	m, err := a.catalog.LookupMaterial(ctx, id)
	if err != nil {
		return purchasingsvc.Material{}, err
	}
	return purchasingsvc.Material{
		ID:            m.ID,
		TenantID:      m.TenantID,
		SupplierID:    m.SupplierID,
		Name:          m.Name,
		UnitCostCents: m.UnitCostCents,
	}, nil
}

var _ purchasingsvc.Catalog = (*PurchasingCatalog)(nil)
