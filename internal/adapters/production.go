package adapters

import (
	"context"

	workforcerepo "production_backend/internal/workforce/repository"
	workordersvc "production_backend/internal/workorders/service"

	"github.com/google/uuid"
)

func (a *DesignJobsForProduction) DesignJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]workordersvc.DesignJob, error) {
	jobs, err := a.jobs.JobsByID(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]workordersvc.DesignJob, len(jobs))
	for _, j := range jobs {
		if j.TenantID != tenantID {
			continue
		}
		out[j.ID] = workordersvc.DesignJob{
			ID:                  j.ID,
			OrderItemID:         j.OrderItemID,
			OrderID:             j.OrderID,
			Status:              j.Status,
			RequiredSpecialties: j.RequiredSpecialties,
			Quantity:            j.Quantity,
		}
	}
	return out, nil
}

type manufacturerSource interface {
	Manufacturers(ctx context.Context, tenantID uuid.UUID) ([]workforcerepo.Manufacturer, error)
}

// ManufacturerDirectory feeds workforce manufacturers to work order assignment.
type ManufacturerDirectory struct {
	workforce manufacturerSource
}

func NewManufacturerDirectory(workforce manufacturerSource) *ManufacturerDirectory {
	return &ManufacturerDirectory{workforce: workforce}
}

func (a *ManufacturerDirectory) Manufacturers(ctx context.Context, tenantID uuid.UUID) ([]workordersvc.Manufacturer, error) {
	list, err := a.workforce.Manufacturers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]workordersvc.Manufacturer, 0, len(list))
	for _, m := range list {
		out = append(out, workordersvc.Manufacturer{
			ID:               m.ID,
			Active:           m.Active,
			Capabilities:     m.Capabilities,
			Capacity:         m.Capacity,
			MinOrderQuantity: m.MinOrderQuantity,
			OpenWorkOrders:   m.OpenWorkOrders,
		})
	}
	return out, nil
}

type catalogSource interface {
	LookupSupplier(ctx context.Context, id uuid.UUID) (*workforcerepo.Supplier, error)
	LookupMaterial(ctx context.Context, id uuid.UUID) (*workforcerepo.Material, error)
}

// WorkOrderMaterials resolves materials consumed by work orders.
type WorkOrderMaterials struct {
	catalog catalogSource
}

func NewWorkOrderMaterials(catalog catalogSource) *WorkOrderMaterials {
	return &WorkOrderMaterials{catalog: catalog}
}

func (a *WorkOrderMaterials) Material(ctx context.Context, id uuid.UUID) (workordersvc.Material, error) {
	m, err := a.catalog.LookupMaterial(ctx, id)
	if err != nil {
		return workordersvc.Material{}, err
	}
	return workordersvc.Material{
		ID:            m.ID,
		TenantID:      m.TenantID,
		SupplierID:    m.SupplierID,
		UnitCostCents: m.UnitCostCents,
	}, nil
}

var (
	_ workordersvc.DesignJobReader       = (*DesignJobsForProduction)(nil)
	_ workordersvc.ManufacturerDirectory = (*ManufacturerDirectory)(nil)
	_ workordersvc.MaterialCatalog       = (*WorkOrderMaterials)(nil)
)
