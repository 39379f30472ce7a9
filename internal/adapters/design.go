// Package adapters connects module ports to the modules that own the data.
// Each adapter narrows a provider to exactly what its consumer needs.
package adapters

import (
	"context"

	designrepo "production_backend/internal/designjobs/repository"
	designsvc "production_backend/internal/designjobs/service"
	orderrepo "production_backend/internal/orders/repository"
	workforcerepo "production_backend/internal/workforce/repository"

	"github.com/google/uuid"
)

type orderItemSource interface {
	ItemsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]orderrepo.OrderItem, error)
}

// OrderItemsForDesign lets design jobs read order items.
type OrderItemsForDesign struct {
	orders orderItemSource
}

func NewOrderItemsForDesign(orders orderItemSource) *OrderItemsForDesign {
	return &OrderItemsForDesign{orders: orders}
}

func (a *OrderItemsForDesign) ItemsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]designsvc.OrderItem, error) {
	items, err := a.orders.ItemsByID(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]designsvc.OrderItem, len(items))
	for id, it := range items {
		out[id] = designsvc.OrderItem{
			ID:                  it.ID,
			OrderID:             it.OrderID,
			TenantID:            it.TenantID,
			ProductRef:          it.ProductRef,
			Description:         it.Description,
			Quantity:            it.Quantity,
			RequiredSpecialties: it.RequiredSpecialties,
		}
	}
	return out, nil
}

type designerSource interface {
	Designers(ctx context.Context, tenantID uuid.UUID) ([]workforcerepo.Designer, error)
}

// DesignerDirectory feeds workforce designers to design job assignment.
type DesignerDirectory struct {
	workforce designerSource
}

func NewDesignerDirectory(workforce designerSource) *DesignerDirectory {
	return &DesignerDirectory{workforce: workforce}
}

func (a *DesignerDirectory) Designers(ctx context.Context, tenantID uuid.UUID) ([]designsvc.Designer, error) {
	designers, err := a.workforce.Designers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]designsvc.Designer, 0, len(designers))
	for _, d := range designers {
		out = append(out, designsvc.Designer{
			UserID:      d.UserID,
			Specialties: d.Specialties,
			Capacity:    d.Capacity,
			Active:      d.Active,
			OpenJobs:    d.OpenJobs,
		})
	}
	return out, nil
}

type designJobSource interface {
	JobsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]designrepo.DesignJob, error)
}

// DesignJobsForProduction lets work orders read design jobs.
type DesignJobsForProduction struct {
	jobs designJobSource
}

func NewDesignJobsForProduction(jobs designJobSource) *DesignJobsForProduction {
	return &DesignJobsForProduction{jobs: jobs}
}
