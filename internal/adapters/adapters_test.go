package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"production_backend/internal/adapters/storage"
	designrepo "production_backend/internal/designjobs/repository"
	designsvc "production_backend/internal/designjobs/service"
	orderrepo "production_backend/internal/orders/repository"
	workforcerepo "production_backend/internal/workforce/repository"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders map[uuid.UUID]orderrepo.OrderItem

func (f fakeOrders) ItemsByID(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]orderrepo.OrderItem, error) {
	out := map[uuid.UUID]orderrepo.OrderItem{}
	for _, id := range ids {
		if it, ok := f[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func TestOrderItemsForDesign(t *testing.T) {
	item := orderrepo.OrderItem{ID: uuid.New(), OrderID: uuid.New(), TenantID: uuid.New(), ProductRef: "TSHIRT-M",
		Quantity: 40, RequiredSpecialties: []string{"screen_print"}, UnitPriceCents: 900}
	got, err := NewOrderItemsForDesign(fakeOrders{item.ID: item}).ItemsByID(context.Background(), item.TenantID, []uuid.UUID{item.ID})
	require.NoError(t, err)
	require.Contains(t, got, item.ID)
	assert.Equal(t, 40, got[item.ID].Quantity)
	assert.Equal(t, []string{"screen_print"}, got[item.ID].RequiredSpecialties)
	assert.Equal(t, item.OrderID, got[item.ID].OrderID)
}

type fakeDesignJobs []designrepo.DesignJob

func (f fakeDesignJobs) JobsByID(context.Context, uuid.UUID, []uuid.UUID) ([]designrepo.DesignJob, error) {
	return f, nil
}

func TestDesignJobsForProductionDropsForeignTenant(t *testing.T) {
	tenant := uuid.New()
	own := designrepo.DesignJob{ID: uuid.New(), TenantID: tenant, Status: "approved", Quantity: 12}
	foreign := designrepo.DesignJob{ID: uuid.New(), TenantID: uuid.New(), Status: "approved"}

	got, err := NewDesignJobsForProduction(fakeDesignJobs{own, foreign}).DesignJobs(context.Background(), tenant, []uuid.UUID{own.ID, foreign.ID})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 12, got[own.ID].Quantity)
}

type fakeWorkforce struct {
	designers     []workforcerepo.Designer
	manufacturers []workforcerepo.Manufacturer
	suppliers     map[uuid.UUID]*workforcerepo.Supplier
	materials     map[uuid.UUID]*workforcerepo.Material
}

func (f fakeWorkforce) Designers(context.Context, uuid.UUID) ([]workforcerepo.Designer, error) {
	return f.designers, nil
}

func (f fakeWorkforce) Manufacturers(context.Context, uuid.UUID) ([]workforcerepo.Manufacturer, error) {
	return f.manufacturers, nil
}

func (f fakeWorkforce) LookupSupplier(_ context.Context, id uuid.UUID) (*workforcerepo.Supplier, error) {
	if s, ok := f.suppliers[id]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("supplier not found")
}

func (f fakeWorkforce) LookupMaterial(_ context.Context, id uuid.UUID) (*workforcerepo.Material, error) {
	if m, ok := f.materials[id]; ok {
		return m, nil
	}
	return nil, apperr.NotFound("material not found")
}

func TestDirectoriesMapLoad(t *testing.T) {
	wf := fakeWorkforce{
		designers:     []workforcerepo.Designer{{UserID: uuid.New(), Specialties: []string{"vector"}, Capacity: 3, Active: true, OpenJobs: 2}},
		manufacturers: []workforcerepo.Manufacturer{{ID: uuid.New(), Capabilities: []string{"dtg"}, Capacity: 5, MinOrderQuantity: 24, Active: true, OpenWorkOrders: 1}},
	}

	designers, err := NewDesignerDirectory(wf).Designers(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, designers, 1)
	assert.Equal(t, 2, designers[0].OpenJobs)

	makers, err := NewManufacturerDirectory(wf).Manufacturers(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, makers, 1)
	assert.Equal(t, 24, makers[0].MinOrderQuantity)
	assert.Equal(t, 1, makers[0].OpenWorkOrders)
}

func TestCatalogAdapters(t *testing.T) {
	supplier := &workforcerepo.Supplier{ID: uuid.New(), TenantID: uuid.New(), Name: "Blank Co"}
	material := &workforcerepo.Material{ID: uuid.New(), TenantID: supplier.TenantID, SupplierID: supplier.ID, Name: "Cotton tee", UnitCostCents: 350}
	wf := fakeWorkforce{
		suppliers: map[uuid.UUID]*workforcerepo.Supplier{supplier.ID: supplier},
		materials: map[uuid.UUID]*workforcerepo.Material{material.ID: material},
	}

	pc := NewPurchasingCatalog(wf)
	s, err := pc.Supplier(context.Background(), supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, supplier.TenantID, s.TenantID)

	m, err := pc.Material(context.Background(), material.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cotton tee", m.Name)
	assert.Equal(t, int64(350), m.UnitCostCents)

	wm, err := NewWorkOrderMaterials(wf).Material(context.Background(), material.ID)
	require.NoError(t, err)
	assert.Equal(t, supplier.ID, wm.SupplierID)

	_, err = pc.Material(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

type fakePresigner struct{ err error }

func (f fakePresigner) GenerateUploadURL(_ context.Context, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedURL{URL: "https://s3/put", FileKey: folder + "/" + fileName, ExpiresAt: time.Unix(100, 0)}, nil
}

func (f fakePresigner) GenerateDownloadURL(_ context.Context, fileKey string) (*storage.PresignedURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedURL{URL: "https://s3/get", FileKey: fileKey}, nil
}

func (f fakePresigner) StatObject(_ context.Context, fileKey string) (*storage.ObjectInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if fileKey == "gone" {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Size: 42, ContentType: "application/pdf"}, nil
}

func TestDesignAssetStorage(t *testing.T) {
	up, err := NewDesignAssetStorage(fakePresigner{}).PresignUpload(context.Background(), "t/j", "a.png", "image/png", 10)
	require.NoError(t, err)
	assert.Equal(t, "t/j/a.png", up.FileKey)
	assert.Equal(t, time.Unix(100, 0), up.ExpiresAt)

	_, err = NewDesignAssetStorage(fakePresigner{err: errors.New("down")}).PresignDownload(context.Background(), "k")
	assert.Error(t, err)

	obj, err := NewDesignAssetStorage(fakePresigner{}).Stat(context.Background(), "t/j/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(42), obj.Size)

	_, err = NewDesignAssetStorage(fakePresigner{}).Stat(context.Background(), "gone")
	assert.ErrorIs(t, err, designsvc.ErrAssetNotUploaded)
}
