package catalog_test

import (
	"context"
	"testing"

	"equiplend/catalog"
	"equiplend/lending"
	"equiplend/memstore"
	"equiplend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = models.Identity{UserID: uuid.NewString(), Role: models.RoleAdmin}
	student = models.Identity{UserID: uuid.NewString(), Role: models.RoleStudent}
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestCreateSetsAvailableToTotal(t *testing.T) {
	svc := catalog.New(memstore.New(), nil)

	it, err := svc.Create(context.Background(), admin, "  Tripod ", "camera", "good", 4)
	require.NoError(t, err)
	assert.Equal(t, "Tripod", it.Name)
	assert.Equal(t, 4, it.TotalQuantity)
	assert.Equal(t, 4, it.AvailableQuantity)

	got, err := svc.Get(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.ID, got.ID)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := catalog.New(memstore.New(), nil)

	_, err := svc.Create(ctx, admin, " ", "", "", 1)
	assert.ErrorIs(t, err, lending.ErrInvalidInput)

	_, err = svc.Create(ctx, admin, "Tripod", "", "", -1)
	assert.ErrorIs(t, err, lending.ErrInvalidInput)

	_, err = svc.Create(ctx, student, "Tripod", "", "", 1)
	assert.ErrorIs(t, err, lending.ErrForbidden)

	_, err = svc.Create(ctx, models.Identity{}, "Tripod", "", "", 1)
	assert.ErrorIs(t, err, lending.ErrUnauthorized)
}

func TestAdjustTotalAppliesClampedDelta(t *testing.T) {
	ctx := context.Background()
	svc := catalog.New(memstore.New(), nil)

	it, err := svc.Create(ctx, admin, "Multimeter", "", "", 5)
	require.NoError(t, err)

	it, err = svc.AdjustTotalQuantity(ctx, admin, it.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, it.TotalQuantity)
	assert.Equal(t, 3, it.AvailableQuantity)

	it, err = svc.AdjustTotalQuantity(ctx, admin, it.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, it.AvailableQuantity)
}

func TestAdjustTotalWithLoansOut(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := catalog.New(st, nil)
	eng := lending.NewEngine(st)

	it, err := svc.Create(ctx, admin, "Drill", "", "", 3)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		req, err := eng.Submit(ctx, student, it.ID)
		require.NoError(t, err)
		_, err = eng.Approve(ctx, admin, req.ID)
		require.NoError(t, err)
	}

	it, err = svc.AdjustTotalQuantity(ctx, admin, it.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, it.TotalQuantity)
	assert.Equal(t, 0, it.AvailableQuantity)
}

func TestUpdatePatch(t *testing.T) {
	ctx := context.Background()
	svc := catalog.New(memstore.New(), nil)

	it, err := svc.Create(ctx, admin, "Drill", "tools", "new", 2)
	require.NoError(t, err)

	it, err = svc.Update(ctx, admin, it.ID, catalog.Patch{Condition: strp("worn")})
	require.NoError(t, err)
	assert.Equal(t, "worn", it.Condition)
	assert.Equal(t, "Drill", it.Name)
	assert.Equal(t, 2, it.AvailableQuantity)

	_, err = svc.Update(ctx, admin, it.ID, catalog.Patch{})
	assert.ErrorIs(t, err, lending.ErrInvalidInput)

	_, err = svc.Update(ctx, admin, it.ID, catalog.Patch{TotalQuantity: intp(-2)})
	assert.ErrorIs(t, err, lending.ErrInvalidInput)

	_, err = svc.Update(ctx, admin, uuid.NewString(), catalog.Patch{Name: strp("x")})
	assert.ErrorIs(t, err, lending.ErrItemNotFound)

	_, err = svc.Update(ctx, student, it.ID, catalog.Patch{Name: strp("x")})
	assert.ErrorIs(t, err, lending.ErrForbidden)
}

func TestDeleteGuardsOutstandingRequests(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := catalog.New(st, nil)
	eng := lending.NewEngine(st)

	it, err := svc.Create(ctx, admin, "Camera", "", "", 1)
	require.NoError(t, err)
	req, err := eng.Submit(ctx, student, it.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, admin, it.ID), lending.ErrItemInUse)

	_, err = eng.Approve(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, admin, it.ID), lending.ErrItemInUse)

	_, err = eng.Return(ctx, admin, req.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, it.ID))

	_, err = svc.Get(ctx, it.ID)
	assert.ErrorIs(t, err, lending.ErrItemNotFound)
	_, ok := st.Request(req.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Delete(ctx, admin, it.ID), lending.ErrItemNotFound)
}
