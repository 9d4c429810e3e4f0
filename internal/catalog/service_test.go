package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/memstore"
)

func newService(t *testing.T) *catalog.Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	return catalog.NewService(memstore.New(), log)
}

func TestUpsert_CreateThenReplace(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, created, err := svc.Upsert(ctx, catalog.Treatment{
		Name:  "Cleaning",
		Price: 80,
		Slots: []string{"9am", "10am", "9am", " "},
		Image: "cleaning.png",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"9am", "10am"}, first.Slots)

	second, created, err := svc.Upsert(ctx, catalog.Treatment{
		Name:  "Cleaning",
		Price: 95,
		Slots: []string{"11am"},
		Image: "new.png",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 95.0, second.Price)
	assert.Equal(t, []string{"11am"}, second.Slots)
	assert.Equal(t, "new.png", second.Image)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_Validation(t *testing.T) {
	svc := newService(t)

	_, _, err := svc.Upsert(context.Background(), catalog.Treatment{Name: "  "})
	assert.ErrorIs(t, err, catalog.ErrInvalidTreatment)

	_, _, err = svc.Upsert(context.Background(), catalog.Treatment{Name: "X", Price: -1})
	assert.ErrorIs(t, err, catalog.ErrInvalidTreatment)
}

func TestListNames(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, name := range []string{"Whitening", "Cleaning"} {
		_, _, err := svc.Upsert(ctx, catalog.Treatment{Name: name, Price: 10, Slots: []string{"9am"}})
		require.NoError(t, err)
	}

	names, err := svc.ListNames(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "Cleaning", names[0].Name)
	assert.NotEqual(t, uuid.Nil, names[0].ID)
}

func TestRemove(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	saved, _, err := svc.Upsert(ctx, catalog.Treatment{Name: "Cleaning"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, saved.ID))
	assert.ErrorIs(t, svc.Remove(ctx, saved.ID), catalog.ErrTreatmentNotFound)

	_, err = svc.GetByName(ctx, "Cleaning")
	assert.ErrorIs(t, err, catalog.ErrTreatmentNotFound)
}

func TestHasSlot(t *testing.T) {
	tr := catalog.Treatment{Slots: []string{"9am", "10am"}}
	assert.True(t, tr.HasSlot("10am"))
	assert.False(t, tr.HasSlot("11am"))
}
