package memstore

import (
	"context"
	"testing"

	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	_, err := users.Create(ctx, types.User{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = users.Create(ctx, types.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	got, err := users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMedicineUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	meds := New().Medicines()

	m, err := meds.Create(ctx, types.Medicine{UserID: "u1", Name: "Aspirin", Quantity: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Version)

	m.Quantity = 9
	updated, err := meds.Update(ctx, m)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	// m still carries version 1.
	m.Quantity = 8
	_, err = meds.Update(ctx, m)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := meds.Get(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Quantity)
}

func TestMedicineIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	meds := New().Medicines()

	m, err := meds.Create(ctx, types.Medicine{UserID: "u1", Name: "Aspirin"})
	require.NoError(t, err)

	_, err = meds.Get(ctx, "u2", m.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, meds.Delete(ctx, "u2", m.ID), store.ErrNotFound)

	m.UserID = "u2"
	_, err = meds.Update(ctx, m)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := meds.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, meds.Delete(ctx, "u1", m.ID))
	_, err = meds.Get(ctx, "u1", m.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListsAreNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		c, err := s.Contacts().Create(ctx, types.Contact{UserID: "u1", Name: name})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	list, err := s.Contacts().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestReturnedMedicineIsACopy(t *testing.T) {
	ctx := context.Background()
	meds := New().Medicines()

	m, err := meds.Create(ctx, types.Medicine{
		UserID:        "u1",
		IntakeHistory: []types.IntakeEntry{{Date: "2026-03-01"}},
	})
	require.NoError(t, err)

	m.IntakeHistory[0].Morning.Taken = true

	got, err := meds.Get(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.False(t, got.IntakeHistory[0].Morning.Taken)
}
