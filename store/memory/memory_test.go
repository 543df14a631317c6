package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/herd-engine/herd"
)

func seedAnimal(t *testing.T, store *Store, id string, sex herd.Sex) {
	t.Helper()
	require.NoError(t, store.SaveAnimal(context.Background(), herd.Animal{
		ID: id, TagNumber: id, Sex: sex,
		Origin: herd.OriginBorn, Status: herd.AnimalActive,
	}))
}

// =============================================================================
// ATOMIC UNITS
// =============================================================================

func TestWithTxRollsBackEverything(t *testing.T) {
	// GIVEN: a unit that inserts a transaction and flips an animal to sold,
	//        then fails
	// THEN: neither write is visible afterwards

	store := New()
	ctx := context.Background()
	seedAnimal(t, store, "cow-1", herd.Female)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(st herd.Store) error {
		if err := st.InsertTransaction(ctx, herd.Transaction{
			ID: "tx-1", Type: herd.Sale,
			NegotiatedOn: herd.MustDate("2024-01-01"),
			Total:        herd.MustMoney("100"), InstallmentCount: 1,
			Status: herd.TransactionPending,
		}); err != nil {
			return err
		}
		if err := st.MarkAnimalSold(ctx, "cow-1", "tx-1", herd.MustDate("2024-01-01")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetTransaction(ctx, "tx-1")
	assert.ErrorIs(t, err, herd.ErrNotFound)

	a, err := store.GetAnimal(ctx, "cow-1")
	require.NoError(t, err)
	assert.Equal(t, herd.AnimalActive, a.Status)
	assert.Empty(t, a.SaleID)
}

func TestWithTxNestedRunsInEnclosingUnit(t *testing.T) {
	// A nested WithTx must complete inside the outer one and share its
	// rollback: failing the inner unit undoes the write.

	store := New()
	ctx := context.Background()
	seedAnimal(t, store, "cow-1", herd.Female)

	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- store.WithTx(ctx, func(st herd.Store) error {
			return st.WithTx(ctx, func(inner herd.Store) error {
				if err := inner.InsertVaccination(ctx, herd.VaccinationRecord{
					ID: "rec-1", AnimalID: "cow-1", TypeID: "vt-1",
					ScheduledOn: herd.MustDate("2024-04-01"),
					Status:      herd.VaccinePending, DoseNumber: 1,
				}); err != nil {
					return err
				}
				return boom
			})
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("nested WithTx did not complete")
	}

	_, err := store.GetVaccination(ctx, "rec-1")
	assert.ErrorIs(t, err, herd.ErrNotFound)
}

func TestWithTxNestedCommitSticks(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedAnimal(t, store, "cow-1", herd.Female)

	err := store.WithTx(ctx, func(st herd.Store) error {
		return st.WithTx(ctx, func(inner herd.Store) error {
			return inner.UpdateAnimalStatus(ctx, "cow-1",
				herd.AnimalTransferred, herd.MustDate("2024-03-01"), "")
		})
	})
	require.NoError(t, err)

	a, err := store.GetAnimal(ctx, "cow-1")
	require.NoError(t, err)
	assert.Equal(t, herd.AnimalTransferred, a.Status)
}

// =============================================================================
// PASTURES
// =============================================================================

func TestMoveAnimalsIsAllOrNothing(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedAnimal(t, store, "cow-1", herd.Female)
	seedAnimal(t, store, "cow-2", herd.Female)

	require.NoError(t, store.SavePasture(ctx, herd.Pasture{
		ID: "past-1", Name: "North field", AreaHectares: 12.5,
	}))

	// A batch with a ghost animal moves nothing.
	err := store.WithTx(ctx, func(st herd.Store) error {
		return st.MoveAnimals(ctx, "past-1", []string{"cow-1", "ghost"})
	})
	require.ErrorIs(t, err, herd.ErrNotFound)

	occupants, err := store.ListAnimalsByPasture(ctx, "past-1")
	require.NoError(t, err)
	assert.Empty(t, occupants)

	// A clean batch moves everyone.
	err = store.WithTx(ctx, func(st herd.Store) error {
		return st.MoveAnimals(ctx, "past-1", []string{"cow-1", "cow-2"})
	})
	require.NoError(t, err)

	occupants, err = store.ListAnimalsByPasture(ctx, "past-1")
	require.NoError(t, err)
	assert.Len(t, occupants, 2)

	// Moving into a ghost pasture fails up front.
	err = store.MoveAnimals(ctx, "ghost", []string{"cow-1"})
	assert.ErrorIs(t, err, herd.ErrNotFound)
}
