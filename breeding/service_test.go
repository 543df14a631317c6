package breeding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/herd-engine/breeding"
	"github.com/warp/herd-engine/herd"
	"github.com/warp/herd-engine/store/memory"
)

func newTestCycleService(t *testing.T) (*breeding.CycleService, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := breeding.NewCycleService(store)

	require.NoError(t, store.SaveAnimal(context.Background(), herd.Animal{
		ID: "cow-1", TagNumber: "042", Sex: herd.Female,
		Origin: herd.OriginBorn, Status: herd.AnimalActive,
	}))
	require.NoError(t, store.SaveAnimal(context.Background(), herd.Animal{
		ID: "bull-1", TagNumber: "007", Sex: herd.Male,
		Origin: herd.OriginBorn, Status: herd.AnimalActive,
	}))
	return svc, store
}

func TestStartCycle_DeactivatesPriorCycles(t *testing.T) {
	// GIVEN: an animal with an active cycle
	// WHEN: a new cycle is started
	// THEN: exactly the new cycle is active

	svc, _ := newTestCycleService(t)
	ctx := context.Background()

	first, err := svc.StartCycle(ctx, "cow-1", breeding.CycleInput{
		LastHeat: herd.MustDate("2024-03-01"),
	})
	require.NoError(t, err)
	assert.True(t, first.Active)

	second, err := svc.StartCycle(ctx, "cow-1", breeding.CycleInput{
		Breeding: herd.MustDate("2024-03-22"),
	})
	require.NoError(t, err)

	cycles, err := svc.ListByAnimal(ctx, "cow-1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	active := 0
	for _, c := range cycles {
		if c.Active {
			active++
			assert.Equal(t, second.ID, c.ID)
		}
	}
	assert.Equal(t, 1, active, "exactly one active cycle per animal")
}

func TestStartCycle_DerivesForecastFields(t *testing.T) {
	svc, _ := newTestCycleService(t)

	c, err := svc.StartCycle(context.Background(), "cow-1", breeding.CycleInput{
		Breeding: herd.MustDate("2024-01-10"),
		Method:   herd.ArtificialInsemination,
		SireID:   "bull-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-10-26", c.PredictedCalving.String())
	assert.Equal(t, "2024-02-24", c.PredictedDiagnosis.String())
	assert.Equal(t, "2024-01-31", c.PredictedHeat.String())
	assert.Equal(t, herd.CycleAwaitingDiagnosis, c.Status)
}

func TestStartCycle_MaleAnimal_Rejected(t *testing.T) {
	svc, _ := newTestCycleService(t)

	_, err := svc.StartCycle(context.Background(), "bull-1", breeding.CycleInput{})

	assert.ErrorIs(t, err, herd.ErrInvalidArgument)
}

func TestUpdateCycle_RecomputesInPlace(t *testing.T) {
	// GIVEN: a cycle predicted from a heat date
	// WHEN: a breeding date is recorded on the same cycle
	// THEN: the same record carries a fresh forecast; no new record appears

	svc, _ := newTestCycleService(t)
	ctx := context.Background()

	c, err := svc.StartCycle(ctx, "cow-1", breeding.CycleInput{
		LastHeat: herd.MustDate("2024-03-01"),
	})
	require.NoError(t, err)
	assert.True(t, c.PredictedCalving.IsZero())

	updated, err := svc.UpdateCycle(ctx, c.ID, breeding.CycleInput{
		LastHeat: herd.MustDate("2024-03-01"),
		Breeding: herd.MustDate("2024-03-22"),
	})
	require.NoError(t, err)

	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, herd.CycleAwaitingDiagnosis, updated.Status)
	assert.Equal(t, "2025-01-06", updated.PredictedCalving.String(), "2024-03-22 + 290d")

	cycles, err := svc.ListByAnimal(ctx, "cow-1")
	require.NoError(t, err)
	assert.Len(t, cycles, 1, "editing must not create a new cycle")
}

func TestConfirmDiagnosis_Transitions(t *testing.T) {
	svc, _ := newTestCycleService(t)
	ctx := context.Background()

	c, err := svc.StartCycle(ctx, "cow-1", breeding.CycleInput{
		Breeding: herd.MustDate("2024-01-10"),
	})
	require.NoError(t, err)

	confirmed, err := svc.ConfirmDiagnosis(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, herd.CyclePregnant, confirmed.Status)

	// A second confirmation no longer applies.
	_, err = svc.ConfirmDiagnosis(ctx, c.ID, false)
	assert.ErrorIs(t, err, herd.ErrConflict)
}
