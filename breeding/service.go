package breeding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/herd-engine/herd"
)

// =============================================================================
// CYCLE SERVICE - Lifecycle bookkeeping around the pure engine
// =============================================================================

// CycleInput is what a caller supplies when starting or editing a cycle.
type CycleInput struct {
	LastCalving herd.Date
	LastHeat    herd.Date
	Breeding    herd.Date
	SireID      string
	Method      herd.BreedingMethod
	Notes       string
}

// CycleService owns the single-active-cycle invariant and keeps the derived
// fields of a cycle in sync with its inputs. The forecasting itself stays in
// Predict, uncoupled from persistence.
type CycleService struct {
	store herd.Store
	newID func() string
	clock func() time.Time
}

func NewCycleService(store herd.Store) *CycleService {
	return &CycleService{
		store: store,
		newID: uuid.NewString,
		clock: time.Now,
	}
}

// StartCycle opens a new active cycle for a female animal, atomically
// deactivating every prior cycle of that animal first. Exactly one cycle per
// animal is active at a time.
func (s *CycleService) StartCycle(ctx context.Context, animalID string, in CycleInput) (*herd.Cycle, error) {
	animal, err := s.store.GetAnimal(ctx, animalID)
	if err != nil {
		return nil, fmt.Errorf("start cycle: %w", err)
	}
	if animal.Sex != herd.Female {
		return nil, &herd.ValidationError{Field: "animal_id", Reason: "reproductive cycles apply to female animals only"}
	}

	now := s.clock()
	cycle := herd.Cycle{
		ID:        s.newID(),
		AnimalID:  animalID,
		Active:    true,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(&cycle, in)

	err = s.store.WithTx(ctx, func(tx herd.Store) error {
		if err := tx.DeactivateCycles(ctx, animalID); err != nil {
			return err
		}
		return tx.InsertCycle(ctx, cycle)
	})
	if err != nil {
		return nil, fmt.Errorf("start cycle: %w", err)
	}
	return &cycle, nil
}

// UpdateCycle overwrites the input dates on an existing cycle and recomputes
// every derived field in full. It never creates a new record; starting a new
// cycle is a separate, explicit action.
func (s *CycleService) UpdateCycle(ctx context.Context, cycleID string, in CycleInput) (*herd.Cycle, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}

	applyInput(cycle, in)
	cycle.Notes = in.Notes
	cycle.UpdatedAt = s.clock()

	if err := s.store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}
	return cycle, nil
}

// ConfirmDiagnosis records the outcome of the pregnancy check on a cycle
// that is awaiting diagnosis.
func (s *CycleService) ConfirmDiagnosis(ctx context.Context, cycleID string, pregnant bool) (*herd.Cycle, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("confirm diagnosis: %w", err)
	}
	if cycle.Status != herd.CycleAwaitingDiagnosis {
		return nil, fmt.Errorf("confirm diagnosis: cycle is %s: %w", cycle.Status, herd.ErrConflict)
	}

	if pregnant {
		cycle.Status = herd.CyclePregnant
	} else {
		cycle.Status = herd.CycleEmpty
	}
	cycle.UpdatedAt = s.clock()

	if err := s.store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, fmt.Errorf("confirm diagnosis: %w", err)
	}
	return cycle, nil
}

// ListByAnimal returns the animal's cycles, the active one included.
func (s *CycleService) ListByAnimal(ctx context.Context, animalID string) ([]herd.Cycle, error) {
	return s.store.ListCyclesByAnimal(ctx, animalID)
}

// applyInput copies the caller's inputs onto the cycle and refreshes the
// derived fields from a fresh Predict run.
func applyInput(c *herd.Cycle, in CycleInput) {
	c.LastCalving = in.LastCalving
	c.LastHeat = in.LastHeat
	c.Breeding = in.Breeding
	c.SireID = in.SireID
	c.Method = in.Method

	f := Predict(ForecastInput{
		LastCalving: in.LastCalving,
		LastHeat:    in.LastHeat,
		Breeding:    in.Breeding,
	})
	c.PredictedCalving = f.Calving
	c.PredictedHeat = f.Heat
	c.PredictedDiagnosis = f.Diagnosis
	c.Status = f.Status
}
