package vaccine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/herd-engine/herd"
)

// =============================================================================
// SCHEDULE SERVICE - Atomic create/apply units around the pure rules
// =============================================================================

// ScheduleService persists vaccination records and drives the chaining
// rule. The current date is injected through now so tests pin it.
type ScheduleService struct {
	store herd.Store
	newID func() string
	clock func() time.Time
	now   func() herd.Date
}

func NewScheduleService(store herd.Store) *ScheduleService {
	return &ScheduleService{
		store: store,
		newID: uuid.NewString,
		clock: time.Now,
		now:   herd.Today,
	}
}

// WithNow overrides the injected current-date source. Used by tests and by
// callers that already carry a pinned reference date.
func (s *ScheduleService) WithNow(now func() herd.Date) *ScheduleService {
	s.now = now
	return s
}

// Schedule registers a first dose for an animal. The dose's initial status
// follows the future-vs-past rule, and when the vaccine type prescribes
// further doses, the successor is chained immediately, in the same atomic
// unit, off the scheduled date.
func (s *ScheduleService) Schedule(ctx context.Context, animalID, typeID string, scheduled herd.Date) (*herd.VaccinationRecord, error) {
	if scheduled.IsZero() {
		return nil, &herd.ValidationError{Field: "scheduled_on", Reason: "date required"}
	}

	vt, err := s.store.GetVaccineType(ctx, typeID)
	if err != nil {
		return nil, fmt.Errorf("schedule vaccination: %w", err)
	}
	animal, err := s.store.GetAnimal(ctx, animalID)
	if err != nil {
		return nil, fmt.Errorf("schedule vaccination: %w", err)
	}
	if vt.FemaleOnly && animal.Sex != herd.Female {
		return nil, &herd.ValidationError{Field: "animal_id", Reason: fmt.Sprintf("%s is restricted to female animals", vt.Name)}
	}

	now := s.clock()
	rec := NewApplication(animalID, *vt, scheduled, s.now())
	rec.ID = s.newID()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err = s.store.WithTx(ctx, func(st herd.Store) error {
		if err := st.InsertVaccination(ctx, rec); err != nil {
			return err
		}
		if next, ok := ChainNextDose(rec, *vt, rec.ScheduledOn); ok {
			next.ID = s.newID()
			next.CreatedAt = now
			next.UpdatedAt = now
			return st.InsertVaccination(ctx, next)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule vaccination: %w", err)
	}
	return &rec, nil
}

// Apply marks a pending dose as applied and, when the annual schedule has
// doses left, chains the successor off the applied date in the same atomic
// unit. A successor that already exists (chained at creation time) is not
// duplicated.
func (s *ScheduleService) Apply(ctx context.Context, recordID string, appliedOn herd.Date) (*herd.VaccinationRecord, error) {
	if appliedOn.IsZero() {
		return nil, &herd.ValidationError{Field: "applied_on", Reason: "date required"}
	}

	var applied *herd.VaccinationRecord
	err := s.store.WithTx(ctx, func(st herd.Store) error {
		rec, err := st.GetVaccination(ctx, recordID)
		if err != nil {
			return err
		}
		if rec.Status != herd.VaccinePending {
			return fmt.Errorf("dose %d is %s: %w", rec.DoseNumber, rec.Status, herd.ErrConflict)
		}

		rec.Status = herd.VaccineApplied
		rec.AppliedOn = appliedOn
		rec.UpdatedAt = s.clock()
		if err := st.UpdateVaccination(ctx, *rec); err != nil {
			return err
		}
		applied = rec

		vt, err := st.GetVaccineType(ctx, rec.TypeID)
		if err != nil {
			return err
		}
		next, ok := ChainNextDose(*rec, *vt, appliedOn)
		if !ok {
			return nil
		}
		chained, err := st.HasChainedDose(ctx, rec.ID)
		if err != nil {
			return err
		}
		if chained {
			return nil
		}
		next.ID = s.newID()
		next.CreatedAt = s.clock()
		next.UpdatedAt = next.CreatedAt
		return st.InsertVaccination(ctx, next)
	})
	if err != nil {
		return nil, fmt.Errorf("apply vaccination: %w", err)
	}
	return applied, nil
}

// Cancel cancels a pending dose. Cancellation never cascades: an already
// chained successor stays on the schedule until acted on.
func (s *ScheduleService) Cancel(ctx context.Context, recordID string) (*herd.VaccinationRecord, error) {
	var cancelled *herd.VaccinationRecord
	err := s.store.WithTx(ctx, func(st herd.Store) error {
		rec, err := st.GetVaccination(ctx, recordID)
		if err != nil {
			return err
		}
		if rec.Status != herd.VaccinePending {
			return fmt.Errorf("dose %d is %s: %w", rec.DoseNumber, rec.Status, herd.ErrConflict)
		}
		rec.Status = herd.VaccineCancelled
		rec.UpdatedAt = s.clock()
		if err := st.UpdateVaccination(ctx, *rec); err != nil {
			return err
		}
		cancelled = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel vaccination: %w", err)
	}
	return cancelled, nil
}

// Agenda returns pending doses scheduled on or before until, with the
// overdue projection applied.
func (s *ScheduleService) Agenda(ctx context.Context, until herd.Date) ([]herd.VaccinationRecord, error) {
	due, err := s.store.ListVaccinationsDue(ctx, until)
	if err != nil {
		return nil, err
	}
	today := s.now()
	for i := range due {
		due[i].Status = EffectiveStatus(due[i], today)
	}
	return due, nil
}

// History returns every dose of an animal, overdue-projected.
func (s *ScheduleService) History(ctx context.Context, animalID string) ([]herd.VaccinationRecord, error) {
	recs, err := s.store.ListVaccinationsByAnimal(ctx, animalID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	for i := range recs {
		recs[i].Status = EffectiveStatus(recs[i], today)
	}
	return recs, nil
}
