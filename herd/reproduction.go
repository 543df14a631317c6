package herd

import "time"

// =============================================================================
// REPRODUCTIVE CYCLE - One breeding attempt of a female animal
// =============================================================================

type BreedingMethod string

const (
	NaturalMount           BreedingMethod = "natural_mount"
	ArtificialInsemination BreedingMethod = "artificial_insemination"
)

// CycleStatus is the lifecycle tag suggested by the forecast engine or set
// by an explicit diagnosis.
type CycleStatus string

const (
	// CycleEmpty: not pregnant, cycling normally.
	CycleEmpty CycleStatus = "empty"
	// CycleLactation: postpartum anestrus, not yet cycling again.
	CycleLactation CycleStatus = "lactation"
	// CycleAwaitingDiagnosis: bred, pregnancy not yet confirmed.
	CycleAwaitingDiagnosis CycleStatus = "awaiting_diagnosis"
	// CyclePregnant: pregnancy confirmed by diagnosis.
	CyclePregnant CycleStatus = "pregnant"
)

// Cycle tracks one reproductive cycle of a female animal. The three input
// dates are independently optional; the Predicted* fields and Status are
// derived in full by the forecast engine on every edit.
//
// INVARIANT: at most one cycle per animal has Active=true. Starting a new
// cycle deactivates all prior cycles for that animal (enforced by
// breeding.CycleService, not by this type).
type Cycle struct {
	ID       string
	AnimalID string

	// Inputs (all optional)
	LastCalving Date
	LastHeat    Date
	Breeding    Date
	SireID      string
	Method      BreedingMethod

	// Derived by breeding.Predict
	PredictedCalving   Date
	PredictedHeat      Date
	PredictedDiagnosis Date
	Status             CycleStatus

	Active    bool
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
