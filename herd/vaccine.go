package herd

import "time"

// =============================================================================
// VACCINE TYPE - Catalog entry driving the dose schedule
// =============================================================================

// VaccineType describes a vaccine and its annual schedule. DosesPerYear and
// DaysBetweenDoses drive the dose chaining rule.
type VaccineType struct {
	ID               string
	Name             string
	Description      string
	DosesPerYear     int // >= 1
	DaysBetweenDoses int // >= 1
	FemaleOnly       bool
	Mandatory        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// =============================================================================
// VACCINATION RECORD - One scheduled or applied dose
// =============================================================================

type VaccineStatus string

const (
	VaccinePending   VaccineStatus = "pending"
	VaccineApplied   VaccineStatus = "applied"
	VaccineCancelled VaccineStatus = "cancelled"
	// VaccineOverdue is a read-time projection of a pending dose whose
	// scheduled date has passed. It is never persisted.
	VaccineOverdue VaccineStatus = "overdue"
)

// VaccinationRecord is one dose of a vaccine for one animal. A record is
// created either as the first dose (by a user action) or as a chained
// subsequent dose (automatically, right after its parent record). ParentID
// points back to the record that spawned this one.
type VaccinationRecord struct {
	ID          string
	AnimalID    string
	TypeID      string
	ScheduledOn Date
	AppliedOn   Date // zero until the dose is actually applied
	Status      VaccineStatus
	DoseNumber  int // 1-based
	ParentID    string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
