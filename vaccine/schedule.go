/*
Package vaccine implements vaccine dose scheduling and chaining.

PURPOSE:
  A vaccine type prescribes how many doses a year an animal needs and how
  far apart they sit. When a dose is recorded, the chaining rule decides
  whether exactly one successor dose must be scheduled, and when. Chaining
  is single-step and event-driven: the year's schedule is never
  pre-generated, so each unit stays independently retriable.

STATUS MODEL:
  pending  -> applied   (explicit apply action)
  pending  -> cancelled (explicit cancel action)
  "overdue" is a read-time projection of pending past the scheduled date;
  it is never persisted.

SEE ALSO:
  - service.go: atomic apply-and-chain units
  - herd/vaccine.go: the persisted record types
*/
package vaccine

import "github.com/warp/herd-engine/herd"

// =============================================================================
// PURE SCHEDULING RULES
// =============================================================================

// NewApplication builds a fresh first-dose record. A dose scheduled after
// today starts pending with no applied date; a dose scheduled on or before
// today is recorded as applied on its scheduled date. The comparison is
// same-day inclusive: a dose scheduled today is applied immediately.
func NewApplication(animalID string, vt herd.VaccineType, scheduled, today herd.Date) herd.VaccinationRecord {
	rec := herd.VaccinationRecord{
		AnimalID:    animalID,
		TypeID:      vt.ID,
		ScheduledOn: scheduled,
		DoseNumber:  1,
		Status:      herd.VaccinePending,
	}
	if scheduled.BeforeOrEqual(today) {
		rec.Status = herd.VaccineApplied
		rec.AppliedOn = scheduled
	}
	return rec
}

// ChainNextDose decides whether the parent record spawns a successor dose.
// The rule fires only while the annual schedule has doses left
// (DosesPerYear > parent.DoseNumber) and the type defines an interval.
// It creates at most one record per triggering event; base is the parent's
// scheduled or applied date, whichever triggered the event.
//
// The returned record has no ID; the caller assigns one when persisting.
func ChainNextDose(parent herd.VaccinationRecord, vt herd.VaccineType, base herd.Date) (herd.VaccinationRecord, bool) {
	if vt.DosesPerYear <= parent.DoseNumber || vt.DaysBetweenDoses <= 0 {
		return herd.VaccinationRecord{}, false
	}
	return herd.VaccinationRecord{
		AnimalID:    parent.AnimalID,
		TypeID:      parent.TypeID,
		ScheduledOn: base.AddDays(vt.DaysBetweenDoses),
		DoseNumber:  parent.DoseNumber + 1,
		Status:      herd.VaccinePending,
		ParentID:    parent.ID,
	}, true
}

// EffectiveStatus presents a pending dose whose scheduled date is strictly
// before today as overdue. The persisted status stays pending until an
// explicit action changes it.
func EffectiveStatus(rec herd.VaccinationRecord, today herd.Date) herd.VaccineStatus {
	if rec.Status == herd.VaccinePending && rec.ScheduledOn.Before(today) {
		return herd.VaccineOverdue
	}
	return rec.Status
}
