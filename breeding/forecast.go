/*
Package breeding implements the reproductive forecast engine.

PURPOSE:
  Given up to three optional input dates (last calving, last heat, breeding)
  the engine predicts the next heat, the calving date, and the pregnancy
  diagnosis window, plus a suggested lifecycle status. Predict is a pure,
  total function: same inputs always yield the same outputs, and it never
  fails - garbage in, garbage out.

PRIORITY RULE (exactly one branch applies, in order):
  1. Breeding date present    -> calving, diagnosis and fallback-heat
                                 predictions, awaiting_diagnosis
  2. Last heat date present   -> next heat only, empty
  3. Last calving date present-> postpartum return to heat, lactation
  4. No input dates           -> no predictions, empty

SEE ALSO:
  - service.go: cycle lifecycle around the pure engine
  - herd/reproduction.go: the persisted Cycle record
*/
package breeding

import "github.com/warp/herd-engine/herd"

// =============================================================================
// BIOLOGICAL CONSTANTS - Fixed averages for the modeled breed
// =============================================================================

const (
	// GestationDays is the average gestation length (286-294 day range).
	GestationDays = 290
	// EstrusCycleDays is the average length of one heat cycle.
	EstrusCycleDays = 21
	// PostpartumReturnDays is the minimum interval from calving back to
	// the first heat.
	PostpartumReturnDays = 60
	// DiagnosisWindowDays is how long after breeding a pregnancy check
	// (palpation or ultrasound) becomes conclusive.
	DiagnosisWindowDays = 45
)

// =============================================================================
// FORECAST - Pure prediction over optional dates
// =============================================================================

// ForecastInput carries the three optional input dates. Absent dates are the
// zero herd.Date.
type ForecastInput struct {
	LastCalving herd.Date
	LastHeat    herd.Date
	Breeding    herd.Date
}

// Forecast is the derived output. Absent predictions are the zero herd.Date.
type Forecast struct {
	Calving   herd.Date
	Heat      herd.Date
	Diagnosis herd.Date
	Status    herd.CycleStatus
}

// Predict derives the forecast from the current inputs. It has no memory of
// prior predictions and performs no date validation; callers re-run it in
// full whenever any input date changes.
func Predict(in ForecastInput) Forecast {
	out := Forecast{Status: herd.CycleEmpty}

	switch {
	case !in.Breeding.IsZero():
		// Bred: predict the calving and the diagnosis window. The heat
		// prediction is the date the animal would cycle again if the
		// breeding fails, computed alongside, not instead.
		out.Calving = in.Breeding.AddDays(GestationDays)
		out.Diagnosis = in.Breeding.AddDays(DiagnosisWindowDays)
		out.Heat = in.Breeding.AddDays(EstrusCycleDays)
		out.Status = herd.CycleAwaitingDiagnosis

	case !in.LastHeat.IsZero():
		// Not bred but cycled recently: only the next heat is predictable.
		out.Heat = in.LastHeat.AddDays(EstrusCycleDays)
		out.Status = herd.CycleEmpty

	case !in.LastCalving.IsZero():
		// Fresh calving: estimate the return to heat after anestrus.
		out.Heat = in.LastCalving.AddDays(PostpartumReturnDays)
		out.Status = herd.CycleLactation
	}

	return out
}
