/*
handlers_test.go - End-to-end tests of the HTTP API

PURPOSE:
  Exercises the full request path (router, handlers, domain services,
  store) against the in-memory store, with the reference date pinned so
  overdue projections are deterministic.

TEST STRATEGY:
  Each test drives the API exactly as a client would: JSON in, JSON out,
  status codes checked against the documented error mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/herd-engine/herd"
	"github.com/warp/herd-engine/store/memory"
)

// testToday pins the reference date for every request.
const testToday = "2024-04-10"

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	store := memory.New()
	h := NewHandler(store, zap.NewNop()).
		WithNow(func() herd.Date { return herd.MustDate(testToday) })
	return NewRouter(h, []string{"*"}, zap.NewNop())
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func createAnimal(t *testing.T, router http.Handler, tag, sex string) AnimalDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/animals", CreateAnimalRequest{
		TagNumber: tag,
		Sex:       sex,
		BirthDate: "2021-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[AnimalDTO](t, rec)
}

// =============================================================================
// ANIMALS
// =============================================================================

func TestAnimals_RegisterAndFetch(t *testing.T) {
	router := newTestAPI(t)

	// GIVEN a registered animal
	created := createAnimal(t, router, "BR-001", "F")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "active", created.Status)

	// WHEN fetching it by id
	rec := do(t, router, http.MethodGet, "/api/animals/"+created.ID, nil)

	// THEN the stored record comes back
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[AnimalDTO](t, rec)
	assert.Equal(t, "BR-001", got.TagNumber)
	assert.Equal(t, "2021-06-01", got.BirthDate)

	// AND it shows up in the registry listing
	rec = do(t, router, http.MethodGet, "/api/animals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AnimalDTO](t, rec), 1)
}

func TestAnimals_RejectsInvalidInput(t *testing.T) {
	router := newTestAPI(t)

	// Missing tag number
	rec := do(t, router, http.MethodPost, "/api/animals", CreateAnimalRequest{Sex: "F"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown sex
	rec = do(t, router, http.MethodPost, "/api/animals", CreateAnimalRequest{TagNumber: "BR-002", Sex: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed date
	rec = do(t, router, http.MethodPost, "/api/animals", CreateAnimalRequest{
		TagNumber: "BR-003", Sex: "F", BirthDate: "01/06/2021",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnimals_NotFound(t *testing.T) {
	router := newTestAPI(t)

	rec := do(t, router, http.MethodGet, "/api/animals/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnimals_WeighingMovesCurrentWeight(t *testing.T) {
	router := newTestAPI(t)
	animal := createAnimal(t, router, "BR-010", "M")

	// WHEN recording a weighing
	rec := do(t, router, http.MethodPost, "/api/animals/"+animal.ID+"/weighings", AddWeighingRequest{
		WeighKg:   412.5,
		WeighedOn: "2024-03-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN the animal's current weight follows it
	rec = do(t, router, http.MethodGet, "/api/animals/"+animal.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 412.5, decode[AnimalDTO](t, rec).CurrentKg)

	// AND the history lists the entry
	rec = do(t, router, http.MethodGet, "/api/animals/"+animal.ID+"/weighings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]WeighingDTO](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-03-15", history[0].WeighedOn)
}

// =============================================================================
// PASTURES
// =============================================================================

func TestPastures_MoveIsAllOrNothing(t *testing.T) {
	router := newTestAPI(t)
	a := createAnimal(t, router, "BR-060", "F")
	b := createAnimal(t, router, "BR-061", "F")

	// GIVEN a registered pasture
	rec := do(t, router, http.MethodPost, "/api/pastures", CreatePastureRequest{
		Name:         "North field",
		AreaHectares: 12.5,
		CapacityHead: 40,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	pasture := decode[PastureDTO](t, rec)

	// WHEN a move batch includes a ghost animal
	rec = do(t, router, http.MethodPost, "/api/pastures/"+pasture.ID+"/move", MoveAnimalsRequest{
		AnimalIDs: []string{a.ID, "ghost"},
	})

	// THEN nothing moves
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/pastures/"+pasture.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[PastureDetailDTO](t, rec).Animals)

	// AND a clean batch moves everyone
	rec = do(t, router, http.MethodPost, "/api/pastures/"+pasture.ID+"/move", MoveAnimalsRequest{
		AnimalIDs: []string{a.ID, b.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[[]AnimalDTO](t, rec)
	require.Len(t, moved, 2)
	assert.Equal(t, pasture.ID, moved[0].PastureID)

	// AND the animal record carries its location
	rec = do(t, router, http.MethodGet, "/api/animals/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pasture.ID, decode[AnimalDTO](t, rec).PastureID)
}

func TestPastures_Validation(t *testing.T) {
	router := newTestAPI(t)

	// Name is required
	rec := do(t, router, http.MethodPost, "/api/pastures", CreatePastureRequest{AreaHectares: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An empty move batch is rejected
	rec = do(t, router, http.MethodPost, "/api/pastures", CreatePastureRequest{Name: "South field"})
	require.Equal(t, http.StatusCreated, rec.Code)
	pasture := decode[PastureDTO](t, rec)

	rec = do(t, router, http.MethodPost, "/api/pastures/"+pasture.ID+"/move", MoveAnimalsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Moving into a ghost pasture is a 404
	rec = do(t, router, http.MethodPost, "/api/pastures/ghost/move", MoveAnimalsRequest{AnimalIDs: []string{"x"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REPRODUCTIVE CYCLES
// =============================================================================

func TestCycles_BreedingDateDrivesForecast(t *testing.T) {
	router := newTestAPI(t)
	cow := createAnimal(t, router, "BR-020", "F")

	// GIVEN a cycle started with a breeding date
	rec := do(t, router, http.MethodPost, "/api/animals/"+cow.ID+"/cycles", CycleRequest{
		Breeding: "2024-03-01",
		Method:   "artificial_insemination",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	cycle := decode[CycleDTO](t, rec)

	// THEN the full forecast is derived from it
	assert.Equal(t, "2024-12-16", cycle.PredictedCalving)   // +290
	assert.Equal(t, "2024-04-15", cycle.PredictedDiagnosis) // +45
	assert.Equal(t, "2024-03-22", cycle.PredictedHeat)      // +21
	assert.Equal(t, "awaiting_diagnosis", cycle.Status)
	assert.True(t, cycle.Active)

	// WHEN the pregnancy check confirms
	rec = do(t, router, http.MethodPost, "/api/cycles/"+cycle.ID+"/diagnosis", DiagnosisRequest{Pregnant: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pregnant", decode[CycleDTO](t, rec).Status)
}

func TestCycles_MaleAnimalRejected(t *testing.T) {
	router := newTestAPI(t)
	bull := createAnimal(t, router, "BR-021", "M")

	rec := do(t, router, http.MethodPost, "/api/animals/"+bull.ID+"/cycles", CycleRequest{
		Breeding: "2024-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCycles_NewCycleDeactivatesPrevious(t *testing.T) {
	router := newTestAPI(t)
	cow := createAnimal(t, router, "BR-022", "F")

	rec := do(t, router, http.MethodPost, "/api/animals/"+cow.ID+"/cycles", CycleRequest{LastHeat: "2024-01-05"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/animals/"+cow.ID+"/cycles", CycleRequest{Breeding: "2024-02-01"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/animals/"+cow.ID+"/cycles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cycles := decode[[]CycleDTO](t, rec)
	require.Len(t, cycles, 2)

	active := 0
	for _, c := range cycles {
		if c.Active {
			active++
		}
	}
	assert.Equal(t, 1, active, "exactly one cycle stays active")
}

// =============================================================================
// TRANSACTIONS AND INSTALLMENTS
// =============================================================================

func createSale(t *testing.T, router http.Handler, animalID string, count int) TransactionDetailDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/transactions", CreateTransactionRequest{
		Type:             "sale",
		NegotiatedOn:     "2024-04-01",
		InstallmentCount: count,
		Items: []ItemRequest{
			{UnitPrice: "1000.00", AnimalIDs: []string{animalID}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[TransactionDetailDTO](t, rec)
}

func TestTransactions_InstallmentPlanSumsToTotal(t *testing.T) {
	router := newTestAPI(t)
	steer := createAnimal(t, router, "BR-030", "M")

	// GIVEN a 1000.00 sale split in three
	detail := createSale(t, router, steer.ID, 3)

	// THEN the plan lands the rounding remainder on the last installment
	assert.Equal(t, "1000.00", detail.Transaction.Total)
	require.Len(t, detail.Installments, 3)
	assert.Equal(t, "333.33", detail.Installments[0].Amount)
	assert.Equal(t, "333.33", detail.Installments[1].Amount)
	assert.Equal(t, "333.34", detail.Installments[2].Amount)

	// AND due dates follow the 30-day cadence from the negotiation date
	assert.Equal(t, "2024-05-01", detail.Installments[0].DueOn)
	assert.Equal(t, "2024-05-31", detail.Installments[1].DueOn)
	assert.Equal(t, "2024-06-30", detail.Installments[2].DueOn)

	// AND the sold animal is marked in the same unit
	rec := do(t, router, http.MethodGet, "/api/animals/"+steer.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sold := decode[AnimalDTO](t, rec)
	assert.Equal(t, "sold", sold.Status)
	assert.Equal(t, detail.Transaction.ID, sold.SaleID)
}

func TestTransactions_PayingAllInstallmentsFinalizes(t *testing.T) {
	router := newTestAPI(t)
	steer := createAnimal(t, router, "BR-031", "M")
	detail := createSale(t, router, steer.ID, 2)

	// WHEN paying every installment
	for _, in := range detail.Installments {
		rec := do(t, router, http.MethodPost, "/api/installments/"+in.ID+"/pay", PaymentRequest{PaidOn: "2024-04-09"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "paid", decode[InstallmentDTO](t, rec).Status)
	}

	// THEN the transaction finalizes
	rec := do(t, router, http.MethodGet, "/api/transactions/"+detail.Transaction.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "finalized", decode[TransactionDetailDTO](t, rec).Transaction.Status)

	// AND paying again conflicts
	rec = do(t, router, http.MethodPost, "/api/installments/"+detail.Installments[0].ID+"/pay", PaymentRequest{PaidOn: "2024-04-09"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransactions_DueListProjectsOverdue(t *testing.T) {
	router := newTestAPI(t)
	steer := createAnimal(t, router, "BR-032", "M")

	// GIVEN a sale negotiated well before the pinned today (2024-04-10)
	rec := do(t, router, http.MethodPost, "/api/transactions", CreateTransactionRequest{
		Type:             "sale",
		NegotiatedOn:     "2024-01-01",
		InstallmentCount: 2,
		Items: []ItemRequest{
			{UnitPrice: "500.00", AnimalIDs: []string{steer.ID}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN listing open installments
	rec = do(t, router, http.MethodGet, "/api/installments/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	due := decode[[]InstallmentDTO](t, rec)

	// THEN past-due installments present as overdue without being stored so
	require.Len(t, due, 2)
	for _, in := range due {
		assert.Equal(t, "overdue", in.Status)
		assert.Empty(t, in.PaidOn)
	}
}

func TestTransactions_CancelPendingInstallment(t *testing.T) {
	router := newTestAPI(t)
	steer := createAnimal(t, router, "BR-033", "M")
	detail := createSale(t, router, steer.ID, 1)

	rec := do(t, router, http.MethodPost, "/api/installments/"+detail.Installments[0].ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[InstallmentDTO](t, rec).Status)

	// Cancelling twice conflicts
	rec = do(t, router, http.MethodPost, "/api/installments/"+detail.Installments[0].ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransactions_ListFiltersByType(t *testing.T) {
	router := newTestAPI(t)
	a := createAnimal(t, router, "BR-034", "M")
	b := createAnimal(t, router, "BR-035", "F")
	createSale(t, router, a.ID, 1)

	rec := do(t, router, http.MethodPost, "/api/transactions", CreateTransactionRequest{
		Type:             "purchase",
		NegotiatedOn:     "2024-04-02",
		InstallmentCount: 1,
		Items: []ItemRequest{
			{UnitPrice: "800.00", AnimalIDs: []string{b.ID}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/transactions?type=sale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[[]TransactionDTO](t, rec)
	require.Len(t, sales, 1)
	assert.Equal(t, "sale", sales[0].Type)

	rec = do(t, router, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 2)
}

// =============================================================================
// VACCINATIONS
// =============================================================================

func createVaccineType(t *testing.T, router http.Handler, name string, dosesPerYear, daysBetween int) VaccineTypeDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/vaccine-types", CreateVaccineTypeRequest{
		Name:             name,
		DosesPerYear:     dosesPerYear,
		DaysBetweenDoses: daysBetween,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[VaccineTypeDTO](t, rec)
}

func TestVaccinations_ScheduleChainsNextDose(t *testing.T) {
	router := newTestAPI(t)
	cow := createAnimal(t, router, "BR-040", "F")
	vt := createVaccineType(t, router, "aftosa", 2, 21)

	// GIVEN a first dose scheduled in the future (today is 2024-04-10)
	rec := do(t, router, http.MethodPost, "/api/vaccinations", ScheduleVaccinationRequest{
		AnimalID:    cow.ID,
		TypeID:      vt.ID,
		ScheduledOn: "2024-04-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[VaccinationDTO](t, rec)
	assert.Equal(t, 1, first.DoseNumber)
	assert.Equal(t, "pending", first.Status)

	// THEN the successor dose was chained off the scheduled date
	rec = do(t, router, http.MethodGet, "/api/animals/"+cow.ID+"/vaccinations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]VaccinationDTO](t, rec)
	require.Len(t, history, 2)

	var chained VaccinationDTO
	for _, dose := range history {
		if dose.DoseNumber == 2 {
			chained = dose
		}
	}
	assert.Equal(t, "2024-05-06", chained.ScheduledOn) // scheduled + 21
	assert.Equal(t, "pending", chained.Status)
	assert.Equal(t, first.ID, chained.ParentID)

	// WHEN applying the first dose
	rec = do(t, router, http.MethodPost, "/api/vaccinations/"+first.ID+"/apply", ApplyVaccinationRequest{AppliedOn: "2024-04-15"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "applied", decode[VaccinationDTO](t, rec).Status)

	// THEN the already chained successor is not duplicated
	rec = do(t, router, http.MethodGet, "/api/animals/"+cow.ID+"/vaccinations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]VaccinationDTO](t, rec), 2)
}

func TestVaccinations_FemaleOnlyGuard(t *testing.T) {
	router := newTestAPI(t)
	bull := createAnimal(t, router, "BR-041", "M")

	rec := do(t, router, http.MethodPost, "/api/vaccine-types", CreateVaccineTypeRequest{
		Name:             "brucella",
		DosesPerYear:     1,
		DaysBetweenDoses: 365,
		FemaleOnly:       true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	vt := decode[VaccineTypeDTO](t, rec)

	rec = do(t, router, http.MethodPost, "/api/vaccinations", ScheduleVaccinationRequest{
		AnimalID:    bull.ID,
		TypeID:      vt.ID,
		ScheduledOn: "2024-04-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVaccinations_AgendaProjectsOverdue(t *testing.T) {
	router := newTestAPI(t)
	cow := createAnimal(t, router, "BR-042", "F")
	vt := createVaccineType(t, router, "aftosa", 2, 21)

	// GIVEN a past-dated first dose: it is recorded as applied on the spot
	// and its successor is chained at 2024-03-22, still before today
	rec := do(t, router, http.MethodPost, "/api/vaccinations", ScheduleVaccinationRequest{
		AnimalID:    cow.ID,
		TypeID:      vt.ID,
		ScheduledOn: "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "applied", decode[VaccinationDTO](t, rec).Status)

	// WHEN listing the agenda with the default horizon
	rec = do(t, router, http.MethodGet, "/api/agenda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	agenda := decode[[]VaccinationDTO](t, rec)

	// THEN only the chained pending dose is on it, projected overdue
	require.Len(t, agenda, 1)
	assert.Equal(t, 2, agenda[0].DoseNumber)
	assert.Equal(t, "2024-03-22", agenda[0].ScheduledOn)
	assert.Equal(t, "overdue", agenda[0].Status)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_AggregatesHerdAndFinance(t *testing.T) {
	router := newTestAPI(t)

	for i := 0; i < 3; i++ {
		createAnimal(t, router, fmt.Sprintf("BR-05%d", i), "F")
	}
	steer := createAnimal(t, router, "BR-059", "M")
	createSale(t, router, steer.ID, 2)

	rec := do(t, router, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[DashboardDTO](t, rec)

	assert.Equal(t, 4, dash.TotalAnimals)
	assert.Equal(t, 3, dash.ActiveAnimals)
	assert.Equal(t, 3, dash.Females)
	assert.Equal(t, 1, dash.Males)
	assert.Equal(t, 1, dash.SoldThisYear)
	assert.Equal(t, 2, dash.ReceivableInstallments)
	assert.Equal(t, "1000.00", dash.ReceivableTotal)
}
