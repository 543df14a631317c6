/*
handlers.go - HTTP API handlers for the herd management engine

PURPOSE:
  Exposes the herd engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain services.

ENDPOINTS:
  Animals:
    GET    /api/animals                    List the registry
    POST   /api/animals                    Register an animal
    GET    /api/animals/{id}               Get one animal
    PUT    /api/animals/{id}/status        Record a lifecycle change
    GET    /api/animals/{id}/weighings     Weight history
    POST   /api/animals/{id}/weighings     Record a weighing
    GET    /api/animals/{id}/cycles        Reproductive history
    POST   /api/animals/{id}/cycles        Start a cycle
    GET    /api/animals/{id}/vaccinations  Dose history

  Pastures:
    GET    /api/pastures                   List grazing locations
    POST   /api/pastures                   Register a pasture
    GET    /api/pastures/{id}              Pasture with its occupants
    POST   /api/pastures/{id}/move         Move animals in, atomically

  Cycles:
    PUT    /api/cycles/{id}                Edit inputs, recompute forecast
    POST   /api/cycles/{id}/diagnosis      Confirm pregnancy check

  Transactions:
    GET    /api/transactions               List (filter ?type=)
    POST   /api/transactions               Create with installment plan
    GET    /api/transactions/{id}          Full detail

  Installments:
    GET    /api/installments/due           Open installments (?until=)
    POST   /api/installments/{id}/pay      Record a payment
    POST   /api/installments/{id}/cancel   Cancel a pending installment

  Vaccines:
    GET    /api/vaccine-types              Catalog
    POST   /api/vaccine-types              Create catalog entry
    POST   /api/vaccinations               Schedule a first dose
    POST   /api/vaccinations/{id}/apply    Apply a dose
    POST   /api/vaccinations/{id}/cancel   Cancel a pending dose
    GET    /api/agenda                     Pending doses (?until=)

  Dashboard:
    GET    /api/dashboard                  Aggregated counters

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (state machine violations)
  - 500: Internal errors (logged, not exposed)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/herd-engine/billing"
	"github.com/warp/herd-engine/breeding"
	"github.com/warp/herd-engine/herd"
	"github.com/warp/herd-engine/vaccine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. The reference date is
// injected through now so tests pin it.
type Handler struct {
	Store        herd.Store
	Cycles       *breeding.CycleService
	Transactions *billing.TransactionService
	Vaccinations *vaccine.ScheduleService

	now func() herd.Date
	log *zap.Logger
}

// NewHandler wires the domain services around the given store.
func NewHandler(store herd.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:        store,
		Cycles:       breeding.NewCycleService(store),
		Transactions: billing.NewTransactionService(store),
		Vaccinations: vaccine.NewScheduleService(store),
		now:          herd.Today,
		log:          log,
	}
}

// WithNow overrides the injected reference date. The vaccination service
// follows the same date.
func (h *Handler) WithNow(now func() herd.Date) *Handler {
	h.now = now
	h.Vaccinations.WithNow(now)
	return h
}

// =============================================================================
// ANIMAL HANDLERS
// =============================================================================

func (h *Handler) ListAnimals(w http.ResponseWriter, r *http.Request) {
	animals, err := h.Store.ListAnimals(r.Context())
	if err != nil {
		h.writeError(w, "failed to list animals", err)
		return
	}

	dtos := make([]AnimalDTO, len(animals))
	for i, a := range animals {
		dtos[i] = toAnimalDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAnimal(w http.ResponseWriter, r *http.Request) {
	var req CreateAnimalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}

	if req.TagNumber == "" {
		h.writeError(w, "invalid animal", &herd.ValidationError{Field: "tag_number", Reason: "required"})
		return
	}
	sex := herd.Sex(req.Sex)
	if sex != herd.Male && sex != herd.Female {
		h.writeError(w, "invalid animal", &herd.ValidationError{Field: "sex", Reason: "must be M or F"})
		return
	}
	origin := herd.AnimalOrigin(req.Origin)
	if origin == "" {
		origin = herd.OriginBorn
	}
	birthDate, err := herd.ParseDate(req.BirthDate)
	if err != nil {
		h.writeError(w, "invalid animal", err)
		return
	}

	now := time.Now().UTC()
	animal := herd.Animal{
		ID:            uuid.NewString(),
		TagNumber:     req.TagNumber,
		Name:          req.Name,
		Sex:           sex,
		BirthDate:     birthDate,
		BirthWeightKg: req.BirthWeightKg,
		CurrentKg:     req.BirthWeightKg,
		Origin:        origin,
		Status:        herd.AnimalActive,
		BreedID:       req.BreedID,
		DamID:         req.DamID,
		SireID:        req.SireID,
		PastureID:     req.PastureID,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Store.SaveAnimal(r.Context(), animal); err != nil {
		h.writeError(w, "failed to save animal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnimalDTO(animal))
}

func (h *Handler) GetAnimal(w http.ResponseWriter, r *http.Request) {
	animal, err := h.Store.GetAnimal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to get animal", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnimalDTO(*animal))
}

func (h *Handler) UpdateAnimalStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateAnimalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}

	status := herd.AnimalStatus(req.Status)
	switch status {
	case herd.AnimalActive, herd.AnimalSold, herd.AnimalDead, herd.AnimalTransferred:
	default:
		h.writeError(w, "invalid status", &herd.ValidationError{Field: "status", Reason: "unknown status"})
		return
	}
	statusDate, err := herd.ParseDate(req.StatusDate)
	if err != nil {
		h.writeError(w, "invalid status", err)
		return
	}
	if statusDate.IsZero() {
		statusDate = h.now()
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateAnimalStatus(r.Context(), id, status, statusDate, req.Reason); err != nil {
		h.writeError(w, "failed to update status", err)
		return
	}

	animal, err := h.Store.GetAnimal(r.Context(), id)
	if err != nil {
		h.writeError(w, "failed to get animal", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnimalDTO(*animal))
}

func (h *Handler) AddWeighing(w http.ResponseWriter, r *http.Request) {
	var req AddWeighingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	if req.WeighKg <= 0 {
		h.writeError(w, "invalid weighing", &herd.ValidationError{Field: "weigh_kg", Reason: "must be positive"})
		return
	}
	weighedOn, err := herd.ParseDate(req.WeighedOn)
	if err != nil {
		h.writeError(w, "invalid weighing", err)
		return
	}
	if weighedOn.IsZero() {
		weighedOn = h.now()
	}

	weighing := herd.Weighing{
		ID:        uuid.NewString(),
		AnimalID:  chi.URLParam(r, "id"),
		WeighKg:   req.WeighKg,
		WeighedOn: weighedOn,
		Notes:     req.Notes,
	}
	if err := h.Store.AddWeighing(r.Context(), weighing); err != nil {
		h.writeError(w, "failed to record weighing", err)
		return
	}
	writeJSON(w, http.StatusCreated, WeighingDTO{
		ID:        weighing.ID,
		AnimalID:  weighing.AnimalID,
		WeighKg:   weighing.WeighKg,
		WeighedOn: weighing.WeighedOn.String(),
		Notes:     weighing.Notes,
	})
}

func (h *Handler) ListWeighings(w http.ResponseWriter, r *http.Request) {
	weighings, err := h.Store.ListWeighings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to list weighings", err)
		return
	}

	dtos := make([]WeighingDTO, len(weighings))
	for i, we := range weighings {
		dtos[i] = WeighingDTO{
			ID:        we.ID,
			AnimalID:  we.AnimalID,
			WeighKg:   we.WeighKg,
			WeighedOn: we.WeighedOn.String(),
			Notes:     we.Notes,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PASTURE HANDLERS
// =============================================================================

func (h *Handler) ListPastures(w http.ResponseWriter, r *http.Request) {
	pastures, err := h.Store.ListPastures(r.Context())
	if err != nil {
		h.writeError(w, "failed to list pastures", err)
		return
	}

	dtos := make([]PastureDTO, len(pastures))
	for i, p := range pastures {
		dtos[i] = toPastureDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePasture(w http.ResponseWriter, r *http.Request) {
	var req CreatePastureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	if req.Name == "" {
		h.writeError(w, "invalid pasture", &herd.ValidationError{Field: "name", Reason: "required"})
		return
	}

	now := time.Now().UTC()
	pasture := herd.Pasture{
		ID:           uuid.NewString(),
		Name:         req.Name,
		AreaHectares: req.AreaHectares,
		CapacityHead: req.CapacityHead,
		WaterSource:  req.WaterSource,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Store.SavePasture(r.Context(), pasture); err != nil {
		h.writeError(w, "failed to save pasture", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPastureDTO(pasture))
}

func (h *Handler) GetPasture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pasture, err := h.Store.GetPasture(r.Context(), id)
	if err != nil {
		h.writeError(w, "failed to get pasture", err)
		return
	}
	occupants, err := h.Store.ListAnimalsByPasture(r.Context(), id)
	if err != nil {
		h.writeError(w, "failed to list pasture animals", err)
		return
	}

	detail := PastureDetailDTO{Pasture: toPastureDTO(*pasture)}
	for _, a := range occupants {
		detail.Animals = append(detail.Animals, toAnimalDTO(a))
	}
	writeJSON(w, http.StatusOK, detail)
}

// MoveAnimals reassigns a batch of animals to the pasture. The batch is
// all-or-nothing: one missing animal moves nobody.
func (h *Handler) MoveAnimals(w http.ResponseWriter, r *http.Request) {
	var req MoveAnimalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	if len(req.AnimalIDs) == 0 {
		h.writeError(w, "invalid move", &herd.ValidationError{Field: "animal_ids", Reason: "at least one animal required"})
		return
	}

	pastureID := chi.URLParam(r, "id")
	err := h.Store.WithTx(r.Context(), func(st herd.Store) error {
		return st.MoveAnimals(r.Context(), pastureID, req.AnimalIDs)
	})
	if err != nil {
		h.writeError(w, "failed to move animals", err)
		return
	}

	occupants, err := h.Store.ListAnimalsByPasture(r.Context(), pastureID)
	if err != nil {
		h.writeError(w, "failed to list pasture animals", err)
		return
	}
	dtos := make([]AnimalDTO, len(occupants))
	for i, a := range occupants {
		dtos[i] = toAnimalDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CYCLE HANDLERS
// =============================================================================

func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.Cycles.ListByAnimal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to list cycles", err)
		return
	}

	dtos := make([]CycleDTO, len(cycles))
	for i, c := range cycles {
		dtos[i] = toCycleDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) StartCycle(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeCycleInput(r)
	if err != nil {
		h.writeError(w, "invalid cycle", err)
		return
	}

	cycle, err := h.Cycles.StartCycle(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.writeError(w, "failed to start cycle", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCycleDTO(*cycle))
}

func (h *Handler) UpdateCycle(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeCycleInput(r)
	if err != nil {
		h.writeError(w, "invalid cycle", err)
		return
	}

	cycle, err := h.Cycles.UpdateCycle(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.writeError(w, "failed to update cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

func (h *Handler) ConfirmDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req DiagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}

	cycle, err := h.Cycles.ConfirmDiagnosis(r.Context(), chi.URLParam(r, "id"), req.Pregnant)
	if err != nil {
		h.writeError(w, "failed to confirm diagnosis", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

func (h *Handler) decodeCycleInput(r *http.Request) (breeding.CycleInput, error) {
	var req CycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return breeding.CycleInput{}, badRequest(err)
	}

	lastCalving, err := herd.ParseDate(req.LastCalving)
	if err != nil {
		return breeding.CycleInput{}, err
	}
	lastHeat, err := herd.ParseDate(req.LastHeat)
	if err != nil {
		return breeding.CycleInput{}, err
	}
	breedingDate, err := herd.ParseDate(req.Breeding)
	if err != nil {
		return breeding.CycleInput{}, err
	}

	return breeding.CycleInput{
		LastCalving: lastCalving,
		LastHeat:    lastHeat,
		Breeding:    breedingDate,
		SireID:      req.SireID,
		Method:      herd.BreedingMethod(req.Method),
		Notes:       req.Notes,
	}, nil
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tt := herd.TransactionType(r.URL.Query().Get("type"))
	transactions, err := h.Store.ListTransactions(r.Context(), tt)
	if err != nil {
		h.writeError(w, "failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(transactions))
	for i, t := range transactions {
		dtos[i] = toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}

	negotiatedOn, err := herd.ParseDate(req.NegotiatedOn)
	if err != nil {
		h.writeError(w, "invalid transaction", err)
		return
	}

	draft := billing.TransactionDraft{
		Type:             herd.TransactionType(req.Type),
		PartnerID:        req.PartnerID,
		NegotiatedOn:     negotiatedOn,
		InstallmentCount: req.InstallmentCount,
		Notes:            req.Notes,
	}
	for _, item := range req.Items {
		price, err := herd.MoneyFromString(item.UnitPrice)
		if err != nil {
			h.writeError(w, "invalid transaction", err)
			return
		}
		draft.Items = append(draft.Items, billing.ItemDraft{
			UnitPrice:   price,
			AnimalIDs:   item.AnimalIDs,
			Description: item.Description,
		})
	}

	detail, err := h.Transactions.CreateTransaction(r.Context(), draft)
	if err != nil {
		h.writeError(w, "failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toDetailDTO(detail))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Transactions.Detail(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		h.writeError(w, "failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDetailDTO(detail))
}

func (h *Handler) toDetailDTO(detail *billing.TransactionDetail) TransactionDetailDTO {
	dto := TransactionDetailDTO{
		Transaction: toTransactionDTO(detail.Transaction),
		AnimalIDs:   detail.AnimalIDs,
	}
	for _, item := range detail.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:          item.ID,
			UnitPrice:   item.UnitPrice.String(),
			AnimalCount: item.AnimalCount,
			Description: item.Description,
		})
	}
	for _, in := range detail.Installments {
		dto.Installments = append(dto.Installments, toInstallmentDTO(in))
	}
	return dto
}

// =============================================================================
// INSTALLMENT HANDLERS
// =============================================================================

func (h *Handler) ListInstallmentsDue(w http.ResponseWriter, r *http.Request) {
	until, err := h.untilParam(r)
	if err != nil {
		h.writeError(w, "invalid until parameter", err)
		return
	}

	due, err := h.Transactions.ListDue(r.Context(), until, h.now())
	if err != nil {
		h.writeError(w, "failed to list installments", err)
		return
	}

	dtos := make([]InstallmentDTO, len(due))
	for i, in := range due {
		dtos[i] = toInstallmentDTO(in)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	paidOn, err := herd.ParseDate(req.PaidOn)
	if err != nil {
		h.writeError(w, "invalid payment", err)
		return
	}
	if paidOn.IsZero() {
		paidOn = h.now()
	}

	paid, err := h.Transactions.RecordPayment(r.Context(), chi.URLParam(r, "id"), paidOn)
	if err != nil {
		h.writeError(w, "failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(*paid))
}

func (h *Handler) CancelInstallment(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.Transactions.CancelInstallment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to cancel installment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(*cancelled))
}

// =============================================================================
// VACCINE HANDLERS
// =============================================================================

func (h *Handler) ListVaccineTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListVaccineTypes(r.Context())
	if err != nil {
		h.writeError(w, "failed to list vaccine types", err)
		return
	}

	dtos := make([]VaccineTypeDTO, len(types))
	for i, vt := range types {
		dtos[i] = toVaccineTypeDTO(vt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateVaccineType(w http.ResponseWriter, r *http.Request) {
	var req CreateVaccineTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	if req.Name == "" {
		h.writeError(w, "invalid vaccine type", &herd.ValidationError{Field: "name", Reason: "required"})
		return
	}
	if req.DosesPerYear < 1 {
		h.writeError(w, "invalid vaccine type", &herd.ValidationError{Field: "doses_per_year", Reason: "must be at least 1"})
		return
	}
	if req.DaysBetweenDoses < 1 {
		h.writeError(w, "invalid vaccine type", &herd.ValidationError{Field: "days_between_doses", Reason: "must be at least 1"})
		return
	}

	now := time.Now().UTC()
	vt := herd.VaccineType{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Description:      req.Description,
		DosesPerYear:     req.DosesPerYear,
		DaysBetweenDoses: req.DaysBetweenDoses,
		FemaleOnly:       req.FemaleOnly,
		Mandatory:        req.Mandatory,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Store.SaveVaccineType(r.Context(), vt); err != nil {
		h.writeError(w, "failed to save vaccine type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaccineTypeDTO(vt))
}

func (h *Handler) ScheduleVaccination(w http.ResponseWriter, r *http.Request) {
	var req ScheduleVaccinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	scheduledOn, err := herd.ParseDate(req.ScheduledOn)
	if err != nil {
		h.writeError(w, "invalid vaccination", err)
		return
	}

	rec, err := h.Vaccinations.Schedule(r.Context(), req.AnimalID, req.TypeID, scheduledOn)
	if err != nil {
		h.writeError(w, "failed to schedule vaccination", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaccinationDTO(*rec))
}

func (h *Handler) ApplyVaccination(w http.ResponseWriter, r *http.Request) {
	var req ApplyVaccinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", badRequest(err))
		return
	}
	appliedOn, err := herd.ParseDate(req.AppliedOn)
	if err != nil {
		h.writeError(w, "invalid vaccination", err)
		return
	}
	if appliedOn.IsZero() {
		appliedOn = h.now()
	}

	rec, err := h.Vaccinations.Apply(r.Context(), chi.URLParam(r, "id"), appliedOn)
	if err != nil {
		h.writeError(w, "failed to apply vaccination", err)
		return
	}
	writeJSON(w, http.StatusOK, toVaccinationDTO(*rec))
}

func (h *Handler) CancelVaccination(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Vaccinations.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to cancel vaccination", err)
		return
	}
	writeJSON(w, http.StatusOK, toVaccinationDTO(*rec))
}

func (h *Handler) VaccinationHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Vaccinations.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to list vaccinations", err)
		return
	}

	dtos := make([]VaccinationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toVaccinationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	until, err := h.untilParam(r)
	if err != nil {
		h.writeError(w, "invalid until parameter", err)
		return
	}

	recs, err := h.Vaccinations.Agenda(r.Context(), until)
	if err != nil {
		h.writeError(w, "failed to build agenda", err)
		return
	}

	dtos := make([]VaccinationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toVaccinationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context(), h.now())
	if err != nil {
		h.writeError(w, "failed to aggregate dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(*stats))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// untilParam reads the ?until= horizon; it defaults to 30 days out.
func (h *Handler) untilParam(r *http.Request) (herd.Date, error) {
	until, err := herd.ParseDate(r.URL.Query().Get("until"))
	if err != nil {
		return herd.Date{}, err
	}
	if until.IsZero() {
		until = h.now().AddDays(30)
	}
	return until, nil
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", herd.ErrInvalidArgument, err)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Internal errors are
// logged and hidden behind a generic message.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case herd.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, herd.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, herd.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.Error(msg, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
	}
}
