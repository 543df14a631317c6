/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  - Dates travel as "2006-01-02" strings; an absent date is omitted
  - Money travels as a decimal string ("333.33"), never a float
  - Statuses carry the overdue projection where the endpoint says so

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/herd-engine/herd"
)

// =============================================================================
// ANIMALS
// =============================================================================

// AnimalDTO represents an animal in API responses.
type AnimalDTO struct {
	ID            string  `json:"id"`
	TagNumber     string  `json:"tag_number"`
	Name          string  `json:"name,omitempty"`
	Sex           string  `json:"sex"`
	BirthDate     string  `json:"birth_date,omitempty"`
	BirthWeightKg float64 `json:"birth_weight_kg,omitempty"`
	CurrentKg     float64 `json:"current_kg,omitempty"`
	Origin        string  `json:"origin"`
	Status        string  `json:"status"`
	StatusDate    string  `json:"status_date,omitempty"`
	DeathReason   string  `json:"death_reason,omitempty"`
	BreedID       string  `json:"breed_id,omitempty"`
	DamID         string  `json:"dam_id,omitempty"`
	SireID        string  `json:"sire_id,omitempty"`
	PastureID     string  `json:"pasture_id,omitempty"`
	PurchaseID    string  `json:"purchase_id,omitempty"`
	SaleID        string  `json:"sale_id,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// CreateAnimalRequest is the request to register an animal.
type CreateAnimalRequest struct {
	TagNumber     string  `json:"tag_number"`
	Name          string  `json:"name"`
	Sex           string  `json:"sex"`
	BirthDate     string  `json:"birth_date"`
	BirthWeightKg float64 `json:"birth_weight_kg"`
	Origin        string  `json:"origin"`
	BreedID       string  `json:"breed_id"`
	DamID         string  `json:"dam_id"`
	SireID        string  `json:"sire_id"`
	PastureID     string  `json:"pasture_id"`
	Notes         string  `json:"notes"`
}

// UpdateAnimalStatusRequest records a lifecycle change.
type UpdateAnimalStatusRequest struct {
	Status     string `json:"status"`
	StatusDate string `json:"status_date"`
	Reason     string `json:"reason"`
}

// WeighingDTO is one weight history entry.
type WeighingDTO struct {
	ID        string  `json:"id"`
	AnimalID  string  `json:"animal_id"`
	WeighKg   float64 `json:"weigh_kg"`
	WeighedOn string  `json:"weighed_on"`
	Notes     string  `json:"notes,omitempty"`
}

// AddWeighingRequest records a weighing.
type AddWeighingRequest struct {
	WeighKg   float64 `json:"weigh_kg"`
	WeighedOn string  `json:"weighed_on"`
	Notes     string  `json:"notes"`
}

// =============================================================================
// PASTURES
// =============================================================================

// PastureDTO represents a grazing location.
type PastureDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AreaHectares float64 `json:"area_hectares,omitempty"`
	CapacityHead int     `json:"capacity_head,omitempty"`
	WaterSource  string  `json:"water_source,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// PastureDetailDTO is a pasture with its current occupants.
type PastureDetailDTO struct {
	Pasture PastureDTO  `json:"pasture"`
	Animals []AnimalDTO `json:"animals"`
}

// CreatePastureRequest registers a grazing location.
type CreatePastureRequest struct {
	Name         string  `json:"name"`
	AreaHectares float64 `json:"area_hectares"`
	CapacityHead int     `json:"capacity_head"`
	WaterSource  string  `json:"water_source"`
	Notes        string  `json:"notes"`
}

// MoveAnimalsRequest moves a batch of animals into a pasture.
type MoveAnimalsRequest struct {
	AnimalIDs []string `json:"animal_ids"`
}

// =============================================================================
// REPRODUCTIVE CYCLES
// =============================================================================

// CycleDTO represents a reproductive cycle with its forecast.
type CycleDTO struct {
	ID                 string `json:"id"`
	AnimalID           string `json:"animal_id"`
	LastCalving        string `json:"last_calving,omitempty"`
	LastHeat           string `json:"last_heat,omitempty"`
	Breeding           string `json:"breeding,omitempty"`
	SireID             string `json:"sire_id,omitempty"`
	Method             string `json:"method,omitempty"`
	PredictedCalving   string `json:"predicted_calving,omitempty"`
	PredictedHeat      string `json:"predicted_heat,omitempty"`
	PredictedDiagnosis string `json:"predicted_diagnosis,omitempty"`
	Status             string `json:"status"`
	Active             bool   `json:"active"`
	Notes              string `json:"notes,omitempty"`
}

// CycleRequest carries the input dates of a new or edited cycle.
type CycleRequest struct {
	LastCalving string `json:"last_calving"`
	LastHeat    string `json:"last_heat"`
	Breeding    string `json:"breeding"`
	SireID      string `json:"sire_id"`
	Method      string `json:"method"`
	Notes       string `json:"notes"`
}

// DiagnosisRequest records the pregnancy check outcome.
type DiagnosisRequest struct {
	Pregnant bool `json:"pregnant"`
}

// =============================================================================
// TRANSACTIONS AND INSTALLMENTS
// =============================================================================

// TransactionDTO represents a transaction header.
type TransactionDTO struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	PartnerID        string `json:"partner_id,omitempty"`
	NegotiatedOn     string `json:"negotiated_on"`
	InstallmentCount int    `json:"installment_count"`
	Total            string `json:"total"`
	Status           string `json:"status"`
	Notes            string `json:"notes,omitempty"`
}

// LineItemDTO is one price group of a transaction.
type LineItemDTO struct {
	ID          string `json:"id"`
	UnitPrice   string `json:"unit_price"`
	AnimalCount int    `json:"animal_count"`
	Description string `json:"description,omitempty"`
}

// InstallmentDTO is one scheduled payment, overdue-projected where the
// endpoint says so.
type InstallmentDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Number        int    `json:"number"`
	DueOn         string `json:"due_on"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	PaidOn        string `json:"paid_on,omitempty"`
}

// TransactionDetailDTO is the assembled read model of one transaction.
type TransactionDetailDTO struct {
	Transaction  TransactionDTO   `json:"transaction"`
	Items        []LineItemDTO    `json:"items"`
	AnimalIDs    []string         `json:"animal_ids"`
	Installments []InstallmentDTO `json:"installments"`
}

// ItemRequest is one price group of a new transaction.
type ItemRequest struct {
	UnitPrice   string   `json:"unit_price"`
	AnimalIDs   []string `json:"animal_ids"`
	Description string   `json:"description"`
}

// CreateTransactionRequest is the request to create a transaction.
type CreateTransactionRequest struct {
	Type             string        `json:"type"`
	PartnerID        string        `json:"partner_id"`
	NegotiatedOn     string        `json:"negotiated_on"`
	InstallmentCount int           `json:"installment_count"`
	Items            []ItemRequest `json:"items"`
	Notes            string        `json:"notes"`
}

// PaymentRequest settles an installment.
type PaymentRequest struct {
	PaidOn string `json:"paid_on"`
}

// =============================================================================
// VACCINES
// =============================================================================

// VaccineTypeDTO represents a catalog entry.
type VaccineTypeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	DosesPerYear     int    `json:"doses_per_year"`
	DaysBetweenDoses int    `json:"days_between_doses"`
	FemaleOnly       bool   `json:"female_only"`
	Mandatory        bool   `json:"mandatory"`
}

// CreateVaccineTypeRequest creates a catalog entry.
type CreateVaccineTypeRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	DosesPerYear     int    `json:"doses_per_year"`
	DaysBetweenDoses int    `json:"days_between_doses"`
	FemaleOnly       bool   `json:"female_only"`
	Mandatory        bool   `json:"mandatory"`
}

// VaccinationDTO is one dose of the schedule.
type VaccinationDTO struct {
	ID          string `json:"id"`
	AnimalID    string `json:"animal_id"`
	TypeID      string `json:"type_id"`
	ScheduledOn string `json:"scheduled_on"`
	AppliedOn   string `json:"applied_on,omitempty"`
	Status      string `json:"status"`
	DoseNumber  int    `json:"dose_number"`
	ParentID    string `json:"parent_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// ScheduleVaccinationRequest registers a first dose.
type ScheduleVaccinationRequest struct {
	AnimalID    string `json:"animal_id"`
	TypeID      string `json:"type_id"`
	ScheduledOn string `json:"scheduled_on"`
}

// ApplyVaccinationRequest marks a dose applied.
type ApplyVaccinationRequest struct {
	AppliedOn string `json:"applied_on"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardDTO mirrors herd.DashboardStats for the dashboard screen.
type DashboardDTO struct {
	TotalAnimals  int `json:"total_animals"`
	ActiveAnimals int `json:"active_animals"`
	Males         int `json:"males"`
	Females       int `json:"females"`

	BornThisYear      int `json:"born_this_year"`
	PurchasedThisYear int `json:"purchased_this_year"`
	SoldThisYear      int `json:"sold_this_year"`

	PendingVaccinations int `json:"pending_vaccinations"`
	OverdueVaccinations int `json:"overdue_vaccinations"`

	ReceivableInstallments int    `json:"receivable_installments"`
	PayableInstallments    int    `json:"payable_installments"`
	ReceivableTotal        string `json:"receivable_total"`
	PayableTotal           string `json:"payable_total"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAnimalDTO(a herd.Animal) AnimalDTO {
	return AnimalDTO{
		ID:            a.ID,
		TagNumber:     a.TagNumber,
		Name:          a.Name,
		Sex:           string(a.Sex),
		BirthDate:     a.BirthDate.String(),
		BirthWeightKg: a.BirthWeightKg,
		CurrentKg:     a.CurrentKg,
		Origin:        string(a.Origin),
		Status:        string(a.Status),
		StatusDate:    a.StatusDate.String(),
		DeathReason:   a.DeathReason,
		BreedID:       a.BreedID,
		DamID:         a.DamID,
		SireID:        a.SireID,
		PastureID:     a.PastureID,
		PurchaseID:    a.PurchaseID,
		SaleID:        a.SaleID,
		Notes:         a.Notes,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func toPastureDTO(p herd.Pasture) PastureDTO {
	return PastureDTO{
		ID:           p.ID,
		Name:         p.Name,
		AreaHectares: p.AreaHectares,
		CapacityHead: p.CapacityHead,
		WaterSource:  p.WaterSource,
		Notes:        p.Notes,
	}
}

func toCycleDTO(c herd.Cycle) CycleDTO {
	return CycleDTO{
		ID:                 c.ID,
		AnimalID:           c.AnimalID,
		LastCalving:        c.LastCalving.String(),
		LastHeat:           c.LastHeat.String(),
		Breeding:           c.Breeding.String(),
		SireID:             c.SireID,
		Method:             string(c.Method),
		PredictedCalving:   c.PredictedCalving.String(),
		PredictedHeat:      c.PredictedHeat.String(),
		PredictedDiagnosis: c.PredictedDiagnosis.String(),
		Status:             string(c.Status),
		Active:             c.Active,
		Notes:              c.Notes,
	}
}

func toTransactionDTO(t herd.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:               t.ID,
		Type:             string(t.Type),
		PartnerID:        t.PartnerID,
		NegotiatedOn:     t.NegotiatedOn.String(),
		InstallmentCount: t.InstallmentCount,
		Total:            t.Total.String(),
		Status:           string(t.Status),
		Notes:            t.Notes,
	}
}

func toInstallmentDTO(in herd.Installment) InstallmentDTO {
	return InstallmentDTO{
		ID:            in.ID,
		TransactionID: in.TransactionID,
		Number:        in.Number,
		DueOn:         in.DueOn.String(),
		Amount:        in.Amount.String(),
		Status:        string(in.Status),
		PaidOn:        in.PaidOn.String(),
	}
}

func toVaccineTypeDTO(vt herd.VaccineType) VaccineTypeDTO {
	return VaccineTypeDTO{
		ID:               vt.ID,
		Name:             vt.Name,
		Description:      vt.Description,
		DosesPerYear:     vt.DosesPerYear,
		DaysBetweenDoses: vt.DaysBetweenDoses,
		FemaleOnly:       vt.FemaleOnly,
		Mandatory:        vt.Mandatory,
	}
}

func toVaccinationDTO(rec herd.VaccinationRecord) VaccinationDTO {
	return VaccinationDTO{
		ID:          rec.ID,
		AnimalID:    rec.AnimalID,
		TypeID:      rec.TypeID,
		ScheduledOn: rec.ScheduledOn.String(),
		AppliedOn:   rec.AppliedOn.String(),
		Status:      string(rec.Status),
		DoseNumber:  rec.DoseNumber,
		ParentID:    rec.ParentID,
		Notes:       rec.Notes,
	}
}

func toDashboardDTO(s herd.DashboardStats) DashboardDTO {
	return DashboardDTO{
		TotalAnimals:           s.TotalAnimals,
		ActiveAnimals:          s.ActiveAnimals,
		Males:                  s.Males,
		Females:                s.Females,
		BornThisYear:           s.BornThisYear,
		PurchasedThisYear:      s.PurchasedThisYear,
		SoldThisYear:           s.SoldThisYear,
		PendingVaccinations:    s.PendingVaccinations,
		OverdueVaccinations:    s.OverdueVaccinations,
		ReceivableInstallments: s.ReceivableInstallments,
		PayableInstallments:    s.PayableInstallments,
		ReceivableTotal:        s.ReceivableTotal.String(),
		PayableTotal:           s.PayableTotal.String(),
	}
}
