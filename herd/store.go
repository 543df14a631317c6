/*
store.go - Persistence interface for the herd data model

PURPOSE:
  Defines the contract between domain services and the database. The engine
  itself is pure; every multi-record write it feeds (installment batches,
  chained doses, cycle activation) goes through WithTx so the unit is
  all-or-nothing.

KEY INTERFACES:
  AnimalStore:      Registry, weight history, dashboard aggregation
  PastureStore:     Grazing locations and batch animal moves
  CycleStore:       Reproductive cycles and the single-active invariant
  TransactionStore: Transactions, line items, links, installments
  VaccineStore:     Vaccine catalog and the dose schedule
  Store:            Union of the above plus WithTx

ATOMIC UNITS:
  WithTx(fn) executes fn against a transactional view of the store. If fn
  returns an error nothing is committed. Callers never see a transaction
  with some but not all of its installments, or an applied dose without its
  chained successor.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - store/memory: in-memory for tests

SEE ALSO:
  - breeding/service.go, billing/service.go, vaccine/service.go: callers
*/
package herd

import "context"

// =============================================================================
// ANIMAL STORE
// =============================================================================

type AnimalStore interface {
	// SaveAnimal inserts or fully replaces an animal record.
	SaveAnimal(ctx context.Context, a Animal) error
	GetAnimal(ctx context.Context, id string) (*Animal, error)
	ListAnimals(ctx context.Context) ([]Animal, error)

	// UpdateAnimalStatus records a lifecycle change (sold, dead,
	// transferred) with its effective date.
	UpdateAnimalStatus(ctx context.Context, id string, status AnimalStatus, statusDate Date, reason string) error

	// MarkAnimalSold and MarkAnimalPurchased are the transaction side
	// effects: they set the status/origin and back-reference the
	// transaction that moved the animal.
	MarkAnimalSold(ctx context.Context, animalID, transactionID string, on Date) error
	MarkAnimalPurchased(ctx context.Context, animalID, transactionID string, on Date) error

	// AddWeighing appends a weight history entry and moves the animal's
	// current weight to it.
	AddWeighing(ctx context.Context, w Weighing) error
	ListWeighings(ctx context.Context, animalID string) ([]Weighing, error)

	// Stats aggregates the dashboard counters. Overdue counters are derived
	// from the given reference date, never from stored status.
	Stats(ctx context.Context, today Date) (*DashboardStats, error)
}

// =============================================================================
// PASTURE STORE
// =============================================================================

type PastureStore interface {
	// SavePasture inserts or fully replaces a pasture record.
	SavePasture(ctx context.Context, p Pasture) error
	GetPasture(ctx context.Context, id string) (*Pasture, error)
	ListPastures(ctx context.Context) ([]Pasture, error)

	// MoveAnimals reassigns every listed animal to the pasture. A missing
	// pasture or animal fails the whole batch; callers wrap it in WithTx so
	// no animal moves alone.
	MoveAnimals(ctx context.Context, pastureID string, animalIDs []string) error
	ListAnimalsByPasture(ctx context.Context, pastureID string) ([]Animal, error)
}

// =============================================================================
// CYCLE STORE
// =============================================================================

type CycleStore interface {
	InsertCycle(ctx context.Context, c Cycle) error
	UpdateCycle(ctx context.Context, c Cycle) error
	GetCycle(ctx context.Context, id string) (*Cycle, error)
	ListCyclesByAnimal(ctx context.Context, animalID string) ([]Cycle, error)

	// DeactivateCycles clears the Active flag on every cycle of the animal.
	// Always paired with InsertCycle inside WithTx.
	DeactivateCycles(ctx context.Context, animalID string) error
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

type TransactionStore interface {
	InsertTransaction(ctx context.Context, t Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	// ListTransactions filters by type; the empty string lists all.
	ListTransactions(ctx context.Context, tt TransactionType) ([]Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus) error

	InsertLineItem(ctx context.Context, item LineItem) error
	ListLineItems(ctx context.Context, transactionID string) ([]LineItem, error)

	LinkAnimal(ctx context.Context, link AnimalLink) error
	ListTransactionAnimals(ctx context.Context, transactionID string) ([]string, error)

	InsertInstallments(ctx context.Context, ins []Installment) error
	GetInstallment(ctx context.Context, id string) (*Installment, error)
	ListInstallments(ctx context.Context, transactionID string) ([]Installment, error)
	// ListInstallmentsDue returns pending installments due on or before the
	// given date, across all transactions.
	ListInstallmentsDue(ctx context.Context, until Date) ([]Installment, error)
	UpdateInstallment(ctx context.Context, in Installment) error
}

// =============================================================================
// VACCINE STORE
// =============================================================================

type VaccineStore interface {
	SaveVaccineType(ctx context.Context, vt VaccineType) error
	GetVaccineType(ctx context.Context, id string) (*VaccineType, error)
	ListVaccineTypes(ctx context.Context) ([]VaccineType, error)

	InsertVaccination(ctx context.Context, rec VaccinationRecord) error
	UpdateVaccination(ctx context.Context, rec VaccinationRecord) error
	GetVaccination(ctx context.Context, id string) (*VaccinationRecord, error)
	ListVaccinationsByAnimal(ctx context.Context, animalID string) ([]VaccinationRecord, error)
	// ListVaccinationsDue returns pending doses scheduled on or before the
	// given date.
	ListVaccinationsDue(ctx context.Context, until Date) ([]VaccinationRecord, error)

	// HasChainedDose reports whether a record already spawned a successor.
	// Guards against double-chaining when a pre-chained dose is applied.
	HasChainedDose(ctx context.Context, parentID string) (bool, error)
}

// =============================================================================
// STORE - Full persistence facade
// =============================================================================

type Store interface {
	AnimalStore
	PastureStore
	CycleStore
	TransactionStore
	VaccineStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed. Nested calls
	// run in the enclosing transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
