/*
Package herd defines the shared data model of the herd management engine.

PURPOSE:
  This package holds the entities and vocabularies every other package
  reads or produces: animals, reproductive cycles, transactions with their
  installments, and the vaccination schedule. It also provides the two
  value primitives the whole engine is built on (Date, Money) and the
  persistence contract (Store).

DESIGN PRINCIPLES:
  1. Optional dates are the zero Date, never pointers or empty strings
  2. Money uses decimal.Decimal, never float64
  3. Derived presentation states ("overdue") are computed, never stored
  4. The current date is always injected, never read from the wall clock
     inside business logic

SEE ALSO:
  - breeding: reproductive forecast engine
  - billing: installment generation and settlement
  - vaccine: dose chaining and schedule
*/
package herd

import "time"

// =============================================================================
// ANIMAL - Registry entry with genealogy references
// =============================================================================

type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

type AnimalOrigin string

const (
	OriginBorn      AnimalOrigin = "born"
	OriginPurchased AnimalOrigin = "purchased"
)

type AnimalStatus string

const (
	AnimalActive      AnimalStatus = "active"
	AnimalSold        AnimalStatus = "sold"
	AnimalDead        AnimalStatus = "dead"
	AnimalTransferred AnimalStatus = "transferred"
)

// Animal is a registry entry. DamID and SireID reference other animals and
// form the genealogy tree.
type Animal struct {
	ID            string
	TagNumber     string
	Name          string
	Sex           Sex
	BirthDate     Date
	BirthWeightKg float64
	CurrentKg     float64
	Origin        AnimalOrigin
	Status        AnimalStatus
	StatusDate    Date // when Status last changed (sold/dead/transferred)
	DeathReason   string
	BreedID       string
	DamID         string
	SireID        string
	PastureID     string // current grazing location, empty when unassigned
	PurchaseID    string // transaction that brought the animal in
	SaleID        string // transaction that sold the animal
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Weighing is one entry of an animal's weight history. The animal's
// CurrentKg follows the most recent weighing.
type Weighing struct {
	ID       string
	AnimalID string
	WeighKg  float64
	WeighedOn Date
	Notes    string
}

// =============================================================================
// DASHBOARD - Aggregated herd and financial counters
// =============================================================================

// DashboardStats is the aggregation surface behind the dashboard screen.
// Overdue counters are derived with the read-time projection rule, using the
// injected reference date.
type DashboardStats struct {
	TotalAnimals  int
	ActiveAnimals int
	Males         int
	Females       int

	BornThisYear      int
	PurchasedThisYear int
	SoldThisYear      int

	PendingVaccinations int
	OverdueVaccinations int

	ReceivableInstallments int
	PayableInstallments    int
	ReceivableTotal        Money
	PayableTotal           Money
}
