package herd

import "time"

// =============================================================================
// PASTURE - Grazing location animals are assigned to
// =============================================================================

// Pasture is a grazing area of the property. Animals reference it through
// Animal.PastureID; moving animals between pastures is an atomic batch
// operation (see PastureStore.MoveAnimals).
type Pasture struct {
	ID           string
	Name         string
	AreaHectares float64
	CapacityHead int
	WaterSource  string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
