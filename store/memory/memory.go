// Package memory provides an in-memory herd.Store for tests and local
// development. WithTx is simulated with a snapshot that is restored when
// the unit fails, mirroring the rollback semantics of the SQLite store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/herd-engine/herd"
)

// Store holds every table as a map. Reads return copies; nothing escapes
// by reference.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes top-level atomic units

	animals      map[string]herd.Animal
	pastures     map[string]herd.Pasture
	weighings    map[string][]herd.Weighing
	cycles       map[string]herd.Cycle
	transactions map[string]herd.Transaction
	items        map[string][]herd.LineItem
	links        map[string][]herd.AnimalLink
	installments map[string]herd.Installment
	vaccineTypes map[string]herd.VaccineType
	vaccinations map[string]herd.VaccinationRecord
}

var _ herd.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		animals:      make(map[string]herd.Animal),
		pastures:     make(map[string]herd.Pasture),
		weighings:    make(map[string][]herd.Weighing),
		cycles:       make(map[string]herd.Cycle),
		transactions: make(map[string]herd.Transaction),
		items:        make(map[string][]herd.LineItem),
		links:        make(map[string][]herd.AnimalLink),
		installments: make(map[string]herd.Installment),
		vaccineTypes: make(map[string]herd.VaccineType),
		vaccinations: make(map[string]herd.VaccinationRecord),
	}
}

// =============================================================================
// ATOMIC UNITS - Snapshot and restore
// =============================================================================

// WithTx snapshots the whole store, runs fn, and restores the snapshot when
// fn fails. Top-level units are serialized; the callback receives a view
// whose own WithTx runs in the enclosing unit, so nested calls never touch
// txMu again.
func (m *Store) WithTx(_ context.Context, fn func(herd.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(txView{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// txView is the store handed to WithTx callbacks. It shares the root
// store's state; only WithTx differs.
type txView struct {
	*Store
}

var _ herd.Store = txView{}

// WithTx on a view runs fn in the enclosing unit. Rollback stays with the
// outermost call.
func (v txView) WithTx(_ context.Context, fn func(herd.Store) error) error {
	return fn(v)
}

type snapshot struct {
	animals      map[string]herd.Animal
	pastures     map[string]herd.Pasture
	weighings    map[string][]herd.Weighing
	cycles       map[string]herd.Cycle
	transactions map[string]herd.Transaction
	items        map[string][]herd.LineItem
	links        map[string][]herd.AnimalLink
	installments map[string]herd.Installment
	vaccineTypes map[string]herd.VaccineType
	vaccinations map[string]herd.VaccinationRecord
}

func (m *Store) snapshot() snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot{
		animals:      copyMap(m.animals),
		pastures:     copyMap(m.pastures),
		weighings:    copySliceMap(m.weighings),
		cycles:       copyMap(m.cycles),
		transactions: copyMap(m.transactions),
		items:        copySliceMap(m.items),
		links:        copySliceMap(m.links),
		installments: copyMap(m.installments),
		vaccineTypes: copyMap(m.vaccineTypes),
		vaccinations: copyMap(m.vaccinations),
	}
}

func (m *Store) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animals = s.animals
	m.pastures = s.pastures
	m.weighings = s.weighings
	m.cycles = s.cycles
	m.transactions = s.transactions
	m.items = s.items
	m.links = s.links
	m.installments = s.installments
	m.vaccineTypes = s.vaccineTypes
	m.vaccinations = s.vaccinations
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copySliceMap[V any](src map[string][]V) map[string][]V {
	dst := make(map[string][]V, len(src))
	for k, v := range src {
		dst[k] = append([]V(nil), v...)
	}
	return dst
}

// =============================================================================
// ANIMAL STORE
// =============================================================================

func (m *Store) SaveAnimal(_ context.Context, a herd.Animal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animals[a.ID] = a
	return nil
}

func (m *Store) GetAnimal(_ context.Context, id string) (*herd.Animal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.animals[id]
	if !ok {
		return nil, fmt.Errorf("animal %s: %w", id, herd.ErrNotFound)
	}
	return &a, nil
}

func (m *Store) ListAnimals(_ context.Context) ([]herd.Animal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]herd.Animal, 0, len(m.animals))
	for _, a := range m.animals {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out, nil
}

func (m *Store) UpdateAnimalStatus(_ context.Context, id string, status herd.AnimalStatus, statusDate herd.Date, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.animals[id]
	if !ok {
		return fmt.Errorf("animal %s: %w", id, herd.ErrNotFound)
	}
	a.Status = status
	a.StatusDate = statusDate
	a.DeathReason = reason
	m.animals[id] = a
	return nil
}

func (m *Store) MarkAnimalSold(_ context.Context, animalID, transactionID string, on herd.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.animals[animalID]
	if !ok {
		return fmt.Errorf("animal %s: %w", animalID, herd.ErrNotFound)
	}
	a.Status = herd.AnimalSold
	a.StatusDate = on
	a.SaleID = transactionID
	m.animals[animalID] = a
	return nil
}

func (m *Store) MarkAnimalPurchased(_ context.Context, animalID, transactionID string, on herd.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.animals[animalID]
	if !ok {
		return fmt.Errorf("animal %s: %w", animalID, herd.ErrNotFound)
	}
	a.Origin = herd.OriginPurchased
	a.Status = herd.AnimalActive
	a.StatusDate = on
	a.PurchaseID = transactionID
	m.animals[animalID] = a
	return nil
}

func (m *Store) AddWeighing(_ context.Context, w herd.Weighing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.animals[w.AnimalID]
	if !ok {
		return fmt.Errorf("animal %s: %w", w.AnimalID, herd.ErrNotFound)
	}
	m.weighings[w.AnimalID] = append(m.weighings[w.AnimalID], w)
	a.CurrentKg = w.WeighKg
	m.animals[w.AnimalID] = a
	return nil
}

func (m *Store) ListWeighings(_ context.Context, animalID string) ([]herd.Weighing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]herd.Weighing(nil), m.weighings[animalID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].WeighedOn.Before(out[j].WeighedOn) })
	return out, nil
}

func (m *Store) Stats(_ context.Context, today herd.Date) (*herd.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &herd.DashboardStats{}
	year := today.Year()

	for _, a := range m.animals {
		stats.TotalAnimals++
		if a.Status == herd.AnimalActive {
			stats.ActiveAnimals++
		}
		if a.Sex == herd.Male {
			stats.Males++
		} else {
			stats.Females++
		}
		if !a.BirthDate.IsZero() && a.BirthDate.Year() == year && a.Origin == herd.OriginBorn {
			stats.BornThisYear++
		}
		if a.Origin == herd.OriginPurchased && !a.StatusDate.IsZero() && a.StatusDate.Year() == year && a.PurchaseID != "" {
			stats.PurchasedThisYear++
		}
		if a.Status == herd.AnimalSold && !a.StatusDate.IsZero() && a.StatusDate.Year() == year {
			stats.SoldThisYear++
		}
	}

	for _, rec := range m.vaccinations {
		if rec.Status != herd.VaccinePending {
			continue
		}
		if rec.ScheduledOn.Before(today) {
			stats.OverdueVaccinations++
		} else {
			stats.PendingVaccinations++
		}
	}

	for _, in := range m.installments {
		if in.Status != herd.InstallmentPending {
			continue
		}
		tx, ok := m.transactions[in.TransactionID]
		if !ok {
			continue
		}
		if tx.Type == herd.Sale {
			stats.ReceivableInstallments++
			stats.ReceivableTotal = stats.ReceivableTotal.Add(in.Amount)
		} else {
			stats.PayableInstallments++
			stats.PayableTotal = stats.PayableTotal.Add(in.Amount)
		}
	}

	return stats, nil
}

// =============================================================================
// PASTURE STORE
// =============================================================================

func (m *Store) SavePasture(_ context.Context, p herd.Pasture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pastures[p.ID] = p
	return nil
}

func (m *Store) GetPasture(_ context.Context, id string) (*herd.Pasture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pastures[id]
	if !ok {
		return nil, fmt.Errorf("pasture %s: %w", id, herd.ErrNotFound)
	}
	return &p, nil
}

func (m *Store) ListPastures(_ context.Context) ([]herd.Pasture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]herd.Pasture, 0, len(m.pastures))
	for _, p := range m.pastures {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) MoveAnimals(_ context.Context, pastureID string, animalIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pastures[pastureID]; !ok {
		return fmt.Errorf("pasture %s: %w", pastureID, herd.ErrNotFound)
	}
	for _, id := range animalIDs {
		if _, ok := m.animals[id]; !ok {
			return fmt.Errorf("animal %s: %w", id, herd.ErrNotFound)
		}
	}
	for _, id := range animalIDs {
		a := m.animals[id]
		a.PastureID = pastureID
		m.animals[id] = a
	}
	return nil
}

func (m *Store) ListAnimalsByPasture(_ context.Context, pastureID string) ([]herd.Animal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.Animal
	for _, a := range m.animals {
		if a.PastureID == pastureID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out, nil
}

// =============================================================================
// CYCLE STORE
// =============================================================================

func (m *Store) InsertCycle(_ context.Context, c herd.Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[c.ID] = c
	return nil
}

func (m *Store) UpdateCycle(_ context.Context, c herd.Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cycles[c.ID]; !ok {
		return fmt.Errorf("cycle %s: %w", c.ID, herd.ErrNotFound)
	}
	m.cycles[c.ID] = c
	return nil
}

func (m *Store) GetCycle(_ context.Context, id string) (*herd.Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cycles[id]
	if !ok {
		return nil, fmt.Errorf("cycle %s: %w", id, herd.ErrNotFound)
	}
	return &c, nil
}

func (m *Store) ListCyclesByAnimal(_ context.Context, animalID string) ([]herd.Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.Cycle
	for _, c := range m.cycles {
		if c.AnimalID == animalID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) DeactivateCycles(_ context.Context, animalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.cycles {
		if c.AnimalID == animalID && c.Active {
			c.Active = false
			m.cycles[id] = c
		}
	}
	return nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (m *Store) InsertTransaction(_ context.Context, t herd.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *Store) GetTransaction(_ context.Context, id string) (*herd.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, herd.ErrNotFound)
	}
	return &t, nil
}

func (m *Store) ListTransactions(_ context.Context, tt herd.TransactionType) ([]herd.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.Transaction
	for _, t := range m.transactions {
		if tt == "" || t.Type == tt {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NegotiatedOn.Before(out[j].NegotiatedOn) })
	return out, nil
}

func (m *Store) UpdateTransactionStatus(_ context.Context, id string, status herd.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, herd.ErrNotFound)
	}
	t.Status = status
	m.transactions[id] = t
	return nil
}

func (m *Store) InsertLineItem(_ context.Context, item herd.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.TransactionID] = append(m.items[item.TransactionID], item)
	return nil
}

func (m *Store) ListLineItems(_ context.Context, transactionID string) ([]herd.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]herd.LineItem(nil), m.items[transactionID]...), nil
}

func (m *Store) LinkAnimal(_ context.Context, link herd.AnimalLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.TransactionID] = append(m.links[link.TransactionID], link)
	return nil
}

func (m *Store) ListTransactionAnimals(_ context.Context, transactionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, link := range m.links[transactionID] {
		out = append(out, link.AnimalID)
	}
	return out, nil
}

func (m *Store) InsertInstallments(_ context.Context, ins []herd.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range ins {
		m.installments[in.ID] = in
	}
	return nil
}

func (m *Store) GetInstallment(_ context.Context, id string) (*herd.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.installments[id]
	if !ok {
		return nil, fmt.Errorf("installment %s: %w", id, herd.ErrNotFound)
	}
	return &in, nil
}

func (m *Store) ListInstallments(_ context.Context, transactionID string) ([]herd.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.Installment
	for _, in := range m.installments {
		if in.TransactionID == transactionID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Store) ListInstallmentsDue(_ context.Context, until herd.Date) ([]herd.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.Installment
	for _, in := range m.installments {
		if in.Status == herd.InstallmentPending && in.DueOn.BeforeOrEqual(until) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueOn.Before(out[j].DueOn) })
	return out, nil
}

func (m *Store) UpdateInstallment(_ context.Context, in herd.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.installments[in.ID]; !ok {
		return fmt.Errorf("installment %s: %w", in.ID, herd.ErrNotFound)
	}
	m.installments[in.ID] = in
	return nil
}

// =============================================================================
// VACCINE STORE
// =============================================================================

func (m *Store) SaveVaccineType(_ context.Context, vt herd.VaccineType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaccineTypes[vt.ID] = vt
	return nil
}

func (m *Store) GetVaccineType(_ context.Context, id string) (*herd.VaccineType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vt, ok := m.vaccineTypes[id]
	if !ok {
		return nil, fmt.Errorf("vaccine type %s: %w", id, herd.ErrNotFound)
	}
	return &vt, nil
}

func (m *Store) ListVaccineTypes(_ context.Context) ([]herd.VaccineType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]herd.VaccineType, 0, len(m.vaccineTypes))
	for _, vt := range m.vaccineTypes {
		out = append(out, vt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) InsertVaccination(_ context.Context, rec herd.VaccinationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaccinations[rec.ID] = rec
	return nil
}

func (m *Store) UpdateVaccination(_ context.Context, rec herd.VaccinationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vaccinations[rec.ID]; !ok {
		return fmt.Errorf("vaccination %s: %w", rec.ID, herd.ErrNotFound)
	}
	m.vaccinations[rec.ID] = rec
	return nil
}

func (m *Store) GetVaccination(_ context.Context, id string) (*herd.VaccinationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.vaccinations[id]
	if !ok {
		return nil, fmt.Errorf("vaccination %s: %w", id, herd.ErrNotFound)
	}
	return &rec, nil
}

func (m *Store) ListVaccinationsByAnimal(_ context.Context, animalID string) ([]herd.VaccinationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.VaccinationRecord
	for _, rec := range m.vaccinations {
		if rec.AnimalID == animalID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledOn.Equal(out[j].ScheduledOn) {
			return out[i].DoseNumber < out[j].DoseNumber
		}
		return out[i].ScheduledOn.Before(out[j].ScheduledOn)
	})
	return out, nil
}

func (m *Store) ListVaccinationsDue(_ context.Context, until herd.Date) ([]herd.VaccinationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []herd.VaccinationRecord
	for _, rec := range m.vaccinations {
		if rec.Status == herd.VaccinePending && rec.ScheduledOn.BeforeOrEqual(until) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledOn.Before(out[j].ScheduledOn) })
	return out, nil
}

func (m *Store) HasChainedDose(_ context.Context, parentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.vaccinations {
		if rec.ParentID == parentID {
			return true, nil
		}
	}
	return false, nil
}
