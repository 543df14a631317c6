/*
Package sqlite provides the SQLite-backed implementation of herd.Store.

PURPOSE:
  Persists the whole herd data model: animals with their weight history,
  reproductive cycles, purchase/sale transactions with line items and
  installments, and the vaccination schedule.

STORAGE CONVENTIONS:
  - Dates are TEXT in "2006-01-02" form; an absent date is NULL
  - Money amounts are TEXT holding the exact decimal string
  - Timestamps (created_at, updated_at) are RFC3339 TEXT
  - Derived presentation states ("overdue") are never written; the schema
    only knows pending/paid/cancelled and pending/applied/cancelled

ATOMIC UNITS:
  WithTx starts a database transaction and hands the callback a view whose
  methods run against that transaction. A nested WithTx on the view runs in
  the enclosing transaction. Rollback on error covers every write the
  callback made, including animal status side effects.

WAL MODE:
  The database is opened with WAL journaling and foreign keys on. Multiple
  readers don't block; a busy timeout covers writer contention.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - herd/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/herd-engine/herd"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// method set serves both the root store and a transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements herd.Store on SQLite.
type Store struct {
	queries
	db *sql.DB
}

var _ herd.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{queries: queries{db: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(herd.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txView{queries{db: sqlTx}}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txView is the store handed to WithTx callbacks. Its method set is the
// same queries, bound to the open transaction.
type txView struct {
	queries
}

var _ herd.Store = (*txView)(nil)

// WithTx on a view runs fn in the enclosing transaction.
func (v *txView) WithTx(_ context.Context, fn func(herd.Store) error) error {
	return fn(v)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS animals (
		id TEXT PRIMARY KEY,
		tag_number TEXT NOT NULL,
		name TEXT,
		sex TEXT NOT NULL,
		birth_date TEXT,
		birth_weight_kg REAL DEFAULT 0,
		current_kg REAL DEFAULT 0,
		origin TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		status_date TEXT,
		death_reason TEXT,
		breed_id TEXT,
		dam_id TEXT,
		sire_id TEXT,
		pasture_id TEXT,
		purchase_id TEXT,
		sale_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_animals_status ON animals(status);
	CREATE INDEX IF NOT EXISTS idx_animals_tag ON animals(tag_number);
	CREATE INDEX IF NOT EXISTS idx_animals_pasture ON animals(pasture_id) WHERE pasture_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS pastures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		area_hectares REAL DEFAULT 0,
		capacity_head INTEGER DEFAULT 0,
		water_source TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weighings (
		id TEXT PRIMARY KEY,
		animal_id TEXT NOT NULL REFERENCES animals(id),
		weigh_kg REAL NOT NULL,
		weighed_on TEXT NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_weighings_animal ON weighings(animal_id, weighed_on);

	CREATE TABLE IF NOT EXISTS reproductive_cycles (
		id TEXT PRIMARY KEY,
		animal_id TEXT NOT NULL REFERENCES animals(id),
		last_calving TEXT,
		last_heat TEXT,
		breeding TEXT,
		sire_id TEXT,
		method TEXT,
		predicted_calving TEXT,
		predicted_heat TEXT,
		predicted_diagnosis TEXT,
		status TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_animal ON reproductive_cycles(animal_id);
	-- Hot path: "the active cycle of this animal"
	CREATE INDEX IF NOT EXISTS idx_cycles_animal_active
		ON reproductive_cycles(animal_id, active);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		partner_id TEXT,
		negotiated_on TEXT NOT NULL,
		installment_count INTEGER NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);

	CREATE TABLE IF NOT EXISTS transaction_items (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		unit_price TEXT NOT NULL,
		animal_count INTEGER NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_items_transaction ON transaction_items(transaction_id);

	CREATE TABLE IF NOT EXISTS transaction_animals (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		animal_id TEXT NOT NULL REFERENCES animals(id),
		line_item_id TEXT,
		UNIQUE(transaction_id, animal_id)
	);

	CREATE INDEX IF NOT EXISTS idx_links_transaction ON transaction_animals(transaction_id);

	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		number INTEGER NOT NULL,
		due_on TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_on TEXT,
		notes TEXT,
		UNIQUE(transaction_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_installments_transaction ON installments(transaction_id);
	-- Hot path: agenda and dashboard scans over open installments
	CREATE INDEX IF NOT EXISTS idx_installments_status_due ON installments(status, due_on);

	CREATE TABLE IF NOT EXISTS vaccine_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		doses_per_year INTEGER NOT NULL DEFAULT 1,
		days_between_doses INTEGER NOT NULL DEFAULT 1,
		female_only BOOLEAN NOT NULL DEFAULT FALSE,
		mandatory BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vaccinations (
		id TEXT PRIMARY KEY,
		animal_id TEXT NOT NULL REFERENCES animals(id),
		type_id TEXT NOT NULL REFERENCES vaccine_types(id),
		scheduled_on TEXT NOT NULL,
		applied_on TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		dose_number INTEGER NOT NULL DEFAULT 1,
		parent_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vaccinations_animal ON vaccinations(animal_id);
	CREATE INDEX IF NOT EXISTS idx_vaccinations_status_scheduled ON vaccinations(status, scheduled_on);
	CREATE INDEX IF NOT EXISTS idx_vaccinations_parent ON vaccinations(parent_id) WHERE parent_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// queries holds every statement of the store; it runs against either the
// root *sql.DB or an open *sql.Tx.
type queries struct {
	db dbtx
}

// =============================================================================
// ANIMAL STORE
// =============================================================================

func (q *queries) SaveAnimal(ctx context.Context, a herd.Animal) error {
	query := `
		INSERT INTO animals
		(id, tag_number, name, sex, birth_date, birth_weight_kg, current_kg, origin,
		 status, status_date, death_reason, breed_id, dam_id, sire_id, pasture_id,
		 purchase_id, sale_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tag_number = excluded.tag_number,
			name = excluded.name,
			sex = excluded.sex,
			birth_date = excluded.birth_date,
			birth_weight_kg = excluded.birth_weight_kg,
			current_kg = excluded.current_kg,
			origin = excluded.origin,
			status = excluded.status,
			status_date = excluded.status_date,
			death_reason = excluded.death_reason,
			breed_id = excluded.breed_id,
			dam_id = excluded.dam_id,
			sire_id = excluded.sire_id,
			pasture_id = excluded.pasture_id,
			purchase_id = excluded.purchase_id,
			sale_id = excluded.sale_id,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := q.db.ExecContext(ctx, query,
		a.ID, a.TagNumber, a.Name, string(a.Sex),
		dateArg(a.BirthDate), a.BirthWeightKg, a.CurrentKg, string(a.Origin),
		string(a.Status), dateArg(a.StatusDate), a.DeathReason,
		a.BreedID, a.DamID, a.SireID, a.PastureID, a.PurchaseID, a.SaleID, a.Notes,
		createdAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save animal: %w", err)
	}
	return nil
}

const animalColumns = `id, tag_number, name, sex, birth_date, birth_weight_kg, current_kg,
	origin, status, status_date, death_reason, breed_id, dam_id, sire_id,
	pasture_id, purchase_id, sale_id, notes, created_at, updated_at`

func (q *queries) GetAnimal(ctx context.Context, id string) (*herd.Animal, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE id = ?`, id)

	a, err := scanAnimal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("animal %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (q *queries) ListAnimals(ctx context.Context) ([]herd.Animal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+animalColumns+` FROM animals ORDER BY tag_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query animals: %w", err)
	}
	defer rows.Close()

	var animals []herd.Animal
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		animals = append(animals, *a)
	}
	return animals, rows.Err()
}

func (q *queries) UpdateAnimalStatus(ctx context.Context, id string, status herd.AnimalStatus, statusDate herd.Date, reason string) error {
	return q.execOne(ctx,
		`UPDATE animals SET status = ?, status_date = ?, death_reason = ?, updated_at = ? WHERE id = ?`,
		fmt.Sprintf("animal %s", id),
		string(status), dateArg(statusDate), reason, nowArg(), id)
}

func (q *queries) MarkAnimalSold(ctx context.Context, animalID, transactionID string, on herd.Date) error {
	return q.execOne(ctx,
		`UPDATE animals SET status = ?, status_date = ?, sale_id = ?, updated_at = ? WHERE id = ?`,
		fmt.Sprintf("animal %s", animalID),
		string(herd.AnimalSold), dateArg(on), transactionID, nowArg(), animalID)
}

func (q *queries) MarkAnimalPurchased(ctx context.Context, animalID, transactionID string, on herd.Date) error {
	return q.execOne(ctx,
		`UPDATE animals SET origin = ?, status = ?, status_date = ?, purchase_id = ?, updated_at = ? WHERE id = ?`,
		fmt.Sprintf("animal %s", animalID),
		string(herd.OriginPurchased), string(herd.AnimalActive), dateArg(on), transactionID, nowArg(), animalID)
}

func (q *queries) AddWeighing(ctx context.Context, w herd.Weighing) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO weighings (id, animal_id, weigh_kg, weighed_on, notes) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.AnimalID, w.WeighKg, dateArg(w.WeighedOn), w.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert weighing: %w", err)
	}

	// The animal's current weight follows the latest weighing.
	return q.execOne(ctx,
		`UPDATE animals SET current_kg = ?, updated_at = ? WHERE id = ?`,
		fmt.Sprintf("animal %s", w.AnimalID),
		w.WeighKg, nowArg(), w.AnimalID)
}

func (q *queries) ListWeighings(ctx context.Context, animalID string) ([]herd.Weighing, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, animal_id, weigh_kg, weighed_on, notes FROM weighings
		 WHERE animal_id = ? ORDER BY weighed_on ASC`, animalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weighings: %w", err)
	}
	defer rows.Close()

	var weighings []herd.Weighing
	for rows.Next() {
		var w herd.Weighing
		var weighedOn, notes sql.NullString
		if err := rows.Scan(&w.ID, &w.AnimalID, &w.WeighKg, &weighedOn, &notes); err != nil {
			return nil, err
		}
		w.WeighedOn = scanDate(weighedOn)
		w.Notes = notes.String
		weighings = append(weighings, w)
	}
	return weighings, rows.Err()
}

func (q *queries) Stats(ctx context.Context, today herd.Date) (*herd.DashboardStats, error) {
	stats := &herd.DashboardStats{}
	year := fmt.Sprintf("%d", today.Year())

	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sex = 'M' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sex != 'M' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN origin = 'born' AND birth_date IS NOT NULL
				AND strftime('%Y', birth_date) = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN origin = 'purchased' AND purchase_id != ''
				AND status_date IS NOT NULL AND strftime('%Y', status_date) = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'sold'
				AND status_date IS NOT NULL AND strftime('%Y', status_date) = ? THEN 1 ELSE 0 END), 0)
		FROM animals
	`, year, year, year).Scan(
		&stats.TotalAnimals, &stats.ActiveAnimals, &stats.Males, &stats.Females,
		&stats.BornThisYear, &stats.PurchasedThisYear, &stats.SoldThisYear,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate animal stats: %w", err)
	}

	// Overdue is derived here from the injected reference date.
	err = q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN scheduled_on >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN scheduled_on < ? THEN 1 ELSE 0 END), 0)
		FROM vaccinations WHERE status = 'pending'
	`, today.String(), today.String()).Scan(
		&stats.PendingVaccinations, &stats.OverdueVaccinations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate vaccination stats: %w", err)
	}

	// Amounts are decimal strings; sum them in Go rather than in SQL.
	rows, err := q.db.QueryContext(ctx, `
		SELECT i.amount, t.type FROM installments i
		JOIN transactions t ON t.id = i.transaction_id
		WHERE i.status = 'pending'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open installments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var amount, txType string
		if err := rows.Scan(&amount, &txType); err != nil {
			return nil, err
		}
		m, err := herd.MoneyFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt installment amount %q: %w", amount, err)
		}
		if txType == string(herd.Sale) {
			stats.ReceivableInstallments++
			stats.ReceivableTotal = stats.ReceivableTotal.Add(m)
		} else {
			stats.PayableInstallments++
			stats.PayableTotal = stats.PayableTotal.Add(m)
		}
	}
	return stats, rows.Err()
}

// =============================================================================
// PASTURE STORE
// =============================================================================

func (q *queries) SavePasture(ctx context.Context, p herd.Pasture) error {
	query := `
		INSERT INTO pastures
		(id, name, area_hectares, capacity_head, water_source, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			area_hectares = excluded.area_hectares,
			capacity_head = excluded.capacity_head,
			water_source = excluded.water_source,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := q.db.ExecContext(ctx, query,
		p.ID, p.Name, p.AreaHectares, p.CapacityHead, p.WaterSource, p.Notes,
		createdAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save pasture: %w", err)
	}
	return nil
}

const pastureColumns = `id, name, area_hectares, capacity_head, water_source, notes,
	created_at, updated_at`

func (q *queries) GetPasture(ctx context.Context, id string) (*herd.Pasture, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+pastureColumns+` FROM pastures WHERE id = ?`, id)

	p, err := scanPasture(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pasture %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (q *queries) ListPastures(ctx context.Context) ([]herd.Pasture, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+pastureColumns+` FROM pastures ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pastures: %w", err)
	}
	defer rows.Close()

	var pastures []herd.Pasture
	for rows.Next() {
		p, err := scanPasture(rows)
		if err != nil {
			return nil, err
		}
		pastures = append(pastures, *p)
	}
	return pastures, rows.Err()
}

func (q *queries) MoveAnimals(ctx context.Context, pastureID string, animalIDs []string) error {
	if _, err := q.GetPasture(ctx, pastureID); err != nil {
		return err
	}
	for _, id := range animalIDs {
		err := q.execOne(ctx,
			`UPDATE animals SET pasture_id = ?, updated_at = ? WHERE id = ?`,
			fmt.Sprintf("animal %s", id),
			pastureID, nowArg(), id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (q *queries) ListAnimalsByPasture(ctx context.Context, pastureID string) ([]herd.Animal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE pasture_id = ? ORDER BY tag_number`, pastureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pasture animals: %w", err)
	}
	defer rows.Close()

	var animals []herd.Animal
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		animals = append(animals, *a)
	}
	return animals, rows.Err()
}

// =============================================================================
// CYCLE STORE
// =============================================================================

const cycleColumns = `id, animal_id, last_calving, last_heat, breeding, sire_id, method,
	predicted_calving, predicted_heat, predicted_diagnosis, status, active,
	notes, created_at, updated_at`

func (q *queries) InsertCycle(ctx context.Context, c herd.Cycle) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reproductive_cycles
		(id, animal_id, last_calving, last_heat, breeding, sire_id, method,
		 predicted_calving, predicted_heat, predicted_diagnosis, status, active,
		 notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AnimalID,
		dateArg(c.LastCalving), dateArg(c.LastHeat), dateArg(c.Breeding),
		c.SireID, string(c.Method),
		dateArg(c.PredictedCalving), dateArg(c.PredictedHeat), dateArg(c.PredictedDiagnosis),
		string(c.Status), c.Active, c.Notes,
		timeArg(c.CreatedAt), timeArg(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

func (q *queries) UpdateCycle(ctx context.Context, c herd.Cycle) error {
	return q.execOne(ctx, `
		UPDATE reproductive_cycles SET
			last_calving = ?, last_heat = ?, breeding = ?, sire_id = ?, method = ?,
			predicted_calving = ?, predicted_heat = ?, predicted_diagnosis = ?,
			status = ?, active = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		fmt.Sprintf("cycle %s", c.ID),
		dateArg(c.LastCalving), dateArg(c.LastHeat), dateArg(c.Breeding),
		c.SireID, string(c.Method),
		dateArg(c.PredictedCalving), dateArg(c.PredictedHeat), dateArg(c.PredictedDiagnosis),
		string(c.Status), c.Active, c.Notes, nowArg(), c.ID)
}

func (q *queries) GetCycle(ctx context.Context, id string) (*herd.Cycle, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM reproductive_cycles WHERE id = ?`, id)

	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cycle %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (q *queries) ListCyclesByAnimal(ctx context.Context, animalID string) ([]herd.Cycle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+cycleColumns+` FROM reproductive_cycles
		 WHERE animal_id = ? ORDER BY created_at ASC`, animalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []herd.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

func (q *queries) DeactivateCycles(ctx context.Context, animalID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE reproductive_cycles SET active = FALSE, updated_at = ? WHERE animal_id = ? AND active`,
		nowArg(), animalID)
	if err != nil {
		return fmt.Errorf("failed to deactivate cycles: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (q *queries) InsertTransaction(ctx context.Context, t herd.Transaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, type, partner_id, negotiated_on, installment_count, total, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.PartnerID, dateArg(t.NegotiatedOn),
		t.InstallmentCount, t.Total.String(), string(t.Status), t.Notes,
		timeArg(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (q *queries) GetTransaction(ctx context.Context, id string) (*herd.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, type, partner_id, negotiated_on, installment_count, total, status, notes, created_at
		FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, tt herd.TransactionType) ([]herd.Transaction, error) {
	query := `
		SELECT id, type, partner_id, negotiated_on, installment_count, total, status, notes, created_at
		FROM transactions`
	var args []any
	if tt != "" {
		query += ` WHERE type = ?`
		args = append(args, string(tt))
	}
	query += ` ORDER BY negotiated_on ASC, created_at ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []herd.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (q *queries) UpdateTransactionStatus(ctx context.Context, id string, status herd.TransactionStatus) error {
	return q.execOne(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`,
		fmt.Sprintf("transaction %s", id),
		string(status), id)
}

func (q *queries) InsertLineItem(ctx context.Context, item herd.LineItem) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transaction_items (id, transaction_id, unit_price, animal_count, description)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.TransactionID, item.UnitPrice.String(), item.AnimalCount, item.Description)
	if err != nil {
		return fmt.Errorf("failed to insert line item: %w", err)
	}
	return nil
}

func (q *queries) ListLineItems(ctx context.Context, transactionID string) ([]herd.LineItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, transaction_id, unit_price, animal_count, description
		FROM transaction_items WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []herd.LineItem
	for rows.Next() {
		var item herd.LineItem
		var unitPrice string
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.TransactionID, &unitPrice, &item.AnimalCount, &description); err != nil {
			return nil, err
		}
		item.UnitPrice, err = herd.MoneyFromString(unitPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt unit price %q: %w", unitPrice, err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *queries) LinkAnimal(ctx context.Context, link herd.AnimalLink) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transaction_animals (id, transaction_id, animal_id, line_item_id)
		VALUES (?, ?, ?, ?)`,
		link.ID, link.TransactionID, link.AnimalID, link.LineItemID)
	if err != nil {
		return fmt.Errorf("failed to link animal: %w", err)
	}
	return nil
}

func (q *queries) ListTransactionAnimals(ctx context.Context, transactionID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT animal_id FROM transaction_animals WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction animals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) InsertInstallments(ctx context.Context, ins []herd.Installment) error {
	for _, in := range ins {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO installments (id, transaction_id, number, due_on, amount, status, paid_on, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ID, in.TransactionID, in.Number, dateArg(in.DueOn),
			in.Amount.String(), string(in.Status), dateArg(in.PaidOn), in.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", in.Number, err)
		}
	}
	return nil
}

const installmentColumns = `id, transaction_id, number, due_on, amount, status, paid_on, notes`

func (q *queries) GetInstallment(ctx context.Context, id string) (*herd.Installment, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)

	in, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("installment %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (q *queries) ListInstallments(ctx context.Context, transactionID string) ([]herd.Installment, error) {
	return q.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments
		 WHERE transaction_id = ? ORDER BY number ASC`, transactionID)
}

func (q *queries) ListInstallmentsDue(ctx context.Context, until herd.Date) ([]herd.Installment, error) {
	return q.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments
		 WHERE status = 'pending' AND due_on <= ? ORDER BY due_on ASC, number ASC`, until.String())
}

func (q *queries) queryInstallments(ctx context.Context, query string, args ...any) ([]herd.Installment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []herd.Installment
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, *in)
	}
	return installments, rows.Err()
}

func (q *queries) UpdateInstallment(ctx context.Context, in herd.Installment) error {
	return q.execOne(ctx,
		`UPDATE installments SET due_on = ?, amount = ?, status = ?, paid_on = ?, notes = ? WHERE id = ?`,
		fmt.Sprintf("installment %s", in.ID),
		dateArg(in.DueOn), in.Amount.String(), string(in.Status), dateArg(in.PaidOn), in.Notes, in.ID)
}

// =============================================================================
// VACCINE STORE
// =============================================================================

func (q *queries) SaveVaccineType(ctx context.Context, vt herd.VaccineType) error {
	query := `
		INSERT INTO vaccine_types
		(id, name, description, doses_per_year, days_between_doses, female_only, mandatory, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			doses_per_year = excluded.doses_per_year,
			days_between_doses = excluded.days_between_doses,
			female_only = excluded.female_only,
			mandatory = excluded.mandatory,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := vt.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := q.db.ExecContext(ctx, query,
		vt.ID, vt.Name, vt.Description, vt.DosesPerYear, vt.DaysBetweenDoses,
		vt.FemaleOnly, vt.Mandatory,
		createdAt.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save vaccine type: %w", err)
	}
	return nil
}

const vaccineTypeColumns = `id, name, description, doses_per_year, days_between_doses,
	female_only, mandatory, created_at, updated_at`

func (q *queries) GetVaccineType(ctx context.Context, id string) (*herd.VaccineType, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+vaccineTypeColumns+` FROM vaccine_types WHERE id = ?`, id)

	vt, err := scanVaccineType(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vaccine type %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return vt, nil
}

func (q *queries) ListVaccineTypes(ctx context.Context) ([]herd.VaccineType, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+vaccineTypeColumns+` FROM vaccine_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaccine types: %w", err)
	}
	defer rows.Close()

	var types []herd.VaccineType
	for rows.Next() {
		vt, err := scanVaccineType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *vt)
	}
	return types, rows.Err()
}

func (q *queries) InsertVaccination(ctx context.Context, rec herd.VaccinationRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO vaccinations
		(id, animal_id, type_id, scheduled_on, applied_on, status, dose_number, parent_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AnimalID, rec.TypeID,
		dateArg(rec.ScheduledOn), dateArg(rec.AppliedOn),
		string(rec.Status), rec.DoseNumber, nullString(rec.ParentID), rec.Notes,
		timeArg(rec.CreatedAt), timeArg(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert vaccination: %w", err)
	}
	return nil
}

func (q *queries) UpdateVaccination(ctx context.Context, rec herd.VaccinationRecord) error {
	return q.execOne(ctx, `
		UPDATE vaccinations SET
			scheduled_on = ?, applied_on = ?, status = ?, dose_number = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		fmt.Sprintf("vaccination %s", rec.ID),
		dateArg(rec.ScheduledOn), dateArg(rec.AppliedOn),
		string(rec.Status), rec.DoseNumber, rec.Notes, nowArg(), rec.ID)
}

const vaccinationColumns = `id, animal_id, type_id, scheduled_on, applied_on, status,
	dose_number, parent_id, notes, created_at, updated_at`

func (q *queries) GetVaccination(ctx context.Context, id string) (*herd.VaccinationRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+vaccinationColumns+` FROM vaccinations WHERE id = ?`, id)

	rec, err := scanVaccination(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vaccination %s: %w", id, herd.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (q *queries) ListVaccinationsByAnimal(ctx context.Context, animalID string) ([]herd.VaccinationRecord, error) {
	return q.queryVaccinations(ctx,
		`SELECT `+vaccinationColumns+` FROM vaccinations
		 WHERE animal_id = ? ORDER BY scheduled_on ASC, dose_number ASC`, animalID)
}

func (q *queries) ListVaccinationsDue(ctx context.Context, until herd.Date) ([]herd.VaccinationRecord, error) {
	return q.queryVaccinations(ctx,
		`SELECT `+vaccinationColumns+` FROM vaccinations
		 WHERE status = 'pending' AND scheduled_on <= ? ORDER BY scheduled_on ASC`, until.String())
}

func (q *queries) queryVaccinations(ctx context.Context, query string, args ...any) ([]herd.VaccinationRecord, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaccinations: %w", err)
	}
	defer rows.Close()

	var records []herd.VaccinationRecord
	for rows.Next() {
		rec, err := scanVaccination(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (q *queries) HasChainedDose(ctx context.Context, parentID string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vaccinations WHERE parent_id = ?`, parentID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check chained dose: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnimal(row scanner) (*herd.Animal, error) {
	var a herd.Animal
	var sex, origin, status string
	var birthDate, statusDate sql.NullString
	var name, deathReason, breedID, damID, sireID, pastureID, purchaseID, saleID, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.TagNumber, &name, &sex, &birthDate, &a.BirthWeightKg, &a.CurrentKg,
		&origin, &status, &statusDate, &deathReason, &breedID, &damID, &sireID,
		&pastureID, &purchaseID, &saleID, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Name = name.String
	a.Sex = herd.Sex(sex)
	a.BirthDate = scanDate(birthDate)
	a.Origin = herd.AnimalOrigin(origin)
	a.Status = herd.AnimalStatus(status)
	a.StatusDate = scanDate(statusDate)
	a.DeathReason = deathReason.String
	a.BreedID = breedID.String
	a.DamID = damID.String
	a.SireID = sireID.String
	a.PastureID = pastureID.String
	a.PurchaseID = purchaseID.String
	a.SaleID = saleID.String
	a.Notes = notes.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func scanPasture(row scanner) (*herd.Pasture, error) {
	var p herd.Pasture
	var waterSource, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.Name, &p.AreaHectares, &p.CapacityHead,
		&waterSource, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.WaterSource = waterSource.String
	p.Notes = notes.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func scanCycle(row scanner) (*herd.Cycle, error) {
	var c herd.Cycle
	var lastCalving, lastHeat, breeding sql.NullString
	var predictedCalving, predictedHeat, predictedDiagnosis sql.NullString
	var sireID, method, notes sql.NullString
	var status, createdAt, updatedAt string

	err := row.Scan(
		&c.ID, &c.AnimalID, &lastCalving, &lastHeat, &breeding, &sireID, &method,
		&predictedCalving, &predictedHeat, &predictedDiagnosis, &status, &c.Active,
		&notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.LastCalving = scanDate(lastCalving)
	c.LastHeat = scanDate(lastHeat)
	c.Breeding = scanDate(breeding)
	c.SireID = sireID.String
	c.Method = herd.BreedingMethod(method.String)
	c.PredictedCalving = scanDate(predictedCalving)
	c.PredictedHeat = scanDate(predictedHeat)
	c.PredictedDiagnosis = scanDate(predictedDiagnosis)
	c.Status = herd.CycleStatus(status)
	c.Notes = notes.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func scanTransaction(row scanner) (*herd.Transaction, error) {
	var t herd.Transaction
	var txType, status, total, createdAt string
	var partnerID, negotiatedOn, notes sql.NullString

	err := row.Scan(
		&t.ID, &txType, &partnerID, &negotiatedOn, &t.InstallmentCount,
		&total, &status, &notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Type = herd.TransactionType(txType)
	t.PartnerID = partnerID.String
	t.NegotiatedOn = scanDate(negotiatedOn)
	t.Total, err = herd.MoneyFromString(total)
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction total %q: %w", total, err)
	}
	t.Status = herd.TransactionStatus(status)
	t.Notes = notes.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func scanInstallment(row scanner) (*herd.Installment, error) {
	var in herd.Installment
	var amount, status string
	var dueOn, paidOn, notes sql.NullString

	err := row.Scan(&in.ID, &in.TransactionID, &in.Number, &dueOn, &amount, &status, &paidOn, &notes)
	if err != nil {
		return nil, err
	}

	in.DueOn = scanDate(dueOn)
	in.Amount, err = herd.MoneyFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt installment amount %q: %w", amount, err)
	}
	in.Status = herd.InstallmentStatus(status)
	in.PaidOn = scanDate(paidOn)
	in.Notes = notes.String
	return &in, nil
}

func scanVaccineType(row scanner) (*herd.VaccineType, error) {
	var vt herd.VaccineType
	var description sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&vt.ID, &vt.Name, &description, &vt.DosesPerYear, &vt.DaysBetweenDoses,
		&vt.FemaleOnly, &vt.Mandatory, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	vt.Description = description.String
	vt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	vt.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &vt, nil
}

func scanVaccination(row scanner) (*herd.VaccinationRecord, error) {
	var rec herd.VaccinationRecord
	var status string
	var scheduledOn, appliedOn, parentID, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&rec.ID, &rec.AnimalID, &rec.TypeID, &scheduledOn, &appliedOn, &status,
		&rec.DoseNumber, &parentID, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ScheduledOn = scanDate(scheduledOn)
	rec.AppliedOn = scanDate(appliedOn)
	rec.Status = herd.VaccineStatus(status)
	rec.ParentID = parentID.String
	rec.Notes = notes.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// execOne runs an UPDATE that must hit exactly one row and maps a miss to
// ErrNotFound.
func (q *queries) execOne(ctx context.Context, query, subject string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", subject, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", subject, herd.ErrNotFound)
	}
	return nil
}

// dateArg maps the zero Date to NULL.
func dateArg(d herd.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) herd.Date {
	if !ns.Valid || ns.String == "" {
		return herd.Date{}
	}
	d, _ := herd.ParseDate(ns.String)
	return d
}

func timeArg(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.Format(time.RFC3339)
}

func nowArg() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
