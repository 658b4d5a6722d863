package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m0rg5/SolSum-1.9/internal/document"
	"github.com/m0rg5/SolSum-1.9/internal/engine"
	_ "modernc.org/sqlite"
)

// Store handles persistent storage using SQLite. It is an adapter at the
// process boundary; the engine never touches it.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loads (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL DEFAULT 'dc',
		name TEXT NOT NULL,
		quantity REAL DEFAULT 1,
		watts REAL DEFAULT 0,
		hours_per_day REAL DEFAULT 0,
		duty_cycle_pct REAL DEFAULT 100,
		enabled INTEGER DEFAULT 1,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		quantity REAL DEFAULT 1,
		input_watts REAL DEFAULT 0,
		hours_per_day REAL DEFAULT 0,
		efficiency REAL DEFAULT 1,
		type TEXT NOT NULL DEFAULT 'other',
		auto_solar INTEGER DEFAULT 0,
		enabled INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS battery (
		id TEXT PRIMARY KEY,
		capacity_ah REAL DEFAULT 0,
		voltage REAL DEFAULT 12,
		initial_soc REAL DEFAULT 100,
		target_month INTEGER DEFAULT 0,
		forecast TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveLoad saves or updates a load item
func (s *Store) SaveLoad(l *engine.LoadItem) error {
	query := `INSERT OR REPLACE INTO loads
		(id, category, name, quantity, watts, hours_per_day, duty_cycle_pct, enabled, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, l.ID.String(), string(l.Category), l.Name, l.Quantity,
		l.Watts, l.HoursPerDay, l.DutyCyclePct, boolToInt(l.Enabled), l.Notes, time.Now())

	return err
}

// GetLoads retrieves all load items
func (s *Store) GetLoads() ([]engine.LoadItem, error) {
	query := `SELECT id, category, name, quantity, watts, hours_per_day, duty_cycle_pct, enabled, notes
		FROM loads ORDER BY created_at, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := []engine.LoadItem{}
	for rows.Next() {
		l, err := scanLoad(rows.Scan)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}

	return loads, rows.Err()
}

// GetLoad retrieves a single load item by ID
func (s *Store) GetLoad(id string) (engine.LoadItem, error) {
	query := `SELECT id, category, name, quantity, watts, hours_per_day, duty_cycle_pct, enabled, notes
		FROM loads WHERE id = ?`

	return scanLoad(s.db.QueryRow(query, id).Scan)
}

// DeleteLoad deletes a load item by ID
func (s *Store) DeleteLoad(id string) error {
	_, err := s.db.Exec(`DELETE FROM loads WHERE id = ?`, id)
	return err
}

// SaveSource saves or updates a generation source
func (s *Store) SaveSource(src *engine.GenerationSource) error {
	query := `INSERT OR REPLACE INTO sources
		(id, name, quantity, input_watts, hours_per_day, efficiency, type, auto_solar, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, src.ID.String(), src.Name, src.Quantity, src.InputWatts,
		src.HoursPerDay, src.Efficiency, string(src.Type), boolToInt(src.AutoSolar),
		boolToInt(src.Enabled), time.Now())

	return err
}

// GetSources retrieves all generation sources
func (s *Store) GetSources() ([]engine.GenerationSource, error) {
	query := `SELECT id, name, quantity, input_watts, hours_per_day, efficiency, type, auto_solar, enabled
		FROM sources ORDER BY created_at, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []engine.GenerationSource{}
	for rows.Next() {
		src, err := scanSource(rows.Scan)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// GetSource retrieves a single generation source by ID
func (s *Store) GetSource(id string) (engine.GenerationSource, error) {
	query := `SELECT id, name, quantity, input_watts, hours_per_day, efficiency, type, auto_solar, enabled
		FROM sources WHERE id = ?`

	return scanSource(s.db.QueryRow(query, id).Scan)
}

// DeleteSource deletes a generation source by ID
func (s *Store) DeleteSource(id string) error {
	_, err := s.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	return err
}

// SaveBattery saves the battery configuration
func (s *Store) SaveBattery(b engine.BatteryConfig) error {
	forecastJSON, err := encodeForecast(b.Forecast)
	if err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO battery
		(id, capacity_ah, voltage, initial_soc, target_month, forecast, updated_at)
		VALUES ('default', ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query, b.CapacityAh, b.Voltage, b.InitialSoC,
		int(b.TargetMonth), forecastJSON, time.Now())

	return err
}

// GetBattery retrieves the battery configuration, or a 12V default when
// none has been saved yet
func (s *Store) GetBattery() (engine.BatteryConfig, error) {
	query := `SELECT capacity_ah, voltage, initial_soc, target_month, forecast
		FROM battery WHERE id = 'default'`

	var b engine.BatteryConfig
	var targetMonth int
	var forecastJSON sql.NullString

	err := s.db.QueryRow(query).Scan(&b.CapacityAh, &b.Voltage, &b.InitialSoC, &targetMonth, &forecastJSON)
	if err == sql.ErrNoRows {
		return engine.BatteryConfig{Voltage: 12, InitialSoC: 100}, nil
	}
	if err != nil {
		return b, err
	}

	b.TargetMonth = time.Month(targetMonth)
	if forecastJSON.Valid {
		var forecast engine.IrradianceForecast
		if err := json.Unmarshal([]byte(forecastJSON.String), &forecast); err != nil {
			return b, fmt.Errorf("decoding forecast: %w", err)
		}
		b.Forecast = &forecast
	}

	return b, nil
}

// Snapshot reads the whole stored system as a document
func (s *Store) Snapshot() (document.Document, error) {
	var doc document.Document
	var err error

	if doc.Loads, err = s.GetLoads(); err != nil {
		return doc, fmt.Errorf("reading loads: %w", err)
	}
	if doc.Sources, err = s.GetSources(); err != nil {
		return doc, fmt.Errorf("reading sources: %w", err)
	}
	if doc.Battery, err = s.GetBattery(); err != nil {
		return doc, fmt.Errorf("reading battery: %w", err)
	}

	doc.Version = document.CurrentVersion
	return doc, nil
}

// Replace overwrites the whole stored system with a document, atomically
func (s *Store) Replace(doc document.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM loads`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sources`); err != nil {
		return err
	}

	for _, l := range doc.Loads {
		_, err := tx.Exec(`INSERT INTO loads
			(id, category, name, quantity, watts, hours_per_day, duty_cycle_pct, enabled, notes, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID.String(), string(l.Category), l.Name, l.Quantity, l.Watts,
			l.HoursPerDay, l.DutyCyclePct, boolToInt(l.Enabled), l.Notes, time.Now())
		if err != nil {
			return err
		}
	}

	for _, src := range doc.Sources {
		_, err := tx.Exec(`INSERT INTO sources
			(id, name, quantity, input_watts, hours_per_day, efficiency, type, auto_solar, enabled, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			src.ID.String(), src.Name, src.Quantity, src.InputWatts, src.HoursPerDay,
			src.Efficiency, string(src.Type), boolToInt(src.AutoSolar), boolToInt(src.Enabled), time.Now())
		if err != nil {
			return err
		}
	}

	forecastJSON, err := encodeForecast(doc.Battery.Forecast)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO battery
		(id, capacity_ah, voltage, initial_soc, target_month, forecast, updated_at)
		VALUES ('default', ?, ?, ?, ?, ?, ?)`,
		doc.Battery.CapacityAh, doc.Battery.Voltage, doc.Battery.InitialSoC,
		int(doc.Battery.TargetMonth), forecastJSON, time.Now())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func encodeForecast(f *engine.IrradianceForecast) (sql.NullString, error) {
	if f == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding forecast: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type scanFunc func(dest ...any) error

func scanLoad(scan scanFunc) (engine.LoadItem, error) {
	var l engine.LoadItem
	var id, category string
	var enabled int

	err := scan(&id, &category, &l.Name, &l.Quantity, &l.Watts, &l.HoursPerDay,
		&l.DutyCyclePct, &enabled, &l.Notes)
	if err != nil {
		return l, err
	}

	l.ID, err = uuid.Parse(id)
	if err != nil {
		return l, fmt.Errorf("load id %q: %w", id, err)
	}
	l.Category = engine.LoadCategory(category)
	l.Enabled = enabled == 1
	return l, nil
}

func scanSource(scan scanFunc) (engine.GenerationSource, error) {
	var src engine.GenerationSource
	var id, srcType string
	var autoSolar, enabled int

	err := scan(&id, &src.Name, &src.Quantity, &src.InputWatts, &src.HoursPerDay,
		&src.Efficiency, &srcType, &autoSolar, &enabled)
	if err != nil {
		return src, err
	}

	src.ID, err = uuid.Parse(id)
	if err != nil {
		return src, fmt.Errorf("source id %q: %w", id, err)
	}
	src.Type = engine.SourceType(srcType)
	src.AutoSolar = autoSolar == 1
	src.Enabled = enabled == 1
	return src, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
