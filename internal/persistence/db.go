// Package persistence keeps the town's chronicle in SQLite: headlines, era
// changes, and yearly statistics. It is an append-only history, not a save
// file; game state is never restored from it.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/engine"
)

// DB wraps a SQLite connection for the chronicle.
type DB struct {
	conn *sqlx.DB
	run  string // current playthrough id
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS playthroughs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS headlines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playthrough TEXT NOT NULL,
		year REAL NOT NULL,
		era TEXT NOT NULL,
		text TEXT NOT NULL,
		fallback INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS era_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playthrough TEXT NOT NULL,
		year REAL NOT NULL,
		from_era TEXT NOT NULL,
		to_era TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS annual_stats (
		playthrough TEXT NOT NULL,
		year INTEGER NOT NULL,
		era TEXT NOT NULL,
		money REAL NOT NULL,
		population REAL NOT NULL,
		capacity REAL NOT NULL,
		buildings INTEGER NOT NULL,
		roads INTEGER NOT NULL,
		income REAL NOT NULL,
		mission TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (playthrough, year)
	);

	CREATE TABLE IF NOT EXISTS chronicle_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_headlines_playthrough ON headlines(playthrough);
	CREATE INDEX IF NOT EXISTS idx_era_changes_playthrough ON era_changes(playthrough);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginPlaythrough registers a new playthrough; later writes and reads are
// scoped to it. Returns the playthrough id.
func (db *DB) BeginPlaythrough(seed int64) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO playthroughs (id, seed, started_at) VALUES (?, ?, ?)",
		id, seed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("begin playthrough: %w", err)
	}
	db.run = id
	if err := db.SaveMeta("last_playthrough", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	slog.Info("chronicle opened", "playthrough", id, "seed", seed)
	return id, nil
}

// Playthrough returns the current playthrough id.
func (db *DB) Playthrough() string {
	return db.run
}

// SaveHeadline appends a headline.
func (db *DB) SaveHeadline(h engine.Headline) error {
	_, err := db.conn.Exec(
		"INSERT INTO headlines (playthrough, year, era, text, fallback) VALUES (?, ?, ?, ?, ?)",
		db.run, h.Year, h.Era.String(), h.Text, h.Fallback,
	)
	return err
}

// SaveEraChange appends an era transition.
func (db *DB) SaveEraChange(c engine.EraChange) error {
	_, err := db.conn.Exec(
		"INSERT INTO era_changes (playthrough, year, from_era, to_era) VALUES (?, ?, ?, ?)",
		db.run, c.Year, c.From.String(), c.To.String(),
	)
	return err
}

// SaveAnnualReport stores the statistics for one year, replacing any earlier
// row for the same year.
func (db *DB) SaveAnnualReport(r engine.AnnualReport) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO annual_stats
		(playthrough, year, era, money, population, capacity, buildings, roads, income, mission)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.run, r.Year, r.Era.String(), r.Money, r.Population, r.Capacity,
		r.Buildings, r.Roads, r.Income, r.Mission,
	)
	return err
}

type headlineRow struct {
	Year     float64 `db:"year"`
	Era      string  `db:"era"`
	Text     string  `db:"text"`
	Fallback bool    `db:"fallback"`
}

// RecentHeadlines returns the most recent headlines, newest first.
func (db *DB) RecentHeadlines(limit int) ([]engine.Headline, error) {
	var rows []headlineRow
	err := db.conn.Select(&rows,
		"SELECT year, era, text, fallback FROM headlines WHERE playthrough = ? ORDER BY id DESC LIMIT ?",
		db.run, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Headline, len(rows))
	for i, r := range rows {
		era, _ := city.ParseEra(r.Era)
		out[i] = engine.Headline{Year: r.Year, Era: era, Text: r.Text, Fallback: r.Fallback}
	}
	return out, nil
}

type eraRow struct {
	Year float64 `db:"year"`
	From string  `db:"from_era"`
	To   string  `db:"to_era"`
}

// EraChanges returns every era transition in order.
func (db *DB) EraChanges() ([]engine.EraChange, error) {
	var rows []eraRow
	err := db.conn.Select(&rows,
		"SELECT year, from_era, to_era FROM era_changes WHERE playthrough = ? ORDER BY id",
		db.run,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.EraChange, len(rows))
	for i, r := range rows {
		from, _ := city.ParseEra(r.From)
		to, _ := city.ParseEra(r.To)
		out[i] = engine.EraChange{Year: r.Year, From: from, To: to}
	}
	return out, nil
}

type statsRow struct {
	Year       int     `db:"year"`
	Era        string  `db:"era"`
	Money      float64 `db:"money"`
	Population float64 `db:"population"`
	Capacity   float64 `db:"capacity"`
	Buildings  int     `db:"buildings"`
	Roads      int     `db:"roads"`
	Income     float64 `db:"income"`
	Mission    string  `db:"mission"`
}

// StatsHistory returns up to limit of the latest annual reports, oldest first.
func (db *DB) StatsHistory(limit int) ([]engine.AnnualReport, error) {
	var rows []statsRow
	err := db.conn.Select(&rows, `SELECT * FROM (
		SELECT year, era, money, population, capacity, buildings, roads, income, mission
		FROM annual_stats WHERE playthrough = ? ORDER BY year DESC LIMIT ?
	) ORDER BY year`, db.run, limit)
	if err != nil {
		return nil, err
	}
	out := make([]engine.AnnualReport, len(rows))
	for i, r := range rows {
		era, _ := city.ParseEra(r.Era)
		out[i] = engine.AnnualReport{
			Year:       r.Year,
			Era:        era,
			Money:      r.Money,
			Population: r.Population,
			Capacity:   r.Capacity,
			Buildings:  r.Buildings,
			Roads:      r.Roads,
			Income:     r.Income,
			Mission:    r.Mission,
		}
	}
	return out, nil
}

// SaveMeta stores a key-value pair in chronicle metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO chronicle_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM chronicle_meta WHERE key = ?", key)
	return value, err
}

// Attach records the simulation's headlines, era changes, and annual reports
// as they happen. Write failures are logged and never stop the simulation.
func (db *DB) Attach(sim *engine.Simulation) {
	sim.OnNews = chain(sim.OnNews, func(h engine.Headline) {
		if err := db.SaveHeadline(h); err != nil {
			slog.Warn("chronicle: save headline", "error", err)
		}
	})
	sim.OnEraChange = chain(sim.OnEraChange, func(c engine.EraChange) {
		if err := db.SaveEraChange(c); err != nil {
			slog.Warn("chronicle: save era change", "error", err)
		}
	})
	sim.OnAnnualReport = chain(sim.OnAnnualReport, func(r engine.AnnualReport) {
		if err := db.SaveAnnualReport(r); err != nil {
			slog.Warn("chronicle: save annual report", "error", err)
		}
	})
}

func chain[T any](prev, next func(T)) func(T) {
	if prev == nil {
		return next
	}
	return func(v T) {
		prev(v)
		next(v)
	}
}
