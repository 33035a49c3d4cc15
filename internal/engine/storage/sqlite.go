package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/geofind/internal/model"
)

// Entry is one recorded selection.
type Entry struct {
	ID         int64
	SessionID  string
	Query      string
	Country    model.Country
	SelectedAt time.Time
}

// Store keeps the history of selected countries.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS selections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		query TEXT NOT NULL,
		common_name TEXT NOT NULL,
		official_name TEXT,
		capital TEXT,
		region TEXT,
		population INTEGER,
		flag_svg TEXT,
		lat REAL,
		lng REAL,
		has_coords INTEGER NOT NULL DEFAULT 0,
		selected_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_selections_selected_at ON selections(selected_at);
	CREATE INDEX IF NOT EXISTS idx_selections_name ON selections(common_name);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Record appends a selection.
func (s *Store) Record(ctx context.Context, sessionID, query string, c model.Country, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selections
		(session_id, query, common_name, official_name, capital, region, population,
		 flag_svg, lat, lng, has_coords, selected_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		sessionID, query, c.CommonName, c.OfficialName, c.Capital, c.Region, c.Population,
		c.FlagSVG, c.Lat(), c.Lng(), c.HasCoords, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording selection: %w", err)
	}
	return nil
}

// Recent returns up to limit selections, newest first. limit <= 0 means all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := `
		SELECT id, session_id, query, common_name, official_name, capital, region,
		       population, flag_svg, lat, lng, has_coords, selected_at
		FROM selections ORDER BY selected_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			lat    float64
			lng    float64
			millis int64
		)
		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Query, &e.Country.CommonName, &e.Country.OfficialName,
			&e.Country.Capital, &e.Country.Region, &e.Country.Population, &e.Country.FlagSVG,
			&lat, &lng, &e.Country.HasCoords, &millis,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		e.Country.LatLng = [2]float64{lat, lng}
		e.SelectedAt = time.UnixMilli(millis)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM selections").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
