package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

var (
	_ SeenLog   = (*Store)(nil)
	_ LeadStore = (*Store)(nil)
)

// Store is the sqlite backend. One file holds both the seen log and the
// lead table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Persistence("open sqlite", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, apperr.Persistence("open sqlite", fmt.Errorf("setting pragma %q: %w", p, err))
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
	CREATE TABLE IF NOT EXISTS seen_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT,
		date TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_seen_log_entity ON seen_log(entity_id);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		lead_name TEXT NOT NULL,
		contact_profile_url TEXT,
		platform TEXT NOT NULL,
		business_name TEXT NOT NULL,
		business_url TEXT,
		city_state TEXT,
		business_number TEXT,
		website_quality TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_leads_business_name ON leads(business_name);
	`
	if _, err := db.Exec(schema); err != nil {
		return apperr.Persistence("create schema", err)
	}
	return nil
}

func (s *Store) SeenIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT entity_id FROM seen_log WHERE entity_id != ''`)
	if err != nil {
		return nil, apperr.Persistence("read seen log", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Persistence("read seen log", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("read seen log", err)
	}
	return ids, nil
}

func (s *Store) Append(ctx context.Context, e model.SeenEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_log (name, address, date, entity_id) VALUES (?,?,?,?)`,
		e.Name, e.Address, e.Date, e.EntityID,
	)
	if err != nil {
		return apperr.Persistence("append seen log", err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, businessName string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM leads WHERE business_name = ? LIMIT 1`, businessName,
	).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, apperr.Persistence("lookup lead", err)
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, l model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads
		(id, lead_name, contact_profile_url, platform, business_name,
		 business_url, city_state, business_number, website_quality)
		VALUES (?,?,?,?,?,?,?,?,?)
	`,
		uuid.NewString(), l.LeadName, l.ContactProfileURL, l.Platform, l.BusinessName,
		l.BusinessURL, l.CityState, l.BusinessNumber, l.WebsiteQuality,
	)
	if err != nil {
		return apperr.Persistence("insert lead", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lead_name, COALESCE(contact_profile_url, ''), platform, business_name,
		       COALESCE(business_url, ''), COALESCE(city_state, ''),
		       COALESCE(business_number, ''), COALESCE(website_quality, '')
		FROM leads ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, apperr.Persistence("list leads", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.LeadName, &l.ContactProfileURL, &l.Platform, &l.BusinessName,
			&l.BusinessURL, &l.CityState, &l.BusinessNumber, &l.WebsiteQuality); err != nil {
			return nil, apperr.Persistence("list leads", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list leads", err)
	}
	return leads, nil
}

// Count returns the number of stored leads and seen-log rows.
func (s *Store) Count(ctx context.Context) (leads, seen int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&leads); err != nil {
		return 0, 0, apperr.Persistence("count leads", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seen_log").Scan(&seen); err != nil {
		return 0, 0, apperr.Persistence("count seen log", err)
	}
	return leads, seen, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
