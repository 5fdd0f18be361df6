package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

var _ LeadStore = (*PostgresLeadStore)(nil)

type PostgresLeadStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id UUID PRIMARY KEY,
	lead_name TEXT NOT NULL,
	contact_profile_url TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL,
	business_name TEXT NOT NULL,
	business_url TEXT NOT NULL DEFAULT '',
	city_state TEXT NOT NULL DEFAULT '',
	business_number TEXT NOT NULL DEFAULT '',
	website_quality TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_leads_business_name ON leads(business_name);
`

// NewPostgresLeadStore connects, pings and ensures the schema.
func NewPostgresLeadStore(ctx context.Context, dsn string) (*PostgresLeadStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Persistence("open postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Persistence("ping postgres", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, apperr.Persistence("create schema", err)
	}
	return &PostgresLeadStore{pool: pool}, nil
}

func (p *PostgresLeadStore) Exists(ctx context.Context, businessName string) (bool, error) {
	var one int
	err := p.pool.QueryRow(ctx, `SELECT 1 FROM leads WHERE business_name = $1 LIMIT 1`, businessName).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Persistence("lookup lead", err)
	}
	return true, nil
}

func (p *PostgresLeadStore) Insert(ctx context.Context, l model.Lead) error {
	_, err := p.pool.Exec(ctx, `
	INSERT INTO leads (
		id, lead_name, contact_profile_url, platform, business_name,
		business_url, city_state, business_number, website_quality
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.New(), l.LeadName, l.ContactProfileURL, l.Platform, l.BusinessName,
		l.BusinessURL, l.CityState, l.BusinessNumber, l.WebsiteQuality,
	)
	if err != nil {
		return apperr.Persistence("insert lead", err)
	}
	return nil
}

func (p *PostgresLeadStore) List(ctx context.Context) ([]model.Lead, error) {
	rows, err := p.pool.Query(ctx, `
	SELECT lead_name, contact_profile_url, platform, business_name,
	       business_url, city_state, business_number, website_quality
	FROM leads ORDER BY created_at
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

func (p *PostgresLeadStore) Close() error {
	p.pool.Close()
	return nil
}
