package storage

import (
	"context"
	"errors"
	"io"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/config"
)

// Stores bundles the backends selected by configuration.
type Stores struct {
	SeenLog SeenLog
	Leads   LeadStore

	closers []io.Closer
}

// Open builds the configured seen log and lead store. When both use sqlite
// with the same path they share one Store.
func Open(ctx context.Context, cfg config.StorageConfig) (*Stores, error) {
	s := &Stores{}
	sqliteByPath := map[string]*Store{}

	openSQLite := func(path string) (*Store, error) {
		if st, ok := sqliteByPath[path]; ok {
			return st, nil
		}
		st, err := NewStore(path)
		if err != nil {
			return nil, err
		}
		sqliteByPath[path] = st
		s.closers = append(s.closers, st)
		return st, nil
	}

	switch cfg.SeenLog.Backend {
	case "sqlite", "":
		st, err := openSQLite(cfg.SeenLog.SQLite.Path)
		if err != nil {
			return nil, s.fail(err)
		}
		s.SeenLog = st
	case "redis":
		r, err := NewRedisSeenLog(ctx, RedisOptions{
			Address:  cfg.SeenLog.Redis.Address,
			Password: cfg.SeenLog.Redis.Password,
			DB:       cfg.SeenLog.Redis.DB,
			Key:      cfg.SeenLog.Redis.Key,
		})
		if err != nil {
			return nil, s.fail(err)
		}
		s.SeenLog = r
		s.closers = append(s.closers, r)
	case "sheets":
		sh, err := NewSheetsSeenLog(ctx, SheetsOptions{
			CredentialsFile: cfg.SeenLog.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.SeenLog.Sheets.SpreadsheetID,
			Sheet:           cfg.SeenLog.Sheets.Sheet,
			Endpoint:        cfg.SeenLog.Sheets.Endpoint,
		})
		if err != nil {
			return nil, s.fail(err)
		}
		s.SeenLog = sh
	default:
		return nil, apperr.Configf("open storage", "unknown seen log backend %q", cfg.SeenLog.Backend)
	}

	switch cfg.Leads.Backend {
	case "sqlite", "":
		st, err := openSQLite(cfg.Leads.SQLite.Path)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Leads = st
	case "postgres":
		pg, err := NewPostgresLeadStore(ctx, cfg.Leads.Postgres.DSN)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Leads = pg
		s.closers = append(s.closers, pg)
	default:
		return nil, s.fail(apperr.Configf("open storage", "unknown lead store backend %q", cfg.Leads.Backend))
	}

	return s, nil
}

func (s *Stores) fail(err error) error {
	return errors.Join(err, s.Close())
}

// Close closes every opened backend once.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
