package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/scorecard/pkg/enrich"
)

type cacheRow struct {
	Key           string          `db:"key"`
	LanguageCount int             `db:"language_count"`
	Rating        sql.NullFloat64 `db:"rating"`
	FetchedAt     time.Time       `db:"fetched_at"`
}

func (r cacheRow) entry() Entry {
	rating := enrich.Unknown()
	if r.Rating.Valid {
		rating = enrich.Known(r.Rating.Float64)
	}
	return Entry{
		Key:       r.Key,
		Record:    enrich.Record{LanguageCount: r.LanguageCount, Rating: rating},
		FetchedAt: r.FetchedAt,
	}
}

// SQLStore keeps the enrichment cache in a SQLite or Postgres table.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore opens the database and creates the cache table. For SQLite,
// dsn may be a plain file path.
func NewSQLStore(ctx context.Context, backend Backend, dsn string) (*SQLStore, error) {
	var driver, schema string
	switch backend {
	case BackendSQLite:
		driver, schema = "sqlite", schemaSQLite
		if dsn == "" {
			dsn = "./scorecard.db"
		}
		if !strings.Contains(dsn, "?") {
			dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case BackendPostgres:
		driver, schema = "pgx", schemaPostgres
		if dsn == "" {
			dsn = "postgres://localhost:5432/scorecard?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported sql backend: %s", backend)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, key string) (enrich.Record, bool, error) {
	var row cacheRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		"SELECT key, language_count, rating, fetched_at FROM enrichment_cache WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return enrich.Record{}, false, nil
	}
	if err != nil {
		return enrich.Record{}, false, fmt.Errorf("get cache entry %s: %w", key, err)
	}
	return row.entry().Record, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, rec enrich.Record) error {
	var rating sql.NullFloat64
	if v, ok := rec.Rating.Value(); ok {
		rating = sql.NullFloat64{Float64: v, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO enrichment_cache (key, language_count, rating, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			language_count = excluded.language_count,
			rating = excluded.rating,
			fetched_at = excluded.fetched_at
	`), key, rec.LanguageCount, rating, s.now())
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	var rows []cacheRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT key, language_count, rating, fetched_at FROM enrichment_cache ORDER BY key"); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM enrichment_cache WHERE key = ?"), key)
	if err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}
