package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
    key            TEXT PRIMARY KEY,
    language_count INTEGER NOT NULL DEFAULT 0,
    rating         REAL,
    fetched_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enrichment_fetched_at ON enrichment_cache(fetched_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
    key            TEXT PRIMARY KEY,
    language_count INTEGER NOT NULL DEFAULT 0,
    rating         DOUBLE PRECISION,
    fetched_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enrichment_fetched_at ON enrichment_cache(fetched_at);
`
