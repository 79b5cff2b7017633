package store

const schema = `
CREATE TABLE IF NOT EXISTS corpora (
    date         TEXT PRIMARY KEY,
    document     TEXT NOT NULL,
    runs         INTEGER NOT NULL DEFAULT 0,
    last_updated TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_corpora_last_updated ON corpora(last_updated);

CREATE TABLE IF NOT EXISTS artifacts (
    date       TEXT NOT NULL,
    name       TEXT NOT NULL,
    content    BLOB NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (date, name)
);
`
