package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS passes (
    pass_id              TEXT PRIMARY KEY,
    source               TEXT NOT NULL,
    ran_at               TEXT NOT NULL,
    duration_ms          INTEGER NOT NULL,
    row_count            INTEGER NOT NULL,
    total_records        INTEGER NOT NULL,
    total_storage_gb     REAL NOT NULL,
    total_cost           REAL NOT NULL,
    currency             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pass_rows (
    pass_id              TEXT NOT NULL REFERENCES passes(pass_id) ON DELETE CASCADE,
    position             INTEGER NOT NULL,
    name                 TEXT NOT NULL,
    records              INTEGER NOT NULL,
    storage_gb           REAL NOT NULL,
    cost                 REAL NOT NULL,
    cost_text            TEXT NOT NULL,
    PRIMARY KEY (pass_id, position)
);

CREATE INDEX IF NOT EXISTS idx_passes_ran_at ON passes(ran_at);
`
