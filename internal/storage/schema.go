package storage

// Schema creates the tables used by SQLStore. It is valid for both SQLite
// and PostgreSQL and safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS updates (
    id           TEXT PRIMARY KEY,
    person_name  TEXT NOT NULL,
    role         TEXT NOT NULL DEFAULT '',
    yesterday    TEXT NOT NULL DEFAULT '',
    today        TEXT NOT NULL DEFAULT '',
    blockers     TEXT NOT NULL DEFAULT '',
    update_date  TEXT NOT NULL,
    submitted_at TEXT NOT NULL,
    UNIQUE (person_name, update_date)
);

CREATE INDEX IF NOT EXISTS idx_updates_date ON updates(update_date);

CREATE TABLE IF NOT EXISTS report_snapshots (
    id             TEXT PRIMARY KEY,
    week_start     TEXT NOT NULL,
    week_end       TEXT NOT NULL,
    total_updates  INTEGER NOT NULL DEFAULT 0,
    unique_members INTEGER NOT NULL DEFAULT 0,
    report_data    TEXT NULL,
    status         TEXT NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending', 'generated', 'failed')),
    error          TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    UNIQUE (week_start, week_end)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON report_snapshots(updated_at);
`

// MySQLSchema is the MySQL form of Schema. Key columns are VARCHAR because
// MySQL cannot index unbounded TEXT, and the statements run one at a time.
var MySQLSchema = []string{
	`CREATE TABLE IF NOT EXISTS updates (
    id           VARCHAR(36) PRIMARY KEY,
    person_name  VARCHAR(255) NOT NULL,
    role         VARCHAR(255) NOT NULL DEFAULT '',
    yesterday    TEXT NOT NULL,
    today        TEXT NOT NULL,
    blockers     TEXT NOT NULL,
    update_date  CHAR(10) NOT NULL,
    submitted_at CHAR(30) NOT NULL,
    UNIQUE KEY uq_updates_person_date (person_name, update_date),
    INDEX idx_updates_date (update_date)
) DEFAULT CHARSET = utf8mb4`,
	`CREATE TABLE IF NOT EXISTS report_snapshots (
    id             VARCHAR(36) PRIMARY KEY,
    week_start     CHAR(10) NOT NULL,
    week_end       CHAR(10) NOT NULL,
    total_updates  INT NOT NULL DEFAULT 0,
    unique_members INT NOT NULL DEFAULT 0,
    report_data    MEDIUMTEXT NULL,
    status         VARCHAR(16) NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending', 'generated', 'failed')),
    error          TEXT NOT NULL,
    created_at     CHAR(30) NOT NULL,
    updated_at     CHAR(30) NOT NULL,
    UNIQUE KEY uq_snapshots_week (week_start, week_end),
    INDEX idx_snapshots_updated (updated_at)
) DEFAULT CHARSET = utf8mb4`,
}
