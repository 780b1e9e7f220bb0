// Package repo — история запусков пайплайна в embedded SQLite-базе
// внутри выходного каталога. История переживает процесс: прошлые
// запуски доступны командам runs list / runs show.
package repo

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schema создаётся идемпотентно при каждом открытии базы.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	output_dir  TEXT NOT NULL,
	status      TEXT NOT NULL,
	samples     INTEGER NOT NULL,
	excluded    TEXT NOT NULL DEFAULT '[]',
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	stage       TEXT NOT NULL,
	sample_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	outputs     TEXT NOT NULL DEFAULT '[]',
	duration_ms INTEGER NOT NULL,
	cached      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_run ON tasks(run_id);
`

// Open открывает (и при необходимости инициализирует) базу истории.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite не рассчитан на конкурентные записи из одного процесса.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return db, nil
}
