/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "mangatrans/internal/log"
	"mangatrans/internal/version"

	// Postgres via database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the store schema. Bump it and add a step to
// runMigrations for breaking changes.
const schemaVersion = 2

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Dialect is the SQL flavor behind a Store.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Store is a handle to the marker/cache database. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
	l       *slog.Logger
}

// IsPostgresDSN reports whether dsn selects the shared Postgres backend.
func IsPostgresDSN(dsn string) bool {
	d := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://")
}

// Open connects to dsn, creating the SQLite file and schema as needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage dsn is required")
	}
	s := &Store{dialect: SQLite, l: applog.WithComponent("storage")}
	var err error
	if IsPostgresDSN(dsn) {
		s.dialect = Postgres
		s.db, err = sql.Open("pgx", dsn)
	} else {
		s.db, err = openSQLite(dsn)
	}
	if err != nil {
		l.Error("open failed", slog.String("dialect", s.dialect.String()), slog.Any("err", err))
		return nil, fmt.Errorf("open %s: %w", s.dialect, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("ping %s: %w", s.dialect, err)
	}
	if s.dialect == SQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = s.db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = s.db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := s.runMigrations(ctx); err != nil {
		_ = s.db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("store ready", slog.String("dialect", s.dialect.String()))
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer for the embedded database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Dialect() Dialect { return s.dialect }

// DB exposes the underlying handle for diagnostics and tests.
func (s *Store) DB() *sql.DB { return s.db }

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) ddl(q string) string {
	float, big := "REAL", "INTEGER"
	if s.dialect == Postgres {
		float, big = "DOUBLE PRECISION", "BIGINT"
	}
	return strings.NewReplacer("{{float}}", float, "{{bigint}}", big).Replace(q)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			version    INTEGER NOT NULL,
			app        TEXT,
			updated_at TEXT NOT NULL
		)`,
		// one row per saved page, so an empty marker list is distinguishable from "never saved"
		`CREATE TABLE IF NOT EXISTS pages (
			project_id TEXT    NOT NULL,
			page_index INTEGER NOT NULL,
			updated_at TEXT    NOT NULL,
			PRIMARY KEY(project_id, page_index)
		)`,
		`CREATE TABLE IF NOT EXISTS markers (
			project_id       TEXT    NOT NULL,
			page_index       INTEGER NOT NULL,
			ord              INTEGER NOT NULL,
			id               TEXT    NOT NULL,
			category         TEXT    NOT NULL,
			status           TEXT    NOT NULL,
			translation_text TEXT    NOT NULL DEFAULT '',
			proof_text       TEXT    NOT NULL DEFAULT '',
			x                {{float}} NOT NULL,
			y                {{float}} NOT NULL,
			width            {{float}} NOT NULL,
			height           {{float}} NOT NULL,
			PRIMARY KEY(project_id, page_index, id)
		)`,
		`CREATE TABLE IF NOT EXISTS cached_projects (
			project_id       TEXT PRIMARY KEY,
			project_name     TEXT NOT NULL,
			status           TEXT NOT NULL,
			file_count       {{bigint}} NOT NULL DEFAULT 0,
			total_size_bytes {{bigint}} NOT NULL DEFAULT 0,
			cached_at        {{bigint}} NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, s.ddl(q)); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: start at 1 and let migrations bring it up
		if _, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO schema_version (id, version, app, updated_at) VALUES (1, ?, ?, ?)`), 1, version.String(), now); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE schema_version SET app=?, updated_at=? WHERE id=1`), version.String(), now); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// runMigrations applies incremental steps up to schemaVersion.
func (s *Store) runMigrations(ctx context.Context) error {
	cur, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_markers_page ON markers(project_id, page_index, ord)`,
				`CREATE INDEX IF NOT EXISTS idx_cached_projects_at ON cached_projects(cached_at)`,
			}
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE schema_version SET version=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		s.l.Debug("migrated", slog.Int("version", next))
		cur = next
	}
	return nil
}
