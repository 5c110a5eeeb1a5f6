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
	"time"
)

// Cache states recorded after a pull.
const (
	CacheCompleted = "completed"
	CacheFailed    = "failed"
)

// CachedProject describes a project whose page images were downloaded.
type CachedProject struct {
	ProjectID      string    `json:"projectId"`
	ProjectName    string    `json:"projectName"`
	Status         string    `json:"status"`
	FileCount      int64     `json:"fileCount"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
	CachedAt       time.Time `json:"cachedAt"`
}

// UpsertCachedProject inserts or replaces the metadata row of a project.
func (s *Store) UpsertCachedProject(ctx context.Context, c CachedProject) error {
	if c.ProjectID == "" {
		return errors.New("project id is required")
	}
	if c.CachedAt.IsZero() {
		c.CachedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO cached_projects
		(project_id, project_name, status, file_count, total_size_bytes, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			project_name = excluded.project_name,
			status = excluded.status,
			file_count = excluded.file_count,
			total_size_bytes = excluded.total_size_bytes,
			cached_at = excluded.cached_at`),
		c.ProjectID, c.ProjectName, c.Status, c.FileCount, c.TotalSizeBytes, c.CachedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert cached project: %w", err)
	}
	return nil
}

const cachedProjectCols = `project_id, project_name, status, file_count, total_size_bytes, cached_at`

type scanner interface{ Scan(dest ...any) error }

func scanCachedProject(r scanner) (CachedProject, error) {
	var c CachedProject
	var at int64
	if err := r.Scan(&c.ProjectID, &c.ProjectName, &c.Status, &c.FileCount, &c.TotalSizeBytes, &at); err != nil {
		return CachedProject{}, err
	}
	c.CachedAt = time.Unix(at, 0)
	return c, nil
}

// CachedProject returns one metadata row or ErrNotFound.
func (s *Store) CachedProject(ctx context.Context, projectID string) (CachedProject, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+cachedProjectCols+` FROM cached_projects WHERE project_id=?`), projectID)
	c, err := scanCachedProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedProject{}, ErrNotFound
	}
	if err != nil {
		return CachedProject{}, fmt.Errorf("read cached project: %w", err)
	}
	return c, nil
}

// CachedProjects lists every metadata row, newest first.
func (s *Store) CachedProjects(ctx context.Context) ([]CachedProject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cachedProjectCols+` FROM cached_projects ORDER BY cached_at DESC, project_id`)
	if err != nil {
		return nil, fmt.Errorf("query cached projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []CachedProject
	for rows.Next() {
		c, err := scanCachedProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached project: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCachedProject removes a metadata row. Missing rows are not an error.
func (s *Store) DeleteCachedProject(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cached_projects WHERE project_id=?`), projectID); err != nil {
		return fmt.Errorf("delete cached project: %w", err)
	}
	return nil
}
