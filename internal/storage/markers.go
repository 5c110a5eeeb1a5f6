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
	"strings"
	"time"

	"mangatrans/internal/domain"
)

// SavePageMarkers replaces the stored marker list of one page in a single
// transaction, keeping list order.
func (s *Store) SavePageMarkers(ctx context.Context, projectID string, pageIndex int, markers []domain.Marker) (err error) {
	if strings.TrimSpace(projectID) == "" {
		return errors.New("project id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM markers WHERE project_id=? AND page_index=?`), projectID, pageIndex); err != nil {
		return fmt.Errorf("clear markers: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO markers
		(project_id, page_index, ord, id, category, status, translation_text, proof_text, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, m := range markers {
		m = m.Normalize()
		p := m.Position
		if _, err = stmt.ExecContext(ctx, projectID, pageIndex, i, m.ID, string(m.Category), string(m.Status),
			m.TranslationText, m.ProofText, p.X, p.Y, p.Width, p.Height); err != nil {
			return fmt.Errorf("insert marker %s: %w", m.ID, err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO pages (project_id, page_index, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(project_id, page_index) DO UPDATE SET updated_at = excluded.updated_at`), projectID, pageIndex, now); err != nil {
		return fmt.Errorf("touch page: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("markers saved", slog.String("project", projectID), slog.Int("page", pageIndex), slog.Int("count", len(markers)))
	return nil
}

// LoadPageMarkers returns the stored markers of a page. found is false when
// the page was never saved, which lets callers fall back to other sources.
func (s *Store) LoadPageMarkers(ctx context.Context, projectID string, pageIndex int) (markers []domain.Marker, found bool, err error) {
	var ts string
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT updated_at FROM pages WHERE project_id=? AND page_index=?`), projectID, pageIndex).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read page: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, category, status, translation_text, proof_text, x, y, width, height
		FROM markers WHERE project_id=? AND page_index=? ORDER BY ord`), projectID, pageIndex)
	if err != nil {
		return nil, false, fmt.Errorf("query markers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	markers = []domain.Marker{}
	for rows.Next() {
		var m domain.Marker
		var cat, status string
		if err := rows.Scan(&m.ID, &cat, &status, &m.TranslationText, &m.ProofText,
			&m.Position.X, &m.Position.Y, &m.Position.Width, &m.Position.Height); err != nil {
			return nil, false, fmt.Errorf("scan marker: %w", err)
		}
		m.Category = domain.Category(cat)
		m.Status = domain.Status(status)
		markers = append(markers, m.Normalize())
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate markers: %w", err)
	}
	return markers, true, nil
}

// SavedPages lists the page indexes of a project that have stored markers.
func (s *Store) SavedPages(ctx context.Context, projectID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT page_index FROM pages WHERE project_id=? ORDER BY page_index`), projectID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []int
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
