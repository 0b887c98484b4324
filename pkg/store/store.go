// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists craft projects in a SQL database.
//
// PostgreSQL, MySQL and SQLite are supported. Records are read back through
// project.Normalize, so a row that no longer satisfies the project schema
// surfaces as a *project.ValidationError rather than a half-filled value.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/toddleops/pkg/project"
)

// ErrNotFound is returned when no project has the requested name.
var ErrNotFound = errors.New("project not found")

// Dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// Record is a stored project.
type Record struct {
	ID        int64
	Project   *project.StandardProject
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectStore is the persistence boundary for finished projects.
type ProjectStore interface {
	// List returns every stored project, oldest first.
	List(ctx context.Context) ([]Record, error)

	// GetByName returns the project with exactly this name.
	GetByName(ctx context.Context, name string) (*Record, error)

	// Save inserts p, or replaces the project with the same name.
	Save(ctx context.Context, p *project.StandardProject) (*Record, error)

	// Search returns up to limit projects whose text contains every word
	// of query, case-insensitively.
	Search(ctx context.Context, query string, limit int) ([]Record, error)
}

// SQLStore implements ProjectStore on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

const createProjectsTableSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id %s,
    name VARCHAR(255) NOT NULL UNIQUE,
    description TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL,
    materials TEXT NOT NULL,
    instructions TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

// New creates a store on db and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	switch dialect {
	case DialectPostgres, DialectMySQL, DialectSQLite:
	case "sqlite3":
		dialect = DialectSQLite
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &SQLStore{db: db, dialect: dialect, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.dialect {
	case DialectPostgres:
		idColumn = "BIGSERIAL PRIMARY KEY"
	case DialectMySQL:
		idColumn = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(createProjectsTableSQL, idColumn))
	return err
}

// rebind rewrites ? placeholders for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const selectColumns = "id, name, description, duration_minutes, materials, instructions, created_at, updated_at"

// List returns every stored project, oldest first.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// GetByName returns the project with exactly this name.
func (s *SQLStore) GetByName(ctx context.Context, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+selectColumns+" FROM projects WHERE name = ?"), name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %q: %w", name, err)
	}
	return rec, nil
}

// Save inserts p, or replaces the project with the same name.
func (s *SQLStore) Save(ctx context.Context, p *project.StandardProject) (*Record, error) {
	if p == nil {
		return nil, errors.New("project is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsOutOfScope() {
		return nil, errors.New("refusing to save the out-of-scope project")
	}

	materials, err := json.Marshal(p.Materials)
	if err != nil {
		return nil, fmt.Errorf("failed to encode materials: %w", err)
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, s.rebind("SELECT id, created_at FROM projects WHERE name = ?"), p.Name).Scan(&id, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = s.insert(ctx, tx, p, string(materials), now)
		if err != nil {
			return nil, err
		}
		createdAt = now
	case err != nil:
		return nil, fmt.Errorf("failed to look up project %q: %w", p.Name, err)
	default:
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE projects
SET description = ?, duration_minutes = ?, materials = ?, instructions = ?, updated_at = ?
WHERE id = ?`), p.Description, p.DurationMinutes, string(materials), p.Instructions, now, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update project %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project %q: %w", p.Name, err)
	}

	s.logger.Debug("Saved project", "id", id, "name", p.Name)

	saved := *p
	return &Record{ID: id, Project: &saved, CreatedAt: createdAt, UpdatedAt: now}, nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, p *project.StandardProject, materials string, now time.Time) (int64, error) {
	query := `INSERT INTO projects (name, description, duration_minutes, materials, instructions, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []any{p.Name, p.Description, p.DurationMinutes, materials, p.Instructions, now, now}

	if s.dialect == DialectPostgres {
		var id int64
		if err := tx.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert project %q: %w", p.Name, err)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert project %q: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read project id: %w", err)
	}
	return id, nil
}

// likeEscaper makes LIKE wildcards in a search word match literally. The
// escape character is '!' because backslash is itself special in MySQL
// string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search returns up to limit projects whose text contains every word of
// query, case-insensitively. A non-positive limit means no limit.
func (s *SQLStore) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	words := strings.Fields(strings.ToLower(query))

	var (
		conds []string
		args  []any
	)
	for _, w := range words {
		conds = append(conds, "LOWER(name || ' ' || description || ' ' || materials || ' ' || instructions) LIKE ? ESCAPE '!'")
		args = append(args, "%"+likeEscaper.Replace(w)+"%")
	}

	q := "SELECT " + selectColumns + " FROM projects"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY updated_at DESC, id DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	if s.dialect == DialectMySQL {
		q = strings.ReplaceAll(q, "name || ' ' || description || ' ' || materials || ' ' || instructions",
			"CONCAT_WS(' ', name, description, materials, instructions)")
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

func (s *SQLStore) scanAll(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                    Record
		name, description      string
		materials, instruction string
		duration               int
	)
	if err := row.Scan(&rec.ID, &name, &description, &duration, &materials, &instruction, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	var materialsValue any
	if err := json.Unmarshal([]byte(materials), &materialsValue); err != nil {
		// Rows written by other tools may hold plain text.
		materialsValue = materials
	}

	p, err := project.Normalize(map[string]any{
		"name":             name,
		"description":      description,
		"duration_minutes": duration,
		"materials":        materialsValue,
		"instructions":     instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", rec.ID, err)
	}
	rec.Project = p
	return &rec, nil
}

var _ ProjectStore = (*SQLStore)(nil)
