// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlstore is the relational adapter for member and benefit data.
//
// The benefit tables are transposed wide tables: a single Metric key column
// plus one column per member id. Reading a member's values therefore
// requires interpolating the member id as a column identifier, which is why
// every dynamic identifier must pass ValidIdentifier before composition.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to interpolate as a SQL
// identifier. The allow-list is strict: leading letter, then letters,
// digits and underscores only.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// InvalidIdentifierError is returned when a dynamic identifier fails the
// allow-list. The offending value is carried for logging, never echoed
// into SQL.
type InvalidIdentifierError struct {
	Identifier string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid SQL identifier: %q", e.Identifier)
}

// NotFoundError indicates that a lookup key has no row or column in the
// named table.
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no data for %q", e.Table, e.Key)
}

// MemberRow is a row of the members table.
type MemberRow struct {
	MemberID  string `db:"member_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	DOB       string `db:"dob"`
}

// MetricValue is one row of a transposed wide table projected onto a
// single member column. Value is null when the metric does not apply to
// the member.
type MetricValue struct {
	Metric string
	Value  sql.NullFloat64
}

// Store is the relational adapter. It is safe for concurrent use.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection. Pool sizes of
// zero keep the driver defaults.
func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing connection pool. Used by tests with sqlmock.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "sqlstore"),
	}
}

// Ping reports adapter liveness for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// MemberByID fetches a member row by id. Returns NotFoundError when the
// member does not exist.
func (s *Store) MemberByID(ctx context.Context, table, memberID string) (*MemberRow, error) {
	if !ValidIdentifier(table) {
		return nil, &InvalidIdentifierError{Identifier: table}
	}

	query := fmt.Sprintf(
		`SELECT member_id, first_name, last_name, dob FROM %s WHERE member_id = $1`, table)

	var row MemberRow
	if err := s.db.GetContext(ctx, &row, query, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Table: table, Key: memberID}
		}
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	return &row, nil
}

// FindMember looks a member up by any combination of id, dob and name.
// Provided fields are ANDed; name matches case-insensitively against the
// concatenated full name. At least one field must be set.
func (s *Store) FindMember(ctx context.Context, table, memberID, dob, name string) (*MemberRow, error) {
	if !ValidIdentifier(table) {
		return nil, &InvalidIdentifierError{Identifier: table}
	}
	if memberID == "" && dob == "" && name == "" {
		return nil, fmt.Errorf("at least one of member id, dob or name is required")
	}

	var conds []string
	var args []any
	if memberID != "" {
		args = append(args, memberID)
		conds = append(conds, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if dob != "" {
		args = append(args, dob)
		conds = append(conds, fmt.Sprintf("dob = $%d", len(args)))
	}
	if name != "" {
		args = append(args, "%"+strings.ToLower(name)+"%")
		conds = append(conds, fmt.Sprintf(
			"LOWER(first_name || ' ' || last_name) LIKE $%d", len(args)))
	}

	query := fmt.Sprintf(
		`SELECT member_id, first_name, last_name, dob FROM %s WHERE %s LIMIT 1`,
		table, strings.Join(conds, " AND "))

	var row MemberRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			key := memberID
			if key == "" {
				key = name
			}
			return nil, &NotFoundError{Table: table, Key: key}
		}
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	return &row, nil
}

// MemberMetrics projects the member's column out of a transposed wide
// table, returning every metric row. The member id becomes a column
// identifier, so it must pass the allow-list; rejection happens before any
// SQL is composed.
func (s *Store) MemberMetrics(ctx context.Context, table, memberID string) ([]MetricValue, error) {
	if !ValidIdentifier(table) {
		return nil, &InvalidIdentifierError{Identifier: table}
	}
	if !ValidIdentifier(memberID) {
		return nil, &InvalidIdentifierError{Identifier: memberID}
	}

	query := fmt.Sprintf(`SELECT "Metric", %q FROM %s`, memberID, table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		// A missing member column surfaces as a query error; report it
		// as not-found rather than leaking driver detail.
		s.logger.Debug("metric projection failed", "table", table, "error", err)
		return nil, &NotFoundError{Table: table, Key: memberID}
	}
	defer rows.Close()

	var metrics []MetricValue
	for rows.Next() {
		var mv MetricValue
		if err := rows.Scan(&mv.Metric, &mv.Value); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		metrics = append(metrics, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", table, err)
	}
	if len(metrics) == 0 {
		return nil, &NotFoundError{Table: table, Key: memberID}
	}
	return metrics, nil
}
