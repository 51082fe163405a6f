// Package store is a SQLite unit of work: entities are staged with Add, Update and Remove,
// and written in one transaction by Save. constraint failures come back as status errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/umputun/gensvc/pkg/status"
	"github.com/umputun/gensvc/pkg/store/migrations"
)

// ErrNotFound is returned by Find when no row matches the keys.
var ErrNotFound = errors.New("not found")

// Entity is a row the store can write. Values is aligned with Columns, key columns included.
type Entity interface {
	TableName() string
	KeyColumns() []string
	Columns() []string
	Values() []any
}

// Record is an Entity that can be loaded. ScanTargets is aligned with Columns.
type Record interface {
	Entity
	ScanTargets() []any
}

// Validator is implemented by entities checked before they are written.
type Validator interface {
	Validate() []status.ErrorEntry
}

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type change struct {
	kind   changeKind
	entity Entity
}

// Store persists entities in SQLite.
type Store struct {
	db     *sql.DB
	errMap ErrorMap

	mu      sync.Mutex
	pending []change
}

// Open opens the database at path and applies embedded migrations.
// a nil errMap uses DefaultErrorMap.
func Open(ctx context.Context, path string, errMap ErrorMap) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if errMap == nil {
		errMap = DefaultErrorMap()
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, errMap: errMap}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add stages an insert.
func (s *Store) Add(e Entity) { s.stage(changeInsert, e) }

// Update stages an update of the row matching the entity keys.
func (s *Store) Update(e Entity) { s.stage(changeUpdate, e) }

// Remove stages a delete of the row matching the entity keys.
func (s *Store) Remove(e Entity) { s.stage(changeDelete, e) }

func (s *Store) stage(kind changeKind, e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, change{kind: kind, entity: e})
}

// Pending returns the number of staged changes.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Discard drops all staged changes.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Save validates and writes staged changes in one transaction and returns the number of changed rows.
// validation and mapped constraint failures give an invalid result and nothing is written.
// staged changes are dropped in every case.
func (s *Store) Save(ctx context.Context) (status.Result[int], error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if errs := validate(pending); len(errs) > 0 {
		return status.NewResult[int]().WithErrors(errs...), nil
	}
	if len(pending) == 0 {
		return status.SuccessResult(0, "no changes"), nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return status.NewResult[int](), fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	changed := 0
	for _, c := range pending {
		n, err := exec(ctx, tx, c)
		if err != nil {
			if entry, ok := s.errMap.mapError(err); ok {
				return status.NewResult[int]().WithErrors(entry), nil
			}
			return status.NewResult[int](), fmt.Errorf("save %s: %w", c.entity.TableName(), err)
		}
		changed += n
	}

	if err := tx.Commit(); err != nil {
		return status.NewResult[int](), fmt.Errorf("commit save: %w", err)
	}
	return status.SuccessResult(changed, "%d change(s) saved", changed), nil
}

// Find loads the row matching keys, in KeyColumns order, into dst.
func (s *Store) Find(ctx context.Context, dst Record, keys ...any) error {
	keyCols := dst.KeyColumns()
	if len(keys) != len(keyCols) {
		return fmt.Errorf("find %s: want %d key(s), got %d", dst.TableName(), len(keyCols), len(keys))
	}

	query := "SELECT " + columnList(dst.Columns()) + " FROM " + quote(dst.TableName()) + " WHERE " + whereKeys(keyCols)
	err := s.db.QueryRowContext(ctx, query, keys...).Scan(dst.ScanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find %s %v: %w", dst.TableName(), keys, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", dst.TableName(), err)
	}
	return nil
}

func validate(changes []change) []status.ErrorEntry {
	var res []status.ErrorEntry
	for _, c := range changes {
		if c.kind == changeDelete {
			continue
		}
		if v, ok := c.entity.(Validator); ok {
			res = append(res, v.Validate()...)
		}
	}
	return res
}

func exec(ctx context.Context, tx *sql.Tx, c change) (int, error) {
	e := c.entity
	cols, vals := e.Columns(), e.Values()
	if len(cols) != len(vals) {
		return 0, fmt.Errorf("%d columns but %d values", len(cols), len(vals))
	}
	keyCols := e.KeyColumns()
	keyVals, err := keyValues(cols, vals, keyCols)
	if err != nil {
		return 0, err
	}

	var query string
	var args []any
	switch c.kind {
	case changeInsert:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query = "INSERT INTO " + quote(e.TableName()) + " (" + columnList(cols) + ") VALUES (" + placeholders + ")"
		args = vals
	case changeUpdate:
		sets := make([]string, 0, len(cols))
		for i, col := range cols {
			if slices.Contains(keyCols, col) {
				continue
			}
			sets = append(sets, quote(col)+" = ?")
			args = append(args, vals[i])
		}
		query = "UPDATE " + quote(e.TableName()) + " SET " + strings.Join(sets, ", ") + " WHERE " + whereKeys(keyCols)
		args = append(args, keyVals...)
	case changeDelete:
		query = "DELETE FROM " + quote(e.TableName()) + " WHERE " + whereKeys(keyCols)
		args = keyVals
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func keyValues(cols []string, vals []any, keyCols []string) ([]any, error) {
	res := make([]any, 0, len(keyCols))
	for _, k := range keyCols {
		idx := slices.Index(cols, k)
		if idx == -1 {
			return nil, fmt.Errorf("key column %q not in columns", k)
		}
		res = append(res, vals[idx])
	}
	return res, nil
}

func whereKeys(keyCols []string) string {
	parts := make([]string, len(keyCols))
	for i, k := range keyCols {
		parts[i] = quote(k) + " = ?"
	}
	return strings.Join(parts, " AND ")
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
