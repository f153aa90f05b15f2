package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/todosync/internal/todo"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Schema version tracking (sqlite only, via PRAGMA user_version):
// 1 - items table with seq ordering column
const currentSchemaVersion = 1

// Compile-time contract assertion.
var _ Store = (*SQL)(nil)

type dialect int

const (
	dialectSQLite dialect = iota + 1
	dialectPostgres
)

func (d dialect) driver() string {
	if d == dialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for postgres.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
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

func dialectFor(dsn string) dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return dialectPostgres
	}
	return dialectSQLite
}

// SQL persists items through database/sql.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens (creating if needed) the database named by dsn and applies
// the schema. It is idempotent: safe to call repeatedly on the same database.
func OpenSQL(dsn string) (*SQL, error) {
	d := dialectFor(dsn)

	db, err := sql.Open(d.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d, err)
	}

	if d == dialectSQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQL{db: db, dialect: d}, nil
}

// Close closes the database connection.
func (s *SQL) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB, d dialect) error {
	schema := sqliteSchema
	if d == dialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if d != dialectSQLite {
		return nil
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *SQL) Insert(ctx context.Context, item todo.Item) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO items (id, title, completed, created_at)
		VALUES (?, ?, ?, ?)
	`),
		item.ID,
		item.Title,
		item.Completed,
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *SQL) FindByID(ctx context.Context, id string) (todo.Item, bool, error) {
	return findByID(ctx, s.db, s.dialect, id)
}

// ListAll returns every item ordered by seq.
func (s *SQL) ListAll(ctx context.Context) ([]todo.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, created_at
		FROM items
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []todo.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Search filters in Go rather than with LIKE: LIKE case-folds ASCII only
// in sqlite and not at all in postgres.
func (s *SQL) Search(ctx context.Context, substr string) ([]todo.Item, error) {
	items, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return todo.Filter(items, substr), nil
}

func (s *SQL) Update(ctx context.Context, id string, patch todo.Patch) (todo.Item, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return todo.Item{}, false, fmt.Errorf("update item: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	item, ok, err := findByID(ctx, tx, s.dialect, id)
	if err != nil || !ok {
		return todo.Item{}, false, err
	}
	item = patch.Apply(item)

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE items SET completed = ? WHERE id = ?`), item.Completed, id); err != nil {
		return todo.Item{}, false, fmt.Errorf("update item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return todo.Item{}, false, fmt.Errorf("update item: commit: %w", err)
	}
	return item, true, nil
}

func (s *SQL) Remove(ctx context.Context, id string) (todo.Item, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return todo.Item{}, false, fmt.Errorf("remove item: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	item, ok, err := findByID(ctx, tx, s.dialect, id)
	if err != nil || !ok {
		return todo.Item{}, false, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM items WHERE id = ?`), id); err != nil {
		return todo.Item{}, false, fmt.Errorf("remove item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return todo.Item{}, false, fmt.Errorf("remove item: commit: %w", err)
	}
	return item, true, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByID(ctx context.Context, q queryRower, d dialect, id string) (todo.Item, bool, error) {
	row := q.QueryRowContext(ctx, d.rebind(`
		SELECT id, title, completed, created_at
		FROM items
		WHERE id = ?
	`), id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Item{}, false, nil
	}
	if err != nil {
		return todo.Item{}, false, err
	}
	return item, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (todo.Item, error) {
	var (
		item      todo.Item
		createdAt string
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Completed, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Item{}, err
		}
		return todo.Item{}, fmt.Errorf("scan item: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return todo.Item{}, fmt.Errorf("parse created_at for %s: %w", item.ID, err)
	}
	item.CreatedAt = t
	return item, nil
}
