// Package repository is the MySQL persistence gateway. Repositories return
// the sentinel errors below so services can tell failure scenarios apart
// without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrProtected is returned when a delete is refused because dependent
	// rows still reference the target.
	ErrProtected = errors.New("row is referenced by dependent rows")
	// ErrMissingReference is returned when a write references a row that
	// does not exist.
	ErrMissingReference = errors.New("referenced row does not exist")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when the write conflicts with current state.
	ErrConflict = errors.New("conflict")
)

// classify maps driver errors onto the sentinels above, keeping the driver
// error message for logs.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		case mysqlRowIsReferenced:
			return fmt.Errorf("%w: %s", ErrProtected, me.Message)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%w: %s", ErrMissingReference, me.Message)
		}
	}
	return err
}

// duplicateKey reports whether err is a duplicate-entry error on the named key.
func duplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry && strings.Contains(me.Message, key)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// DBTX is the subset of *sql.DB and *sql.Tx used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// displayName prefers "First Last" and falls back to the username.
func displayName(first, last, username string) string {
	if n := strings.TrimSpace(first + " " + last); n != "" {
		return n
	}
	return username
}

// likePattern escapes LIKE wildcards in a user search term.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

// orderClause resolves a "field" or "-field" ordering against an allow-list.
func orderClause(ordering string, allowed map[string]string, fallback string) string {
	field := strings.TrimSpace(ordering)
	dir := "ASC"
	if strings.HasPrefix(field, "-") {
		dir = "DESC"
		field = strings.TrimPrefix(field, "-")
	}
	col, ok := allowed[field]
	if !ok {
		return fallback
	}
	return col + " " + dir
}
