// Package migrations embeds the reference schema used by integration tests and local setups
package migrations

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"firewatch/internal/platform/store"
)

//go:embed 0*.sql
var pgFS embed.FS

//go:embed clickhouse_archive.sql
var clickhouseArchive string

// ClickhouseArchive is the DDL for the optional incident summary archive
func ClickhouseArchive() string { return clickhouseArchive }

// Files lists the embedded Postgres migrations in apply order
func Files() []string {
	names, _ := fs.Glob(pgFS, "0*.sql")
	sort.Strings(names)
	return names
}

// Apply runs every Postgres migration against q in order. Statements are
// idempotent so re-applying is safe
func Apply(ctx context.Context, q store.RowQuerier) error {
	for _, name := range Files() {
		b, err := pgFS.ReadFile(name)
		if err != nil {
			return err
		}
		for _, stmt := range Statements(string(b)) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return &Error{File: name, Stmt: stmt, Err: err}
			}
		}
	}
	return nil
}

// Statements splits a migration file on semicolons and drops comment-only chunks.
// The schema has no function bodies so a plain split is enough
func Statements(src string) []string {
	var out []string
	for _, chunk := range strings.Split(src, ";") {
		var b strings.Builder
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Error reports which statement failed
type Error struct {
	File string
	Stmt string
	Err  error
}

func (e *Error) Error() string {
	head := e.Stmt
	if i := strings.IndexByte(head, '\n'); i > 0 {
		head = head[:i]
	}
	return "migrations: " + e.File + ": " + head + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
