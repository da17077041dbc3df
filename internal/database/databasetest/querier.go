// Package databasetest provides an in-memory Querier for exercising the
// report, digest and dispatch layers without a live PostgreSQL.
package databasetest

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Result is one canned rowset. Match is a substring tested against the SQL
// text; the first matching Result answers the query.
type Result struct {
	Match string
	Rows  [][]any
	Err   error
}

// ExecCall records one Exec invocation for assertions.
type ExecCall struct {
	SQL  string
	Args []any
}

// Querier satisfies database.Querier from canned results. Queries with no
// matching Result return an empty rowset.
type Querier struct {
	Results []Result
	ExecErr error
	Execs   []ExecCall
}

func (q *Querier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	for _, res := range q.Results {
		if strings.Contains(sql, res.Match) {
			if res.Err != nil {
				return nil, res.Err
			}
			return &stubRows{data: res.Rows}, nil
		}
	}
	return &stubRows{}, nil
}

func (q *Querier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return errRow{err: err}
	}
	return singleRow{rows: rows}
}

func (q *Querier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.Execs = append(q.Execs, ExecCall{SQL: sql, Args: args})
	return pgconn.NewCommandTag("UPDATE 1"), q.ExecErr
}

type stubRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx <= len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan expects %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

type singleRow struct {
	rows pgx.Rows
}

func (r singleRow) Scan(dest ...any) error {
	defer r.rows.Close()
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

func assign(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("scan destination must be a non-nil pointer, got %T", dest)
	}
	ev := dv.Elem()
	if src == nil {
		ev.Set(reflect.Zero(ev.Type()))
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(ev.Type()) {
		ev.Set(sv)
		return nil
	}
	if ev.Kind() == reflect.Pointer {
		p := reflect.New(ev.Type().Elem())
		if err := assign(p.Interface(), src); err != nil {
			return err
		}
		ev.Set(p)
		return nil
	}
	if sv.Type().ConvertibleTo(ev.Type()) {
		ev.Set(sv.Convert(ev.Type()))
		return nil
	}
	return fmt.Errorf("cannot scan %T into %T", src, dest)
}
