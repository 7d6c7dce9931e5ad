package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

var noopTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakePool struct {
	batches  []*pgx.Batch
	batchErr error

	queries   []string
	queryArgs [][]any
	rows      [][]any
	queryErr  error
	row       []any
	rowErr    error
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	return &fakeBatchResults{remaining: b.Len(), err: f.batchErr}
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	f.queryArgs = append(f.queryArgs, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	f.queryArgs = append(f.queryArgs, args)
	return fakeRow{values: f.row, err: f.rowErr}
}

type fakeBatchResults struct {
	remaining int
	err       error
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if b.err != nil {
		return pgconn.CommandTag{}, b.err
	}
	if b.remaining == 0 {
		return pgconn.CommandTag{}, fmt.Errorf("no more results")
	}
	b.remaining--
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (b *fakeBatchResults) Query() (pgx.Rows, error) { return &fakeRows{idx: -1}, nil }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return fakeRow{} }
func (b *fakeBatchResults) Close() error             { return nil }

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.idx], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx], nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: have %d values, %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(target.Type()):
			target.Set(v)
		case v.Type().ConvertibleTo(target.Type()):
			target.Set(v.Convert(target.Type()))
		default:
			return fmt.Errorf("scan: cannot assign %s to %s", v.Type(), target.Type())
		}
	}
	return nil
}
