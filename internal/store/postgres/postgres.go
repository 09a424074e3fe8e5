// Package postgres stores submissions in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/goliatone/go-formflow/internal/store"
	"github.com/goliatone/go-formflow/pkg/api"
)

const table = "form_submissions"

//go:embed migrations/*.sql
var migrations embed.FS

// QB is the query builder with PostgreSQL placeholder format.
var QB = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{"id", "form_id", "data", "created_at"}

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool. Returns error if pool is nil.
func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Open connects to dsn and optionally applies the embedded migrations.
func Open(ctx context.Context, dsn string, migrate bool) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return New(pool)
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, formID string, data api.FormData) (store.Record, error) {
	if data == nil {
		data = api.FormData{}
	}
	record := store.Record{
		ID:        uuid.New(),
		FormID:    formID,
		Data:      data.Clone(),
		Timestamp: s.now().UTC(),
	}
	query, args, err := insertQuery(record)
	if err != nil {
		return store.Record{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return store.Record{}, fmt.Errorf("insert %s: %w", table, err)
	}
	return record, nil
}

func (s *Store) List(ctx context.Context, formID string) ([]store.Record, error) {
	query, args, err := listQuery(formID)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	records := []store.Record{}
	if err := pgxscan.Select(ctx, s.pool, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return records, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := QB.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func insertQuery(record store.Record) (string, []any, error) {
	return QB.Insert(table).
		Columns(columns...).
		Values(record.ID, record.FormID, record.Data, record.Timestamp).
		ToSql()
}

func listQuery(formID string) (string, []any, error) {
	q := QB.Select(columns...).From(table).OrderBy("seq")
	if formID != "" {
		q = q.Where(sq.Eq{"form_id": formID})
	}
	return q.ToSql()
}
