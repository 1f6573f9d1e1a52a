package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

const pgUniqueViolation = "23505"

// PgxConn is the subset of *pgxpool.Pool used here.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps the record document in a JSONB column next to the
// columns used for filtering.
type PostgresStore struct {
	conn PgxConn
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewPostgresStoreWithConn(ctx, pool)
}

func NewPostgresStoreWithConn(ctx context.Context, conn PgxConn) (*PostgresStore, error) {
	if _, err := conn.Exec(ctx, postgresDialect.createTable()); err != nil {
		return nil, fmt.Errorf("failed to create verification_records: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec model.VerificationRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	_, err = s.conn.Exec(ctx, postgresDialect.insert(), rec.ID, rec.Timestamp, rec.ProductID, rec.ProductCategory, string(body))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]model.VerificationRecord, error) {
	query, args := postgresDialect.list(f)
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification_records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.VerificationRecord, error) {
		var body []byte
		if err := row.Scan(&body); err != nil {
			return model.VerificationRecord{}, err
		}
		var rec model.VerificationRecord
		err := json.Unmarshal(body, &rec)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read verification_records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.VerificationRecord, error) {
	var body []byte
	if err := s.conn.QueryRow(ctx, postgresDialect.get(), id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VerificationRecord{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
		}
		return model.VerificationRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	var rec model.VerificationRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.conn.Close()
	return nil
}
