package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// SQLiteStore is the single-file backend used for local runs and the CLI.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "shelfcheck.db"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	// One writer keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteDialect.createTable()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create verification_records: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.VerificationRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, sqliteDialect.insert(), rec.ID, rec.Timestamp, rec.ProductID, rec.ProductCategory, string(body))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]model.VerificationRecord, error) {
	query, args := sqliteDialect.list(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification_records: %w", err)
	}
	defer rows.Close()

	var records []model.VerificationRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec model.VerificationRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.VerificationRecord, error) {
	var body string
	if err := s.db.QueryRowContext(ctx, sqliteDialect.get(), id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationRecord{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
		}
		return model.VerificationRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	var rec model.VerificationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
