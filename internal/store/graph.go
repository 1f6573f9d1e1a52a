package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/driver"
)

// GraphStore keeps each record as a Verification node hanging off its
// Product node: (Product)-[:VERIFIED_BY]->(Verification). The full record is
// stored as JSON on the node so history reads return it verbatim.
type GraphStore struct {
	Driver driver.GraphDriver
	logger *zap.Logger
}

func NewGraphStore(ctx context.Context, d driver.GraphDriver, logger *zap.Logger) (*GraphStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := d.BuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}
	return &GraphStore{Driver: d, logger: logger}, nil
}

func (s *GraphStore) Insert(ctx context.Context, rec model.VerificationRecord) error {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ExistsVerificationQuery, map[string]interface{}{"id": rec.ID})
	if err != nil {
		return fmt.Errorf("failed to check record %s: %w", rec.ID, err)
	}
	if len(res.Records) > 0 {
		if n, ok := res.Records[0].Get("n"); ok {
			if count, _ := n.(int64); count > 0 {
				return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateRecord)
			}
		}
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	params := map[string]interface{}{
		"id":               rec.ID,
		"timestamp":        rec.Timestamp,
		"product_id":       rec.ProductID,
		"product_category": rec.ProductCategory,
		"record":           string(body),
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.InsertVerificationQuery, params); err != nil {
		return fmt.Errorf("failed to save verification %s: %w", rec.ID, err)
	}
	return nil
}

func (s *GraphStore) List(ctx context.Context, f Filter) ([]model.VerificationRecord, error) {
	params := map[string]interface{}{
		"product_id":       f.ProductID,
		"product_category": f.category(),
		"from":             f.bound(f.From),
		"to":               f.bound(f.To),
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListVerificationsQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}

	records := make([]model.VerificationRecord, 0, len(res.Records))
	for _, row := range res.Records {
		rec, err := decodeRecord(row)
		if err != nil {
			s.logger.Warn("skipping unreadable verification node", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return f.apply(records), nil
}

func (s *GraphStore) Get(ctx context.Context, id string) (model.VerificationRecord, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetVerificationQuery, map[string]interface{}{"id": id})
	if err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to get verification %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return model.VerificationRecord{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	rec, err := decodeRecord(res.Records[0])
	if err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to decode verification %s: %w", id, err)
	}
	return rec, nil
}

func decodeRecord(row *neo4j.Record) (model.VerificationRecord, error) {
	var rec model.VerificationRecord
	raw, _ := row.Get("record")
	body, ok := raw.(string)
	if !ok {
		return rec, fmt.Errorf("record column is %T, not a string", raw)
	}
	err := json.Unmarshal([]byte(body), &rec)
	return rec, err
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}
