//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agenthands/shelfcheck/internal/config"
	"github.com/agenthands/shelfcheck/internal/core/extract"
	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/driver"
	"github.com/agenthands/shelfcheck/internal/idempotency"
	"github.com/agenthands/shelfcheck/internal/server"
	"github.com/agenthands/shelfcheck/internal/store"
)

func init() {
	// Load environment if present
	_ = godotenv.Load("../../.env")
}

func sampleRecord(productID string) model.VerificationRecord {
	keys := "dataset/REF/" + productID + "/TEM NL/a.jpg"
	return model.VerificationRecord{
		ID:                       uuid.New().String(),
		Timestamp:                time.Now().UTC().Format(time.RFC3339),
		ProductID:                productID,
		ProductCategory:          "REF",
		UploadedLabelImageKey:    "in/label.jpg",
		UploadedOverviewImageKey: "in/overview.jpg",
		ReferenceImageKeys:       &keys,
		JudgeResponse: model.StoredResponse{
			ID:      "msg_integration",
			Model:   "integration",
			RawText: `{"matchLabelToReference":"yes","matchLabelToReference_confidence":0.9}`,
			Parsed:  map[string]any{"matchLabelToReference": "yes"},
		},
	}
}

// TestFullFlow runs a real verification: local dataset directory, live judge,
// SQLite records.
func TestFullFlow(t *testing.T) {
	datasetDir := os.Getenv("E2E_DATASET_DIR")
	labelPath := os.Getenv("E2E_LABEL_IMAGE")
	overviewPath := os.Getenv("E2E_OVERVIEW_IMAGE")
	productID := os.Getenv("E2E_PRODUCT_ID")
	category := os.Getenv("E2E_CATEGORY")
	if datasetDir == "" || labelPath == "" || overviewPath == "" || productID == "" || category == "" {
		t.Skip("Skipping integration test: E2E_* variables not set")
	}

	cfg := config.Default()
	require.NoError(t, cfg.ApplyEnv(os.Getenv))
	cfg.Storage.Provider = "dir"
	cfg.Storage.DatasetDir = datasetDir
	cfg.Records.Provider = "sqlite"
	cfg.Records.DSN = filepath.Join(t.TempDir(), "records.db")
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	components, err := server.Wire(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer components.Close()

	label, err := os.ReadFile(labelPath)
	require.NoError(t, err)
	overview, err := os.ReadFile(overviewPath)
	require.NoError(t, err)

	res, err := components.Verifier.Verify(ctx, model.VerificationRequest{
		ProductID:       productID,
		ProductCategory: category,
		LabelImage:      encode(label),
		OverviewImage:   encode(overview),
	})
	require.NoError(t, err)

	t.Logf("Verdict: %+v (strategy %s)", res.Client.VerdictFields, res.Outcome.Strategy)
	assert.NotEmpty(t, res.Client.TransactionID)
	if res.Outcome.Status == extract.Parsed {
		assert.Contains(t, []string{"yes", "no", "unknown"}, res.Client.MatchLabelToReference)
		assert.Nil(t, res.Client.Unparsed)
	} else {
		assert.NotNil(t, res.Client.Unparsed)
	}

	stored, err := components.Records.List(ctx, store.Filter{ProductID: productID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Record.ID, stored[0].ID)
}

func TestGraphStore(t *testing.T) {
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()

	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), zaptest.NewLogger(t))
	require.NoError(t, err)

	s, err := store.NewGraphStore(ctx, d, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close(ctx)

	productID := "IT-" + uuid.New().String()[:8]
	rec := sampleRecord(productID)
	require.NoError(t, s.Insert(ctx, rec))
	assert.ErrorIs(t, s.Insert(ctx, rec), store.ErrDuplicateRecord)

	got, err := s.List(ctx, store.Filter{ProductID: productID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, "yes", got[0].JudgeResponse.Parsed["matchLabelToReference"])
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := store.NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close(ctx)

	productID := "IT-" + uuid.New().String()[:8]
	rec := sampleRecord(productID)
	require.NoError(t, s.Insert(ctx, rec))
	assert.ErrorIs(t, s.Insert(ctx, rec), store.ErrDuplicateRecord)

	got, err := s.List(ctx, store.Filter{ProductID: productID, Category: "ref", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestRedisGuard(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	ctx := context.Background()

	guard, client, err := idempotency.NewRedisGuardFromURL(ctx, url, time.Minute)
	require.NoError(t, err)
	defer client.Close()

	key := "it:" + uuid.New().String()
	defer guard.Release(ctx, key)

	_, claimed, err := guard.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, guard.Complete(ctx, key, "tx-it"))
	owner, claimed, err := guard.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "tx-it", owner)
}
