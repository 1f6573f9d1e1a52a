package core

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/core/assemble"
	"github.com/agenthands/shelfcheck/internal/core/extract"
	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/core/prompt"
	"github.com/agenthands/shelfcheck/internal/idempotency"
	"github.com/agenthands/shelfcheck/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const parsedVerdict = "```json\n" + `{
  "matchLabelToReference": "yes",
  "matchLabelToReference_confidence": 0.93,
  "label_explanation": "Energy label matches the reference.",
  "matchOverviewToReference": "no",
  "matchOverviewToReference_confidence": 0.88,
  "overview_explanation": "Handle design differs."
}` + "\n```"

type fixture struct {
	dataset *MockObjectStore
	uploads *MockObjectStore
	judge   *MockJudge
	records *MockRecords
	logs    *observer.ObservedLogs
	deps    Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	dataset := NewMockObjectStore()
	for i, key := range []string{"a.jpg", "b.png", "c.jpg"} {
		dataset.Put("dataset/REF/AQR-B360MA/TEM NL/"+key, []byte("label-ref-"+key), base.Add(time.Duration(i)*time.Hour))
	}
	for i, key := range []string{"w1.jpg", "w2.webp", "w3.jpg", "w4.jpg", "notes.txt"} {
		dataset.Put("dataset/REF/AQR-B360MA/HÌNH WEB/"+key, []byte("overview-ref-"+key), base.Add(time.Duration(i)*time.Hour))
	}

	uploads := NewMockObjectStore()
	uploads.Put("in/label.jpg", []byte("uploaded-label"), base)
	uploads.Put("in/overview.jpg", []byte("uploaded-overview"), base)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	cat := catalog.New(dataset, catalog.Layout{
		Prefix:          "dataset",
		LabelFolder:     "TEM NL",
		OverviewFolders: []string{"HÌNH WEB"},
	}, catalog.Limits{Label: 2, Overview: 3}, time.Minute, logger)

	composer, err := prompt.NewComposer(nil, "Aqua", prompt.Templates{})
	require.NoError(t, err)

	judge := &MockJudge{Response: model.JudgeResponse{
		ID:         "msg_01",
		Model:      "claude-3-5-sonnet",
		StopReason: "end_turn",
		Usage:      model.TokenUsage{InputTokens: 5000, OutputTokens: 200},
		Text:       parsedVerdict,
	}}
	records := NewMockRecords()

	seq := 0
	assembler := &assemble.Assembler{
		NewID: func() string { seq++; return []string{"tx-1", "tx-2", "tx-3"}[seq-1] },
		Now:   func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}

	return &fixture{
		dataset: dataset,
		uploads: uploads,
		judge:   judge,
		records: records,
		logs:    logs,
		deps: Dependencies{
			References: cat,
			Uploads:    uploads,
			Composer:   composer,
			Settings:   prompt.Settings{AnthropicVersion: "bedrock-2023-05-31", MaxTokens: 4096},
			Judge:      judge,
			Records:    records,
			Assembler:  assembler,
			Logger:     logger,
		},
	}
}

func keyedRequest() model.VerificationRequest {
	return model.VerificationRequest{
		ProductID:                "AQR-B360MA",
		ProductCategory:          "ref",
		UploadedLabelImageKey:    "in/label.jpg",
		UploadedOverviewImageKey: "in/overview.jpg",
	}
}

func TestVerify_KeyedImages(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	res, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)

	require.Equal(t, 1, f.judge.Calls())
	payload := f.judge.Payloads[0]
	require.Len(t, payload.Messages, 1)
	content := payload.Messages[0].Content
	require.Len(t, content, 8)
	assert.Equal(t, model.BlockTypeText, content[0].Type)
	assert.Contains(t, content[0].Text, "for a REF product")
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("uploaded-label")), content[1].Source.Data)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("uploaded-overview")), content[2].Source.Data)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("label-ref-c.jpg")), content[3].Source.Data)
	assert.Equal(t, "image/png", content[4].Source.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("overview-ref-w4.jpg")), content[5].Source.Data)
	assert.Equal(t, 4096, payload.MaxTokens)

	assert.Equal(t, "tx-1", res.Client.TransactionID)
	assert.Equal(t, "yes", res.Client.MatchLabelToReference)
	assert.Equal(t, 0.93, res.Client.MatchLabelToReferenceConfidence)
	assert.Equal(t, "no", res.Client.MatchOverviewToReference)
	assert.Nil(t, res.Client.Unparsed)
	assert.Equal(t, extract.Parsed, res.Outcome.Status)

	assert.Equal(t, 1, f.records.Inserts)
	stored, err := f.records.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	rec := stored[0]
	assert.Equal(t, "REF", rec.ProductCategory)
	assert.Equal(t, "in/label.jpg", rec.UploadedLabelImageKey)
	assert.Equal(t, "2024-06-01T12:00:00Z", rec.Timestamp)
	require.NotNil(t, rec.ReferenceImageKeys)
	assert.Equal(t,
		"dataset/REF/AQR-B360MA/TEM NL/c.jpg,dataset/REF/AQR-B360MA/TEM NL/b.png,"+
			"dataset/REF/AQR-B360MA/HÌNH WEB/w4.jpg,dataset/REF/AQR-B360MA/HÌNH WEB/w3.jpg,dataset/REF/AQR-B360MA/HÌNH WEB/w2.webp",
		*rec.ReferenceImageKeys)
	assert.Equal(t, parsedVerdict, rec.JudgeResponse.RawText)
	assert.Equal(t, "msg_01", rec.JudgeResponse.ID)

	assert.Equal(t, 1, f.logs.FilterMessage("verification completed").Len())
}

func TestVerify_MissingCategory(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	req := keyedRequest()
	req.ProductCategory = " "
	_, err := v.Verify(context.Background(), req)

	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.ErrorContains(t, err, "product_category")
	assert.Zero(t, f.dataset.Lists, "no reference resolution")
	assert.Zero(t, f.judge.Calls())
	assert.Zero(t, f.records.Inserts)
}

func TestVerify_RejectsPathLikeIdentifiers(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	for _, tc := range []struct{ productID, category, field string }{
		{"../WM/AQW-S80", "REF", "product_id"},
		{"AQR/B360MA", "REF", "product_id"},
		{"..", "REF", "product_id"},
		{"AQR-B360MA", "../WM", "product_category"},
	} {
		req := keyedRequest()
		req.ProductID = tc.productID
		req.ProductCategory = tc.category
		_, err := v.Verify(context.Background(), req)

		assert.True(t, errors.Is(err, ErrInvalidRequest), tc.productID)
		assert.ErrorContains(t, err, tc.field)
	}
	assert.Zero(t, f.dataset.Lists, "no reference resolution")
	assert.Zero(t, f.judge.Calls())
	assert.Zero(t, f.records.Inserts)
}

func TestVerify_NoOverviewReferences(t *testing.T) {
	f := newFixture(t)
	for key := range f.dataset.Objects {
		if key[len("dataset/REF/AQR-B360MA/"):][0] == 'H' {
			delete(f.dataset.Objects, key)
		}
	}
	v := NewVerifier(f.deps)

	_, err := v.Verify(context.Background(), keyedRequest())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorContains(t, err, "overview")
	assert.Zero(t, f.judge.Calls())
	assert.Zero(t, f.records.Inserts)
}

func TestVerify_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	req := keyedRequest()
	req.ProductID = "NOPE"
	_, err := v.Verify(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorContains(t, err, "label")
}

func TestVerify_UploadMissing(t *testing.T) {
	f := newFixture(t)
	delete(f.uploads.Data, "in/overview.jpg")
	v := NewVerifier(f.deps)

	_, err := v.Verify(context.Background(), keyedRequest())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, f.judge.Calls())
	assert.Equal(t, 1, f.logs.FilterMessage("failed to load uploaded image").Len())
}

func TestVerify_UnparsedOutputStillPersists(t *testing.T) {
	f := newFixture(t)
	f.judge.Response.Text = "I cannot compare these images reliably."
	v := NewVerifier(f.deps)

	res, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)

	assert.Equal(t, extract.Unparsed, res.Outcome.Status)
	require.NotNil(t, res.Client.Unparsed)
	assert.Equal(t, "I cannot compare these images reliably.", *res.Client.Unparsed)
	assert.Equal(t, "unknown", res.Client.MatchLabelToReference)
	assert.Equal(t, 1, f.records.Inserts)
	assert.Equal(t, "I cannot compare these images reliably.", res.Record.JudgeResponse.RawText)
	assert.Nil(t, res.Record.JudgeResponse.Parsed)
	assert.Equal(t, "I cannot compare these images reliably.", res.Legacy.Result[0].Text)
}

func TestVerify_BelowThresholdPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.judge.Response.Text = `{"matchLabelToReference":"yes","matchLabelToReference_confidence":0.6,"label_explanation":"","matchOverviewToReference":"yes","matchOverviewToReference_confidence":0.9,"overview_explanation":""}`
	v := NewVerifier(f.deps)

	res, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)

	assert.Equal(t, "yes", res.Client.MatchLabelToReference)
	assert.Equal(t, 0.6, res.Client.MatchLabelToReferenceConfidence)
	assert.Equal(t, 1, f.logs.FilterMessage("judge returned yes below the confidence threshold").Len())
}

func TestVerify_InlineImages(t *testing.T) {
	f := newFixture(t)
	f.deps.Uploads = nil
	v := NewVerifier(f.deps)

	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	req := model.VerificationRequest{
		ProductID:       "AQR-B360MA",
		ProductCategory: "REF",
		LabelImage:      "data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("label-bytes")),
		OverviewImage:   base64.StdEncoding.EncodeToString(pngHeader),
	}
	res, err := v.Verify(context.Background(), req)
	require.NoError(t, err)

	content := f.judge.Payloads[0].Messages[0].Content
	assert.Equal(t, "image/webp", content[1].Source.MediaType)
	assert.Equal(t, "image/png", content[2].Source.MediaType)
	assert.Equal(t, model.InlineImageKey, res.Record.UploadedLabelImageKey)
	assert.Equal(t, model.InlineImageKey, res.Record.UploadedOverviewImageKey)
}

func TestVerify_BadInlineImage(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	req := keyedRequest()
	req.UploadedLabelImageKey = ""
	req.LabelImage = "!!not base64!!"
	_, err := v.Verify(context.Background(), req)

	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.ErrorContains(t, err, "labelImage")
	assert.Zero(t, f.dataset.Lists)
}

func TestVerify_JudgeFailure(t *testing.T) {
	f := newFixture(t)
	f.judge.Err = errors.New("ThrottlingException: rate exceeded")
	guard := idempotency.NewMemoryGuard(time.Hour)
	f.deps.Guard = guard
	v := NewVerifier(f.deps)

	_, err := v.Verify(context.Background(), keyedRequest())
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Zero(t, f.records.Inserts)

	// The claim was released, so a retry goes through.
	f.judge.Err = nil
	_, err = v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, f.judge.Calls())
}

func TestVerify_PersistFailure(t *testing.T) {
	f := newFixture(t)
	f.records.InsertErr = errors.New("table not found")
	v := NewVerifier(f.deps)

	_, err := v.Verify(context.Background(), keyedRequest())
	assert.ErrorContains(t, err, "failed to persist verification record")
	assert.False(t, IsClientError(err))
}

func TestVerify_DuplicateSuppressed(t *testing.T) {
	f := newFixture(t)
	f.deps.Guard = idempotency.NewMemoryGuard(time.Hour)
	v := NewVerifier(f.deps)

	first, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), keyedRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRequest))

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.Record.ID, dup.TransactionID)
	assert.Equal(t, 1, f.judge.Calls())
	assert.Equal(t, 1, f.records.Inserts)

	// A caller key makes an otherwise identical request distinct.
	req := keyedRequest()
	req.IdempotencyKey = "retry-2"
	_, err = v.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.records.Inserts)
}

func TestVerify_DuplicatesAllowedWithoutGuard(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.deps)

	a, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)
	b, err := v.Verify(context.Background(), keyedRequest())
	require.NoError(t, err)

	assert.NotEqual(t, a.Record.ID, b.Record.ID)
	assert.Equal(t, 2, f.records.Inserts)
}

func TestDuplicateError(t *testing.T) {
	assert.Contains(t, (&DuplicateError{}).Error(), "in progress")
	assert.Contains(t, (&DuplicateError{TransactionID: "tx-9"}).Error(), "tx-9")
}
