package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/core/assemble"
	"github.com/agenthands/shelfcheck/internal/core/extract"
	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/core/prompt"
	"github.com/agenthands/shelfcheck/internal/idempotency"
	"github.com/agenthands/shelfcheck/internal/llm"
	"github.com/agenthands/shelfcheck/internal/store"
)

// ReferenceSource selects and loads reference images. *catalog.Catalog
// implements it.
type ReferenceSource interface {
	References(ctx context.Context, category, productID string) (catalog.ReferenceKeys, error)
	Load(ctx context.Context, keys []string) ([]model.Image, error)
}

// Dependencies wires a Verifier. Uploads may be nil when only inline images
// are accepted; Guard is nil when idempotency is off.
type Dependencies struct {
	References ReferenceSource
	Uploads    catalog.ObjectStore
	Composer   *prompt.Composer
	Settings   prompt.Settings
	Judge      llm.Judge
	Records    store.RecordStore
	Guard      idempotency.Guard
	Assembler  *assemble.Assembler
	Logger     *zap.Logger
}

// Verifier runs one verification request end to end.
type Verifier struct {
	refs      ReferenceSource
	uploads   catalog.ObjectStore
	composer  *prompt.Composer
	settings  prompt.Settings
	judge     llm.Judge
	records   store.RecordStore
	guard     idempotency.Guard
	assembler *assemble.Assembler
	logger    *zap.Logger
}

func NewVerifier(deps Dependencies) *Verifier {
	v := &Verifier{
		refs:      deps.References,
		uploads:   deps.Uploads,
		composer:  deps.Composer,
		settings:  deps.Settings,
		judge:     deps.Judge,
		records:   deps.Records,
		guard:     deps.Guard,
		assembler: deps.Assembler,
		logger:    deps.Logger,
	}
	if v.assembler == nil {
		v.assembler = assemble.New()
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	return v
}

// Result is everything produced for one request.
type Result struct {
	Record   model.VerificationRecord
	Client   model.ClientResponse
	Legacy   model.LegacyResponse
	Outcome  extract.Outcome
	Response model.JudgeResponse
}

// Verify runs the pipeline strictly in sequence. Errors wrap ErrInvalidRequest,
// ErrNotFound or ErrDuplicateRequest; anything else is internal.
func (v *Verifier) Verify(ctx context.Context, req model.VerificationRequest) (*Result, error) {
	if field := req.MissingField(); field != "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.ProductCategory = strings.ToUpper(strings.TrimSpace(req.ProductCategory))
	if !catalog.IsPathSegment(req.ProductID) {
		return nil, fmt.Errorf("%w: product_id %q is not a valid identifier", ErrInvalidRequest, req.ProductID)
	}
	if !catalog.IsPathSegment(req.ProductCategory) {
		return nil, fmt.Errorf("%w: product_category %q is not a valid category", ErrInvalidRequest, req.ProductCategory)
	}

	label, err := inlineImage(req.UploadedLabelImageKey, req.LabelImage, "labelImage")
	if err != nil {
		return nil, err
	}
	overview, err := inlineImage(req.UploadedOverviewImageKey, req.OverviewImage, "overviewImage")
	if err != nil {
		return nil, err
	}

	logger := v.logger.With(
		zap.String("product_id", req.ProductID),
		zap.String("category", req.ProductCategory),
	)

	keys, err := v.refs.References(ctx, req.ProductCategory, req.ProductID)
	if err != nil {
		logger.Error("failed to list reference images", zap.Error(err))
		return nil, fmt.Errorf("failed to list reference images: %w", err)
	}
	if len(keys.Label) == 0 {
		return nil, fmt.Errorf("%w: no label reference images for product %s", ErrNotFound, req.ProductID)
	}
	if len(keys.Overview) == 0 {
		return nil, fmt.Errorf("%w: no overview reference images for product %s", ErrNotFound, req.ProductID)
	}

	if label == nil {
		if label, err = v.upload(ctx, req.UploadedLabelImageKey, logger); err != nil {
			return nil, err
		}
	}
	if overview == nil {
		if overview, err = v.upload(ctx, req.UploadedOverviewImageKey, logger); err != nil {
			return nil, err
		}
	}

	var refs model.ReferenceImageSet
	if refs.Label, err = v.refs.Load(ctx, keys.Label); err != nil {
		logger.Error("failed to load label references", zap.Strings("keys", keys.Label), zap.Error(err))
		return nil, fmt.Errorf("%w: label reference images could not be loaded", ErrNotFound)
	}
	if refs.Overview, err = v.refs.Load(ctx, keys.Overview); err != nil {
		logger.Error("failed to load overview references", zap.Strings("keys", keys.Overview), zap.Error(err))
		return nil, fmt.Errorf("%w: overview reference images could not be loaded", ErrNotFound)
	}

	subject := model.Subject{
		ProductID:     req.ProductID,
		Category:      req.ProductCategory,
		LabelImage:    *label,
		OverviewImage: *overview,
	}
	comparison, err := v.composer.Compose(subject, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to compose prompt: %w", err)
	}
	payload := prompt.BuildPayload(comparison, v.settings)

	claimKey, err := v.claim(ctx, req, label.Data, overview.Data, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("invoking judge",
		zap.Strings("reference_keys", refs.Keys()),
		zap.Int("image_blocks", len(comparison.ImageBlocks())),
	)
	resp, err := v.judge.Invoke(ctx, payload)
	if err != nil {
		v.release(ctx, claimKey, logger)
		logger.Error("judge invocation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to invoke judge: %w", err)
	}

	outcome := extract.Extract(resp.Text)
	if outcome.Status == extract.Parsed {
		verdict, _ := outcome.Verdict()
		if verdict.Label.BelowThreshold() || verdict.Overview.BelowThreshold() {
			logger.Warn("judge returned yes below the confidence threshold",
				zap.Float64("label_confidence", verdict.Label.Confidence),
				zap.Float64("overview_confidence", verdict.Overview.Confidence),
			)
		}
	} else {
		logger.Warn("judge output could not be parsed", zap.Int("raw_length", len(resp.Text)))
	}

	assembly := v.assembler.Assemble(assemble.Input{
		Request:       req,
		ReferenceKeys: refs.Keys(),
		Response:      resp,
		Outcome:       outcome,
	})

	if err := v.records.Insert(ctx, assembly.Record); err != nil {
		v.release(ctx, claimKey, logger)
		logger.Error("failed to persist verification record",
			zap.String("transaction_id", assembly.Record.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to persist verification record: %w", err)
	}
	v.complete(ctx, claimKey, assembly.Record.ID, logger)

	logger.Info("verification completed",
		zap.String("transaction_id", assembly.Record.ID),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.String("extraction", outcome.Status.String()),
	)

	return &Result{
		Record:   assembly.Record,
		Client:   assembly.Client,
		Legacy:   assembly.Legacy,
		Outcome:  outcome,
		Response: resp,
	}, nil
}

// inlineImage decodes the inline form when no storage key is given. It
// returns nil when the image must be fetched by key.
func inlineImage(key, inline, field string) (*model.Image, error) {
	if key != "" {
		return nil, nil
	}
	img, err := catalog.DecodeInline(inline)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, field, err)
	}
	return &img, nil
}

func (v *Verifier) upload(ctx context.Context, key string, logger *zap.Logger) (*model.Image, error) {
	if v.uploads == nil {
		return nil, fmt.Errorf("%w: uploaded image %s: no upload store configured", ErrNotFound, key)
	}
	img, err := catalog.LoadImage(ctx, v.uploads, key)
	if err != nil {
		logger.Error("failed to load uploaded image", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: uploaded image %s", ErrNotFound, key)
	}
	return &img, nil
}

// claim returns "" when idempotency is off.
func (v *Verifier) claim(ctx context.Context, req model.VerificationRequest, label, overview []byte, logger *zap.Logger) (string, error) {
	if v.guard == nil {
		return "", nil
	}
	key := idempotency.RequestKey(req, label, overview)
	owner, claimed, err := v.guard.Claim(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		logger.Info("duplicate verification suppressed", zap.String("key", key), zap.String("transaction_id", owner))
		return "", &DuplicateError{Key: key, TransactionID: owner}
	}
	return key, nil
}

func (v *Verifier) release(ctx context.Context, key string, logger *zap.Logger) {
	if key == "" {
		return
	}
	if err := v.guard.Release(ctx, key); err != nil {
		logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (v *Verifier) complete(ctx context.Context, key, txID string, logger *zap.Logger) {
	if key == "" {
		return
	}
	if err := v.guard.Complete(ctx, key, txID); err != nil {
		logger.Warn("failed to complete idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// IsClientError reports whether err is caused by the request rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateRequest)
}
