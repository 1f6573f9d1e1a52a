package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/config"
	"github.com/agenthands/shelfcheck/internal/core"
	"github.com/agenthands/shelfcheck/internal/core/assemble"
	"github.com/agenthands/shelfcheck/internal/core/checklist"
	"github.com/agenthands/shelfcheck/internal/core/prompt"
	"github.com/agenthands/shelfcheck/internal/idempotency"
	"github.com/agenthands/shelfcheck/internal/llm"
	"github.com/agenthands/shelfcheck/internal/store"
)

// Components are the long-lived collaborators built from configuration.
type Components struct {
	Verifier   *core.Verifier
	Catalog    *catalog.Catalog
	Uploads    catalog.ObjectStore
	Checklists *checklist.Catalog
	Records    store.RecordStore

	closers []func() error
}

// Close releases connections in reverse order of creation.
func (c *Components) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Wire builds every component named by cfg. On error, anything already
// opened is closed.
func Wire(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	dataset, uploads, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	c.Uploads = uploads
	presignTTL, err := cfg.Storage.PresignTTL()
	if err != nil {
		return nil, err
	}
	c.Catalog = catalog.New(dataset, catalog.Layout{
		Prefix:          cfg.References.Prefix,
		LabelFolder:     cfg.References.LabelFolder,
		OverviewFolders: cfg.References.OverviewFolders,
	}, catalog.Limits{
		Label:    cfg.References.MaxLabelImages,
		Overview: cfg.References.MaxOverviewImages,
	}, presignTTL, logger)

	c.Checklists = checklist.Default()
	if cfg.Checklists.Path != "" {
		if c.Checklists, err = checklist.Load(cfg.Checklists.Path); err != nil {
			return nil, err
		}
	}

	composer, err := prompt.NewComposer(c.Checklists, cfg.Prompts.Brand, prompt.Templates{
		System: cfg.Prompts.System,
		User:   cfg.Prompts.User,
	})
	if err != nil {
		return nil, err
	}

	judge, err := llm.NewJudge(ctx, cfg.Judge, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize judge: %w", err)
	}
	if closer, ok := judge.(io.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}

	c.Records, err = store.Open(ctx, cfg.Records, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	records := c.Records
	c.closers = append(c.closers, func() error { return records.Close(context.Background()) })

	guard, closeGuard, err := idempotency.Open(ctx, cfg.Idempotency, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeGuard)

	deps := core.Dependencies{
		References: c.Catalog,
		Uploads:    uploads,
		Composer:   composer,
		Settings: prompt.Settings{
			AnthropicVersion: cfg.Judge.AnthropicVersion,
			MaxTokens:        cfg.Judge.MaxTokens,
			Temperature:      cfg.Judge.Temperature,
		},
		Judge:     judge,
		Records:   c.Records,
		Guard:     guard,
		Assembler: assemble.New(),
		Logger:    logger,
	}
	c.Verifier = core.NewVerifier(deps)

	logger.Info("components wired",
		zap.String("judge", cfg.Judge.Provider),
		zap.String("model", cfg.Judge.Model),
		zap.String("storage", cfg.Storage.Provider),
		zap.String("records", cfg.Records.Provider),
		zap.Bool("idempotency", cfg.Idempotency.Enabled),
	)
	return c, nil
}

// openStorage returns the dataset store and, when configured, the upload
// store. A nil upload store means only inline images are accepted.
func openStorage(ctx context.Context, cfg config.StorageConfig) (catalog.ObjectStore, catalog.ObjectStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return s3Stores(awsCfg, cfg)
	case "dir":
		dataset, err := catalog.NewDirStore(cfg.DatasetDir)
		if err != nil {
			return nil, nil, err
		}
		if cfg.UploadDir == "" {
			return dataset, nil, nil
		}
		uploads, err := catalog.NewDirStore(cfg.UploadDir)
		if err != nil {
			return nil, nil, err
		}
		return dataset, uploads, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

func s3Stores(awsCfg aws.Config, cfg config.StorageConfig) (catalog.ObjectStore, catalog.ObjectStore, error) {
	dataset, err := catalog.NewS3Store(awsCfg, cfg.DatasetBucket)
	if err != nil {
		return nil, nil, err
	}
	if cfg.UploadBucket == "" {
		return dataset, nil, nil
	}
	uploads, err := catalog.NewS3Store(awsCfg, cfg.UploadBucket)
	if err != nil {
		return nil, nil, err
	}
	return dataset, uploads, nil
}
