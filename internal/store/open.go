package store

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/config"
	"github.com/agenthands/shelfcheck/internal/driver"
)

// Open builds the record store for cfg.Provider.
func Open(ctx context.Context, cfg config.RecordsConfig, logger *zap.Logger) (RecordStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "memory", "":
		logger.Warn("verification records are kept in memory only")
		return NewMemoryStore(), nil

	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Table)

	case "memgraph", "neo4j":
		d, err := driver.NewMemgraphDriver(ctx, cfg.URI, cfg.User, cfg.Password, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Provider, err)
		}
		return NewGraphStore(ctx, d, logger)

	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)

	case "sqlite":
		return NewSQLiteStore(ctx, cfg.DSN)

	default:
		return nil, fmt.Errorf("unsupported records provider: %s", cfg.Provider)
	}
}
