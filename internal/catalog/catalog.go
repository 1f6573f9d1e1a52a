package catalog

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Layout locates reference images: <Prefix>/<CATEGORY>/<productID>/<folder>/.
type Layout struct {
	Prefix          string
	LabelFolder     string
	OverviewFolders []string
}

// Limits caps how many references of each kind are selected.
type Limits struct {
	Label    int
	Overview int
}

// ReferenceKeys is the selected reference set, most recently modified first.
type ReferenceKeys struct {
	Label    []string
	Overview []string
}

// Catalog is the reference image accessor over an ObjectStore.
type Catalog struct {
	store      ObjectStore
	layout     Layout
	limits     Limits
	presignTTL time.Duration
	logger     *zap.Logger
}

func New(store ObjectStore, layout Layout, limits Limits, presignTTL time.Duration, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, layout: layout, limits: limits, presignTTL: presignTTL, logger: logger}
}

// ProductPrefix is the location holding every reference folder of one product.
// The category is upper-cased.
func (c *Catalog) ProductPrefix(category, productID string) string {
	return path.Join(c.layout.Prefix, strings.ToUpper(strings.TrimSpace(category)), productID) + "/"
}

func (c *Catalog) CategoryPrefix(category string) string {
	return path.Join(c.layout.Prefix, strings.ToUpper(strings.TrimSpace(category))) + "/"
}

// References selects label and overview reference keys for a product. An
// empty result for either kind is not an error here; callers decide.
func (c *Catalog) References(ctx context.Context, category, productID string) (ReferenceKeys, error) {
	base := c.ProductPrefix(category, productID)

	label, err := c.selectKeys(ctx, []string{base + c.layout.LabelFolder + "/"}, c.limits.Label)
	if err != nil {
		return ReferenceKeys{}, err
	}

	folders := make([]string, 0, len(c.layout.OverviewFolders))
	for _, f := range c.layout.OverviewFolders {
		folders = append(folders, base+f+"/")
	}
	overview, err := c.selectKeys(ctx, folders, c.limits.Overview)
	if err != nil {
		return ReferenceKeys{}, err
	}

	c.logger.Debug("selected reference images",
		zap.String("prefix", base),
		zap.Strings("label", label),
		zap.Strings("overview", overview),
	)
	return ReferenceKeys{Label: label, Overview: overview}, nil
}

// selectKeys lists image objects under every prefix, newest first, capped at limit.
func (c *Catalog) selectKeys(ctx context.Context, prefixes []string, limit int) ([]string, error) {
	var objects []Object
	for _, prefix := range prefixes {
		listed, err := c.store.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, obj := range listed {
			if IsImageKey(obj.Key) {
				objects = append(objects, obj)
			}
		}
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	if limit >= 0 && len(objects) > limit {
		objects = objects[:limit]
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Load fetches each key in order. The media type is inferred from the extension.
func (c *Catalog) Load(ctx context.Context, keys []string) ([]model.Image, error) {
	images := make([]model.Image, 0, len(keys))
	for _, key := range keys {
		img, err := c.Image(ctx, key)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (c *Catalog) Image(ctx context.Context, key string) (model.Image, error) {
	return LoadImage(ctx, c.store, key)
}

// LoadImage fetches one key from store.
func LoadImage(ctx context.Context, store ObjectStore, key string) (model.Image, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to load image %s: %w", key, err)
	}
	return model.Image{Key: key, MediaType: MediaTypeForKey(key), Data: data}, nil
}
