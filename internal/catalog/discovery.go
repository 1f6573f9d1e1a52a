package catalog

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/core/checklist"
)

type CategoryInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Prefix       string `json:"prefix"`
	ProductCount int    `json:"productCount"`
}

type ProductInfo struct {
	ID                string    `json:"id"`
	Category          string    `json:"category"`
	Prefix            string    `json:"prefix"`
	HasLabelFolder    bool      `json:"hasLabelFolder"`
	HasOverviewFolder bool      `json:"hasOverviewFolder"`
	OverviewFolders   []string  `json:"overviewFolders"`
	LastModified      time.Time `json:"lastModified"`
}

type ImageInfo struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType"`
	PresignedURL string    `json:"presignedUrl,omitempty"`
}

type ProductImages struct {
	LabelImages    []ImageInfo `json:"labelImages"`
	OverviewImages []ImageInfo `json:"overviewImages"`
}

var categoryNames = map[checklist.Category][2]string{
	checklist.Refrigerator:   {"Refrigerators", "Bottom-freezer and top-mount refrigerators"},
	checklist.WashingMachine: {"Washing Machines", "Front-load and top-load washing machines"},
	checklist.Television:     {"Televisions", "Smart LED and Android TVs"},
	checklist.Other:          {"Other Products", "General household appliances"},
}

// Categories lists the known categories with their product counts. A failed
// count is logged and reported as zero.
func (c *Catalog) Categories(ctx context.Context) []CategoryInfo {
	out := make([]CategoryInfo, 0, len(checklist.Categories))
	for _, cat := range checklist.Categories {
		prefix := c.CategoryPrefix(string(cat))
		info := CategoryInfo{
			ID:          string(cat),
			Name:        categoryNames[cat][0],
			Description: categoryNames[cat][1],
			Prefix:      prefix,
		}
		products, err := c.store.ListPrefixes(ctx, prefix)
		if err != nil {
			c.logger.Warn("failed to count products", zap.String("prefix", prefix), zap.Error(err))
		}
		info.ProductCount = len(products)
		out = append(out, info)
	}
	return out
}

// Products lists the products under a category with folder presence.
func (c *Catalog) Products(ctx context.Context, category string) ([]ProductInfo, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	prefixes, err := c.store.ListPrefixes(ctx, c.CategoryPrefix(category))
	if err != nil {
		return nil, err
	}

	products := make([]ProductInfo, 0, len(prefixes))
	for _, prefix := range prefixes {
		objects, err := c.store.List(ctx, prefix)
		if err != nil {
			c.logger.Warn("failed to inspect product", zap.String("prefix", prefix), zap.Error(err))
			continue
		}

		p := ProductInfo{
			ID:              path.Base(strings.TrimSuffix(prefix, "/")),
			Category:        category,
			Prefix:          prefix,
			OverviewFolders: []string{},
		}
		seen := make(map[string]bool)
		for _, obj := range objects {
			if obj.LastModified.After(p.LastModified) {
				p.LastModified = obj.LastModified
			}
			folder, _, ok := strings.Cut(strings.TrimPrefix(obj.Key, prefix), "/")
			if !ok || !IsImageKey(obj.Key) {
				continue
			}
			if folder == c.layout.LabelFolder {
				p.HasLabelFolder = true
			}
			for _, f := range c.layout.OverviewFolders {
				if folder == f && !seen[f] {
					seen[f] = true
					p.HasOverviewFolder = true
					p.OverviewFolders = append(p.OverviewFolders, f)
				}
			}
		}
		products = append(products, p)
	}
	return products, nil
}

// Images lists every image of a product. Presigned URLs are attached when the
// store supports them; a failed presign leaves the URL empty.
func (c *Catalog) Images(ctx context.Context, category, productID string) (ProductImages, error) {
	base := c.ProductPrefix(category, productID)
	out := ProductImages{LabelImages: []ImageInfo{}, OverviewImages: []ImageInfo{}}

	label, err := c.images(ctx, base+c.layout.LabelFolder+"/")
	if err != nil {
		return ProductImages{}, err
	}
	out.LabelImages = append(out.LabelImages, label...)

	for _, f := range c.layout.OverviewFolders {
		overview, err := c.images(ctx, base+f+"/")
		if err != nil {
			return ProductImages{}, err
		}
		out.OverviewImages = append(out.OverviewImages, overview...)
	}
	return out, nil
}

func (c *Catalog) images(ctx context.Context, prefix string) ([]ImageInfo, error) {
	objects, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	presigner, canPresign := c.store.(Presigner)

	var out []ImageInfo
	for _, obj := range objects {
		if !IsImageKey(obj.Key) {
			continue
		}
		info := ImageInfo{
			Key:          obj.Key,
			Filename:     path.Base(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  MediaTypeForKey(obj.Key),
		}
		if canPresign {
			url, err := presigner.PresignGet(ctx, obj.Key, c.presignTTL)
			if err != nil {
				c.logger.Warn("failed to presign image", zap.String("key", obj.Key), zap.Error(err))
			}
			info.PresignedURL = url
		}
		out = append(out, info)
	}
	return out, nil
}
