// Package checklist holds the per-category list of visual features the judge
// inspects during overview comparison.
package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one of the closed set of product category tags.
type Category string

const (
	Refrigerator   Category = "REF"
	WashingMachine Category = "WM"
	Television     Category = "TV"
	Other          Category = "OTHER"
)

// Categories lists every known category, OTHER last.
var Categories = []Category{Refrigerator, WashingMachine, Television, Other}

// Normalize maps a free-form category to a known tag; unrecognized values become OTHER.
func Normalize(s string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case Refrigerator, WashingMachine, Television, Other:
		return c
	}
	return Other
}

//go:embed checklists.yaml
var defaultTable []byte

// Catalog is an immutable category to checklist table. Build it once at
// start-up and share it; it is never mutated afterwards.
type Catalog struct {
	entries map[Category]string
}

// Default returns the built-in table.
func Default() *Catalog {
	c, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("checklist: embedded table is invalid: %v", err))
	}
	return c
}

// Load reads a YAML table from path. An empty path yields the built-in table.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist file '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML keyed by category tag. OTHER is required and
// unknown keys are rejected, so FeaturesFor never has to fail.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse checklist YAML: %w", err)
	}
	return New(raw)
}

// New builds a catalog from an in-memory table.
func New(table map[string]string) (*Catalog, error) {
	entries := make(map[Category]string, len(table))
	var unknown []string
	for k, v := range table {
		c := Category(strings.ToUpper(strings.TrimSpace(k)))
		switch c {
		case Refrigerator, WashingMachine, Television, Other:
		default:
			unknown = append(unknown, k)
			continue
		}
		text := strings.TrimSpace(v)
		if text == "" {
			return nil, fmt.Errorf("checklist for %s is empty", c)
		}
		entries[c] = text
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown checklist categories: %s", strings.Join(unknown, ", "))
	}
	if _, ok := entries[Other]; !ok {
		return nil, fmt.Errorf("checklist table must define %s", Other)
	}
	return &Catalog{entries: entries}, nil
}

// FeaturesFor returns the checklist for category, matched case-insensitively.
// Unknown categories, and known ones missing from the table, get the OTHER checklist.
func (c *Catalog) FeaturesFor(category string) string {
	if text, ok := c.entries[Normalize(category)]; ok {
		return text
	}
	return c.entries[Other]
}
