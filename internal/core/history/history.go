// Package history turns persisted verification records into list items and
// summary analytics.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/agenthands/shelfcheck/internal/core/extract"
	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Result classifies one verification.
type Result string

const (
	Correct   Result = "CORRECT"
	Incorrect Result = "INCORRECT"
	Uncertain Result = "UNCERTAIN"
)

const (
	CorrectThreshold   = model.ConfidenceThreshold
	IncorrectThreshold = 0.60
	MediumThreshold    = 0.70

	parseFailure = "Failed to parse AI response"
)

type MatchResult struct {
	Result      string  `json:"result"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Item is one row of the history list.
type Item struct {
	ID                       string           `json:"id"`
	Timestamp                time.Time        `json:"timestamp"`
	ProductID                string           `json:"productId"`
	ProductCategory          string           `json:"productCategory"`
	UploadedLabelImageKey    string           `json:"uploadedLabelImageKey"`
	UploadedOverviewImageKey string           `json:"uploadedOverviewImageKey"`
	ReferenceImageKeys       []string         `json:"referenceImageKeys,omitempty"`
	VerificationResult       Result           `json:"verificationResult"`
	OverallConfidence        float64          `json:"overallConfidence"`
	LabelMatch               MatchResult      `json:"labelMatch"`
	OverviewMatch            MatchResult      `json:"overviewMatch"`
	Model                    string           `json:"aiModel"`
	TokenUsage               model.TokenUsage `json:"tokenUsage"`
	Parsed                   bool             `json:"parsed"`
}

// Classify applies the history rule: both yes and overall confidence at or
// above the threshold is CORRECT, overall below 0.60 is INCORRECT.
func Classify(v model.VerdictFields) (Result, float64) {
	overall := (v.MatchLabelToReferenceConfidence + v.MatchOverviewToReferenceConfidence) / 2
	switch {
	case v.MatchLabelToReference == model.MatchYes.String() &&
		v.MatchOverviewToReference == model.MatchYes.String() &&
		overall >= CorrectThreshold:
		return Correct, overall
	case overall < IncorrectThreshold:
		return Incorrect, overall
	default:
		return Uncertain, overall
	}
}

// FromRecord re-extracts the stored raw text. Unparsed records become
// UNCERTAIN with unknown matches.
func FromRecord(rec model.VerificationRecord) Item {
	// Unreadable timestamps sort last.
	ts, _ := time.Parse(time.RFC3339, rec.Timestamp)

	item := Item{
		ID:                       rec.ID,
		Timestamp:                ts,
		ProductID:                rec.ProductID,
		ProductCategory:          rec.ProductCategory,
		UploadedLabelImageKey:    rec.UploadedLabelImageKey,
		UploadedOverviewImageKey: rec.UploadedOverviewImageKey,
		Model:                    rec.JudgeResponse.Model,
		TokenUsage:               rec.JudgeResponse.Usage,
	}
	if rec.ReferenceImageKeys != nil && *rec.ReferenceImageKeys != "" {
		item.ReferenceImageKeys = strings.Split(*rec.ReferenceImageKeys, ",")
	}

	out := extract.Extract(rec.JudgeResponse.RawText)
	if out.Status != extract.Parsed {
		unknown := model.MatchUnknown.String()
		item.VerificationResult = Uncertain
		item.LabelMatch = MatchResult{Result: unknown, Explanation: parseFailure}
		item.OverviewMatch = MatchResult{Result: unknown, Explanation: parseFailure}
		return item
	}

	f := out.Fields
	item.Parsed = true
	item.VerificationResult, item.OverallConfidence = Classify(f)
	item.LabelMatch = MatchResult{Result: f.MatchLabelToReference, Confidence: f.MatchLabelToReferenceConfidence, Explanation: f.LabelExplanation}
	item.OverviewMatch = MatchResult{Result: f.MatchOverviewToReference, Confidence: f.MatchOverviewToReferenceConfidence, Explanation: f.OverviewExplanation}
	return item
}

// Items converts records and orders them newest first.
func Items(records []model.VerificationRecord) []Item {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, FromRecord(rec))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalRecords    int  `json:"totalRecords"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Paginate returns one page of items. Out-of-range page and size values are
// replaced by the defaults; sizes above MaxPageSize are capped. A page past
// the end is empty.
func Paginate(items []Item, page, pageSize int) ([]Item, Pagination) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	pages := (total + pageSize - 1) / pageSize
	p := Pagination{
		CurrentPage:     page,
		PageSize:        pageSize,
		TotalRecords:    total,
		TotalPages:      pages,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}

	if page > pages {
		return []Item{}, p
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], p
}

// DateRange resolves the dateRange preset (today, week, month, quarter) or the
// RFC3339 dateFrom/dateTo pair. Missing bounds default to the last month.
func DateRange(now time.Time, preset, from, to string) (time.Time, time.Time) {
	switch preset {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
	case "week":
		return now.AddDate(0, 0, -7), now
	case "month":
		return now.AddDate(0, -1, 0), now
	case "quarter":
		return now.AddDate(0, -3, 0), now
	}

	start, end := now.AddDate(0, -1, 0), now
	if t, err := time.Parse(time.RFC3339, from); err == nil {
		start = t
	}
	if t, err := time.Parse(time.RFC3339, to); err == nil {
		end = t
	}
	return start, end
}
