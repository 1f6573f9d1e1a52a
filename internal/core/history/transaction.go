package history

import (
	"time"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Per-token list prices for Claude 3.5 Sonnet, in USD.
const (
	InputTokenPrice  = 0.000003
	OutputTokenPrice = 0.000015
)

// EstimateCost prices a judge call from its token usage.
func EstimateCost(u model.TokenUsage) float64 {
	return float64(u.InputTokens)*InputTokenPrice + float64(u.OutputTokens)*OutputTokenPrice
}

type ImageAccessSet struct {
	UploadedLabelImage    *catalog.ImageAccess  `json:"uploadedLabelImage,omitempty"`
	UploadedOverviewImage *catalog.ImageAccess  `json:"uploadedOverviewImage,omitempty"`
	ReferenceImages       []catalog.ImageAccess `json:"referenceImages"`
}

type Analysis struct {
	Model         string           `json:"model"`
	ResponseID    string           `json:"responseId"`
	StopReason    string           `json:"stopReason"`
	TokenUsage    model.TokenUsage `json:"tokenUsage"`
	EstimatedCost float64          `json:"estimatedCost"`
}

type TransactionMetadata struct {
	RetrievedAt        time.Time `json:"retrievedAt"`
	PresignedURLExpiry string    `json:"presignedUrlExpiry"`
}

// Transaction is the detail view of one verification record.
type Transaction struct {
	Item
	ImageAccess ImageAccessSet       `json:"imageAccess"`
	AIAnalysis  Analysis             `json:"aiAnalysis"`
	RawResponse model.StoredResponse `json:"rawResponse"`
	Metadata    TransactionMetadata  `json:"metadata"`
}

// Detail re-extracts the record the same way the list does and adds the judge
// metadata. Image access is left for the caller to fill.
func Detail(rec model.VerificationRecord, now time.Time) Transaction {
	return Transaction{
		Item:        FromRecord(rec),
		ImageAccess: ImageAccessSet{ReferenceImages: []catalog.ImageAccess{}},
		AIAnalysis: Analysis{
			Model:         rec.JudgeResponse.Model,
			ResponseID:    rec.JudgeResponse.ID,
			StopReason:    rec.JudgeResponse.StopReason,
			TokenUsage:    rec.JudgeResponse.Usage,
			EstimatedCost: EstimateCost(rec.JudgeResponse.Usage),
		},
		RawResponse: rec.JudgeResponse,
		Metadata:    TransactionMetadata{RetrievedAt: now.UTC()},
	}
}
