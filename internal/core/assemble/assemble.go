// Package assemble merges an extracted verdict with request identifiers into
// the persisted record and the caller-facing responses.
package assemble

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/shelfcheck/internal/core/extract"
	"github.com/agenthands/shelfcheck/internal/core/model"
)

// ReferenceKeySeparator joins reference keys in the persisted record.
const ReferenceKeySeparator = ","

// Input is everything the assembler needs for one request.
// ReferenceKeys is nil when the references used are not known.
type Input struct {
	Request       model.VerificationRequest
	ReferenceKeys []string
	Response      model.JudgeResponse
	Outcome       extract.Outcome
}

// Assembly is the output of Assemble.
type Assembly struct {
	Record model.VerificationRecord
	Client model.ClientResponse
	Legacy model.LegacyResponse
}

type Assembler struct {
	NewID func() string
	Now   func() time.Time
}

func New() *Assembler {
	return &Assembler{
		NewID: func() string { return uuid.New().String() },
		Now:   time.Now,
	}
}

// Assemble generates a transaction id and timestamp and builds the record and
// responses. It performs no I/O.
func (a *Assembler) Assemble(in Input) Assembly {
	txID := a.NewID()
	ts := a.Now().UTC().Format(time.RFC3339)

	record := model.VerificationRecord{
		ID:                       txID,
		Timestamp:                ts,
		ProductID:                in.Request.ProductID,
		ProductCategory:          in.Request.ProductCategory,
		UploadedLabelImageKey:    imageKey(in.Request.UploadedLabelImageKey),
		UploadedOverviewImageKey: imageKey(in.Request.UploadedOverviewImageKey),
		ReferenceImageKeys:       joinKeys(in.ReferenceKeys),
		JudgeResponse: model.StoredResponse{
			ID:         in.Response.ID,
			Model:      in.Response.Model,
			StopReason: in.Response.StopReason,
			Usage:      in.Response.Usage,
			RawText:    in.Response.Text,
			Parsed:     in.Outcome.Object,
		},
	}

	client := model.ClientResponse{
		VerdictFields: extract.DefaultFields(),
		TransactionID: txID,
	}
	var legacyText any = in.Response.Text
	if in.Outcome.Status == extract.Parsed {
		client.VerdictFields = in.Outcome.Fields
		legacyText = in.Outcome.Object
	} else {
		raw := in.Response.Text
		client.Unparsed = &raw
	}

	return Assembly{
		Record: record,
		Client: client,
		Legacy: model.LegacyResponse{
			Result:        []model.LegacyContent{{Type: model.BlockTypeText, Text: legacyText}},
			TransactionID: txID,
		},
	}
}

func imageKey(key string) string {
	if key == "" {
		return model.InlineImageKey
	}
	return key
}

func joinKeys(keys []string) *string {
	if len(keys) == 0 {
		return nil
	}
	joined := strings.Join(keys, ReferenceKeySeparator)
	return &joined
}
