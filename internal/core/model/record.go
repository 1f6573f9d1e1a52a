package model

// InlineImageKey marks an uploaded image that arrived as inline data rather than a storage key.
const InlineImageKey = "inline"

// StoredResponse is the judge response as persisted: metadata, the verbatim text,
// and the parsed object when extraction succeeded.
type StoredResponse struct {
	ID         string         `json:"id" dynamodbav:"id"`
	Model      string         `json:"model" dynamodbav:"model"`
	StopReason string         `json:"stop_reason" dynamodbav:"stop_reason"`
	Usage      TokenUsage     `json:"usage" dynamodbav:"usage"`
	RawText    string         `json:"raw_text" dynamodbav:"raw_text"`
	Parsed     map[string]any `json:"parsed,omitempty" dynamodbav:"parsed,omitempty"`
}

// VerificationRecord is the append-only row written once per request.
// ReferenceImageKeys is nil when the references used are unknown.
type VerificationRecord struct {
	ID                       string         `json:"id" dynamodbav:"id"`
	Timestamp                string         `json:"timestamp" dynamodbav:"timestamp"`
	ProductID                string         `json:"productId" dynamodbav:"productId"`
	ProductCategory          string         `json:"productCategory" dynamodbav:"productCategory"`
	UploadedLabelImageKey    string         `json:"uploadedLabelImageKey" dynamodbav:"uploadedLabelImageKey"`
	UploadedOverviewImageKey string         `json:"uploadedOverviewImageKey" dynamodbav:"uploadedOverviewImageKey"`
	ReferenceImageKeys       *string        `json:"referenceImageKeys" dynamodbav:"referenceImageKeys"`
	JudgeResponse            StoredResponse `json:"judgeResponse" dynamodbav:"judgeResponse"`
}

// ClientResponse is returned by POST /validate. Unparsed is set only when the
// judge output could not be read as structured data.
type ClientResponse struct {
	VerdictFields
	TransactionID string  `json:"transactionId"`
	Unparsed      *string `json:"unparsed,omitempty"`
}

// LegacyContent mirrors one judge content entry; Text holds the parsed object
// when extraction succeeded and the raw string otherwise.
type LegacyContent struct {
	Type string `json:"type"`
	Text any    `json:"text"`
}

// LegacyResponse is the older result/transactionId response shape.
type LegacyResponse struct {
	Result        []LegacyContent `json:"result"`
	TransactionID string          `json:"transactionId"`
}
