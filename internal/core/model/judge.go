package model

const (
	BlockTypeText  = "text"
	BlockTypeImage = "image"

	SourceTypeBase64 = "base64"

	RoleUser = "user"
)

// ImageSource is the inline payload of an image block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is one entry of the user message content.
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ComparisonPrompt is the composed request for one verification.
type ComparisonPrompt struct {
	System  string
	User    string
	Content []ContentBlock
}

// ImageBlocks returns the image blocks in content order.
func (p ComparisonPrompt) ImageBlocks() []ContentBlock {
	var out []ContentBlock
	for _, b := range p.Content {
		if b.Type == BlockTypeImage {
			out = append(out, b)
		}
	}
	return out
}

type PayloadMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// InvocationPayload is the body sent to the judge.
type InvocationPayload struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system"`
	Messages         []PayloadMessage `json:"messages"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens" dynamodbav:"input_tokens"`
	OutputTokens int `json:"output_tokens" dynamodbav:"output_tokens"`
}

// JudgeResponse is the judge output plus transport metadata.
type JudgeResponse struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
	Text       string     `json:"text"`
}
