// Package prompt builds the multimodal comparison request sent to the judge.
package prompt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"text/template"

	"github.com/agenthands/shelfcheck/internal/core/checklist"
	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Templates holds the system and user prompt templates. Empty fields fall
// back to the built-in defaults.
type Templates struct {
	System string
	User   string
}

// Settings are the judge parameters copied into every payload.
type Settings struct {
	AnthropicVersion string
	MaxTokens        int
	Temperature      float64
}

type templateData struct {
	Brand         string
	ProductID     string
	Category      string
	Checklist     string
	LabelCount    int
	OverviewCount int
}

// Composer turns a resolved subject and its references into a ComparisonPrompt.
// It does no I/O and is safe for concurrent use.
type Composer struct {
	checklists *checklist.Catalog
	brand      string
	system     *template.Template
	user       *template.Template
}

func NewComposer(checklists *checklist.Catalog, brand string, tmpl Templates) (*Composer, error) {
	if checklists == nil {
		checklists = checklist.Default()
	}
	if tmpl.System == "" {
		tmpl.System = DefaultSystemTemplate
	}
	if tmpl.User == "" {
		tmpl.User = DefaultUserTemplate
	}

	system, err := template.New("system").Option("missingkey=error").Parse(tmpl.System)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system prompt template: %w", err)
	}
	user, err := template.New("user").Option("missingkey=error").Parse(tmpl.User)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user prompt template: %w", err)
	}

	c := &Composer{checklists: checklists, brand: brand, system: system, user: user}

	// Reject templates that reference fields we do not provide.
	sample := templateData{Brand: brand, ProductID: "sample", Category: string(checklist.Other), Checklist: "sample", LabelCount: 1, OverviewCount: 1}
	if _, err := render(system, sample); err != nil {
		return nil, fmt.Errorf("invalid system prompt template: %w", err)
	}
	if _, err := render(user, sample); err != nil {
		return nil, fmt.Errorf("invalid user prompt template: %w", err)
	}
	return c, nil
}

// Compose builds the prompt. Content is one text block followed by images in
// the order uploaded label, uploaded overview, label references, overview
// references. The user template describes images by position, so this order
// is fixed.
func (c *Composer) Compose(subject model.Subject, refs model.ReferenceImageSet) (model.ComparisonPrompt, error) {
	category := string(checklist.Normalize(subject.Category))
	data := templateData{
		Brand:         c.brand,
		ProductID:     subject.ProductID,
		Category:      category,
		Checklist:     c.checklists.FeaturesFor(subject.Category),
		LabelCount:    len(refs.Label),
		OverviewCount: len(refs.Overview),
	}

	system, err := render(c.system, data)
	if err != nil {
		return model.ComparisonPrompt{}, fmt.Errorf("failed to render system prompt: %w", err)
	}
	user, err := render(c.user, data)
	if err != nil {
		return model.ComparisonPrompt{}, fmt.Errorf("failed to render user prompt: %w", err)
	}

	content := make([]model.ContentBlock, 0, 3+len(refs.Label)+len(refs.Overview))
	content = append(content, model.ContentBlock{Type: model.BlockTypeText, Text: user})
	content = append(content, imageBlock(subject.LabelImage), imageBlock(subject.OverviewImage))
	for _, img := range refs.Label {
		content = append(content, imageBlock(img))
	}
	for _, img := range refs.Overview {
		content = append(content, imageBlock(img))
	}

	return model.ComparisonPrompt{System: system, User: user, Content: content}, nil
}

// BuildPayload wraps a composed prompt into the single-user-message payload.
func BuildPayload(p model.ComparisonPrompt, s Settings) model.InvocationPayload {
	return model.InvocationPayload{
		AnthropicVersion: s.AnthropicVersion,
		MaxTokens:        s.MaxTokens,
		Temperature:      s.Temperature,
		System:           p.System,
		Messages: []model.PayloadMessage{
			{Role: model.RoleUser, Content: p.Content},
		},
	}
}

func imageBlock(img model.Image) model.ContentBlock {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = model.DefaultMediaType
	}
	return model.ContentBlock{
		Type: model.BlockTypeImage,
		Source: &model.ImageSource{
			Type:      model.SourceTypeBase64,
			MediaType: mediaType,
			Data:      base64.StdEncoding.EncodeToString(img.Data),
		},
	}
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
