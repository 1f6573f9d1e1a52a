// Package extract recovers the structured verdict from free-form judge output.
//
// Judge output is not contractual: it may be wrapped in a markdown fence, the
// fence may be truncated, or prose may surround the object. Extraction runs an
// ordered chain of strategies and returns a tagged Outcome; it never fails the
// request.
package extract

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// ErrMalformedOutput is reported by Outcome.Verdict when nothing could be parsed.
var ErrMalformedOutput = errors.New("judge output is not structured data")

const (
	jsonFence  = "```json"
	fence      = "```"
	unknownTag = "unknown"
)

const (
	FieldLabelMatch          = "matchLabelToReference"
	FieldLabelConfidence     = "matchLabelToReference_confidence"
	FieldLabelExplanation    = "label_explanation"
	FieldOverviewMatch       = "matchOverviewToReference"
	FieldOverviewConfidence  = "matchOverviewToReference_confidence"
	FieldOverviewExplanation = "overview_explanation"
)

// Status tags an Outcome.
type Status int

const (
	Unparsed Status = iota
	Parsed
)

func (s Status) String() string {
	if s == Parsed {
		return "parsed"
	}
	return "unparsed"
}

// Outcome is the result of Extract. Fields and Object are set only when Status is Parsed.
type Outcome struct {
	Status   Status
	Strategy string
	Raw      string
	Fields   model.VerdictFields
	Object   map[string]any
	verdict  model.Verdict
}

// Verdict returns the parsed verdict, or ErrMalformedOutput.
func (o Outcome) Verdict() (model.Verdict, error) {
	if o.Status != Parsed {
		return model.Verdict{}, ErrMalformedOutput
	}
	return o.verdict, nil
}

// Strategy proposes candidate JSON texts for raw, in preference order.
// A strategy that does not apply returns nil. With RequireField set, an
// object counts only if it names at least one verdict field.
type Strategy struct {
	Name         string
	Candidates   func(raw string) []string
	RequireField bool
}

var verdictFieldNames = []string{
	FieldLabelMatch, FieldLabelConfidence, FieldLabelExplanation,
	FieldOverviewMatch, FieldOverviewConfidence, FieldOverviewExplanation,
}

// DefaultChain is the order Extract tries. First success wins.
var DefaultChain = []Strategy{
	{Name: "fenced", Candidates: Fenced},
	{Name: "open-fence", Candidates: OpenFence},
	{Name: "bare", Candidates: Bare},
	{Name: "embedded", Candidates: Embedded, RequireField: true},
}

// Extract runs DefaultChain over raw.
func Extract(raw string) Outcome {
	return ExtractWith(DefaultChain, raw)
}

// ExtractWith runs the given chain over raw. A candidate counts only when it
// is valid JSON whose top level is an object.
func ExtractWith(chain []Strategy, raw string) Outcome {
	for _, s := range chain {
		for _, candidate := range s.Candidates(raw) {
			obj, ok := parseObject(candidate)
			if !ok || (s.RequireField && !hasVerdictField(obj)) {
				continue
			}
			v := verdictFrom(obj)
			m, _ := obj.Value().(map[string]any)
			return Outcome{
				Status:   Parsed,
				Strategy: s.Name,
				Raw:      raw,
				Fields:   v.Fields(),
				Object:   m,
				verdict:  v,
			}
		}
	}
	return Outcome{Status: Unparsed, Raw: raw}
}

// Fenced returns the text strictly between a ```json marker and the next closing fence.
func Fenced(raw string) []string {
	start := strings.Index(raw, jsonFence)
	if start == -1 {
		return nil
	}
	body := raw[start+len(jsonFence):]
	end := strings.Index(body, fence)
	if end == -1 {
		return nil
	}
	return []string{strings.TrimSpace(body[:end])}
}

// OpenFence handles a ```json marker with no closing fence: the whole text
// first, then everything after the marker.
func OpenFence(raw string) []string {
	start := strings.Index(raw, jsonFence)
	if start == -1 {
		return nil
	}
	if strings.Contains(raw[start+len(jsonFence):], fence) {
		return nil
	}
	return []string{strings.TrimSpace(raw), strings.TrimSpace(raw[start+len(jsonFence):])}
}

// Bare parses the whole text when it carries no fence at all.
func Bare(raw string) []string {
	if strings.Contains(raw, fence) {
		return nil
	}
	return []string{strings.TrimSpace(raw)}
}

// Embedded slices from the first '{' to the last '}'.
func Embedded(raw string) []string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end <= start {
		return nil
	}
	return []string{raw[start : end+1]}
}

func parseObject(s string) (gjson.Result, bool) {
	if s == "" || !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(s)
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	return r, true
}

func hasVerdictField(obj gjson.Result) bool {
	for _, name := range verdictFieldNames {
		if obj.Get(name).Exists() {
			return true
		}
	}
	return false
}

// verdictFrom reads the six fields, defaulting absent ones to unknown, 0 and "".
func verdictFrom(obj gjson.Result) model.Verdict {
	return model.Verdict{
		Label: model.Judgment{
			Match:       matchField(obj, FieldLabelMatch),
			Confidence:  obj.Get(FieldLabelConfidence).Float(),
			Explanation: obj.Get(FieldLabelExplanation).String(),
		},
		Overview: model.Judgment{
			Match:       matchField(obj, FieldOverviewMatch),
			Confidence:  obj.Get(FieldOverviewConfidence).Float(),
			Explanation: obj.Get(FieldOverviewExplanation).String(),
		},
	}
}

func matchField(obj gjson.Result, field string) model.Match {
	r := obj.Get(field)
	if r.Type != gjson.String {
		return model.ParseMatch(unknownTag)
	}
	return model.ParseMatch(r.Str)
}

// DefaultFields is the wire shape used when nothing could be parsed.
func DefaultFields() model.VerdictFields {
	return model.Verdict{}.Fields()
}
