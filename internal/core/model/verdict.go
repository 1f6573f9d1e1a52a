package model

import (
	"encoding/json"
	"strings"
)

// Match is the judge's answer for one comparison axis.
type Match int

const (
	MatchUnknown Match = iota
	MatchYes
	MatchNo
)

// ParseMatch maps the wire value to a Match. Anything other than yes/no is unknown.
func ParseMatch(s string) Match {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return MatchYes
	case "no":
		return MatchNo
	default:
		return MatchUnknown
	}
}

func (m Match) String() string {
	switch m {
	case MatchYes:
		return "yes"
	case MatchNo:
		return "no"
	default:
		return "unknown"
	}
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Match) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = ParseMatch(s)
	return nil
}

// ConfidenceThreshold is the minimum confidence the judge is told a "yes" requires.
const ConfidenceThreshold = 0.85

// Judgment is the verdict for one axis.
type Judgment struct {
	Match       Match
	Confidence  float64
	Explanation string
}

// BelowThreshold reports a "yes" that carries less confidence than the judge was instructed to require.
func (j Judgment) BelowThreshold() bool {
	return j.Match == MatchYes && j.Confidence < ConfidenceThreshold
}

// Verdict is the structured judge output.
type Verdict struct {
	Label    Judgment
	Overview Judgment
}

// VerdictFields is the six-field wire shape of a Verdict.
type VerdictFields struct {
	MatchLabelToReference              string  `json:"matchLabelToReference"`
	MatchLabelToReferenceConfidence    float64 `json:"matchLabelToReference_confidence"`
	LabelExplanation                   string  `json:"label_explanation"`
	MatchOverviewToReference           string  `json:"matchOverviewToReference"`
	MatchOverviewToReferenceConfidence float64 `json:"matchOverviewToReference_confidence"`
	OverviewExplanation                string  `json:"overview_explanation"`
}

// Fields renders the verdict in its wire shape.
func (v Verdict) Fields() VerdictFields {
	return VerdictFields{
		MatchLabelToReference:              v.Label.Match.String(),
		MatchLabelToReferenceConfidence:    v.Label.Confidence,
		LabelExplanation:                   v.Label.Explanation,
		MatchOverviewToReference:           v.Overview.Match.String(),
		MatchOverviewToReferenceConfidence: v.Overview.Confidence,
		OverviewExplanation:                v.Overview.Explanation,
	}
}
