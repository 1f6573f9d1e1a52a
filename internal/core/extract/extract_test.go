package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

const fullObject = `{
  "matchLabelToReference": "yes",
  "matchLabelToReference_confidence": 0.93,
  "label_explanation": "Model code AQR-B360MA matches.",
  "matchOverviewToReference": "no",
  "matchOverviewToReference_confidence": 0.88,
  "overview_explanation": "Handle design differs."
}`

func wantFull() model.VerdictFields {
	return model.VerdictFields{
		MatchLabelToReference:              "yes",
		MatchLabelToReferenceConfidence:    0.93,
		LabelExplanation:                   "Model code AQR-B360MA matches.",
		MatchOverviewToReference:           "no",
		MatchOverviewToReferenceConfidence: 0.88,
		OverviewExplanation:                "Handle design differs.",
	}
}

func TestExtract_FencedRoundTrip(t *testing.T) {
	raw := "```json\n" + fullObject + "\n```"

	out := Extract(raw)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "fenced", out.Strategy)
	assert.Equal(t, wantFull(), out.Fields)
	assert.Equal(t, raw, out.Raw)

	v, err := out.Verdict()
	require.NoError(t, err)
	assert.Equal(t, model.MatchYes, v.Label.Match)
	assert.Equal(t, model.MatchNo, v.Overview.Match)
}

func TestExtract_FencedWithSurroundingProse(t *testing.T) {
	raw := "Here is my assessment:\n```json\n" + fullObject + "\n```\nLet me know if you need more."

	out := Extract(raw)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "fenced", out.Strategy)
	assert.Equal(t, wantFull(), out.Fields)
}

func TestExtract_OpenFenceRecovers(t *testing.T) {
	raw := "```json\n" + fullObject

	out := Extract(raw)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "open-fence", out.Strategy)
	assert.Equal(t, wantFull(), out.Fields)
}

func TestExtract_Bare(t *testing.T) {
	out := Extract("  " + fullObject + "\n")

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "bare", out.Strategy)
	assert.Equal(t, wantFull(), out.Fields)
}

func TestExtract_EmbeddedInProse(t *testing.T) {
	out := Extract("Verdict follows " + fullObject + " end.")

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "embedded", out.Strategy)
	assert.Equal(t, wantFull(), out.Fields)
}

func TestExtract_PlainFenceWithoutLanguage(t *testing.T) {
	out := Extract("```\n" + fullObject + "\n```")

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "embedded", out.Strategy)
}

func TestExtract_ProseIsUnparsed(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not compare the images because they are too dark.",
		"```json\nnot json at all\n```",
		"```json\n[1, 2, 3]\n```",
		"the {braces} are not an object",
	} {
		out := Extract(raw)
		assert.Equal(t, Unparsed, out.Status, "raw %q", raw)
		assert.Equal(t, raw, out.Raw)
		assert.Nil(t, out.Object)

		_, err := out.Verdict()
		assert.ErrorIs(t, err, ErrMalformedOutput)
	}
}

func TestExtract_EmbeddedNeedsVerdictField(t *testing.T) {
	for _, raw := range []string{
		"I cannot determine this {} sorry",
		`Unsure. {"reason": "glare"} Please retake.`,
	} {
		out := Extract(raw)
		assert.Equal(t, Unparsed, out.Status, "raw %q", raw)
	}

	out := Extract(`Unsure. {"overview_explanation": "glare"} Please retake.`)
	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "embedded", out.Strategy)
	assert.Equal(t, "glare", out.Fields.OverviewExplanation)

	// Whole-text objects are taken as they are.
	assert.Equal(t, Parsed, Extract(`{"reason": "glare"}`).Status)
}

func TestExtract_MissingFieldsDefault(t *testing.T) {
	out := Extract(`{"matchLabelToReference": "yes", "label_explanation": "ok"}`)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, model.VerdictFields{
		MatchLabelToReference:              "yes",
		MatchLabelToReferenceConfidence:    0,
		LabelExplanation:                   "ok",
		MatchOverviewToReference:           "unknown",
		MatchOverviewToReferenceConfidence: 0,
		OverviewExplanation:                "",
	}, out.Fields)
}

func TestExtract_OddValues(t *testing.T) {
	out := Extract(`{"matchLabelToReference": "YES", "matchLabelToReference_confidence": "0.9",
		"matchOverviewToReference": true, "matchOverviewToReference_confidence": 1.4}`)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "yes", out.Fields.MatchLabelToReference)
	assert.InDelta(t, 0.9, out.Fields.MatchLabelToReferenceConfidence, 1e-9)
	assert.Equal(t, "unknown", out.Fields.MatchOverviewToReference)
	// Confidence is passed through as received.
	assert.InDelta(t, 1.4, out.Fields.MatchOverviewToReferenceConfidence, 1e-9)
}

func TestExtract_BelowThresholdIsNotOverridden(t *testing.T) {
	out := Extract(`{"matchLabelToReference": "yes", "matchLabelToReference_confidence": 0.6}`)

	v, err := out.Verdict()
	require.NoError(t, err)
	assert.Equal(t, model.MatchYes, v.Label.Match)
	assert.True(t, v.Label.BelowThreshold())
	assert.Equal(t, "yes", out.Fields.MatchLabelToReference)
}

func TestExtract_ObjectKeepsExtraKeys(t *testing.T) {
	out := Extract(`{"matchLabelToReference": "no", "notes": ["blurry"]}`)

	require.Equal(t, Parsed, out.Status)
	assert.Equal(t, "no", out.Object["matchLabelToReference"])
	assert.Equal(t, []any{"blurry"}, out.Object["notes"])
}

func TestStrategies(t *testing.T) {
	assert.Nil(t, Fenced("no marker"))
	assert.Nil(t, Fenced("```json {\"a\":1}"))
	assert.Equal(t, []string{`{"a":1}`}, Fenced("x ```json {\"a\":1} ``` y"))

	assert.Nil(t, OpenFence("```json {} ```"))
	assert.Equal(t, []string{"```json {\"a\":1}", `{"a":1}`}, OpenFence("```json {\"a\":1}"))

	assert.Nil(t, Bare("``` {}"))
	assert.Equal(t, []string{"{}"}, Bare(" {} "))

	assert.Nil(t, Embedded("} backwards {"))
	assert.Equal(t, []string{`{"a":{"b":1}}`}, Embedded(`pre {"a":{"b":1}} post`))
}

func TestExtractWith_CustomChain(t *testing.T) {
	chain := []Strategy{{Name: "only-bare", Candidates: Bare}}

	assert.Equal(t, Unparsed, ExtractWith(chain, "text "+fullObject).Status)
	assert.Equal(t, Parsed, ExtractWith(chain, fullObject).Status)
}

func TestDefaultFields(t *testing.T) {
	f := DefaultFields()
	assert.Equal(t, "unknown", f.MatchLabelToReference)
	assert.Equal(t, "unknown", f.MatchOverviewToReference)
	assert.Zero(t, f.MatchLabelToReferenceConfidence)
	assert.Empty(t, f.OverviewExplanation)
}
