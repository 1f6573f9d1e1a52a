package history

type CategoryStats struct {
	Count         int     `json:"count"`
	SuccessRate   float64 `json:"successRate"`
	AvgConfidence float64 `json:"avgConfidence"`
}

type ModelStats struct {
	Verifications   int `json:"verifications"`
	AvgInputTokens  int `json:"avgInputTokens"`
	AvgOutputTokens int `json:"avgOutputTokens"`
}

type ConfidenceBucket struct {
	Range      string  `json:"range"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type ConfidenceStats struct {
	High   ConfidenceBucket `json:"high"`
	Medium ConfidenceBucket `json:"medium"`
	Low    ConfidenceBucket `json:"low"`
}

type AccuracyStats struct {
	AverageConfidence float64 `json:"averageConfidence"`
	SuccessRate       float64 `json:"successRate"`
}

// Summary aggregates a set of items. Rates are percentages over the parsed
// items; unparsed items are only counted in TotalVerifications and Unparsed.
type Summary struct {
	TotalVerifications     int                      `json:"totalVerifications"`
	Unparsed               int                      `json:"unparsed"`
	SuccessRate            float64                  `json:"successRate"`
	AverageConfidence      float64                  `json:"averageConfidence"`
	CategoryBreakdown      map[string]CategoryStats `json:"categoryBreakdown"`
	ModelUsage             map[string]ModelStats    `json:"aiModelUsage"`
	ConfidenceDistribution ConfidenceStats          `json:"confidenceDistribution"`
	LabelAccuracy          AccuracyStats            `json:"labelAccuracy"`
	OverviewAccuracy       AccuracyStats            `json:"overviewAccuracy"`
}

func Summarize(items []Item) Summary {
	s := Summary{
		TotalVerifications: len(items),
		CategoryBreakdown:  make(map[string]CategoryStats),
		ModelUsage:         make(map[string]ModelStats),
		ConfidenceDistribution: ConfidenceStats{
			High:   ConfidenceBucket{Range: "0.85-1.0"},
			Medium: ConfidenceBucket{Range: "0.70-0.84"},
			Low:    ConfidenceBucket{Range: "0.0-0.69"},
		},
	}

	var (
		parsed, correct, labelYes, overviewYes int
		total, labelSum, overviewSum           float64
	)
	inputTokens := make(map[string]int)
	outputTokens := make(map[string]int)

	for _, it := range items {
		if !it.Parsed {
			s.Unparsed++
			continue
		}
		parsed++
		total += it.OverallConfidence
		labelSum += it.LabelMatch.Confidence
		overviewSum += it.OverviewMatch.Confidence
		if it.VerificationResult == Correct {
			correct++
		}
		if it.LabelMatch.Result == "yes" {
			labelYes++
		}
		if it.OverviewMatch.Result == "yes" {
			overviewYes++
		}

		switch {
		case it.OverallConfidence >= CorrectThreshold:
			s.ConfidenceDistribution.High.Count++
		case it.OverallConfidence >= MediumThreshold:
			s.ConfidenceDistribution.Medium.Count++
		default:
			s.ConfidenceDistribution.Low.Count++
		}

		cs := s.CategoryBreakdown[it.ProductCategory]
		cs.Count++
		if it.VerificationResult == Correct {
			cs.SuccessRate++
		}
		cs.AvgConfidence += it.OverallConfidence
		s.CategoryBreakdown[it.ProductCategory] = cs

		ms := s.ModelUsage[it.Model]
		ms.Verifications++
		s.ModelUsage[it.Model] = ms
		inputTokens[it.Model] += it.TokenUsage.InputTokens
		outputTokens[it.Model] += it.TokenUsage.OutputTokens
	}

	if parsed == 0 {
		return s
	}

	for k, cs := range s.CategoryBreakdown {
		cs.SuccessRate = percent(int(cs.SuccessRate), cs.Count)
		cs.AvgConfidence /= float64(cs.Count)
		s.CategoryBreakdown[k] = cs
	}
	for k, ms := range s.ModelUsage {
		ms.AvgInputTokens = inputTokens[k] / ms.Verifications
		ms.AvgOutputTokens = outputTokens[k] / ms.Verifications
		s.ModelUsage[k] = ms
	}

	n := float64(parsed)
	s.SuccessRate = percent(correct, parsed)
	s.AverageConfidence = total / n
	s.ConfidenceDistribution.High.Percentage = percent(s.ConfidenceDistribution.High.Count, parsed)
	s.ConfidenceDistribution.Medium.Percentage = percent(s.ConfidenceDistribution.Medium.Count, parsed)
	s.ConfidenceDistribution.Low.Percentage = percent(s.ConfidenceDistribution.Low.Count, parsed)
	s.LabelAccuracy = AccuracyStats{AverageConfidence: labelSum / n, SuccessRate: percent(labelYes, parsed)}
	s.OverviewAccuracy = AccuracyStats{AverageConfidence: overviewSum / n, SuccessRate: percent(overviewYes, parsed)}
	return s
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
