package verdict

import (
	"context"

	"github.com/marketpulse/core/internal/model"
)

// SentimentOutput is the structured return of the sentiment adapter.
type SentimentOutput struct {
	Score      float64
	Label      string
	KeyFactors []string
	Confidence float64
}

// TechnicalOutput is the structured return of the technical adapter.
type TechnicalOutput struct {
	Signal         string
	TechnicalScore float64
	Indicators     map[string]float64
	KeySignals     []string
}

// RiskOutput is the structured return of the risk adapter.
type RiskOutput struct {
	RiskLevel               string
	RiskScore               float64
	VolatilityDaily         float64
	VolatilityAnnualized    float64
	SuggestedPositionSize   float64
	StopLossPct             float64
}

// DecisionOutput is the structured return of the decision adapter,
// grounded on original_source/'s DecisionOutput{recommendation,
// confidence, reasoning, primary_driver} shape.
type DecisionOutput struct {
	Recommendation string
	Confidence     float64
	Reasoning      string
	PrimaryDriver  string
}

// SentimentAdapter scores the sentiment of a subject's retrieved chunks.
type SentimentAdapter interface {
	Sentiment(ctx context.Context, subject string, chunkTexts []string) (SentimentOutput, error)
}

// TechnicalAdapter scores a subject's technical signal.
type TechnicalAdapter interface {
	Technical(ctx context.Context, subject string) (TechnicalOutput, error)
}

// RiskAdapter scores a subject's risk profile given the technical read.
type RiskAdapter interface {
	Risk(ctx context.Context, subject string, technical TechnicalOutput) (RiskOutput, error)
}

// DecisionAdapter synthesizes the final recommendation.
type DecisionAdapter interface {
	Decision(ctx context.Context, subject string, sentiment SentimentOutput, technical TechnicalOutput, risk RiskOutput) (DecisionOutput, error)
}

// ReportAdapter is the optional fifth adapter (SPEC_FULL supplement,
// grounded on original_source/report_agent.py): produces a narrative
// paragraph from the assembled verdict. Skipped gracefully when absent,
// the same way the reranker is skipped in C6.
type ReportAdapter interface {
	Report(ctx context.Context, v model.Verdict) (string, error)
}
