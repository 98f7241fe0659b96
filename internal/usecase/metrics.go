package usecase

import (
	"context"

	"github.com/example/letter-recognizer/internal/repository"
)

const summaryTopLabels = 10

// MetricsSummary represents aggregated prediction insights.
type MetricsSummary struct {
	TotalPredictions           int64                   `json:"total_predictions"`
	AverageScore               float64                 `json:"average_score"`
	AverageProcessingLatencyMs float64                 `json:"average_processing_latency_ms"`
	TopLabels                  []repository.LabelCount `json:"top_labels"`
}

// GetMetricsSummary aggregates prediction metrics from persisted logs.
func (uc *PredictionUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}
	aggregation, err := uc.repo.AggregateMetrics(ctx, summaryTopLabels)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalPredictions:           aggregation.TotalCount,
		AverageScore:               aggregation.AverageScore,
		AverageProcessingLatencyMs: aggregation.AverageLatencyMs,
		TopLabels:                  aggregation.TopLabels,
	}
	if summary.TopLabels == nil {
		summary.TopLabels = []repository.LabelCount{}
	}
	return summary, nil
}
