package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/letter-recognizer/internal/logging"
)

// PredictionLog represents a persisted prediction.
type PredictionLog struct {
	ID         uint      `gorm:"primaryKey"`
	RequestID  string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Label      string    `gorm:"column:label;size:32;index"`
	LabelIndex int       `gorm:"column:label_index"`
	Score      float32   `gorm:"column:score"`
	SHA1Hash   string    `gorm:"column:sha1_hash;size:40;index"`
	LatencyMs  float64   `gorm:"column:latency_ms"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// MetricsAggregation holds aggregate values computed over all prediction logs.
type MetricsAggregation struct {
	TotalCount       int64
	AverageScore     float64
	AverageLatencyMs float64
	TopLabels        []LabelCount
}

// LabelCount is the number of times a label was predicted.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PredictionRepository provides persistence APIs for prediction logs.
type PredictionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPredictionRepository creates a new repository instance.
func NewPredictionRepository(db *gorm.DB, logger *zap.Logger) *PredictionRepository {
	return &PredictionRepository{db: db, logger: logger.Named("prediction_repository")}
}

// AutoMigrate ensures the schema is available.
func (r *PredictionRepository) AutoMigrate(ctx context.Context) error {
	return logging.NewOperationError("repository.auto_migrate", "", r.db.WithContext(ctx).AutoMigrate(&PredictionLog{}))
}

// SaveLog persists a prediction log entry.
func (r *PredictionRepository) SaveLog(ctx context.Context, log *PredictionLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		wrapped := logging.NewOperationError("repository.save_log", log.RequestID, err)
		r.logger.Error("failed to save prediction log", zap.Error(wrapped))
		return wrapped
	}
	return nil
}

// FindByRequestID retrieves the prediction log recorded for requestID.
func (r *PredictionRepository) FindByRequestID(ctx context.Context, requestID string) (*PredictionLog, error) {
	var log PredictionLog
	if err := r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error; err != nil {
		return nil, logging.NewOperationError("repository.find_by_request_id", requestID, err)
	}
	return &log, nil
}

// AggregateMetrics computes totals, averages and the most frequent labels.
func (r *PredictionRepository) AggregateMetrics(ctx context.Context, topN int) (*MetricsAggregation, error) {
	var row struct {
		TotalCount       int64
		AverageScore     float64
		AverageLatencyMs float64
	}
	err := r.db.WithContext(ctx).
		Model(&PredictionLog{}).
		Select("COUNT(*) AS total_count, COALESCE(AVG(score), 0) AS average_score, COALESCE(AVG(latency_ms), 0) AS average_latency_ms").
		Scan(&row).Error
	if err != nil {
		return nil, logging.NewOperationError("repository.aggregate_metrics", "", err)
	}

	var top []LabelCount
	if topN > 0 {
		err = r.db.WithContext(ctx).
			Model(&PredictionLog{}).
			Select("label, COUNT(*) AS count").
			Group("label").
			Order("count DESC, label ASC").
			Limit(topN).
			Scan(&top).Error
		if err != nil {
			return nil, logging.NewOperationError("repository.aggregate_top_labels", "", err)
		}
	}

	return &MetricsAggregation{
		TotalCount:       row.TotalCount,
		AverageScore:     row.AverageScore,
		AverageLatencyMs: row.AverageLatencyMs,
		TopLabels:        top,
	}, nil
}
