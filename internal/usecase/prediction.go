package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/letter-recognizer/internal/inference"
	"github.com/example/letter-recognizer/internal/labels"
	"github.com/example/letter-recognizer/internal/logging"
	"github.com/example/letter-recognizer/internal/normalizer"
	"github.com/example/letter-recognizer/internal/repository"
)

// Prediction outcomes reported to a PredictionRecorder.
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
	OutcomeError   = "error"
)

// PredictionRepository defines the persistence operations needed by the use case.
type PredictionRepository interface {
	SaveLog(ctx context.Context, log *repository.PredictionLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.PredictionLog, error)
	AggregateMetrics(ctx context.Context, topN int) (*repository.MetricsAggregation, error)
}

// PredictionRecorder counts prediction outcomes.
type PredictionRecorder interface {
	ObservePrediction(outcome string)
}

// Prediction is the outcome of classifying one uploaded image.
type Prediction struct {
	RequestID string
	Label     string
	Index     int
	Score     float32
	Cached    bool
	CreatedAt time.Time
}

// PredictionUseCase runs the normalize, score and label pipeline.
type PredictionUseCase struct {
	model    inference.Model
	cache    Cache
	cacheTTL time.Duration
	repo     PredictionRepository
	recorder PredictionRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option customises a PredictionUseCase.
type Option func(*PredictionUseCase)

// WithCache enables result caching keyed by the upload's SHA-1.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(uc *PredictionUseCase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

// WithRepository enables the prediction history.
func WithRepository(repo PredictionRepository) Option {
	return func(uc *PredictionUseCase) {
		uc.repo = repo
	}
}

// WithRecorder reports every prediction outcome to recorder.
func WithRecorder(recorder PredictionRecorder) Option {
	return func(uc *PredictionUseCase) {
		uc.recorder = recorder
	}
}

// NewPredictionUseCase constructs a new use case instance around a loaded model.
func NewPredictionUseCase(model inference.Model, logger *zap.Logger, opts ...Option) *PredictionUseCase {
	uc := &PredictionUseCase{
		model:  model,
		logger: logger.Named("prediction_usecase"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HistoryEnabled reports whether predictions are persisted.
func (uc *PredictionUseCase) HistoryEnabled() bool {
	return uc.repo != nil
}

// Predict classifies imageBytes. Every failure is returned as a *ServerError.
func (uc *PredictionUseCase) Predict(ctx context.Context, requestID string, imageBytes []byte) (*Prediction, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := uc.now()
	opLogger := logging.WithOperation(uc.logger, "usecase.predict", requestID)

	hash := hashOf(imageBytes)

	prediction, err := uc.fromCache(ctx, requestID, hash)
	if err != nil {
		opLogger.Warn("cache lookup failed", zap.Error(err))
	}
	if prediction == nil {
		prediction, err = uc.classify(ctx, requestID, imageBytes)
		if err != nil {
			uc.observe(OutcomeError)
			opLogger.Error("prediction failed", zap.Error(err))
			return nil, err
		}
		uc.storeInCache(ctx, opLogger, hash, prediction)
		uc.observe(OutcomeSuccess)
	} else {
		uc.observe(OutcomeCached)
	}

	latency := uc.now().Sub(start)
	opLogger.Info("prediction",
		zap.String("predicted_letter", prediction.Label),
		zap.Int("index", prediction.Index),
		zap.Float32("score", prediction.Score),
		zap.Bool("cached", prediction.Cached),
		zap.Duration("latency", latency),
	)

	uc.saveHistory(ctx, prediction, hash, latency)
	return prediction, nil
}

func (uc *PredictionUseCase) classify(ctx context.Context, requestID string, imageBytes []byte) (*Prediction, error) {
	tensor, err := normalizer.Normalize(imageBytes)
	if err != nil {
		return nil, serverError("usecase.normalize", requestID, err)
	}

	scores, err := uc.model.Score(ctx, tensor)
	if err != nil {
		return nil, serverError("usecase.score", requestID, err)
	}

	index, err := labels.ArgMax(scores)
	if err != nil {
		return nil, serverError("usecase.argmax", requestID, err)
	}
	label, err := labels.Lookup(index)
	if err != nil {
		return nil, serverError("usecase.lookup_label", requestID, err)
	}

	return &Prediction{
		RequestID: requestID,
		Label:     label,
		Index:     index,
		Score:     scores[index],
		CreatedAt: uc.now().UTC(),
	}, nil
}

func hashOf(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func serverError(operation, requestID string, err error) *ServerError {
	return &ServerError{Message: err.Error(), Err: logging.NewOperationError(operation, requestID, err)}
}

func (uc *PredictionUseCase) fromCache(ctx context.Context, requestID, hash string) (*Prediction, error) {
	if uc.cache == nil {
		return nil, nil
	}
	raw, err := uc.cache.Get(ctx, cacheKey(hash))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, logging.NewOperationError("cache.get", requestID, err)
	}
	cached, err := decodeCached(raw)
	if err != nil {
		return nil, logging.NewOperationError("cache.decode", requestID, err)
	}
	if label, err := labels.Lookup(cached.Index); err != nil || label != cached.Label {
		return nil, logging.NewOperationError("cache.decode", requestID, errors.New("stale cache entry"))
	}
	return &Prediction{
		RequestID: requestID,
		Label:     cached.Label,
		Index:     cached.Index,
		Score:     cached.Score,
		Cached:    true,
		CreatedAt: uc.now().UTC(),
	}, nil
}

func (uc *PredictionUseCase) storeInCache(ctx context.Context, opLogger *zap.Logger, hash string, p *Prediction) {
	if uc.cache == nil {
		return
	}
	payload, err := encodeCached(cachedPrediction{Label: p.Label, Index: p.Index, Score: p.Score})
	if err != nil {
		opLogger.Warn("failed to encode cached prediction", zap.Error(err))
		return
	}
	if err := uc.cache.Set(ctx, cacheKey(hash), payload, uc.cacheTTL); err != nil {
		opLogger.Warn("failed to cache prediction", zap.Error(logging.NewOperationError("cache.set", p.RequestID, err)))
	}
}

func (uc *PredictionUseCase) saveHistory(ctx context.Context, p *Prediction, hash string, latency time.Duration) {
	if uc.repo == nil {
		return
	}
	log := &repository.PredictionLog{
		RequestID:  p.RequestID,
		Label:      p.Label,
		LabelIndex: p.Index,
		Score:      p.Score,
		SHA1Hash:   hash,
		LatencyMs:  float64(latency) / float64(time.Millisecond),
		CreatedAt:  p.CreatedAt,
	}
	// The repository logs its own failures; history never fails a prediction.
	_ = uc.repo.SaveLog(ctx, log)
}

func (uc *PredictionUseCase) observe(outcome string) {
	if uc.recorder != nil {
		uc.recorder.ObservePrediction(outcome)
	}
}

// GetResult returns the stored prediction for requestID.
func (uc *PredictionUseCase) GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return uc.repo.FindByRequestID(ctx, requestID)
}
