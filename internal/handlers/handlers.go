package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/letter-recognizer/internal/labels"
	"github.com/example/letter-recognizer/internal/logging"
	"github.com/example/letter-recognizer/internal/metrics"
	"github.com/example/letter-recognizer/internal/usecase"
)

// DefaultMaxUploadSize bounds the request body of /predict.
const DefaultMaxUploadSize = 10 << 20

// Options configures the router.
type Options struct {
	MaxUploadSize int64
	Metrics       *metrics.Collectors
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

// NewRouter builds a gin engine with middleware and all routes registered.
func NewRouter(uc *usecase.PredictionUseCase, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}

	router := gin.New()
	router.MaxMultipartMemory = opts.MaxUploadSize
	router.Use(Recovery(opts.Logger), RequestID(), CORS(), AccessLog(opts.Logger))
	if opts.Metrics != nil {
		router.Use(Metrics(opts.Metrics))
	}

	RegisterRoutes(router, uc, opts)
	return router
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router gin.IRoutes, uc *usecase.PredictionUseCase, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := opts.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/labels", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"labels": labels.All()})
	})

	router.POST("/predict", func(c *gin.Context) {
		if c.Request.ContentLength > maxUpload {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)

		file, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
				return
			}
			writeError(c, logger, usecase.ErrNoImage)
			return
		}

		src, err := file.Open()
		if err != nil {
			writeError(c, logger, err)
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		prediction, err := uc.Predict(c.Request.Context(), c.GetString(requestIDKey), data)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"predicted_letter": prediction.Label})
	})

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	if !uc.HistoryEnabled() {
		return
	}

	router.GET("/predictions/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		log, err := uc.GetResult(c.Request.Context(), requestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":       log.RequestID,
			"predicted_letter": log.Label,
			"index":            log.LabelIndex,
			"score":            log.Score,
			"latency_ms":       log.LatencyMs,
			"created_at":       log.CreatedAt,
		})
	})

	router.GET("/metrics/summary", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	clientErr, serverErr := usecase.Classify(err)
	if clientErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": clientErr.Reason})
		return
	}
	logger.Error("request failed",
		zap.Error(serverErr.Err),
		zap.String("operation", logging.OperationOf(serverErr)),
		zap.String("request_id", c.GetString(requestIDKey)),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": serverErr.Message})
}
