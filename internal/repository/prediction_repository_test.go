package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/letter-recognizer/internal/logging"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test password=test dbname=test port=5432 sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open dry-run db: %v", err)
	}
	return db
}

func TestSaveLogBuildsInsert(t *testing.T) {
	db := newDryRunDB(t)
	repo := NewPredictionRepository(db, zap.NewNop())

	log := &PredictionLog{RequestID: "req-1", Label: "क", LabelIndex: 13, Score: 0.9, CreatedAt: time.Now().UTC()}
	if err := repo.SaveLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Create(&PredictionLog{RequestID: "req-2", Label: "ख"})
	})
	if !strings.Contains(sql, `INSERT INTO "prediction_logs"`) {
		t.Fatalf("unexpected insert statement: %s", sql)
	}
	if !strings.Contains(sql, `"request_id"`) || !strings.Contains(sql, `"label_index"`) {
		t.Fatalf("expected columns in statement: %s", sql)
	}
}

func TestFindByRequestIDQuery(t *testing.T) {
	db := newDryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var log PredictionLog
		return tx.First(&log, "request_id = ?", "req-1")
	})
	if !strings.Contains(sql, `FROM "prediction_logs"`) || !strings.Contains(sql, "request_id = 'req-1'") {
		t.Fatalf("unexpected select statement: %s", sql)
	}
}

func TestAggregateMetricsWrapsErrors(t *testing.T) {
	repo := NewPredictionRepository(newDryRunDB(t), zap.NewNop())

	// Scanning rows is not possible in dry-run mode, so the query fails.
	_, err := repo.AggregateMetrics(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "repository.aggregate_metrics" {
		t.Fatalf("expected OperationError, got %T: %v", err, err)
	}
}

func TestAutoMigrateWrapsErrors(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=1 user=test dbname=test sslmode=disable connect_timeout=1",
	}), &gorm.Config{DisableAutomaticPing: true, Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	repo := NewPredictionRepository(db, zap.NewNop())

	err = repo.AutoMigrate(context.Background())
	if err == nil {
		t.Fatal("expected error without a reachable database")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "repository.auto_migrate" {
		t.Fatalf("expected OperationError, got %T: %v", err, err)
	}
}
