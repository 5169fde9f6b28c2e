// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finsight/internal/analytics"
	"finsight/internal/common/config"
	"finsight/internal/common/database"
	"finsight/internal/common/logger"
	"finsight/internal/common/observability"
	"finsight/internal/directory"
	"finsight/internal/history"
	"finsight/internal/pipeline"
	"finsight/internal/pipeline/insight"
	"finsight/internal/pipeline/intent"
	pipelinemetrics "finsight/internal/pipeline/metrics"
	"finsight/internal/pipeline/report"
	"finsight/internal/pipeline/resolver"
	"finsight/internal/session"

	aq "finsight/internal/workers/advisor/analyze-query"
	rd "finsight/internal/workers/advisor/refresh-directory"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Analytics provider + symbol directory ---
	provider := analytics.NewClient(cfg.Analytics, log)

	dir := directory.NewService(provider, redis, cfg.Directory, log)
	if _, err := dir.Load(ctx); err != nil {
		// The first analyze-query job retries the load; startup itself
		// does not depend on the provider being up.
		zapLog.Warn("symbol directory warmup failed", zap.Error(err))
	} else {
		zapLog.Info("symbol directory loaded", zap.Int("symbols", dir.Current().Size()))
	}

	// --- Assemble the query pipeline ---
	sessions := session.NewStore(redis, time.Duration(cfg.Pipeline.SessionTTL)*time.Second, log)
	hist := history.NewStore(pg.DB, log)
	augmenter := insight.NewAugmenter(cfg.APIs, log)

	pipelineOpts := []pipeline.Option{
		pipeline.WithSessionStore(sessions),
		pipeline.WithHistoryStore(hist),
	}
	if augmenter.Enabled() {
		pipelineOpts = append(pipelineOpts, pipeline.WithAugmenter(augmenter))
	} else {
		zapLog.Info("insight augmenter disabled, no OpenAI API key configured")
	}

	queryPipeline := pipeline.New(
		resolver.New(dir, cfg.Pipeline, log),
		intent.NewClassifier(cfg.Pipeline, log),
		pipelinemetrics.NewOrchestrator(provider, cfg.Pipeline, log),
		report.NewAssembler(log),
		log,
		pipelineOpts...,
	)

	// --- Register Workers ---
	if config.IsWorkerEnabled(cfg, aq.TaskType) {
		handler := aq.NewHandler(
			&aq.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, aq.TaskType).Timeout),
			},
			queryPipeline, log,
		)
		startWorker(zeebeClient, aq.TaskType, config.GetWorkerConfig(cfg, aq.TaskType), handler.Handle, zapLog)
	}

	if config.IsWorkerEnabled(cfg, rd.TaskType) {
		handler := rd.NewHandler(
			&rd.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, rd.TaskType).Timeout),
			},
			dir, log,
		)
		startWorker(zeebeClient, rd.TaskType, config.GetWorkerConfig(cfg, rd.TaskType), handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
