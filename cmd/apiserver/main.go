// Command apiserver runs the risk analysis HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finsentry/aml-insight/internal/application/assessment"
	"github.com/finsentry/aml-insight/internal/application/conversation"
	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/application/query"
	"github.com/finsentry/aml-insight/internal/config"
	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/datasource/csvstore"
	"github.com/finsentry/aml-insight/internal/infrastructure/datasource/postgres"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm/llamaserver"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/finsentry/aml-insight/internal/interfaces/http"
	"github.com/finsentry/aml-insight/internal/interfaces/http/handlers"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)

	log.Info("starting apiserver",
		logging.String("addr", cfg.Server.Addr()),
		logging.String("data_driver", cfg.Data.Driver),
		logging.String("llm_base_url", cfg.LLM.BaseURL))

	ctx := context.Background()
	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("data source initialization failed", logging.Err(err))
	}
	defer cleanup()

	var metrics *prometheus.AppMetrics
	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace: cfg.Metrics.Namespace,
		}, log)
		if err != nil {
			log.Fatal("metrics initialization failed", logging.Err(err))
		}
		metrics = prometheus.NewAppMetrics(collector)
	}

	client := llamaserver.NewClient(cfg.LLM, log)

	builder := appprofile.NewBuilder(store, log, metrics)
	resolver := appprofile.NewResolver(store, log)
	basic := assessment.NewAssessor(resolver, client, log, metrics)
	enhanced := assessment.NewExplainableAssessor(builder, client, cfg.LLM.ModelVersion, log, metrics)
	answerer := query.NewAnswerer(builder, client, log, metrics)
	convRouter := conversation.NewRouter(enhanced, answerer, log, metrics)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:     handlers.NewHealthHandler(client, log, metrics),
		AssessmentHandler: handlers.NewAssessmentHandler(basic, enhanced, log),
		ProfileHandler:    handlers.NewProfileHandler(builder, resolver, log),
		QuestionHandler:   handlers.NewQuestionHandler(answerer, log),
		ChatHandler:       handlers.NewChatHandler(convRouter, log),
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		Logger:            log,
		Metrics:           metrics,
		MetricsCollector:  collector,
	})

	srv := httpserver.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	// Log level and other safe settings can change without a restart.
	if *configPath != "" {
		config.Watch(*configPath, func(next *config.Config) {
			log.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("signal received, shutting down", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Fatal("server failed", logging.Err(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", logging.Err(err))
	}
	log.Info("apiserver stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// buildStore constructs the configured data source. The postgres driver runs
// pending migrations before serving.
func buildStore(ctx context.Context, cfg *config.Config, log logging.Logger) (partner.Store, func(), error) {
	switch cfg.Data.Driver {
	case "postgres":
		if err := postgres.RunMigrations(cfg.Data.Postgres.DSN(), cfg.Data.Postgres.MigrationsDir, log); err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(ctx, cfg.Data.Postgres, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := csvstore.NewStore(cfg.Data.CSVDir, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
