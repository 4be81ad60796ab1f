package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	_ "github.com/jackc/pgx/v5/stdlib"

	"newsgraph/internal/analysisstore"
	"newsgraph/internal/domain/entity"
	"newsgraph/internal/filter"
	pgRepo "newsgraph/internal/infra/adapter/persistence/postgres"
	"newsgraph/internal/infra/db"
	workerPkg "newsgraph/internal/infra/worker"
	"newsgraph/internal/llm"
	"newsgraph/internal/observability/logging"
	"newsgraph/internal/pipeline"
	"newsgraph/internal/repository"
	"newsgraph/internal/resilience/circuitbreaker"
)

// cmd/pipeline is the one-shot CLI that creates, resumes, or resets a named
// C8 pipeline run against FETCH -> RULE_FILTER -> LLM_ANALYSIS -> STORE.
func main() {
	name := flag.String("name", "", "pipeline run name; creates a new run unless -run-id is given")
	runID := flag.Int64("run-id", 0, "resume an existing run by id instead of creating one")
	from := flag.String("from", "", "DateFrom filter for a new run, RFC3339")
	to := flag.String("to", "", "DateTo filter for a new run, RFC3339")
	untilStage := flag.String("until-stage", "", "stop after this stage (FETCH, RULE_FILTER, LLM_ANALYSIS, STORE); empty runs to completion")
	limit := flag.Int("limit", 0, "cap the number of candidate articles FETCH selects; 0 is unbounded")
	resetFromStage := flag.String("reset-from-stage", "", "rewind -run-id to this stage and exit, discarding any FilterResults at or after it")
	flag.Parse()

	logger := logging.NewLogger()

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	orchestrator, runsRepo := buildOrchestrator(logger, database)

	ctx := context.Background()

	if *resetFromStage != "" {
		if *runID == 0 {
			logger.Error("-reset-from-stage requires -run-id")
			os.Exit(1)
		}
		stage, err := parseStage(*resetFromStage)
		if err != nil {
			logger.Error("invalid -reset-from-stage", slog.Any("error", err))
			os.Exit(1)
		}
		if err := orchestrator.ResetPipelineRun(ctx, *runID, stage); err != nil {
			logger.Error("reset failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("run reset", slog.Int64("run_id", *runID), slog.String("stage", string(stage)))
		return
	}

	id := *runID
	if id == 0 {
		if *name == "" {
			logger.Error("-name is required to create a new run")
			os.Exit(1)
		}
		run := &entity.PipelineRun{Name: *name}
		if *from != "" {
			t, err := time.Parse(time.RFC3339, *from)
			if err != nil {
				logger.Error("invalid -from", slog.Any("error", err))
				os.Exit(1)
			}
			run.DateFrom = &t
		}
		if *to != "" {
			t, err := time.Parse(time.RFC3339, *to)
			if err != nil {
				logger.Error("invalid -to", slog.Any("error", err))
				os.Exit(1)
			}
			run.DateTo = &t
		}
		newID, err := runsRepo.CreateRun(ctx, run)
		if err != nil {
			logger.Error("failed to create run", slog.Any("error", err))
			os.Exit(1)
		}
		id = newID
		logger.Info("created pipeline run", slog.Int64("run_id", id), slog.String("name", *name))
	}

	stage := entity.StageNone
	if *untilStage != "" {
		parsed, err := parseStage(*untilStage)
		if err != nil {
			logger.Error("invalid -until-stage", slog.Any("error", err))
			os.Exit(1)
		}
		stage = parsed
	}

	progress := func(s entity.PipelineStage, processed, total int) {
		logger.Info("progress", slog.String("stage", string(s)), slog.Int("processed", processed), slog.Int("total", total))
	}

	if err := orchestrator.RunPipeline(ctx, id, stage, *limit, progress); err != nil {
		logger.Error("pipeline run failed", slog.Int64("run_id", id), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("pipeline run finished", slog.Int64("run_id", id))
}

func parseStage(s string) (entity.PipelineStage, error) {
	switch entity.PipelineStage(s) {
	case entity.StageFetch, entity.StageRuleFilter, entity.StageLLMAnalysis, entity.StageStore:
		return entity.PipelineStage(s), nil
	default:
		return entity.StageNone, fmt.Errorf("unknown stage %q", s)
	}
}

func buildOrchestrator(logger *slog.Logger, database *sql.DB) (*pipeline.Orchestrator, repository.PipelineRepository) {
	articles := pgRepo.NewArticleRepo(database)
	filtersRepo := pgRepo.NewFilterRepo(database)
	analysisRepo := pgRepo.NewAnalysisRepo(database)
	analyticalRepo := pgRepo.NewAnalyticalStoreRepo(database)
	runsRepo := pgRepo.NewPipelineRepo(database)

	evaluator := filter.NewEvaluator(filtersRepo)

	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	provider, cbConfig := createLLMProvider(logger)
	coordinator := llm.NewCoordinator(provider, analysisRepo, llm.Config{
		PollInterval: cfg.PipelinePollInterval,
		MaxWait:      cfg.PipelineMaxWait,
	}, cbConfig, logger)

	analysisStore := analysisstore.NewStore(analyticalRepo, logger)

	orchestrator := pipeline.NewOrchestrator(runsRepo, articles, filtersRepo, analysisRepo, evaluator, coordinator, analysisStore, logger)
	return orchestrator, runsRepo
}

// createLLMProvider picks C9's batch analysis provider from LLM_PROVIDER.
// Defaults to OpenAI: the original implementation's LLMAnalysisService
// always constructs an OpenAIBatchProvider with no provider switch, so
// OpenAI is the canonical batch-analysis provider this mirrors. Claude is
// supported as an explicit opt-in (LLM_PROVIDER=claude) backed by
// internal/llm's ClaudeProvider.
func createLLMProvider(logger *slog.Logger) (llm.Provider, circuitbreaker.Config) {
	providerType := os.Getenv("LLM_PROVIDER")
	if providerType == "" {
		providerType = "openai"
	}

	switch providerType {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
			os.Exit(1)
		}
		return llm.NewClaudeProvider(apiKey, anthropic.ModelClaudeSonnet4_5_20250929), circuitbreaker.ClaudeAPIConfig()
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
			os.Exit(1)
		}
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o"
		}
		return llm.NewOpenAIProvider(apiKey, model), circuitbreaker.OpenAIAPIConfig()
	default:
		logger.Error("invalid LLM_PROVIDER", slog.String("provider", providerType), slog.String("expected", "claude or openai"))
		os.Exit(1)
		return nil, circuitbreaker.Config{}
	}
}
