package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shreekar11/insura-ai-sub003/internal/data/db"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/graph"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/jobs/docpipeline"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/batch"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/classify"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/entities"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/validation"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/envutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/neo4jdb"
	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/progress"
	"github.com/Shreekar11/insura-ai-sub003/internal/temporalx"
	"github.com/Shreekar11/insura-ai-sub003/internal/temporalx/temporalworker"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(envutil.Str("PIPELINE_CONFIG", ""))
	if err != nil {
		log.Error("Could not load pipeline config", "error", err)
		os.Exit(1)
	}

	prompts.RegisterAll()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	documentRepo := docs.NewDocumentRepo(thePG, log)
	chunkRepo := docs.NewChunkRepo(thePG, log)
	normalizedRepo := docs.NewNormalizedChunkRepo(thePG, log)
	signalRepo := docs.NewSignalRepo(thePG, log)
	classificationRepo := docs.NewClassificationRepo(thePG, log)
	entityRepo := docs.NewEntityRepo(thePG, log)
	canonicalRepo := docs.NewCanonicalEntityRepo(thePG, log)
	relationshipRepo := docs.NewRelationshipRepo(thePG, log)
	resultRepo := docs.NewSectionResultRepo(thePG, log)

	// LLM
	llmClient, err := llm.NewClient(log)
	if err != nil {
		log.Error("Could not init LLM client", "error", err)
		os.Exit(1)
	}

	// Neo4j (optional)
	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed (continuing without graph sync)", "error", err)
		neoClient = nil
	}
	var graphSync entities.GraphSync
	if neoClient != nil {
		graphSync = graph.NewStore(neoClient, log)
		defer neoClient.Close(context.Background())
	}

	// Progress bus (optional)
	var bus progress.Bus = progress.NopBus{}
	if os.Getenv("REDIS_ADDR") != "" {
		redisBus, err := progress.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis progress bus init failed (continuing without progress)", "error", err)
		} else {
			bus = redisBus
			defer bus.Close()
		}
	}

	// Pipeline services
	log.Info("Setting up pipeline services from main...")
	resolver, err := entities.NewResolver(entities.Deps{
		Log:           log,
		LLM:           llmClient,
		Entities:      entityRepo,
		Canonical:     canonicalRepo,
		Relationships: relationshipRepo,
		Chunks:        chunkRepo,
		Graph:         graphSync,
	})
	if err != nil {
		log.Error("Could not init entity resolver", "error", err)
		os.Exit(1)
	}
	processor, err := batch.NewProcessor(batch.Deps{
		Log:        log,
		LLM:        llmClient,
		ChunkRepo:  chunkRepo,
		Normalized: normalizedRepo,
		Signals:    signalRepo,
		Entities:   entityRepo,
		Resolver:   resolver,
	}, cfg)
	if err != nil {
		log.Error("Could not init batch processor", "error", err)
		os.Exit(1)
	}
	classifier, err := classify.NewService(classify.ServiceDeps{
		Log:            log,
		Signals:        signalRepo,
		Chunks:         chunkRepo,
		Classification: classificationRepo,
		LLM:            llmClient,
	}, cfg.Classification)
	if err != nil {
		log.Error("Could not init classifier", "error", err)
		os.Exit(1)
	}
	tier1, err := classify.NewTier1Service(log, llmClient, cfg.Classification)
	if err != nil {
		log.Error("Could not init tier 1 classifier", "error", err)
		os.Exit(1)
	}
	extractor, err := extraction.NewOrchestrator(extraction.Deps{
		Log:     log,
		LLM:     llmClient,
		Results: resultRepo,
	}, cfg.Extraction)
	if err != nil {
		log.Error("Could not init section extractor", "error", err)
		os.Exit(1)
	}
	validator, err := validation.NewValidator(log, llmClient, cfg.Validation)
	if err != nil {
		log.Error("Could not init validator", "error", err)
		os.Exit(1)
	}

	acts := &docpipeline.Activities{
		Log:            log,
		Documents:      documentRepo,
		Chunks:         chunkRepo,
		Results:        resultRepo,
		Classification: classificationRepo,
		Processor:      processor,
		Tier1:          tier1,
		Classifier:     classifier,
		Extractor:      extractor,
		Resolver:       resolver,
		Validator:      validator,
		Progress:       bus,
	}

	// Temporal
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc == nil {
		log.Error("TEMPORAL_ADDRESS is not set; the worker has nothing to poll")
		os.Exit(1)
	}
	defer tc.Close()

	runner, err := temporalworker.NewRunner(log, tc, acts)
	if err != nil {
		log.Error("Could not init Temporal worker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		log.Error("Temporal worker failed", "error", err)
		os.Exit(1)
	}

	log.Info("Worker running; waiting for shutdown signal")
	<-ctx.Done()
	log.Info("Shutting down worker")
}
