package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/db"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/graph"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/jobs/docpipeline"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/batch"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/chunking"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/classify"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/entities"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/validation"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/envutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/gcp"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/neo4jdb"
	"github.com/Shreekar11/insura-ai-sub003/internal/progress"
	"github.com/Shreekar11/insura-ai-sub003/internal/temporalx"
)

func main() {
	var pagesPath string
	var filePath string
	var textPath string
	var mimeType string
	var inline bool
	flag.StringVar(&pagesPath, "pages", "", "path to a JSON array of OCR'd pages")
	flag.StringVar(&filePath, "file", "", "path to a raw document to OCR via Document AI")
	flag.StringVar(&textPath, "text", "", "path to a raw OCR text dump, split into pages on form feeds or Page N markers")
	flag.StringVar(&mimeType, "mime", "application/pdf", "mime type of -file")
	flag.BoolVar(&inline, "inline", false, "run the pipeline in-process instead of via Temporal")
	flag.Parse()

	inputs := 0
	for _, p := range []string{pagesPath, filePath, textPath} {
		if p != "" {
			inputs++
		}
	}
	if inputs != 1 {
		fmt.Println("exactly one of -pages, -file or -text is required")
		os.Exit(1)
	}

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

	ctx := context.Background()

	// Pages: pre-OCR'd JSON, a raw text dump split on page markers, or a raw
	// document through Document AI.
	var pages []domain.PageData
	fileName := filepath.Base(pagesPath)
	switch {
	case pagesPath != "":
		raw, err := os.ReadFile(pagesPath)
		if err != nil {
			log.Error("Could not read pages file", "error", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(raw, &pages); err != nil {
			log.Error("Could not parse pages file", "error", err)
			os.Exit(1)
		}
	case textPath != "":
		fileName = filepath.Base(textPath)
		raw, err := os.ReadFile(textPath)
		if err != nil {
			log.Error("Could not read text file", "error", err)
			os.Exit(1)
		}
		pages = chunking.SplitPages(string(raw))
	default:
		fileName = filepath.Base(filePath)
		ocr, err := gcp.NewOCR(log)
		if err != nil {
			log.Error("Could not init Document AI OCR", "error", err)
			os.Exit(1)
		}
		defer ocr.Close()
		raw, err := os.ReadFile(filePath)
		if err != nil {
			log.Error("Could not read input file", "error", err)
			os.Exit(1)
		}
		pages, err = ocr.ProcessBytes(ctx, raw, mimeType)
		if err != nil {
			log.Error("OCR failed", "error", err)
			os.Exit(1)
		}
	}
	if len(pages) == 0 {
		log.Error("No pages to process")
		os.Exit(1)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	documentRepo := docs.NewDocumentRepo(thePG, log)

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		log.Error("Could not marshal pages", "error", err)
		os.Exit(1)
	}
	doc := &domain.Document{
		ID:        uuid.New(),
		FileName:  fileName,
		Status:    "pending",
		PageCount: len(pages),
		PagesJSON: datatypes.JSON(pagesJSON),
	}
	if len(pages) > 0 {
		if provider, ok := pages[0].Metadata["provider"].(string); ok {
			doc.OCRProvider = provider
		}
	}
	if _, err := documentRepo.Create(ctx, nil, doc); err != nil {
		log.Error("Could not create document row", "error", err)
		os.Exit(1)
	}
	log.Info("Document created", "document_id", doc.ID, "pages", len(pages))

	req := docpipeline.ExtractionRequest{DocumentID: doc.ID, Pages: pages}

	if !inline && strings.TrimSpace(os.Getenv("TEMPORAL_ADDRESS")) != "" {
		if err := runViaTemporal(ctx, log, req); err != nil {
			log.Error("Workflow failed", "error", err)
			os.Exit(1)
		}
	} else {
		if err := runInline(ctx, log, thePG, documentRepo, req); err != nil {
			log.Error("Pipeline failed", "error", err)
			os.Exit(1)
		}
	}

	final, err := documentRepo.GetByID(ctx, nil, doc.ID)
	if err != nil {
		log.Error("Could not reload document", "error", err)
		os.Exit(1)
	}
	fmt.Printf("document_id: %s\nstatus: %s\n", final.ID, final.Status)
	if len(final.ReportJSON) > 0 {
		fmt.Println(string(final.ReportJSON))
	}
}

func runViaTemporal(ctx context.Context, log *logger.Logger, req docpipeline.ExtractionRequest) error {
	tc, err := temporalx.NewClient(log)
	if err != nil {
		return err
	}
	if tc == nil {
		return fmt.Errorf("temporal client not configured")
	}
	defer tc.Close()

	cfg := temporalx.LoadConfig()
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       "document-extraction-" + req.DocumentID.String(),
		TaskQueue:                cfg.TaskQueue,
		WorkflowExecutionTimeout: 2 * time.Hour,
	}
	run, err := tc.ExecuteWorkflow(ctx, opts, docpipeline.WorkflowName, req)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	log.Info("Workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var result docpipeline.WorkflowResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	log.Info("Workflow completed",
		"chunks", result.Processed.ChunkCount,
		"document_type", result.Classify.DocumentType,
		"sections", result.Extract.Sections,
		"canonical_entities", result.Resolve.CanonicalEntities,
		"is_valid", result.Validate.Result.IsValid)
	return nil
}

// runInline drives the activity methods directly, in workflow order, for
// local runs without a Temporal cluster.
func runInline(ctx context.Context, log *logger.Logger, thePG *gorm.DB, documentRepo docs.DocumentRepo, req docpipeline.ExtractionRequest) error {
	cfg, err := config.Load(envutil.Str("PIPELINE_CONFIG", ""))
	if err != nil {
		return err
	}
	prompts.RegisterAll()

	chunkRepo := docs.NewChunkRepo(thePG, log)
	normalizedRepo := docs.NewNormalizedChunkRepo(thePG, log)
	signalRepo := docs.NewSignalRepo(thePG, log)
	classificationRepo := docs.NewClassificationRepo(thePG, log)
	entityRepo := docs.NewEntityRepo(thePG, log)
	canonicalRepo := docs.NewCanonicalEntityRepo(thePG, log)
	relationshipRepo := docs.NewRelationshipRepo(thePG, log)
	resultRepo := docs.NewSectionResultRepo(thePG, log)

	llmClient, err := llm.NewClient(log)
	if err != nil {
		return err
	}

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
		return err
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
		return err
	}
	classifier, err := classify.NewService(classify.ServiceDeps{
		Log:            log,
		Signals:        signalRepo,
		Chunks:         chunkRepo,
		Classification: classificationRepo,
		LLM:            llmClient,
	}, cfg.Classification)
	if err != nil {
		return err
	}
	tier1, err := classify.NewTier1Service(log, llmClient, cfg.Classification)
	if err != nil {
		return err
	}
	extractor, err := extraction.NewOrchestrator(extraction.Deps{
		Log:     log,
		LLM:     llmClient,
		Results: resultRepo,
	}, cfg.Extraction)
	if err != nil {
		return err
	}
	validator, err := validation.NewValidator(log, llmClient, cfg.Validation)
	if err != nil {
		return err
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
		Progress:       progress.NopBus{},
	}

	if _, err := acts.ProcessPages(ctx, req); err != nil {
		return fmt.Errorf("process pages: %w", err)
	}
	if _, err := acts.ClassifyAggregate(ctx, req.DocumentID); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if _, err := acts.ClassifyTier1(ctx, req); err != nil {
		log.Warn("Tier 1 classification failed (continuing)", "error", err)
	}
	if _, err := acts.ExtractSections(ctx, req.DocumentID); err != nil {
		return fmt.Errorf("extract sections: %w", err)
	}
	if _, err := acts.ResolveEntities(ctx, req.DocumentID); err != nil {
		return fmt.Errorf("resolve entities: %w", err)
	}
	if _, err := acts.ValidateDocument(ctx, req.DocumentID); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
