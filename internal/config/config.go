package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Shreekar11/insura-ai-sub003/internal/platform/envutil"
)

type ChunkingConfig struct {
	MaxTokensPerChunk int `yaml:"max_tokens_per_chunk"`
	OverlapTokens     int `yaml:"overlap_tokens"`
}

type BatchConfig struct {
	BatchSize     int    `yaml:"batch_size"`
	ModelVersion  string `yaml:"model_version"`
	PromptVersion int    `yaml:"prompt_version"`
}

type ClassificationConfig struct {
	MinConfidence   float64 `yaml:"min_confidence"`
	ReviewThreshold float64 `yaml:"review_threshold"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
	MaxPages        int     `yaml:"max_pages"`
	MaxPageChars    int     `yaml:"max_page_chars"`
}

type ExtractionConfig struct {
	// Concurrency > 1 enables bounded-parallel section extraction; the
	// default stays sequential to keep per-document LLM usage predictable.
	Concurrency int `yaml:"concurrency"`
}

type ValidationConfig struct {
	UseLLMForConflicts bool    `yaml:"use_llm_for_conflicts"`
	PremiumTolerance   float64 `yaml:"premium_tolerance"`
}

type Config struct {
	Chunking       ChunkingConfig       `yaml:"chunking"`
	Batch          BatchConfig          `yaml:"batch"`
	Classification ClassificationConfig `yaml:"classification"`
	Extraction     ExtractionConfig     `yaml:"extraction"`
	Validation     ValidationConfig     `yaml:"validation"`
}

func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			MaxTokensPerChunk: 2000,
			OverlapTokens:     100,
		},
		Batch: BatchConfig{
			BatchSize:     3,
			ModelVersion:  "default",
			PromptVersion: 1,
		},
		Classification: ClassificationConfig{
			MinConfidence:   0.1,
			ReviewThreshold: 0.50,
			AcceptThreshold: 0.75,
			MaxPages:        10,
			MaxPageChars:    5000,
		},
		Extraction: ExtractionConfig{
			Concurrency: 1,
		},
		Validation: ValidationConfig{
			UseLLMForConflicts: false,
			PremiumTolerance:   0.05,
		},
	}
}

// Load reads the YAML config at path (when set), then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Chunking.MaxTokensPerChunk = envutil.Int("PIPELINE_MAX_TOKENS_PER_CHUNK", cfg.Chunking.MaxTokensPerChunk)
	cfg.Chunking.OverlapTokens = envutil.Int("PIPELINE_OVERLAP_TOKENS", cfg.Chunking.OverlapTokens)
	cfg.Batch.BatchSize = envutil.Int("PIPELINE_BATCH_SIZE", cfg.Batch.BatchSize)
	cfg.Classification.ReviewThreshold = envutil.Float("PIPELINE_REVIEW_THRESHOLD", cfg.Classification.ReviewThreshold)
	cfg.Classification.AcceptThreshold = envutil.Float("PIPELINE_ACCEPT_THRESHOLD", cfg.Classification.AcceptThreshold)
	cfg.Extraction.Concurrency = envutil.Int("PIPELINE_EXTRACTION_CONCURRENCY", cfg.Extraction.Concurrency)
	cfg.Validation.UseLLMForConflicts = envutil.Bool("PIPELINE_LLM_CONFLICTS", cfg.Validation.UseLLMForConflicts)

	if cfg.Batch.BatchSize <= 0 {
		cfg.Batch.BatchSize = 3
	}
	if cfg.Chunking.MaxTokensPerChunk <= 0 {
		cfg.Chunking.MaxTokensPerChunk = 2000
	}
	if cfg.Extraction.Concurrency <= 0 {
		cfg.Extraction.Concurrency = 1
	}
	return cfg, nil
}
