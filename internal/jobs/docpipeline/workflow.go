package docpipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// WorkflowResult is the workflow's return value: the final validation report
// plus per-stage counts for observability.
type WorkflowResult struct {
	Processed ProcessPagesOutput `json:"processed"`
	Classify  ClassifyOutput     `json:"classify"`
	Tier1     Tier1Output        `json:"tier1"`
	Extract   ExtractOutput      `json:"extract"`
	Resolve   ResolveOutput      `json:"resolve"`
	Validate  ValidateOutput     `json:"validate"`
}

// Workflow drives one document through every pipeline stage in order. Each
// activity persists its own results, so the workflow carries only summaries
// between stages and a retried activity resumes from stored state.
func Workflow(ctx workflow.Context, req ExtractionRequest) (*WorkflowResult, error) {
	if req.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("docpipeline: missing document_id")
	}

	// Inner LLM retries live in the activities; this outer policy covers
	// whole-activity failure like a lost database connection.
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	out := &WorkflowResult{}

	if err := workflow.ExecuteActivity(ctx, ActivityProcessPages, req).Get(ctx, &out.Processed); err != nil {
		return out, fmt.Errorf("process pages: %w", err)
	}
	if err := workflow.ExecuteActivity(ctx, ActivityClassifyAggregate, req.DocumentID).Get(ctx, &out.Classify); err != nil {
		return out, fmt.Errorf("classify: %w", err)
	}

	// Boundary detection refines unknown chunk labels before section
	// extraction; its failure degrades quality but never blocks the run.
	if err := workflow.ExecuteActivity(ctx, ActivityClassifyTier1, req).Get(ctx, &out.Tier1); err != nil {
		workflow.GetLogger(ctx).Warn("tier 1 classification failed; continuing without boundaries", "error", err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivityExtractSections, req.DocumentID).Get(ctx, &out.Extract); err != nil {
		return out, fmt.Errorf("extract sections: %w", err)
	}
	if err := workflow.ExecuteActivity(ctx, ActivityResolveEntities, req.DocumentID).Get(ctx, &out.Resolve); err != nil {
		return out, fmt.Errorf("resolve entities: %w", err)
	}
	if err := workflow.ExecuteActivity(ctx, ActivityValidateDocument, req.DocumentID).Get(ctx, &out.Validate); err != nil {
		return out, fmt.Errorf("validate: %w", err)
	}

	return out, nil
}
