// Package agent adapts the suggestion query service to the A2A executor
// contract.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/a2a"
	"github.com/lexmachina/lexmachina-agent/internal/domain"
	"github.com/lexmachina/lexmachina-agent/internal/service"
)

const artifactPrefix = "suggestion_"

type Executor struct {
	queries service.QueryService
	logger  *zap.Logger
}

func NewExecutor(queries service.QueryService, logger *zap.Logger) *Executor {
	return &Executor{queries: queries, logger: logger}
}

// Execute runs one turn and emits a single JSON artifact. The task ends
// completed, or failed when the turn produced a turn-level error; the
// artifact carries the error object either way.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2a.RequestContext, queue a2a.EventQueue) error {
	if reqCtx.TaskID == "" || reqCtx.ContextID == "" || reqCtx.Message == nil {
		return a2a.NewInvalidParamsError("Missing task_id or context_id or message")
	}

	if err := queue.Enqueue(ctx, a2a.StatusEvent{State: a2a.TaskStateWorking}); err != nil {
		return fmt.Errorf("enqueue working status: %w", err)
	}

	result := e.queries.Process(ctx, &domain.QueryRequest{
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Text:      reqCtx.UserInput("\n"),
	})

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	artifact := a2a.Artifact{
		ArtifactID: uuid.NewString(),
		Name:       artifactPrefix + reqCtx.TaskID,
		Parts:      []a2a.Part{a2a.TextPart(string(payload))},
	}
	if err := queue.Enqueue(ctx, a2a.ArtifactEvent{Artifact: artifact}); err != nil {
		return fmt.Errorf("enqueue artifact: %w", err)
	}

	state := a2a.TaskStateCompleted
	if result.Failed() {
		state = a2a.TaskStateFailed
		e.logger.Warn("turn failed",
			zap.String("task_id", reqCtx.TaskID),
			zap.String("kind", result.Error.Kind),
		)
	}
	if err := queue.Enqueue(ctx, a2a.StatusEvent{State: state}); err != nil {
		return fmt.Errorf("enqueue final status: %w", err)
	}

	return nil
}

func (e *Executor) Cancel(ctx context.Context, reqCtx *a2a.RequestContext, queue a2a.EventQueue) error {
	return a2a.NewUnsupportedOperationError("")
}
