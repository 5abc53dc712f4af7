package repository

import (
	"context"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

// TaskRepository persists A2A tasks. Save upserts by task id; Get returns
// domain.ErrTaskNotFound for unknown ids.
type TaskRepository interface {
	Save(ctx context.Context, task *domain.TaskRecord) error
	Get(ctx context.Context, id string) (*domain.TaskRecord, error)
}
