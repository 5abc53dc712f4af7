package memory

import (
	"context"
	"sync"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

// TaskRepo keeps tasks in process memory. Tasks are lost on restart.
type TaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]domain.TaskRecord
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[string]domain.TaskRecord)}
}

func (r *TaskRepo) Save(ctx context.Context, task *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := *task
	rec.Payload = append([]byte(nil), task.Payload...)
	if prev, ok := r.tasks[task.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	r.tasks[task.ID] = rec
	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*domain.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return &rec, nil
}

func (r *TaskRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
