package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Save(ctx context.Context, task *domain.TaskRecord) error {
	query := `
        INSERT INTO a2a_tasks (id, context_id, state, payload, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            context_id = EXCLUDED.context_id,
            state      = EXCLUDED.state,
            payload    = EXCLUDED.payload,
            updated_at = EXCLUDED.updated_at
        RETURNING created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		task.ID,
		task.ContextID,
		task.State,
		[]byte(task.Payload),
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.CreatedAt)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `
        SELECT id, context_id, state, payload, created_at, updated_at
        FROM a2a_tasks
        WHERE id = $1
    `

	var (
		task    domain.TaskRecord
		payload []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.ContextID,
		&task.State,
		&payload,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	task.Payload = payload
	return &task, nil
}
