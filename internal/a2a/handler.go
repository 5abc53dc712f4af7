package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
	"github.com/lexmachina/lexmachina-agent/internal/metrics"
	"github.com/lexmachina/lexmachina-agent/internal/repository"
)

// Handler implements the A2A request methods on top of an executor and a
// task store.
type Handler struct {
	executor AgentExecutor
	store    repository.TaskRepository
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewHandler(executor AgentExecutor, store repository.TaskRepository, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		executor: executor,
		store:    store,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (h *Handler) SendMessage(ctx context.Context, params *MessageSendParams) (*Task, error) {
	msg := params.Message

	task, existing, err := h.taskFor(ctx, msg)
	if err != nil {
		return nil, err
	}

	reqCtx := &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Message:   msg,
	}
	if existing {
		prev := *task
		reqCtx.Task = &prev
	}

	if msg != nil {
		msg.TaskID = task.ID
		msg.ContextID = task.ContextID
		task.History = append(task.History, *msg)
	}

	// stored before the turn runs so tasks/get sees it while it is working
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	queue := &taskQueue{task: task, now: h.now, persist: h.save}
	if err := h.executor.Execute(ctx, reqCtx, queue); err != nil {
		if !task.Status.State.Terminal() {
			queue.setStatus(TaskStateFailed, nil)
			if saveErr := h.save(context.WithoutCancel(ctx), task); saveErr != nil {
				h.logger.Warn("could not mark task failed", zap.String("task_id", task.ID))
			}
		}

		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		h.logger.Error("agent execution failed",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
		return nil, newInternalError()
	}

	if err := h.save(ctx, task); err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.RecordTask(string(task.Status.State))
	}

	return task, nil
}

func (h *Handler) GetTask(ctx context.Context, params *TaskQueryParams) (*Task, error) {
	task, err := h.load(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.HistoryLength != nil && *params.HistoryLength >= 0 && len(task.History) > *params.HistoryLength {
		task.History = task.History[len(task.History)-*params.HistoryLength:]
	}
	return task, nil
}

func (h *Handler) CancelTask(ctx context.Context, params *TaskIDParams) (*Task, error) {
	task, err := h.load(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	reqCtx := &RequestContext{TaskID: task.ID, ContextID: task.ContextID, Task: task}
	queue := &taskQueue{task: task, now: h.now}
	if err := h.executor.Cancel(ctx, reqCtx, queue); err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		return nil, newInternalError()
	}

	if task.Status.State != TaskStateCanceled {
		queue.setStatus(TaskStateCanceled, nil)
	}
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// taskFor returns the task the message belongs to, creating a new one
// unless the message references an existing task id.
func (h *Handler) taskFor(ctx context.Context, msg *Message) (*Task, bool, error) {
	if msg != nil && msg.TaskID != "" {
		task, err := h.load(ctx, msg.TaskID)
		if err != nil {
			return nil, false, err
		}
		if task.Status.State.Terminal() {
			return nil, false, NewUnsupportedOperationError(
				fmt.Sprintf("Task %s is in terminal state: %s", task.ID, task.Status.State))
		}
		return task, true, nil
	}

	contextID := ""
	if msg != nil {
		contextID = msg.ContextID
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}

	return &Task{
		Kind:      "task",
		ID:        uuid.NewString(),
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		},
	}, false, nil
}

func (h *Handler) load(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		return nil, NewInvalidParamsError("task id is required")
	}

	rec, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, NewTaskNotFoundError(id)
		}
		h.logger.Error("task store get failed", zap.String("task_id", id), zap.Error(err))
		return nil, newInternalError()
	}

	var task Task
	if err := json.Unmarshal(rec.Payload, &task); err != nil {
		h.logger.Error("stored task is corrupt", zap.String("task_id", id), zap.Error(err))
		return nil, newInternalError()
	}
	return &task, nil
}

func (h *Handler) save(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	now := h.now()
	rec := &domain.TaskRecord{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Save(ctx, rec); err != nil {
		h.logger.Error("task store save failed", zap.String("task_id", task.ID), zap.Error(err))
		return newInternalError()
	}
	return nil
}

func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// taskQueue applies executor events directly to the task being built.
// Non-terminal status changes are persisted as they happen; the final state
// is saved by the caller.
type taskQueue struct {
	task    *Task
	now     func() time.Time
	persist func(ctx context.Context, task *Task) error
}

func (q *taskQueue) Enqueue(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch e := ev.(type) {
	case ArtifactEvent:
		q.task.Artifacts = append(q.task.Artifacts, e.Artifact)
	case StatusEvent:
		if q.task.Status.State.Terminal() {
			return fmt.Errorf("task %s already %s", q.task.ID, q.task.Status.State)
		}
		q.setStatus(e.State, e.Message)
		if q.persist != nil && !e.State.Terminal() {
			return q.persist(ctx, q.task)
		}
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
	return nil
}

func (q *taskQueue) setStatus(state TaskState, msg *Message) {
	q.task.Status = TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: q.now().UTC().Format(time.RFC3339Nano),
	}
	if msg != nil {
		q.task.History = append(q.task.History, *msg)
	}
}
