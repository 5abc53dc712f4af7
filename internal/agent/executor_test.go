package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/a2a"
	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

type mockQueryService struct {
	Result    *domain.Result
	CallCount int
	LastReq   *domain.QueryRequest
}

func (m *mockQueryService) Process(ctx context.Context, req *domain.QueryRequest) *domain.Result {
	m.CallCount++
	m.LastReq = req
	return m.Result
}

type recordingQueue struct {
	events []a2a.Event
	err    error
}

func (q *recordingQueue) Enqueue(ctx context.Context, ev a2a.Event) error {
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, ev)
	return nil
}

func userMessage(texts ...string) *a2a.Message {
	msg := &a2a.Message{Kind: "message", MessageID: "m1", Role: a2a.RoleUser}
	for _, t := range texts {
		msg.Parts = append(msg.Parts, a2a.TextPart(t))
	}
	return msg
}

func TestExecutor_Execute(t *testing.T) {
	desc := "Patent cases in E.D. Tex."
	tests := []struct {
		name      string
		result    *domain.Result
		wantState a2a.TaskState
		wantJSON  string
	}{
		{
			name: "success",
			result: domain.SuccessResult([]domain.Suggestion{
				{SourceURL: "/d/1", Title: "t", Description: &desc},
			}),
			wantState: a2a.TaskStateCompleted,
			wantJSON:  `{"suggestions":[{"description":"Patent cases in E.D. Tex.","description_url":"/d/1","title":"t"}]}`,
		},
		{
			name:      "empty",
			result:    domain.SuccessResult(nil),
			wantState: a2a.TaskStateCompleted,
			wantJSON:  `{"suggestions":[]}`,
		},
		{
			name: "turn error",
			result: domain.ErrorResult(&domain.Error{
				Kind:   domain.ErrUpstreamAuth,
				Reason: domain.ReasonHTTPStatus,
				Status: 401,
			}),
			wantState: a2a.TaskStateFailed,
			wantJSON:  `{"error":{"kind":"upstream_auth_failure","reason":"http_status","status":401,"message":"upstream authentication failed"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockQueryService{Result: tt.result}
			exec := NewExecutor(svc, zap.NewNop())
			queue := &recordingQueue{}

			err := exec.Execute(context.Background(), &a2a.RequestContext{
				TaskID:    "task-1",
				ContextID: "ctx-1",
				Message:   userMessage("trial time", "SDNY"),
			}, queue)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if svc.LastReq.Text != "trial time\nSDNY" {
				t.Errorf("query text = %q", svc.LastReq.Text)
			}
			if svc.LastReq.TaskID != "task-1" || svc.LastReq.ContextID != "ctx-1" {
				t.Errorf("ids not passed through: %+v", svc.LastReq)
			}

			if len(queue.events) != 3 {
				t.Fatalf("events = %d, want 3", len(queue.events))
			}
			if st, ok := queue.events[0].(a2a.StatusEvent); !ok || st.State != a2a.TaskStateWorking {
				t.Errorf("events[0] = %#v, want working status", queue.events[0])
			}

			art, ok := queue.events[1].(a2a.ArtifactEvent)
			if !ok {
				t.Fatalf("events[1] = %#v, want artifact", queue.events[1])
			}
			if art.Artifact.Name != "suggestion_task-1" {
				t.Errorf("artifact name = %q", art.Artifact.Name)
			}
			if len(art.Artifact.Parts) != 1 || art.Artifact.Parts[0].Kind != "text" {
				t.Fatalf("artifact parts = %+v", art.Artifact.Parts)
			}
			if got := art.Artifact.Parts[0].Text; got != tt.wantJSON {
				t.Errorf("artifact text = %s, want %s", got, tt.wantJSON)
			}
			if !json.Valid([]byte(art.Artifact.Parts[0].Text)) {
				t.Error("artifact text is not valid JSON")
			}

			st, ok := queue.events[2].(a2a.StatusEvent)
			if !ok || st.State != tt.wantState {
				t.Errorf("events[2] = %#v, want %s", queue.events[2], tt.wantState)
			}
		})
	}
}

func TestExecutor_Execute_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		reqCtx *a2a.RequestContext
	}{
		{"missing task id", &a2a.RequestContext{ContextID: "c", Message: userMessage("q")}},
		{"missing context id", &a2a.RequestContext{TaskID: "t", Message: userMessage("q")}},
		{"missing message", &a2a.RequestContext{TaskID: "t", ContextID: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockQueryService{Result: domain.SuccessResult(nil)}
			err := NewExecutor(svc, zap.NewNop()).Execute(context.Background(), tt.reqCtx, &recordingQueue{})

			var rpcErr *a2a.Error
			if !errors.As(err, &rpcErr) || rpcErr.Code != a2a.CodeInvalidParams {
				t.Fatalf("Execute() error = %v, want invalid params", err)
			}
			if rpcErr.Message != "Missing task_id or context_id or message" {
				t.Errorf("message = %q", rpcErr.Message)
			}
			if svc.CallCount != 0 {
				t.Errorf("query service called %d times", svc.CallCount)
			}
		})
	}
}

func TestExecutor_Execute_QueueFailure(t *testing.T) {
	svc := &mockQueryService{Result: domain.SuccessResult(nil)}
	queue := &recordingQueue{err: context.Canceled}

	err := NewExecutor(svc, zap.NewNop()).Execute(context.Background(), &a2a.RequestContext{
		TaskID: "t", ContextID: "c", Message: userMessage("q"),
	}, queue)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecutor_Cancel(t *testing.T) {
	err := NewExecutor(&mockQueryService{}, zap.NewNop()).
		Cancel(context.Background(), &a2a.RequestContext{TaskID: "t"}, &recordingQueue{})

	var rpcErr *a2a.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != a2a.CodeUnsupportedOperation {
		t.Errorf("Cancel() error = %v, want unsupported operation", err)
	}
}
