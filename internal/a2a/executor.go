package a2a

import (
	"context"
	"strings"
)

// AgentExecutor runs the agent logic for one request. It reports progress
// through the queue; the handler owns the task lifecycle and persistence.
type AgentExecutor interface {
	Execute(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error
	Cancel(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error
}

type RequestContext struct {
	TaskID    string
	ContextID string
	Message   *Message
	// Task is the stored task when the message continues an existing one.
	Task *Task
}

// UserInput joins the text parts of the inbound message.
func (r *RequestContext) UserInput(sep string) string {
	if r.Message == nil {
		return ""
	}
	var texts []string
	for _, p := range r.Message.Parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, sep)
}

type Event interface {
	isEvent()
}

// ArtifactEvent appends an artifact to the task.
type ArtifactEvent struct {
	Artifact Artifact
}

// StatusEvent moves the task to State, optionally with an agent message.
type StatusEvent struct {
	State   TaskState
	Message *Message
}

func (ArtifactEvent) isEvent() {}
func (StatusEvent) isEvent()   {}

type EventQueue interface {
	Enqueue(ctx context.Context, ev Event) error
}
