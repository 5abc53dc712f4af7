package domain

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRecord is a stored A2A task. Payload holds the full task document as
// served to clients; the other fields are indexed copies.
type TaskRecord struct {
	ID        string
	ContextID string
	State     string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
