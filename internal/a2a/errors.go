package a2a

import "fmt"

// JSON-RPC 2.0 and A2A error codes.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeTaskNotFound         = -32001
	CodeTaskNotCancelable    = -32002
	CodeUnsupportedOperation = -32004
)

// Error is a JSON-RPC error object. Executors return it to pick the code
// the client sees; any other error becomes an internal error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

func NewInvalidParamsError(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

func NewUnsupportedOperationError(msg string) *Error {
	if msg == "" {
		msg = "This operation is not supported"
	}
	return &Error{Code: CodeUnsupportedOperation, Message: msg}
}

func NewTaskNotFoundError(id string) *Error {
	return &Error{Code: CodeTaskNotFound, Message: "Task not found", Data: map[string]string{"id": id}}
}

func newInternalError() *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error"}
}
