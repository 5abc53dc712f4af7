package domain

import "encoding/json"

// Result is what one agent turn produces: either the enriched suggestion
// list or a turn-level error, never both.
type Result struct {
	Suggestions []Suggestion
	Error       *ErrorInfo
}

func SuccessResult(suggestions []Suggestion) *Result {
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return &Result{Suggestions: suggestions}
}

func ErrorResult(err error) *Result {
	return &Result{Error: InfoFromError(err)}
}

func (r *Result) Failed() bool {
	return r.Error != nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Error *ErrorInfo `json:"error"`
		}{r.Error})
	}

	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return json.Marshal(struct {
		Suggestions []Suggestion `json:"suggestions"`
	}{suggestions})
}
