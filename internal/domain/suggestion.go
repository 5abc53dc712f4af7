package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Upstream keys that carry a suggestion's identity.
const (
	FieldSourceURL = "description_url"
	FieldTitle     = "title"
)

// Keys added by enrichment.
const (
	FieldDescription     = "description"
	FieldEnrichmentError = "enrichment_error"
)

// UpstreamPrefix is prepended to an upstream key that an enrichment outcome
// would otherwise overwrite.
const UpstreamPrefix = "upstream_"

var ErrNotAnObject = errors.New("suggestion is not a JSON object")

// Suggestion is one upstream search suggestion. Fields keeps every key the
// upstream API returned so the suggestion can be re-emitted unchanged;
// enrichment only sets Description or EnrichmentError.
type Suggestion struct {
	SourceURL string
	Title     string
	Fields    map[string]json.RawMessage

	Description     *string
	EnrichmentError *ErrorInfo
}

// Enriched reports whether an enrichment outcome has been recorded.
func (s Suggestion) Enriched() bool {
	return s.Description != nil || s.EnrichmentError != nil
}

// WithDescription returns a copy with the description set.
func (s Suggestion) WithDescription(desc string) Suggestion {
	s.Description = &desc
	s.EnrichmentError = nil
	return s
}

// WithEnrichmentError returns a copy with the error descriptor set.
func (s Suggestion) WithEnrichmentError(info *ErrorInfo) Suggestion {
	s.Description = nil
	s.EnrichmentError = info
	return s
}

func (s *Suggestion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return ErrNotAnObject
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var sourceURL, title string
	if raw, ok := fields[FieldSourceURL]; ok {
		_ = json.Unmarshal(raw, &sourceURL)
	}
	if raw, ok := fields[FieldTitle]; ok {
		_ = json.Unmarshal(raw, &title)
	}

	*s = Suggestion{
		SourceURL: sourceURL,
		Title:     title,
		Fields:    fields,
	}
	return nil
}

func (s Suggestion) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}

	if _, ok := out[FieldSourceURL]; !ok && s.SourceURL != "" {
		b, _ := json.Marshal(s.SourceURL)
		out[FieldSourceURL] = b
	}
	if _, ok := out[FieldTitle]; !ok && s.Title != "" {
		b, _ := json.Marshal(s.Title)
		out[FieldTitle] = b
	}

	if s.Description != nil {
		b, err := json.Marshal(*s.Description)
		if err != nil {
			return nil, err
		}
		appendField(out, FieldDescription, b)
	}
	if s.EnrichmentError != nil {
		b, err := json.Marshal(s.EnrichmentError)
		if err != nil {
			return nil, err
		}
		appendField(out, FieldEnrichmentError, b)
	}

	return json.Marshal(out)
}

// appendField sets key without losing an upstream value already stored
// under it; that value moves to UpstreamPrefix+key.
func appendField(out map[string]json.RawMessage, key string, value json.RawMessage) {
	if prev, ok := out[key]; ok {
		out[UpstreamPrefix+key] = prev
	}
	out[key] = value
}
