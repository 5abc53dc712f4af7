package domain

import (
	"encoding/json"
	"testing"
)

func TestSuggestion_UnmarshalKeepsOpaqueFields(t *testing.T) {
	raw := `{"description_url":"/desc/1","title":"Time to trial","court":"SDNY","filters":{"judge":"Rhodes"}}`

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if s.SourceURL != "/desc/1" {
		t.Errorf("SourceURL = %q", s.SourceURL)
	}
	if s.Title != "Time to trial" {
		t.Errorf("Title = %q", s.Title)
	}
	if len(s.Fields) != 4 {
		t.Errorf("Fields = %d keys, want 4", len(s.Fields))
	}
	if s.Enriched() {
		t.Error("fresh suggestion should not be enriched")
	}
}

func TestSuggestion_UnmarshalRejectsNonObject(t *testing.T) {
	var s Suggestion
	if err := json.Unmarshal([]byte(`"just a string"`), &s); err == nil {
		t.Error("Unmarshal() expected error for non-object")
	}
}

func TestSuggestion_MarshalAppendsEnrichment(t *testing.T) {
	var s Suggestion
	if err := json.Unmarshal([]byte(`{"description_url":"/desc/1","title":"T","court":"SDNY"}`), &s); err != nil {
		t.Fatal(err)
	}

	withDesc := s.WithDescription("Median time to trial")
	b, err := json.Marshal(withDesc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	json.Unmarshal(b, &out)
	if out["court"] != "SDNY" {
		t.Errorf("opaque field lost: %v", out)
	}
	if out["description"] != "Median time to trial" {
		t.Errorf("description = %v", out["description"])
	}
	if _, ok := out["enrichment_error"]; ok {
		t.Error("enrichment_error should be absent")
	}

	withErr := s.WithEnrichmentError(&ErrorInfo{Kind: "enrichment_failure", Reason: ReasonTimeout, Message: "enrichment failed"})
	b, _ = json.Marshal(withErr)
	out = nil
	json.Unmarshal(b, &out)
	if _, ok := out["description"]; ok {
		t.Error("description should be absent")
	}
	ee, ok := out["enrichment_error"].(map[string]any)
	if !ok || ee["reason"] != ReasonTimeout {
		t.Errorf("enrichment_error = %v", out["enrichment_error"])
	}

	// identity fields survive enrichment
	if withErr.SourceURL != s.SourceURL || withErr.Title != s.Title {
		t.Error("enrichment changed identity fields")
	}
}

func TestSuggestion_MarshalWithoutFields(t *testing.T) {
	s := Suggestion{SourceURL: "/desc/9", Title: "Reversal rate"}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"description_url":"/desc/9","title":"Reversal rate"}` {
		t.Errorf("Marshal() = %s", b)
	}
}

func TestSuggestion_UpstreamDescriptionSurvives(t *testing.T) {
	var s Suggestion
	raw := `{"description_url":"/d/1","title":"T","description":"upstream text"}`
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		s            Suggestion
		wantDesc     any
		wantUpstream any
	}{
		{
			name:     "not enriched",
			s:        s,
			wantDesc: "upstream text",
		},
		{
			name:     "enrichment failed",
			s:        s.WithEnrichmentError(&ErrorInfo{Kind: "enrichment_failure", Reason: ReasonTimeout, Message: "enrichment failed"}),
			wantDesc: "upstream text",
		},
		{
			name:         "enrichment succeeded",
			s:            s.WithDescription("fetched text"),
			wantDesc:     "fetched text",
			wantUpstream: "upstream text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.s)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var out map[string]any
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatal(err)
			}

			if out["description"] != tt.wantDesc {
				t.Errorf("description = %v, want %v", out["description"], tt.wantDesc)
			}
			if out["upstream_description"] != tt.wantUpstream {
				t.Errorf("upstream_description = %v, want %v", out["upstream_description"], tt.wantUpstream)
			}
			if out["title"] != "T" || out["description_url"] != "/d/1" {
				t.Errorf("identity fields changed: %s", b)
			}
		})
	}
}
