package a2a

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const protocolVersion = "0.3.0"

type AgentCapabilities struct {
	Streaming         bool `json:"streaming" yaml:"streaming"`
	PushNotifications bool `json:"pushNotifications" yaml:"push_notifications"`
}

type AgentSkill struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags"`
	Examples    []string `json:"examples,omitempty" yaml:"examples"`
}

type AgentCard struct {
	Name               string            `json:"name" yaml:"name"`
	Description        string            `json:"description" yaml:"description"`
	URL                string            `json:"url" yaml:"url"`
	Version            string            `json:"version" yaml:"version"`
	ProtocolVersion    string            `json:"protocolVersion" yaml:"protocol_version"`
	PreferredTransport string            `json:"preferredTransport" yaml:"preferred_transport"`
	DefaultInputModes  []string          `json:"defaultInputModes" yaml:"default_input_modes"`
	DefaultOutputModes []string          `json:"defaultOutputModes" yaml:"default_output_modes"`
	Capabilities       AgentCapabilities `json:"capabilities" yaml:"capabilities"`
	Skills             []AgentSkill      `json:"skills" yaml:"skills"`
}

// DefaultCard describes the search suggestion agent served at baseURL.
func DefaultCard(baseURL string) AgentCard {
	return AgentCard{
		Name:               "Search Suggestions Agent",
		Description:        "Provide search suggestions based on user input.",
		URL:                baseURL,
		Version:            "1.0.0",
		ProtocolVersion:    protocolVersion,
		PreferredTransport: "JSONRPC",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"application/json"},
		Capabilities:       AgentCapabilities{Streaming: false},
		Skills: []AgentSkill{
			{
				ID:          "search_suggestions",
				Name:        "Search Suggestions",
				Description: "Provide search suggestions based on user input.",
				Tags:        []string{"search", "suggestions", "analytics"},
				Examples: []string{
					"What is the average time to resolution for contracts cases in SDNY in the last 3 months?",
					"Time to trial in a Los Angeles County case before Judge Randy Rhodes?",
					"Reversal rate for employment cases in the 5th circuit?",
				},
			},
		},
	}
}

// LoadCardFile overlays the YAML file at path onto card. Keys absent from
// the file keep their current values.
func LoadCardFile(path string, card *AgentCard) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read agent card file: %w", err)
	}
	if err := yaml.Unmarshal(data, card); err != nil {
		return fmt.Errorf("parse agent card file: %w", err)
	}
	return nil
}
