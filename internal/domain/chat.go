package domain

import "encoding/json"

// ChatMessage is the provider-agnostic chat message shape used by the router
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one call to the completion service. When Schema
// is set the service is constrained to return a JSON object matching it;
// otherwise the response is free text.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	SchemaName  string
	Schema      json.RawMessage
}
