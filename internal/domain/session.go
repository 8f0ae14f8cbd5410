package domain

// Session is the per-conversation routing state. It is owned and mutated
// exclusively by the usecase Router; every other component reads it at most.
type Session struct {
	ConversationID string `json:"conversationId"`
	ActiveFlow     Flow   `json:"activeFlow,omitempty"`
	TurnCount      int    `json:"turnCount"`
}
