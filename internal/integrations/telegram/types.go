package telegram

import (
	"encoding/json"

	"babygpt/internal/domain"
)

// Update is the inbound webhook envelope. Exactly one of Message,
// EditedMessage or CallbackQuery is set.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	EditedMessage *Message       `json:"edited_message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is the subset of the chat platform message we consume.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
	Date      int64  `json:"date,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery is a button tap carrying an opaque payload string.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// sendMessageRequest is the outbound sendMessage payload.
type sendMessageRequest struct {
	ChatID                int64                  `json:"chat_id"`
	Text                  string                 `json:"text"`
	ParseMode             string                 `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                   `json:"disable_web_page_preview"`
	ReplyMarkup           *domain.InlineKeyboard `json:"reply_markup,omitempty"`
}

// answerCallbackRequest acknowledges a callback query to clear its
// pending-state indicator.
type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
}

// apiResponse is the standard Bot API envelope around every method result.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

// responseParameters carries the machine-readable retry hint on 429s.
type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}
