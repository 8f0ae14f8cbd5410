package domain

// Button is one inline keyboard button; Data is the opaque callback payload
// (`namespace:value[:value2]`).
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// InlineKeyboard is the outbound chip layout attached to a reply.
type InlineKeyboard struct {
	Rows [][]Button `json:"inline_keyboard"`
}

// SendRequest is the outbound send payload handed to the delivery layer.
type SendRequest struct {
	ChatID   int64
	Text     string
	Keyboard *InlineKeyboard
}
