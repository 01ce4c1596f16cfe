package entity

const (
	EventChatMessage    = "chat.message"
	EventNewChat        = "new_chat"
	EventChatAssigned   = "chat_assigned"
	EventChatReassigned = "chat_reassigned"
	EventNewMessage     = "new_message"
)

// ChatEvent arrives on a per-chat socket.
type ChatEvent struct {
	Type    string     `json:"type"`
	Message ApiMessage `json:"message"`
}

// NotificationEvent arrives on the process-wide notification socket.
type NotificationEvent struct {
	Type       string `json:"type"`
	ChatID     int64  `json:"chat_id"`
	ClientName string `json:"client_name"`
	Channel    string `json:"channel"`
	Content    string `json:"content"`
}

// ReloadsBoard reports whether the event changes chat membership of the board.
func (e NotificationEvent) ReloadsBoard() bool {
	switch e.Type {
	case EventNewChat, EventChatAssigned, EventChatReassigned:
		return true
	}
	return false
}
