package types

// ChatTurn is one logged message in a session's conversation, either from
// the user or the assistant. Turns are append-only: ids are assigned by the
// store in strictly increasing order and rows are never updated or deleted.
type ChatTurn struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string `gorm:"index;not null" json:"session_id"`
	Role      string `gorm:"not null" json:"role"`
	Content   string `gorm:"not null" json:"content"`
	TS        int64  `gorm:"column:ts;not null" json:"ts"`
}

func (ChatTurn) TableName() string { return "chat_log" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of the prompt sent to the generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemorySnippet is text recalled from the vector index for one query.
// Snippets are ephemeral; they are never persisted.
type MemorySnippet struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
