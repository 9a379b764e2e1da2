package chat

import (
	"encoding/json"
	"time"

	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
	"gorm.io/datatypes"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

type Chat struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     uint64     `gorm:"index;not null" json:"userId"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:private" json:"visibility"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (Chat) TableName() string { return "chats" }

// Message rows are written once and never updated.
type Message struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatID      string         `gorm:"type:varchar(36);not null;index:idx_messages_chat_created,priority:1" json:"chatId"`
	Role        string         `gorm:"type:varchar(16);index;not null" json:"role"`
	Parts       datatypes.JSON `gorm:"not null" json:"parts"`
	Attachments datatypes.JSON `gorm:"not null" json:"attachments"`
	CreatedAt   time.Time      `gorm:"index:idx_messages_chat_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

// DecodeParts returns the stored parts. A corrupt column yields no parts.
func (m *Message) DecodeParts() []uistream.Part {
	var parts []uistream.Part
	if len(m.Parts) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Parts, &parts); err != nil {
		return nil
	}
	return parts
}

// Stream records one turn's resumable stream id.
type Stream struct {
	ID        string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	ChatID    string    `gorm:"type:varchar(36);index;not null" json:"chatId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Stream) TableName() string { return "streams" }

func newMessage(id, chatID, role string, parts []uistream.Part, now time.Time) (*Message, error) {
	if parts == nil {
		parts = []uistream.Part{}
	}
	raw, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:          id,
		ChatID:      chatID,
		Role:        role,
		Parts:       datatypes.JSON(raw),
		Attachments: datatypes.JSON("[]"),
		CreatedAt:   now,
	}, nil
}

// Tables lists every model this package persists, for migrations.
func Tables() []any {
	return []any{&Chat{}, &Message{}, &Stream{}, &TitleJob{}, &models.Document{}, &models.Suggestion{}}
}
