package chat

import (
	"fmt"
	"unicode/utf8"

	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

const maxTextRunes = 2000

// PostRequest is the body of POST /chat.
type PostRequest struct {
	ID                     string          `json:"id" binding:"required,uuid"`
	Message                IncomingMessage `json:"message" binding:"required"`
	SelectedChatModel      string          `json:"selectedChatModel" binding:"required,oneof=chat-model chat-model-reasoning"`
	SelectedVisibilityType Visibility      `json:"selectedVisibilityType" binding:"required,oneof=public private"`
}

type IncomingMessage struct {
	ID    string         `json:"id" binding:"required,uuid"`
	Role  string         `json:"role" binding:"required,eq=user"`
	Parts []IncomingPart `json:"parts" binding:"required,min=1,dive"`
}

type IncomingPart struct {
	Type      string `json:"type" binding:"required,oneof=text file"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Check covers the per-type rules the binding tags cannot express.
func (m IncomingMessage) Check() error {
	for i, p := range m.Parts {
		switch p.Type {
		case "text":
			n := utf8.RuneCountInString(p.Text)
			if n < 1 || n > maxTextRunes {
				return fmt.Errorf("parts[%d]: text must be 1..%d characters", i, maxTextRunes)
			}
		case "file":
			if p.MediaType != "image/jpeg" && p.MediaType != "image/png" {
				return fmt.Errorf("parts[%d]: unsupported media type %q", i, p.MediaType)
			}
			if p.Name == "" || p.URL == "" {
				return fmt.Errorf("parts[%d]: file parts need name and url", i)
			}
		}
	}
	return nil
}

func (m IncomingMessage) parts() []uistream.Part {
	out := make([]uistream.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Type == "file" {
			out = append(out, uistream.Part{Type: "file", MediaType: p.MediaType, Name: p.Name, URL: p.URL})
			continue
		}
		out = append(out, uistream.TextPart(p.Text))
	}
	return out
}

// firstText is the text the chat title is derived from.
func (m IncomingMessage) firstText() string {
	for _, p := range m.Parts {
		if p.Type == "text" {
			return p.Text
		}
	}
	return ""
}
