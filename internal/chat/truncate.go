package chat

import (
	"encoding/json"
	"time"

	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

// UIMessage is a message as the client and the turn loop see it.
type UIMessage struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Parts     []uistream.Part `json:"parts"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toUIMessages(rows []Message) []UIMessage {
	out := make([]UIMessage, 0, len(rows))
	for i := range rows {
		out = append(out, UIMessage{
			ID:        rows[i].ID,
			Role:      rows[i].Role,
			Parts:     rows[i].DecodeParts(),
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return out
}

// messageSize approximates a message's weight by the length of its encoded parts.
func messageSize(m UIMessage) int {
	b, err := json.Marshal(m.Parts)
	if err != nil {
		return 0
	}
	return len(b)
}

// Truncate keeps the newest messages whose combined size fits in budget,
// dropping from the oldest end. The newest message is kept even when it alone
// exceeds the budget.
func Truncate(msgs []UIMessage, budget int) []UIMessage {
	if len(msgs) == 0 || budget <= 0 {
		return msgs
	}
	last := len(msgs) - 1
	total := messageSize(msgs[last])
	start := last
	for i := last - 1; i >= 0; i-- {
		size := messageSize(msgs[i])
		if total+size > budget {
			break
		}
		total += size
		start = i
	}
	return msgs[start:]
}
