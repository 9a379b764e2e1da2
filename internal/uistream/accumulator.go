package uistream

import "sync"

// Accumulator folds a chunk stream back into the parts of the assistant
// message, the same way the client renders it.
type Accumulator struct {
	mu        sync.Mutex
	messageID string
	parts     []Part
	open      map[string]int // text/reasoning id -> part index
	tools     map[string]int // tool call id -> part index
	errored   bool
}

func NewAccumulator() *Accumulator {
	return &Accumulator{open: map[string]int{}, tools: map[string]int{}}
}

func (a *Accumulator) Write(c Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c.Type {
	case TypeStart:
		if c.MessageID != "" {
			a.messageID = c.MessageID
		}
	case TypeStartStep:
		a.parts = append(a.parts, Part{Type: PartStepStart})
	case TypeTextStart:
		a.open["t:"+c.ID] = len(a.parts)
		a.parts = append(a.parts, Part{Type: "text"})
	case TypeTextDelta:
		a.appendDelta("t:"+c.ID, "text", c.Delta)
	case TypeReasoningStart:
		a.open["r:"+c.ID] = len(a.parts)
		a.parts = append(a.parts, Part{Type: "reasoning"})
	case TypeReasoningDelta:
		a.appendDelta("r:"+c.ID, "reasoning", c.Delta)
	case TypeTextEnd:
		delete(a.open, "t:"+c.ID)
	case TypeReasoningEnd:
		delete(a.open, "r:"+c.ID)
	case TypeToolInput:
		a.tools[c.ToolCallID] = len(a.parts)
		a.parts = append(a.parts, Part{
			Type:       toolPartPrefix + c.ToolName,
			ToolCallID: c.ToolCallID,
			State:      StateInputAvailable,
			Input:      c.Input,
		})
	case TypeToolOutput:
		if i, ok := a.tools[c.ToolCallID]; ok {
			a.parts[i].State = StateOutputAvailable
			a.parts[i].Output = c.Output
		}
	case TypeToolOutputError:
		if i, ok := a.tools[c.ToolCallID]; ok {
			a.parts[i].State = StateOutputError
			a.parts[i].ErrorText = c.ErrorText
		}
	case TypeError:
		a.errored = true
	default:
		if c.IsData() && !c.Transient {
			a.parts = append(a.parts, Part{Type: c.Type, Data: c.Data})
		}
	}
	return nil
}

func (a *Accumulator) appendDelta(key, typ, delta string) {
	i, ok := a.open[key]
	if !ok {
		// delta without a start chunk
		i = len(a.parts)
		a.open[key] = i
		a.parts = append(a.parts, Part{Type: typ})
	}
	a.parts[i].Text += delta
}

func (a *Accumulator) MessageID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messageID
}

// Parts returns a copy of the folded parts, skipping empty text.
func (a *Accumulator) Parts() []Part {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Part, 0, len(a.parts))
	for _, p := range a.parts {
		if (p.Type == "text" || p.Type == "reasoning") && p.Text == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Errored reports whether an error chunk was seen.
func (a *Accumulator) Errored() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errored
}
