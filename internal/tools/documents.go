package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
)

const textDocumentSystem = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."

// DocumentStore persists artifacts and their suggestions.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	LatestDocument(ctx context.Context, id string) (*models.Document, error)
	SaveSuggestions(ctx context.Context, s []models.Suggestion) error
}

// ModelResolver is satisfied by *ai.Registry.
type ModelResolver interface {
	Resolve(ctx context.Context, model string) (ai.Provider, error)
}

// Documents builds the artifact tools. Generated content streams to the
// client as transient data chunks while the model writes it.
type Documents struct {
	Store  DocumentStore
	Models ModelResolver
	Now    func() time.Time
}

type createDocumentArgs struct {
	Title string `json:"title" validate:"required,max=255"`
	Kind  string `json:"kind" validate:"required,oneof=text code sheet"`
}

type updateDocumentArgs struct {
	ID          string `json:"id" validate:"required,uuid"`
	Description string `json:"description" validate:"required"`
}

type suggestionsArgs struct {
	DocumentID string `json:"documentId" validate:"required,uuid"`
}

type documentResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

func (d *Documents) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func systemForKind(kind string) string {
	switch kind {
	case prompt.KindCode:
		return prompt.Code
	case prompt.KindSheet:
		return prompt.Sheet
	}
	return textDocumentSystem
}

// generate runs the artifact model, forwarding text as <kind>Delta chunks.
func (d *Documents) generate(ctx context.Context, env Env, kind, system, input string) (string, error) {
	p, err := d.Models.Resolve(ctx, ai.ArtifactModel)
	if err != nil {
		return "", err
	}
	msgs := []ai.Message{{Role: ai.RoleUser, Content: input}}

	sp, ok := p.(ai.StreamProvider)
	if !ok {
		text, err := p.Chat(ctx, append([]ai.Message{{Role: ai.RoleSystem, Content: system}}, msgs...))
		if err != nil {
			return "", err
		}
		env.write(kind+"Delta", text)
		return text, nil
	}

	events, errs := sp.StreamChat(ctx, ai.Request{System: system, Messages: msgs})
	var b strings.Builder
	for ev := range events {
		if ev.Type != ai.EventText {
			continue
		}
		b.WriteString(ev.Delta)
		env.write(kind+"Delta", ev.Delta)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}

func (d *Documents) Tools() []Tool {
	return []Tool{
		Typed("createDocument",
			"Create a document for a writing or content creation activities. This tool will call other functions that will generate the contents of the document based on the title and kind.",
			[]ai.Param{
				{Name: "title", Type: "string", Required: true},
				{Name: "kind", Type: "string", Required: true, Enum: []string{prompt.KindText, prompt.KindCode, prompt.KindSheet}},
			},
			d.create),
		Typed("updateDocument",
			"Update a document with the given description.",
			[]ai.Param{
				{Name: "id", Type: "string", Description: "The ID of the document to update", Required: true},
				{Name: "description", Type: "string", Description: "The description of changes that need to be made", Required: true},
			},
			d.update),
		Typed("requestSuggestions",
			"Request suggestions for a document",
			[]ai.Param{{Name: "documentId", Type: "string", Description: "The ID of the document to request edits", Required: true}},
			d.suggest),
	}
}

func (d *Documents) create(ctx context.Context, env Env, a createDocumentArgs) Envelope {
	id := uuid.NewString()
	env.write("kind", a.Kind)
	env.write("id", id)
	env.write("title", a.Title)
	env.write("clear", nil)

	content, err := d.generate(ctx, env, a.Kind, systemForKind(a.Kind), a.Title)
	if err != nil {
		return failWith(err, "Failed to create document")
	}
	doc := &models.Document{
		ID:        id,
		CreatedAt: d.now(),
		UserID:    env.UserID,
		Title:     a.Title,
		Kind:      models.DocumentKind(a.Kind),
		Content:   content,
	}
	if err := d.Store.SaveDocument(ctx, doc); err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("save document failed")
		return Fail("Failed to save document")
	}
	env.write("finish", nil)

	return OK(documentResult{
		ID:      id,
		Title:   a.Title,
		Kind:    a.Kind,
		Content: "A document was created and is now visible to the user.",
	}, nil)
}

func (d *Documents) load(ctx context.Context, env Env, id string) (*models.Document, *Envelope) {
	doc, err := d.Store.LatestDocument(ctx, id)
	if err != nil || doc.UserID != env.UserID {
		fail := Fail("Document not found")
		return nil, &fail
	}
	return doc, nil
}

func (d *Documents) update(ctx context.Context, env Env, a updateDocumentArgs) Envelope {
	doc, fail := d.load(ctx, env, a.ID)
	if fail != nil {
		return *fail
	}
	env.write("clear", doc.Title)

	kind := string(doc.Kind)
	content, err := d.generate(ctx, env, kind, prompt.UpdateDocument(doc.Content, kind), a.Description)
	if err != nil {
		return failWith(err, "Failed to update document")
	}
	next := *doc
	next.CreatedAt = d.now()
	next.Content = content
	if err := d.Store.SaveDocument(ctx, &next); err != nil {
		log.Error().Err(err).Str("document_id", doc.ID).Msg("save document version failed")
		return Fail("Failed to save document")
	}
	env.write("finish", nil)

	return OK(documentResult{
		ID:      doc.ID,
		Title:   doc.Title,
		Kind:    kind,
		Content: "The document has been updated successfully.",
	}, nil)
}

type generatedSuggestion struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

func (d *Documents) suggest(ctx context.Context, env Env, a suggestionsArgs) Envelope {
	doc, fail := d.load(ctx, env, a.DocumentID)
	if fail != nil {
		return *fail
	}
	if doc.Content == "" {
		return Fail("Document has no content")
	}

	p, err := d.Models.Resolve(ctx, ai.ArtifactModel)
	if err != nil {
		return failWith(err, "Failed to request suggestions")
	}
	raw, err := p.Chat(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: prompt.Suggestions},
		{Role: ai.RoleUser, Content: doc.Content},
	})
	if err != nil {
		return failWith(err, "Failed to request suggestions")
	}
	generated, err := parseSuggestions(raw)
	if err != nil {
		return failWith(err, "Failed to request suggestions")
	}

	now := d.now()
	out := make([]models.Suggestion, 0, len(generated))
	for _, g := range generated {
		s := models.Suggestion{
			ID:                uuid.NewString(),
			DocumentID:        doc.ID,
			DocumentCreatedAt: doc.CreatedAt,
			OriginalText:      g.OriginalSentence,
			SuggestedText:     g.SuggestedSentence,
			Description:       g.Description,
			UserID:            env.UserID,
			CreatedAt:         now,
		}
		env.write("suggestion", s)
		out = append(out, s)
	}
	if len(out) > 0 {
		if err := d.Store.SaveSuggestions(ctx, out); err != nil {
			log.Error().Err(err).Str("document_id", doc.ID).Msg("save suggestions failed")
			return Fail("Failed to save suggestions")
		}
	}

	return OK(documentResult{
		ID:      doc.ID,
		Title:   doc.Title,
		Kind:    string(doc.Kind),
		Message: "Suggestions have been added to the document",
	}, nil)
}

// parseSuggestions accepts a JSON array, optionally inside a code fence.
func parseSuggestions(raw string) ([]generatedSuggestion, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "["); i >= 0 {
		if j := strings.LastIndex(s, "]"); j > i {
			s = s[i : j+1]
		}
	}
	var out []generatedSuggestion
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, errors.New("model returned malformed suggestions")
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out, nil
}
