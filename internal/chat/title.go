package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
)

const (
	maxTitleRunes = 80
	defaultTitle  = "New Chat"
)

// InitialTitle is the first message's text squashed onto one line and cut to 80 characters.
func InitialTitle(text string) string {
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return defaultTitle
	}
	return cutRunes(t, maxTitleRunes)
}

func cutRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// cleanTitle strips the quoting and labels models like to add.
func cleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[:i]
	}
	t = strings.Trim(t, "\"'`*# ")
	t = strings.TrimSpace(strings.TrimPrefix(t, "Title:"))
	t = strings.Trim(t, "\"'`*#: ")
	return cutRunes(t, maxTitleRunes)
}

// GenerateTitle asks the title model for a short summary of the first message.
func (s *Service) GenerateTitle(ctx context.Context, text string) (string, error) {
	p, err := s.models.Resolve(ctx, ai.TitleModel)
	if err != nil {
		return "", err
	}
	reply, err := p.Chat(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: prompt.Title},
		{Role: ai.RoleUser, Content: text},
	})
	if err != nil {
		return "", err
	}
	title := cleanTitle(reply)
	if title == "" {
		return "", errors.New("title model returned nothing")
	}
	return title, nil
}

// scheduleTitle queues a title job when a publisher is set and generates the
// title inline otherwise. The chat keeps its initial title on any failure.
func (s *Service) scheduleTitle(ctx context.Context, c *Chat, text string) {
	if s.titles != nil {
		jobID, err := common.NewULID()
		if err == nil {
			err = s.repo.CreateJob(ctx, &TitleJob{ID: jobID, ChatID: c.ID, Text: text, Status: JobQueued})
		}
		if err == nil {
			err = s.titles.PublishTitleJob(ctx, jobID)
		}
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("chat_id", c.ID).Msg("title job not queued, generating inline")
	}

	title, err := s.GenerateTitle(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("chat_id", c.ID).Msg("title generation failed")
		return
	}
	if err := s.repo.UpdateChatTitle(ctx, c.ID, title); err != nil {
		log.Warn().Err(err).Str("chat_id", c.ID).Msg("title update failed")
		return
	}
	c.Title = title
}

// RunTitleJob is the worker side of a title job. Jobs already running or
// done are skipped so redelivered messages are harmless.
func (s *Service) RunTitleJob(ctx context.Context, jobID string) error {
	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	claimed, err := s.repo.ClaimJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		log.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("title job already handled")
		return nil
	}

	title, err := s.GenerateTitle(ctx, job.Text)
	if err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	if err := s.repo.UpdateChatTitle(ctx, job.ChatID, title); err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	return s.repo.MarkJobSucceeded(ctx, jobID)
}
