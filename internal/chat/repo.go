package chat

import (
	"context"
	"time"

	"github.com/suPer8Hu/matchday-ai/internal/models"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateChat(ctx context.Context, c *Chat) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) UpdateChatTitle(ctx context.Context, id, title string) error {
	return r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *Repo) UpdateChatVisibility(ctx context.Context, id string, v Visibility) error {
	return r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ?", id).
		Update("visibility", v).Error
}

// DeleteChat removes the chat with its messages and streams.
func (r *Repo) DeleteChat(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", id).Delete(&Stream{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Chat{}).Error
	})
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) GetMessage(ctx context.Context, id string) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a chat's messages oldest first.
func (r *Repo) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountUserMessagesSince counts user messages across every chat the user owns.
func (r *Repo) CountUserMessagesSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.user_id = ? AND messages.role = ? AND messages.created_at >= ?", userID, "user", since).
		Count(&n).Error
	return n, err
}

func (r *Repo) CreateStream(ctx context.Context, s *Stream) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) LatestStream(ctx context.Context, chatID string) (*Stream, error) {
	var s Stream
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Documents

func (r *Repo) SaveDocument(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *Repo) LatestDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Order("created_at DESC").
		First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) ListDocumentVersions(ctx context.Context, id string) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *Repo) SaveSuggestions(ctx context.Context, s []models.Suggestion) error {
	if len(s) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&s).Error
}

// Title jobs

func (r *Repo) CreateJob(ctx context.Context, job *TitleJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*TitleJob, error) {
	var j TitleJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// ClaimJob moves a queued or previously failed job to running. It reports
// false when another worker got there first or the job already succeeded.
func (r *Repo) ClaimJob(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&TitleJob{}).
		Where("id = ? AND status IN ?", id, []JobStatus{JobQueued, JobFailed}).
		Update("status", JobRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&TitleJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"error":  nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&TitleJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
		}).Error
}
