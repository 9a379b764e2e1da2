package chat

import (
	"context"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// TitleJob asks the worker to generate a title for a freshly created chat.
type TitleJob struct {
	ID string `gorm:"primaryKey;size:26" json:"job_id"` // ULID length

	ChatID string `gorm:"size:36;index;not null" json:"chat_id"`
	Text   string `gorm:"type:text;not null" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"-"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (TitleJob) TableName() string { return "title_jobs" }

// TitlePublisher hands title jobs to a background worker.
type TitlePublisher interface {
	PublishTitleJob(ctx context.Context, jobID string) error
}
