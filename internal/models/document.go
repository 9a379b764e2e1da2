package models

import "time"

type DocumentKind string

const (
	DocumentText  DocumentKind = "text"
	DocumentCode  DocumentKind = "code"
	DocumentSheet DocumentKind = "sheet"
)

// Document versions share an ID and differ by CreatedAt.
type Document struct {
	ID        string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time    `gorm:"primaryKey" json:"createdAt"`
	UserID    uint64       `gorm:"index;not null" json:"-"`
	Title     string       `gorm:"type:varchar(255);not null" json:"title"`
	Kind      DocumentKind `gorm:"type:varchar(16);not null;default:text" json:"kind"`
	Content   string       `gorm:"type:text" json:"content"`
}

func (Document) TableName() string { return "documents" }

type Suggestion struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	DocumentID        string    `gorm:"type:varchar(36);index;not null" json:"documentId"`
	DocumentCreatedAt time.Time `gorm:"not null" json:"documentCreatedAt"`
	OriginalText      string    `gorm:"type:text;not null" json:"originalText"`
	SuggestedText     string    `gorm:"type:text;not null" json:"suggestedText"`
	Description       string    `gorm:"type:text" json:"description"`
	IsResolved        bool      `gorm:"not null;default:false" json:"isResolved"`
	UserID            uint64    `gorm:"index;not null" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (Suggestion) TableName() string { return "suggestions" }
