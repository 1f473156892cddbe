package model

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsPrivate bool      `gorm:"not null;default:false;index" json:"is_private"`

	CreatedBy   string    `gorm:"type:varchar(255);index" json:"created_by"`
	CreatedDate time.Time `gorm:"autoCreateTime;index:idx_notes_created,sort:desc" json:"created_date"`
}

func (Note) TableName() string { return "notes" }

type NoteVisibility string

const (
	NoteVisibilityAll     NoteVisibility = "all"
	NoteVisibilityPrivate NoteVisibility = "private"
	NoteVisibilityPublic  NoteVisibility = "public"
)

func (v NoteVisibility) Valid() bool {
	switch v {
	case NoteVisibilityAll, NoteVisibilityPrivate, NoteVisibilityPublic:
		return true
	}
	return false
}

// Matches reports whether the note passes the visibility filter.
func (v NoteVisibility) Matches(n *Note) bool {
	switch v {
	case NoteVisibilityPrivate:
		return n.IsPrivate
	case NoteVisibilityPublic:
		return !n.IsPrivate
	default:
		return true
	}
}
