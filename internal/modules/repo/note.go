package repo

import (
	"context"

	"github.com/sitescan/sitescan/internal/modules/model"
	"gorm.io/gorm"
)

type NoteRepo interface {
	Create(ctx context.Context, n *model.Note) error
	List(ctx context.Context) ([]*model.Note, error)
}

type noteRepo struct{ db *gorm.DB }

func NewNoteRepo(db *gorm.DB) NoteRepo {
	return &noteRepo{db: db}
}

func (r *noteRepo) Create(ctx context.Context, n *model.Note) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *noteRepo) List(ctx context.Context) ([]*model.Note, error) {
	var notes []*model.Note
	if err := r.db.WithContext(ctx).Order("created_date DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
