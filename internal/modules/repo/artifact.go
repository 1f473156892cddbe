package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/modules/model"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type ArtifactRepo interface {
	Create(ctx context.Context, a *model.Artifact) error
	List(ctx context.Context) ([]*model.Artifact, error)
	Update(ctx context.Context, artifactID uuid.UUID, fields map[string]interface{}) (*model.Artifact, error)
	Delete(ctx context.Context, artifactID uuid.UUID) error
}

type artifactRepo struct{ db *gorm.DB }

func NewArtifactRepo(db *gorm.DB) ArtifactRepo {
	return &artifactRepo{db: db}
}

func (r *artifactRepo) Create(ctx context.Context, a *model.Artifact) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// List returns the full collection, newest first.
func (r *artifactRepo) List(ctx context.Context) ([]*model.Artifact, error) {
	var artifacts []*model.Artifact
	err := r.db.WithContext(ctx).Order("created_date DESC").Find(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Update applies a partial update and returns the stored record.
func (r *artifactRepo) Update(ctx context.Context, artifactID uuid.UUID, fields map[string]interface{}) (*model.Artifact, error) {
	var artifact model.Artifact
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Artifact{}).Where("id = ?", artifactID).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", artifactID).First(&artifact).Error
	})
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// Delete removes the record. Deleting a missing id is not an error.
func (r *artifactRepo) Delete(ctx context.Context, artifactID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", artifactID).Delete(&model.Artifact{}).Error
}
