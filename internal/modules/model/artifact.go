package model

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DefaultArtifactName  = "Untitled Artifact"
	DefaultArtifactColor = "#0D9488"
)

type Artifact struct {
	ID               uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	IDNumber         string                    `gorm:"type:varchar(64);index" json:"id_number,omitempty"`
	Name             string                    `gorm:"type:varchar(255);not null" json:"name"`
	Description      string                    `gorm:"type:text" json:"description"`
	PhotoURL         string                    `gorm:"type:text;not null" json:"photo_url"`
	PhotoAsset       datatypes.JSONType[Asset] `gorm:"type:jsonb" swaggerignore:"true" json:"photo_asset"`
	Latitude         float64                   `gorm:"not null" json:"latitude"`
	Longitude        float64                   `gorm:"not null" json:"longitude"`
	LocationAccuracy *float64                  `json:"location_accuracy,omitempty"`
	DiscoveryDate    time.Time                 `gorm:"not null" json:"discovery_date"`
	Color            string                    `gorm:"type:varchar(16)" json:"color"`
	ExtractedText    string                    `gorm:"type:text" json:"extracted_text"`

	CreatedBy   string    `gorm:"type:varchar(255);index" json:"created_by"`
	CreatedDate time.Time `gorm:"autoCreateTime;index:idx_artifacts_created,sort:desc" json:"created_date"`
	UpdatedDate time.Time `gorm:"autoUpdateTime" json:"updated_date"`
}

func (Artifact) TableName() string { return "artifacts" }

// ApplyDefaults fills the optional display fields that have fixed defaults.
func (a *Artifact) ApplyDefaults() {
	if a.Name == "" {
		a.Name = DefaultArtifactName
	}
	if a.Color == "" {
		a.Color = DefaultArtifactColor
	}
}

// DisplayName is the name shown wherever the artifact is listed.
func (a *Artifact) DisplayName() string {
	if a.Name == "" {
		return DefaultArtifactName
	}
	return a.Name
}

func (a *Artifact) DisplayColor() string {
	if a.Color == "" {
		return DefaultArtifactColor
	}
	return a.Color
}

// NewIDNumber builds a human readable id "ART-<epoch ms>-<4 digit random>".
// Uniqueness is probabilistic only.
func NewIDNumber(now time.Time, r *rand.Rand) string {
	var n int
	if r == nil {
		n = rand.IntN(10000)
	} else {
		n = r.IntN(10000)
	}
	return FormatIDNumber(now, n)
}

func FormatIDNumber(now time.Time, n int) string {
	return fmt.Sprintf("ART-%d-%04d", now.UnixMilli(), n)
}
