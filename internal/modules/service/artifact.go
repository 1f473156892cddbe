package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/cache"
	mq "github.com/sitescan/sitescan/internal/infra/queue"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/repo"
	"github.com/sitescan/sitescan/internal/pkg/geo"
	"github.com/sitescan/sitescan/internal/pkg/qrcode"
	"github.com/sitescan/sitescan/internal/pkg/share"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	DiscoveryDayLayout  = "January 2, 2006"
	DiscoveryTimeLayout = "3:04 PM"
	CardDateLayout      = "Jan 2, 2006"
)

// CreateArtifactInput carries a new artifact. PhotoAsset is set only by the
// capture flow and is never read from a request body.
type CreateArtifactInput struct {
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	PhotoURL         string       `json:"photo_url"`
	PhotoAsset       *model.Asset `json:"-"`
	Latitude         *float64     `json:"latitude"`
	Longitude        *float64     `json:"longitude"`
	LocationAccuracy *float64     `json:"location_accuracy"`
	Color            string       `json:"color" validate:"omitempty,hexcolor"`
	ExtractedText    string       `json:"extracted_text"`
}

// UpdateArtifactInput is a partial update; nil fields are left unchanged.
type UpdateArtifactInput struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ExtractedText *string `json:"extracted_text"`
	Color         *string `json:"color" validate:"omitempty,hexcolor"`
}

func (in UpdateArtifactInput) fields() map[string]interface{} {
	f := map[string]interface{}{}
	if in.Name != nil {
		f["name"] = *in.Name
	}
	if in.Description != nil {
		f["description"] = *in.Description
	}
	if in.ExtractedText != nil {
		f["extracted_text"] = *in.ExtractedText
	}
	if in.Color != nil {
		f["color"] = *in.Color
	}
	return f
}

// ArtifactView is an artifact with every display value derived.
type ArtifactView struct {
	*model.Artifact
	DisplayName   string `json:"display_name"`
	DisplayColor  string `json:"display_color"`
	PageURL       string `json:"page_url"`
	MapsURL       string `json:"maps_url"`
	EmbedURL      string `json:"embed_url"`
	Coordinates   string `json:"coordinates"`
	Accuracy      string `json:"accuracy,omitempty"`
	DiscoveryDay  string `json:"discovery_day"`
	DiscoveryTime string `json:"discovery_time"`
	CardDate      string `json:"card_date"`
	QRImageURL    string `json:"qr_image_url"`
}

// QRInfo describes the QR code that links to an artifact's page.
type QRInfo struct {
	ImageURL string `json:"image_url"`
	Filename string `json:"filename"`
	Target   string `json:"target"`
}

// PhotoLinker turns a stored photo object key into a fetchable URL.
type PhotoLinker interface {
	ObjectURL(ctx context.Context, key string) (string, error)
}

type ArtifactService interface {
	List(ctx context.Context, query string) ([]*model.Artifact, error)
	Get(ctx context.Context, artifactID uuid.UUID) (*model.Artifact, error)
	View(ctx context.Context, artifactID uuid.UUID) (*ArtifactView, error)
	Create(ctx context.Context, who *model.Identity, in CreateArtifactInput) (*model.Artifact, error)
	Update(ctx context.Context, artifactID uuid.UUID, in UpdateArtifactInput) (*model.Artifact, error)
	Delete(ctx context.Context, artifactID uuid.UUID) error
	Share(ctx context.Context, artifactID uuid.UUID, native share.Sharer, clip share.Clipboard) (*share.Outcome, error)
	QR(ctx context.Context, artifactID uuid.UUID) (*QRInfo, error)
}

type artifactService struct {
	r       repo.ArtifactRepo
	cache   cache.QueryCache
	events  mq.EventPublisher
	qr      *qrcode.Renderer
	photos  PhotoLinker
	baseURL string
	log     *zap.Logger

	now      func() time.Time
	idNumber func(time.Time) string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewArtifactService wires the artifact use cases. photos may be nil, in which
// case the saved photo_url is served as is.
func NewArtifactService(r repo.ArtifactRepo, c cache.QueryCache, events mq.EventPublisher, qr *qrcode.Renderer, photos PhotoLinker, cfg *config.Config, log *zap.Logger) ArtifactService {
	return &artifactService{
		r:        r,
		cache:    c,
		events:   events,
		qr:       qr,
		photos:   photos,
		baseURL:  strings.TrimRight(cfg.App.BaseURL, "/"),
		log:      log,
		now:      time.Now,
		idNumber: func(t time.Time) string { return model.NewIDNumber(t, nil) },
	}
}

// FilterArtifacts keeps artifacts whose name or description contains query,
// case-insensitively. An empty query keeps everything.
func FilterArtifacts(artifacts []*model.Artifact, query string) []*model.Artifact {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return artifacts
	}
	out := make([]*model.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Description), q) {
			out = append(out, a)
		}
	}
	return out
}

func EmptyArtifactsMessage(query string) string {
	if strings.TrimSpace(query) != "" {
		return "No artifacts found"
	}
	return "No artifacts yet. Start documenting!"
}

func (s *artifactService) all(ctx context.Context) ([]*model.Artifact, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.KeyArtifacts, s.r.List)
}

func (s *artifactService) List(ctx context.Context, query string) ([]*model.Artifact, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	matched := FilterArtifacts(all, query)
	out := make([]*model.Artifact, len(matched))
	for i, a := range matched {
		out[i] = s.withPhotoURL(ctx, a)
	}
	return out, nil
}

// withPhotoURL derives photo_url from the stored object key on every read.
// Records without a stored object keep the URL they were saved with.
func (s *artifactService) withPhotoURL(ctx context.Context, a *model.Artifact) *model.Artifact {
	key := a.PhotoAsset.Data().S3Key
	if s.photos == nil || key == "" {
		return a
	}
	u, err := s.photos.ObjectURL(ctx, key)
	if err != nil {
		s.log.Warn("resolve photo url failed", zap.String("artifact_id", a.ID.String()), zap.Error(err))
		return a
	}
	out := *a
	out.PhotoURL = u
	return &out
}

// Get scans the cached collection; the first match wins.
func (s *artifactService) Get(ctx context.Context, artifactID uuid.UUID) (*model.Artifact, error) {
	if artifactID == uuid.Nil {
		return nil, invalid("Artifact id is empty")
	}
	a, err := cache.GetOrLoad(ctx, s.cache, cache.ArtifactKey(artifactID.String()), func(ctx context.Context) (*model.Artifact, error) {
		all, err := s.all(ctx)
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		for _, a := range all {
			if a.ID == artifactID {
				return a, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return s.withPhotoURL(ctx, a), nil
}

func (s *artifactService) PageURL(artifactID uuid.UUID) string {
	return s.baseURL + "/ArtifactView?id=" + url.QueryEscape(artifactID.String())
}

func (s *artifactService) View(ctx context.Context, artifactID uuid.UUID) (*ArtifactView, error) {
	a, err := s.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	page := s.PageURL(a.ID)
	return &ArtifactView{
		Artifact:      a,
		DisplayName:   a.DisplayName(),
		DisplayColor:  a.DisplayColor(),
		PageURL:       page,
		MapsURL:       geo.MapsURL(a.Latitude, a.Longitude),
		EmbedURL:      geo.EmbedURL(a.Latitude, a.Longitude),
		Coordinates:   geo.FormatCoordinates(a.Latitude, a.Longitude),
		Accuracy:      geo.FormatAccuracy(a.LocationAccuracy),
		DiscoveryDay:  a.DiscoveryDate.Format(DiscoveryDayLayout),
		DiscoveryTime: a.DiscoveryDate.Format(DiscoveryTimeLayout),
		CardDate:      a.DiscoveryDate.Format(CardDateLayout),
		QRImageURL:    s.qr.RenderURL(page),
	}, nil
}

// Create validates before touching the store: a record is never written
// without photo_url and both coordinates.
func (s *artifactService) Create(ctx context.Context, who *model.Identity, in CreateArtifactInput) (*model.Artifact, error) {
	if strings.TrimSpace(in.PhotoURL) == "" {
		return nil, invalid("Please select a photo")
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, invalid("Please capture location")
	}
	fix := geo.Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}
	if in.LocationAccuracy != nil {
		fix.Accuracy = *in.LocationAccuracy
	}
	if err := fix.Validate(); err != nil {
		return nil, notice(ErrInvalid, "invalid coordinates", err)
	}
	if err := validate.Struct(in); err != nil {
		return nil, notice(ErrInvalid, "invalid color", err)
	}

	now := s.now().UTC()
	a := &model.Artifact{
		ID:               uuid.New(),
		IDNumber:         s.idNumber(now),
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		PhotoURL:         in.PhotoURL,
		Latitude:         *in.Latitude,
		Longitude:        *in.Longitude,
		LocationAccuracy: in.LocationAccuracy,
		DiscoveryDate:    now,
		Color:            in.Color,
		ExtractedText:    in.ExtractedText,
		CreatedBy:        who.Attribution(),
	}
	if in.PhotoAsset != nil {
		a.PhotoAsset = datatypes.NewJSONType(*in.PhotoAsset)
	}
	a.ApplyDefaults()

	if err := s.r.Create(ctx, a); err != nil {
		return nil, notice(ErrUpstream, "Failed to save artifact", err)
	}

	s.invalidate(ctx, mq.OpCreate, a.ID, cache.KeyArtifacts)
	return a, nil
}

func (s *artifactService) Update(ctx context.Context, artifactID uuid.UUID, in UpdateArtifactInput) (*model.Artifact, error) {
	if err := validate.Struct(in); err != nil {
		return nil, notice(ErrInvalid, "invalid color", err)
	}
	fields := in.fields()
	if len(fields) == 0 {
		return nil, invalid("nothing to update")
	}

	a, err := s.r.Update(ctx, artifactID, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update artifact: %w", err)
	}

	s.invalidate(ctx, mq.OpUpdate, artifactID, cache.ArtifactKey(artifactID.String()), cache.KeyArtifacts)
	return a, nil
}

// Delete is idempotent: removing an already removed artifact succeeds.
func (s *artifactService) Delete(ctx context.Context, artifactID uuid.UUID) error {
	if artifactID == uuid.Nil {
		return invalid("Artifact id is empty")
	}
	if err := s.r.Delete(ctx, artifactID); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	s.invalidate(ctx, mq.OpDelete, artifactID, cache.KeyArtifacts, cache.ArtifactKey(artifactID.String()))
	return nil
}

// SharePayload builds what is handed to the share capability.
func SharePayload(a *model.Artifact, pageURL string) share.Payload {
	title := a.Name
	if title == "" {
		title = "Artifact Discovery"
	}
	text := "Check out this archaeological artifact: " + a.DisplayName()
	if a.Description != "" {
		text += "\n\n" + a.Description
	}
	return share.Payload{Title: title, Text: text, URL: pageURL}
}

func (s *artifactService) Share(ctx context.Context, artifactID uuid.UUID, native share.Sharer, clip share.Clipboard) (*share.Outcome, error) {
	a, err := s.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	out, err := share.Share(ctx, SharePayload(a, s.PageURL(a.ID)), native, clip)
	if err != nil {
		return &out, notice(ErrUpstream, out.Notice, err)
	}
	return &out, nil
}

func (s *artifactService) QR(ctx context.Context, artifactID uuid.UUID) (*QRInfo, error) {
	a, err := s.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	page := s.PageURL(a.ID)
	return &QRInfo{
		ImageURL: s.qr.RenderURL(page),
		Filename: qrcode.DownloadFilename(a.Name),
		Target:   page,
	}, nil
}

// invalidate drops exactly the keys a mutation made stale and announces them
// to other replicas. Neither step can fail the mutation.
func (s *artifactService) invalidate(ctx context.Context, op mq.Op, id uuid.UUID, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
	evt := mq.EntityEvent{Entity: mq.EntityArtifact, Op: op, ID: id.String(), Invalidate: keys}
	if err := s.events.PublishEvent(ctx, evt); err != nil {
		s.log.Warn("publish entity event failed", zap.String("op", string(op)), zap.Error(err))
	}
}
