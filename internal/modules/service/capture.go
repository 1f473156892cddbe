package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/pkg/geo"
	"github.com/sitescan/sitescan/internal/pkg/media"
	"go.uber.org/zap"
)

// ErrLocation classifies a failed position fix.
var ErrLocation = errors.New("location unavailable")

const maxNotices = 20

// Notice is a transient toast shown on the capture form.
type Notice struct {
	Level   string    `json:"level"` // success | error
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// DraftView is the capture form as the device renders it.
type DraftView struct {
	ID                    uuid.UUID        `json:"id"`
	Name                  string           `json:"name"`
	Description           string           `json:"description"`
	ExtractedText         string           `json:"extracted_text"`
	PhotoPreview          string           `json:"photo_preview,omitempty"`
	PhotoFilename         string           `json:"photo_filename,omitempty"`
	Coordinates           *geo.Coordinates `json:"coordinates,omitempty"`
	Locating              bool             `json:"locating"`
	ExtractingText        bool             `json:"extracting_text"`
	GeneratingDescription bool             `json:"generating_description"`
	Submitting            bool             `json:"submitting"`
	CanSubmit             bool             `json:"can_submit"`
	Notices               []Notice         `json:"notices"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// CapturePatch edits the free text fields of a draft; nil fields are kept.
type CapturePatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ExtractedText *string `json:"extracted_text"`
}

type CaptureService interface {
	New(ctx context.Context, who *model.Identity) (*DraftView, error)
	Get(ctx context.Context, draftID uuid.UUID, who *model.Identity) (*DraftView, error)
	// SelectPhoto replaces the photo, acquires a position fix through device
	// and starts both enrichment requests. A failed fix does not fail the call.
	SelectPhoto(ctx context.Context, draftID uuid.UUID, who *model.Identity, filename string, data []byte, device geo.Provider) (*DraftView, error)
	// Locate retries the position fix on demand.
	Locate(ctx context.Context, draftID uuid.UUID, who *model.Identity, device geo.Provider) (*DraftView, error)
	Update(ctx context.Context, draftID uuid.UUID, who *model.Identity, patch CapturePatch) (*DraftView, error)
	// Submit uploads the photo, then creates the artifact. On success the draft
	// is discarded; on failure every field is kept for a retry.
	Submit(ctx context.Context, draftID uuid.UUID, who *model.Identity) (*model.Artifact, *DraftView, error)
	Run(ctx context.Context) error
}

type draft struct {
	id            uuid.UUID
	owner         string
	name          string
	description   string
	extractedText string
	photo         *media.Photo
	preview       string
	coords        *geo.Coordinates

	locating   bool
	extracting bool
	describing bool
	submitting bool
	generation uint64

	notices []Notice
	touched time.Time
}

func (d *draft) push(level, msg string, at time.Time) {
	if msg == "" {
		return
	}
	d.notices = append(d.notices, Notice{Level: level, Message: msg, At: at})
	if len(d.notices) > maxNotices {
		d.notices = d.notices[len(d.notices)-maxNotices:]
	}
}

func (d *draft) canSubmit() bool {
	return d.photo != nil && d.coords != nil && !d.submitting && !d.locating
}

func (d *draft) view() *DraftView {
	v := &DraftView{
		ID:                    d.id,
		Name:                  d.name,
		Description:           d.description,
		ExtractedText:         d.extractedText,
		PhotoPreview:          d.preview,
		Locating:              d.locating,
		ExtractingText:        d.extracting,
		GeneratingDescription: d.describing,
		Submitting:            d.submitting,
		CanSubmit:             d.canSubmit(),
		Notices:               append([]Notice(nil), d.notices...),
		UpdatedAt:             d.touched,
	}
	if d.photo != nil {
		v.PhotoFilename = d.photo.Filename
	}
	if d.coords != nil {
		c := *d.coords
		v.Coordinates = &c
	}
	return v
}

type enrichSlot int

const (
	slotText enrichSlot = iota
	slotDescription
)

type captureService struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]*draft
	wg     sync.WaitGroup

	locator   *geo.Locator
	upload    UploadService
	enrich    EnrichmentService
	artifacts ArtifactService
	log       *zap.Logger

	ttl           time.Duration
	enrichTimeout time.Duration
	now           func() time.Time
}

func NewCaptureService(upload UploadService, enrich EnrichmentService, artifacts ArtifactService, cfg *config.Config, log *zap.Logger) CaptureService {
	return &captureService{
		drafts:        make(map[uuid.UUID]*draft),
		locator:       geo.NewLocator(cfg.Capture.LocationTimeout),
		upload:        upload,
		enrich:        enrich,
		artifacts:     artifacts,
		log:           log,
		ttl:           cfg.Capture.DraftTTL,
		enrichTimeout: cfg.Capture.EnrichTimeout,
		now:           time.Now,
	}
}

// lookup must be called with mu held.
func (s *captureService) lookup(id uuid.UUID, who *model.Identity) (*draft, error) {
	d, ok := s.drafts[id]
	if !ok || d.owner != who.Attribution() {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && !d.submitting && s.now().Sub(d.touched) > s.ttl {
		delete(s.drafts, id)
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *captureService) New(_ context.Context, who *model.Identity) (*DraftView, error) {
	d := &draft{id: uuid.New(), owner: who.Attribution(), touched: s.now()}
	s.mu.Lock()
	s.drafts[d.id] = d
	s.mu.Unlock()
	return d.view(), nil
}

func (s *captureService) Get(_ context.Context, id uuid.UUID, who *model.Identity) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(id, who)
	if err != nil {
		return nil, err
	}
	return d.view(), nil
}

func (s *captureService) SelectPhoto(ctx context.Context, id uuid.UUID, who *model.Identity, filename string, data []byte, device geo.Provider) (*DraftView, error) {
	if len(data) == 0 {
		return nil, invalid("Please select a photo")
	}
	photo := media.NewPhoto(filename, data)

	s.mu.Lock()
	d, err := s.lookup(id, who)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if d.submitting {
		s.mu.Unlock()
		return nil, notice(ErrBusy, "Artifact is being saved", nil)
	}
	d.photo = photo
	d.preview = photo.PreviewDataURI()
	d.generation++
	d.extracting = true
	d.describing = true
	d.touched = s.now()
	gen := d.generation
	s.mu.Unlock()

	s.startEnrichment(id, gen, photo)

	// a failed fix is already recorded as a notice on the draft
	_, _ = s.locate(ctx, id, who, device)

	return s.Get(ctx, id, who)
}

func (s *captureService) Locate(ctx context.Context, id uuid.UUID, who *model.Identity, device geo.Provider) (*DraftView, error) {
	return s.locate(ctx, id, who, device)
}

func (s *captureService) locate(ctx context.Context, id uuid.UUID, who *model.Identity, device geo.Provider) (*DraftView, error) {
	s.mu.Lock()
	d, err := s.lookup(id, who)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d.locating = true
	s.mu.Unlock()

	fix, locErr := s.locator.Acquire(ctx, device)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	d.locating = false
	d.touched = now
	if locErr != nil {
		msg := geo.Notice(locErr)
		d.push("error", msg, now)
		s.log.Debug("location fix failed", zap.String("draft_id", id.String()), zap.Error(locErr))
		return d.view(), notice(ErrLocation, msg, locErr)
	}
	d.coords = &fix
	d.push("success", geo.Notice(nil), now)
	return d.view(), nil
}

// startEnrichment issues both requests concurrently. Each fills its own slot;
// a result is dropped when a newer photo has been selected since.
func (s *captureService) startEnrichment(id uuid.UUID, gen uint64, photo *media.Photo) {
	run := func(slot enrichSlot, fn func(context.Context, *media.Photo) (string, error)) {
		defer s.wg.Done()
		ctx := context.Background()
		if s.enrichTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.enrichTimeout)
			defer cancel()
		}
		out, err := fn(ctx, photo)
		s.finishEnrichment(id, gen, slot, out, err)
	}

	s.wg.Add(2)
	go run(slotText, s.enrich.ExtractText)
	go run(slotDescription, s.enrich.Describe)
}

func (s *captureService) finishEnrichment(id uuid.UUID, gen uint64, slot enrichSlot, out string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok || d.generation != gen {
		return
	}
	now := s.now()
	switch slot {
	case slotText:
		d.extracting = false
		if err != nil {
			d.extractedText = ""
			d.push("error", noticeOr(err, "Failed to extract text"), now)
			break
		}
		d.extractedText = out
	case slotDescription:
		d.describing = false
		if err != nil {
			d.push("error", noticeOr(err, "Failed to generate description"), now)
			break
		}
		d.description = out
	}
	if err != nil {
		s.log.Warn("enrichment failed", zap.String("draft_id", id.String()), zap.Int("slot", int(slot)), zap.Error(err))
	}
}

func noticeOr(err error, fallback string) string {
	if msg := NoticeOf(err); msg != "" {
		return msg
	}
	return fallback
}

func (s *captureService) Update(_ context.Context, id uuid.UUID, who *model.Identity, patch CapturePatch) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(id, who)
	if err != nil {
		return nil, err
	}
	if d.submitting {
		return nil, notice(ErrBusy, "Artifact is being saved", nil)
	}
	if patch.Description != nil && d.describing {
		return nil, notice(ErrBusy, "Description is still being generated", nil)
	}
	if patch.Name != nil {
		d.name = *patch.Name
	}
	if patch.Description != nil {
		d.description = *patch.Description
	}
	if patch.ExtractedText != nil {
		d.extractedText = *patch.ExtractedText
	}
	d.touched = s.now()
	return d.view(), nil
}

func (s *captureService) Submit(ctx context.Context, id uuid.UUID, who *model.Identity) (*model.Artifact, *DraftView, error) {
	s.mu.Lock()
	d, err := s.lookup(id, who)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	switch {
	case d.photo == nil:
		s.mu.Unlock()
		return nil, d.view(), invalid("Please select a photo")
	case d.coords == nil:
		s.mu.Unlock()
		return nil, d.view(), invalid("Please capture location")
	case d.submitting:
		s.mu.Unlock()
		return nil, d.view(), notice(ErrBusy, "Artifact is being saved", nil)
	case d.locating:
		s.mu.Unlock()
		return nil, d.view(), notice(ErrBusy, "Location is still being captured", nil)
	}
	d.submitting = true
	photo := d.photo
	fix := *d.coords
	in := CreateArtifactInput{
		Name:             d.name,
		Description:      d.description,
		Latitude:         &fix.Latitude,
		Longitude:        &fix.Longitude,
		LocationAccuracy: &fix.Accuracy,
		ExtractedText:    d.extractedText,
	}
	s.mu.Unlock()

	// navigating away does not abort a save
	ctx = context.WithoutCancel(ctx)

	up, err := s.upload.Upload(ctx, photo.Filename, photo.Data)
	if err != nil {
		return nil, s.failSubmit(id, "Failed to upload photo"), notice(ErrUpstream, "Failed to upload photo", err)
	}
	in.PhotoURL = up.FileURL
	in.PhotoAsset = &up.Asset

	a, err := s.artifacts.Create(ctx, who, in)
	if err != nil {
		return nil, s.failSubmit(id, "Failed to save artifact"), notice(ErrUpstream, "Failed to save artifact", err)
	}

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()

	s.log.Info("artifact captured", zap.String("artifact_id", a.ID.String()), zap.String("id_number", a.IDNumber))
	return a, nil, nil
}

func (s *captureService) failSubmit(id uuid.UUID, msg string) *DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil
	}
	d.submitting = false
	d.touched = s.now()
	d.push("error", msg, d.touched)
	return d.view()
}

// Sweep drops drafts idle for longer than the TTL.
func (s *captureService) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for id, d := range s.drafts {
		if !d.submitting && now.Sub(d.touched) > s.ttl {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

// Run sweeps expired drafts until ctx is done, then waits for in-flight
// enrichment to finish.
func (s *captureService) Run(ctx context.Context) error {
	every := time.Minute
	if s.ttl > 0 && s.ttl/4 < every {
		every = max(s.ttl/4, time.Second)
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired capture drafts", zap.Int("count", n))
			}
		}
	}
}
