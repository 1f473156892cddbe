package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type captureFixture struct {
	svc       *captureService
	upload    *MockUploadService
	enrich    *MockEnrichmentService
	artifacts *MockArtifactService
	who       *model.Identity
}

func newCaptureFixture(t *testing.T) *captureFixture {
	t.Helper()
	cfg := &config.Config{Capture: config.CaptureCfg{
		LocationTimeout: time.Second,
		DraftTTL:        time.Hour,
		EnrichTimeout:   time.Second,
	}}
	f := &captureFixture{
		upload:    &MockUploadService{},
		enrich:    &MockEnrichmentService{},
		artifacts: &MockArtifactService{},
		who:       &model.Identity{Subject: "u1", Email: "field@example.org"},
	}
	f.svc = NewCaptureService(f.upload, f.enrich, f.artifacts, cfg, zap.NewNop()).(*captureService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func fixAt(lat, lon, acc float64) geo.Provider {
	return geo.Reported{Fix: &geo.Coordinates{Latitude: lat, Longitude: lon, Accuracy: acc}}
}

func (f *captureFixture) selectPhoto(t *testing.T, device geo.Provider) *DraftView {
	t.Helper()
	ctx := context.Background()
	d, err := f.svc.New(ctx, f.who)
	require.NoError(t, err)
	v, err := f.svc.SelectPhoto(ctx, d.ID, f.who, "shard.jpg", jpegBytes, device)
	require.NoError(t, err)
	f.svc.wg.Wait()
	return v
}

func TestCaptureService_SelectPhoto(t *testing.T) {
	f := newCaptureFixture(t)
	f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("IMP CAES", nil)
	f.enrich.On("Describe", mock.Anything, mock.Anything).Return("A bronze fibula.", nil)

	v := f.selectPhoto(t, fixAt(40, -75, 5))
	assert.Equal(t, "shard.jpg", v.PhotoFilename)
	assert.Contains(t, v.PhotoPreview, "data:image/jpeg;base64,")
	require.NotNil(t, v.Coordinates)
	assert.Equal(t, 40.0, v.Coordinates.Latitude)
	assert.True(t, v.CanSubmit)

	got, err := f.svc.Get(context.Background(), v.ID, f.who)
	require.NoError(t, err)
	assert.Equal(t, "IMP CAES", got.ExtractedText)
	assert.Equal(t, "A bronze fibula.", got.Description)
	assert.False(t, got.ExtractingText)
	assert.False(t, got.GeneratingDescription)
	require.NotEmpty(t, got.Notices)
	assert.Equal(t, "Location captured", got.Notices[0].Message)
	f.enrich.AssertExpectations(t)
}

func TestCaptureService_SelectPhoto_NoGeolocation(t *testing.T) {
	f := newCaptureFixture(t)
	f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return(NoVisibleText, nil)
	f.enrich.On("Describe", mock.Anything, mock.Anything).Return("", errors.New("model down"))

	v := f.selectPhoto(t, nil)
	assert.Nil(t, v.Coordinates)
	assert.False(t, v.CanSubmit)

	got, err := f.svc.Get(context.Background(), v.ID, f.who)
	require.NoError(t, err)
	assert.Equal(t, NoVisibleText, got.ExtractedText)
	assert.Empty(t, got.Description)

	var msgs []string
	for _, n := range got.Notices {
		msgs = append(msgs, n.Message)
	}
	assert.Contains(t, msgs, "Geolocation is not supported by your browser")
	assert.Contains(t, msgs, "Failed to generate description")
}

func TestCaptureService_SelectPhoto_Empty(t *testing.T) {
	f := newCaptureFixture(t)
	d, _ := f.svc.New(context.Background(), f.who)
	_, err := f.svc.SelectPhoto(context.Background(), d.ID, f.who, "x.jpg", nil, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "Please select a photo", NoticeOf(err))
}

func TestCaptureService_StaleEnrichmentDropped(t *testing.T) {
	f := newCaptureFixture(t)
	f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("second photo", nil)
	f.enrich.On("Describe", mock.Anything, mock.Anything).Return("second", nil)

	v := f.selectPhoto(t, fixAt(1, 1, 1))

	// a result for the first generation arriving late
	f.svc.finishEnrichment(v.ID, 0, slotText, "first photo", nil)
	f.svc.finishEnrichment(v.ID, 0, slotDescription, "", errors.New("late failure"))

	got, err := f.svc.Get(context.Background(), v.ID, f.who)
	require.NoError(t, err)
	assert.Equal(t, "second photo", got.ExtractedText)
	assert.Equal(t, "second", got.Description)
	for _, n := range got.Notices {
		assert.NotEqual(t, "error", n.Level)
	}
}

func TestCaptureService_Locate(t *testing.T) {
	f := newCaptureFixture(t)
	d, _ := f.svc.New(context.Background(), f.who)

	v, err := f.svc.Locate(context.Background(), d.ID, f.who, geo.Reported{ErrorCode: geo.CodePermissionDenied})
	assert.ErrorIs(t, err, ErrLocation)
	assert.Equal(t, "Unable to get location. Please enable location services.", NoticeOf(err))
	require.NotNil(t, v)
	assert.Nil(t, v.Coordinates)
	assert.False(t, v.Locating)

	v, err = f.svc.Locate(context.Background(), d.ID, f.who, fixAt(40.5, -75.25, 3))
	require.NoError(t, err)
	require.NotNil(t, v.Coordinates)
	assert.Equal(t, -75.25, v.Coordinates.Longitude)
	assert.False(t, v.CanSubmit, "no photo yet")
}

func TestCaptureService_Update(t *testing.T) {
	f := newCaptureFixture(t)
	d, _ := f.svc.New(context.Background(), f.who)

	v, err := f.svc.Update(context.Background(), d.ID, f.who, CapturePatch{Name: stringPtr("Fibula"), ExtractedText: stringPtr("IMP")})
	require.NoError(t, err)
	assert.Equal(t, "Fibula", v.Name)
	assert.Equal(t, "IMP", v.ExtractedText)

	f.svc.mu.Lock()
	f.svc.drafts[d.ID].describing = true
	f.svc.mu.Unlock()

	_, err = f.svc.Update(context.Background(), d.ID, f.who, CapturePatch{Description: stringPtr("mine")})
	assert.ErrorIs(t, err, ErrBusy)

	_, err = f.svc.Update(context.Background(), d.ID, &model.Identity{Email: "other@example.org"}, CapturePatch{Name: stringPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaptureService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("requires photo", func(t *testing.T) {
		f := newCaptureFixture(t)
		d, _ := f.svc.New(ctx, f.who)
		_, v, err := f.svc.Submit(ctx, d.ID, f.who)
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Equal(t, "Please select a photo", NoticeOf(err))
		assert.NotNil(t, v)
	})

	t.Run("requires location", func(t *testing.T) {
		f := newCaptureFixture(t)
		f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("", nil)
		f.enrich.On("Describe", mock.Anything, mock.Anything).Return("", nil)
		v := f.selectPhoto(t, nil)

		_, _, err := f.svc.Submit(ctx, v.ID, f.who)
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Equal(t, "Please capture location", NoticeOf(err))
	})

	t.Run("uploads then creates and discards the draft", func(t *testing.T) {
		f := newCaptureFixture(t)
		f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("IMP", nil)
		f.enrich.On("Describe", mock.Anything, mock.Anything).Return("A coin.", nil)
		v := f.selectPhoto(t, fixAt(40, -75, 5))
		_, err := f.svc.Update(ctx, v.ID, f.who, CapturePatch{Name: stringPtr("Denarius")})
		require.NoError(t, err)

		f.upload.On("Upload", mock.Anything, "shard.jpg", jpegBytes).
			Return(&UploadResult{FileURL: "https://cdn.example/a.jpg", Asset: model.Asset{S3Key: "artifacts/2025/03/a.jpg"}}, nil)
		created := &model.Artifact{ID: uuid.New(), IDNumber: "ART-1741944413589-0001", Name: "Denarius"}
		f.artifacts.On("Create", mock.Anything, f.who, mock.MatchedBy(func(in CreateArtifactInput) bool {
			return in.Name == "Denarius" &&
				in.Description == "A coin." &&
				in.ExtractedText == "IMP" &&
				in.PhotoURL == "https://cdn.example/a.jpg" &&
				in.PhotoAsset != nil && in.PhotoAsset.S3Key == "artifacts/2025/03/a.jpg" &&
				*in.Latitude == 40 && *in.Longitude == -75 && *in.LocationAccuracy == 5
		})).Return(created, nil)

		a, dv, err := f.svc.Submit(ctx, v.ID, f.who)
		require.NoError(t, err)
		assert.Nil(t, dv)
		assert.Equal(t, created, a)

		_, err = f.svc.Get(ctx, v.ID, f.who)
		assert.ErrorIs(t, err, ErrNotFound)
		f.upload.AssertExpectations(t)
		f.artifacts.AssertExpectations(t)
	})

	t.Run("failure keeps every field", func(t *testing.T) {
		f := newCaptureFixture(t)
		f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("IMP", nil)
		f.enrich.On("Describe", mock.Anything, mock.Anything).Return("A coin.", nil)
		v := f.selectPhoto(t, fixAt(40, -75, 5))

		f.upload.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(&UploadResult{FileURL: "u"}, nil)
		f.artifacts.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		a, dv, err := f.svc.Submit(ctx, v.ID, f.who)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Equal(t, "Failed to save artifact", NoticeOf(err))
		require.NotNil(t, dv)
		assert.Equal(t, "A coin.", dv.Description)
		assert.Equal(t, "IMP", dv.ExtractedText)
		assert.NotNil(t, dv.Coordinates)
		assert.False(t, dv.Submitting)
		assert.True(t, dv.CanSubmit)
	})

	t.Run("upload failure", func(t *testing.T) {
		f := newCaptureFixture(t)
		f.enrich.On("ExtractText", mock.Anything, mock.Anything).Return("", nil)
		f.enrich.On("Describe", mock.Anything, mock.Anything).Return("", nil)
		v := f.selectPhoto(t, fixAt(40, -75, 5))
		f.upload.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("s3"))

		_, dv, err := f.svc.Submit(ctx, v.ID, f.who)
		assert.Equal(t, "Failed to upload photo", NoticeOf(err))
		require.NotNil(t, dv)
		f.artifacts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCaptureService_Sweep(t *testing.T) {
	f := newCaptureFixture(t)
	d, _ := f.svc.New(context.Background(), f.who)

	assert.Equal(t, 0, f.svc.Sweep())

	f.svc.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	assert.Equal(t, 1, f.svc.Sweep())
	_, err := f.svc.Get(context.Background(), d.ID, f.who)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaptureService_RunStops(t *testing.T) {
	f := newCaptureFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
