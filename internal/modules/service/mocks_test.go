package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/infra/blob"
	mq "github.com/sitescan/sitescan/internal/infra/queue"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/pkg/media"
	"github.com/sitescan/sitescan/internal/pkg/share"
	"github.com/stretchr/testify/mock"
)

// MockArtifactRepo is a mock implementation of ArtifactRepo
type MockArtifactRepo struct {
	mock.Mock
}

func (m *MockArtifactRepo) Create(ctx context.Context, a *model.Artifact) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArtifactRepo) List(ctx context.Context) ([]*model.Artifact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepo) Update(ctx context.Context, artifactID uuid.UUID, fields map[string]interface{}) (*model.Artifact, error) {
	args := m.Called(ctx, artifactID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepo) Delete(ctx context.Context, artifactID uuid.UUID) error {
	args := m.Called(ctx, artifactID)
	return args.Error(0)
}

type MockNoteRepo struct {
	mock.Mock
}

func (m *MockNoteRepo) Create(ctx context.Context, n *model.Note) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNoteRepo) List(ctx context.Context) ([]*model.Note, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Note), args.Error(1)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) UploadBytes(ctx context.Context, keyPrefix, filename string, data []byte) (*blob.UploadedMeta, error) {
	args := m.Called(ctx, keyPrefix, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blob.UploadedMeta), args.Error(1)
}

func (m *MockBlobStore) URLFor(ctx context.Context, meta *blob.UploadedMeta) (string, error) {
	args := m.Called(ctx, meta)
	return args.String(0), args.Error(1)
}

type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error) {
	args := m.Called(ctx, prompt, fileURLs)
	return args.String(0), args.Error(1)
}

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UploadResult), args.Error(1)
}

type MockEnrichmentService struct {
	mock.Mock
}

func (m *MockEnrichmentService) ExtractText(ctx context.Context, photo *media.Photo) (string, error) {
	args := m.Called(ctx, photo)
	return args.String(0), args.Error(1)
}

func (m *MockEnrichmentService) Describe(ctx context.Context, photo *media.Photo) (string, error) {
	args := m.Called(ctx, photo)
	return args.String(0), args.Error(1)
}

type MockArtifactService struct {
	mock.Mock
}

func (m *MockArtifactService) List(ctx context.Context, query string) ([]*model.Artifact, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Get(ctx context.Context, artifactID uuid.UUID) (*model.Artifact, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) View(ctx context.Context, artifactID uuid.UUID) (*ArtifactView, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ArtifactView), args.Error(1)
}

func (m *MockArtifactService) Create(ctx context.Context, who *model.Identity, in CreateArtifactInput) (*model.Artifact, error) {
	args := m.Called(ctx, who, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Update(ctx context.Context, artifactID uuid.UUID, in UpdateArtifactInput) (*model.Artifact, error) {
	args := m.Called(ctx, artifactID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Delete(ctx context.Context, artifactID uuid.UUID) error {
	args := m.Called(ctx, artifactID)
	return args.Error(0)
}

func (m *MockArtifactService) Share(ctx context.Context, artifactID uuid.UUID, native share.Sharer, clip share.Clipboard) (*share.Outcome, error) {
	args := m.Called(ctx, artifactID, native, clip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*share.Outcome), args.Error(1)
}

func (m *MockArtifactService) QR(ctx context.Context, artifactID uuid.UUID) (*QRInfo, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QRInfo), args.Error(1)
}

type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) List(ctx context.Context, who *model.Identity, query string, visibility model.NoteVisibility) ([]*model.Note, error) {
	args := m.Called(ctx, who, query, visibility)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Note), args.Error(1)
}

func (m *MockNoteService) Create(ctx context.Context, who *model.Identity, content string, isPrivate bool) (*model.Note, error) {
	args := m.Called(ctx, who, content, isPrivate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []mq.EntityEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, evt mq.EntityEvent) error {
	p.events = append(p.events, evt)
	return p.err
}
