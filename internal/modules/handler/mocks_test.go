package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/infra/httpclient"
	"github.com/sitescan/sitescan/internal/middleware"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/geo"
	"github.com/sitescan/sitescan/internal/pkg/media"
	"github.com/sitescan/sitescan/internal/pkg/share"
	"github.com/stretchr/testify/mock"
)

var testIdentity = &model.Identity{Subject: "u1", Email: "field@example.org", Token: "tok"}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// withIdentity stands in for the auth middleware.
func withIdentity(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, testIdentity)
		h(c)
	}
}

func multipartBody(field, filename string, content []byte, fields map[string]string) (io.Reader, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, _ := writer.CreateFormFile(field, filename)
		part.Write(content)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func decodeResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	_ = sonic.Unmarshal(w.Body.Bytes(), &response)
	return response
}

// MockArtifactService is a mock implementation of ArtifactService
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

func (m *MockArtifactService) View(ctx context.Context, artifactID uuid.UUID) (*service.ArtifactView, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ArtifactView), args.Error(1)
}

func (m *MockArtifactService) Create(ctx context.Context, who *model.Identity, in service.CreateArtifactInput) (*model.Artifact, error) {
	args := m.Called(ctx, who, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Update(ctx context.Context, artifactID uuid.UUID, in service.UpdateArtifactInput) (*model.Artifact, error) {
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

func (m *MockArtifactService) QR(ctx context.Context, artifactID uuid.UUID) (*service.QRInfo, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QRInfo), args.Error(1)
}

type MockQRFetcher struct {
	mock.Mock
}

func (m *MockQRFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
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

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, filename string, data []byte) (*service.UploadResult, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
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

type MockCaptureService struct {
	mock.Mock
}

func (m *MockCaptureService) New(ctx context.Context, who *model.Identity) (*service.DraftView, error) {
	args := m.Called(ctx, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockCaptureService) Get(ctx context.Context, draftID uuid.UUID, who *model.Identity) (*service.DraftView, error) {
	args := m.Called(ctx, draftID, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockCaptureService) SelectPhoto(ctx context.Context, draftID uuid.UUID, who *model.Identity, filename string, data []byte, device geo.Provider) (*service.DraftView, error) {
	args := m.Called(ctx, draftID, who, filename, data, device)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockCaptureService) Locate(ctx context.Context, draftID uuid.UUID, who *model.Identity, device geo.Provider) (*service.DraftView, error) {
	args := m.Called(ctx, draftID, who, device)
	var v *service.DraftView
	if args.Get(0) != nil {
		v = args.Get(0).(*service.DraftView)
	}
	return v, args.Error(1)
}

func (m *MockCaptureService) Update(ctx context.Context, draftID uuid.UUID, who *model.Identity, patch service.CapturePatch) (*service.DraftView, error) {
	args := m.Called(ctx, draftID, who, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockCaptureService) Submit(ctx context.Context, draftID uuid.UUID, who *model.Identity) (*model.Artifact, *service.DraftView, error) {
	args := m.Called(ctx, draftID, who)
	var a *model.Artifact
	if args.Get(0) != nil {
		a = args.Get(0).(*model.Artifact)
	}
	var v *service.DraftView
	if args.Get(1) != nil {
		v = args.Get(1).(*service.DraftView)
	}
	return a, v, args.Error(2)
}

func (m *MockCaptureService) Run(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Open(ctx context.Context, who *model.Identity) (*service.Conversation, error) {
	args := m.Called(ctx, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Conversation), args.Error(1)
}

func (m *MockAssistantService) Get(ctx context.Context, conversationID uuid.UUID, who *model.Identity) (*service.Conversation, error) {
	args := m.Called(ctx, conversationID, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Conversation), args.Error(1)
}

func (m *MockAssistantService) Send(ctx context.Context, conversationID uuid.UUID, who *model.Identity, question string) (*service.Conversation, error) {
	args := m.Called(ctx, conversationID, who, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Conversation), args.Error(1)
}

func (m *MockAssistantService) Close(ctx context.Context, conversationID uuid.UUID, who *model.Identity) error {
	return m.Called(ctx, conversationID, who).Error(0)
}

type MockSessionEnder struct {
	mock.Mock
}

func (m *MockSessionEnder) Logout(ctx context.Context, token string) (*httpclient.LogoutResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*httpclient.LogoutResponse), args.Error(1)
}
