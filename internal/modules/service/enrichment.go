package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sitescan/sitescan/internal/infra/llm"
	"github.com/sitescan/sitescan/internal/pkg/media"
	"go.uber.org/zap"
)

const NoVisibleText = "No visible text detected"

type EnrichmentService interface {
	// ExtractText uploads its own copy of the photo and asks for any visible
	// text or markings on it.
	ExtractText(ctx context.Context, photo *media.Photo) (string, error)
	// Describe uploads its own copy of the photo and asks for a short
	// archaeological description.
	Describe(ctx context.Context, photo *media.Photo) (string, error)
}

type enrichmentService struct {
	upload  UploadService
	llm     llm.Invoker
	prompts *llm.Prompts
	log     *zap.Logger
}

func NewEnrichmentService(upload UploadService, inv llm.Invoker, prompts *llm.Prompts, log *zap.Logger) EnrichmentService {
	return &enrichmentService{upload: upload, llm: inv, prompts: prompts, log: log}
}

// stage uploads photo so the inference service can fetch it by URL. Storage
// failures carry failMsg, the notice of the step that needed the upload.
func (s *enrichmentService) stage(ctx context.Context, photo *media.Photo, failMsg string) (*UploadResult, error) {
	if !photo.IsImage() {
		s.log.Warn("enriching a non-image upload", zap.String("filename", photo.Filename), zap.String("mime", photo.MIME))
	}
	up, err := s.upload.Upload(ctx, photo.Filename, photo.Data)
	if errors.Is(err, ErrInvalid) {
		return nil, err
	}
	if err != nil {
		return nil, notice(ErrUpstream, failMsg, err)
	}
	return up, nil
}

func (s *enrichmentService) ExtractText(ctx context.Context, photo *media.Photo) (string, error) {
	up, err := s.stage(ctx, photo, "Failed to extract text")
	if err != nil {
		return "", err
	}
	out, err := s.llm.Invoke(ctx, s.prompts.ExtractText, up.FileURL)
	if errors.Is(err, llm.ErrEmptyResponse) {
		return NoVisibleText, nil
	}
	if err != nil {
		return "", notice(ErrUpstream, "Failed to extract text", err)
	}
	if out = strings.TrimSpace(out); out == "" {
		return NoVisibleText, nil
	}
	return out, nil
}

func (s *enrichmentService) Describe(ctx context.Context, photo *media.Photo) (string, error) {
	up, err := s.stage(ctx, photo, "Failed to generate description")
	if err != nil {
		return "", err
	}
	out, err := s.llm.Invoke(ctx, s.prompts.Describe, up.FileURL)
	if err != nil {
		return "", notice(ErrUpstream, "Failed to generate description", err)
	}
	return strings.TrimSpace(out), nil
}
