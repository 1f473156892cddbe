package service

import (
	"context"

	"github.com/sitescan/sitescan/internal/infra/blob"
	"github.com/sitescan/sitescan/internal/modules/model"
	"go.uber.org/zap"
)

const uploadPrefix = "artifacts"

// BlobStore is the part of the object store the upload path needs.
type BlobStore interface {
	UploadBytes(ctx context.Context, keyPrefix, filename string, data []byte) (*blob.UploadedMeta, error)
	URLFor(ctx context.Context, meta *blob.UploadedMeta) (string, error)
}

// UploadResult is the fetchable URL of a stored photo and its object metadata.
type UploadResult struct {
	FileURL string      `json:"file_url"`
	Asset   model.Asset `json:"-"`
}

type UploadService interface {
	Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error)
}

type uploadService struct {
	store BlobStore
	log   *zap.Logger
}

func NewUploadService(store BlobStore, log *zap.Logger) UploadService {
	return &uploadService{store: store, log: log}
}

// Upload stores the file and returns the URL it can be fetched from. Every
// failure is reported as an error; there is no partial result.
func (s *uploadService) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, invalid("Please select a photo")
	}

	meta, err := s.store.UploadBytes(ctx, uploadPrefix, filename, data)
	if err != nil {
		return nil, notice(ErrUpstream, "Failed to upload photo", err)
	}
	fileURL, err := s.store.URLFor(ctx, meta)
	if err != nil {
		return nil, notice(ErrUpstream, "Failed to upload photo", err)
	}

	s.log.Debug("file uploaded",
		zap.String("key", meta.Key),
		zap.String("mime", meta.MIME),
		zap.Int64("size_b", meta.SizeB))

	return &UploadResult{
		FileURL: fileURL,
		Asset: model.Asset{
			Bucket: meta.Bucket,
			S3Key:  meta.Key,
			ETag:   meta.ETag,
			SHA256: meta.SHA256,
			MIME:   meta.MIME,
			SizeB:  meta.SizeB,
		},
	}, nil
}
