package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/pkg/utils/path"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

var ErrEmptyFile = errors.New("file is empty")

type S3Deps struct {
	Client        *s3.Client
	Uploader      *manager.Uploader
	Presigner     *s3.PresignClient
	Bucket        string
	PublicBaseURL string
	PresignExpire time.Duration
}

// UploadedMeta describes an object after a successful upload.
type UploadedMeta struct {
	Bucket string
	Key    string
	ETag   string
	SHA256 string
	MIME   string
	SizeB  int64
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3Deps, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	acfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&acfg.APIOptions)

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	return &S3Deps{
		Client:        client,
		Uploader:      manager.NewUploader(client),
		Presigner:     s3.NewPresignClient(client),
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: strings.TrimRight(cfg.S3.PublicBaseURL, "/"),
		PresignExpire: cfg.S3.PresignExpire,
	}, nil
}

// UploadBytes stores data at "<keyPrefix>/<yyyy>/<mm>/<uuid><ext>". The content
// type is sniffed; the extension comes from the sniffed type and falls back to
// the client filename.
func (u *S3Deps) UploadBytes(ctx context.Context, keyPrefix, filename string, data []byte) (*UploadedMeta, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mt := mimetype.Detect(data)
	ext := mt.Extension()
	if ext == "" || ext == ".txt" {
		ext = filepath.Ext(path.SanitizeFilename(filename))
	}

	key, err := path.ObjectKey(keyPrefix, time.Now(), uuid.New(), ext)
	if err != nil {
		return nil, fmt.Errorf("build object key: %w", err)
	}

	sum := sha256.Sum256(data)
	out, err := u.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadedMeta{
		Bucket: u.Bucket,
		Key:    key,
		ETag:   strings.Trim(aws.ToString(out.ETag), `"`),
		SHA256: hex.EncodeToString(sum[:]),
		MIME:   mt.String(),
		SizeB:  int64(len(data)),
	}, nil
}

func (u *S3Deps) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	if expire <= 0 {
		expire = u.PresignExpire
	}
	req, err := u.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// URLFor returns the address clients use to fetch an uploaded object.
func (u *S3Deps) URLFor(ctx context.Context, meta *UploadedMeta) (string, error) {
	return u.ObjectURL(ctx, meta.Key)
}

// ObjectURL is the public base URL joined with key when one is configured, a
// presigned GET otherwise. Presigned URLs expire, so callers derive them per
// read rather than storing them.
func (u *S3Deps) ObjectURL(ctx context.Context, key string) (string, error) {
	if u.PublicBaseURL != "" {
		return PublicURL(u.PublicBaseURL, key), nil
	}
	return u.PresignGet(ctx, key, 0)
}

func PublicURL(base, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}
