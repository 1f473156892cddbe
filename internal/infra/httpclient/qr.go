package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxQRImageBytes = 2 << 20

var ErrQRImageTooLarge = errors.New("qr image exceeds size limit")

// QRClient downloads rendered QR images.
type QRClient struct {
	http     *http.Client
	maxBytes int64
}

func NewQRClient() *QRClient {
	return &QRClient{http: &http.Client{Timeout: 15 * time.Second}, maxBytes: maxQRImageBytes}
}

// Fetch returns the image bytes and content type served at imageURL.
func (c *QRClient) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build qr request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch qr image: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch qr image: unexpected status %d", res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read qr image: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, "", fmt.Errorf("read qr image: %w (%d bytes)", ErrQRImageTooLarge, c.maxBytes)
	}
	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/png"
	}
	return data, ct, nil
}
