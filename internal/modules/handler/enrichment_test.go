package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestEnrichmentHandler(t *testing.T) {
	content := []byte("\x89PNG\r\n\x1a\n0000")
	cfg := &config.Config{Server: config.ServerCfg{MaxUploadMB: 1}}
	isPhoto := mock.MatchedBy(func(p *media.Photo) bool {
		return p.Filename == "a.png" && p.MIME == "image/png"
	})

	tests := []struct {
		name           string
		path           string
		setup          func(*MockEnrichmentService)
		expectedStatus int
		key            string
		want           string
	}{
		{
			name: "extract text",
			path: "/enrichment/extract-text",
			setup: func(svc *MockEnrichmentService) {
				svc.On("ExtractText", mock.Anything, isPhoto).Return(service.NoVisibleText, nil)
			},
			expectedStatus: http.StatusOK,
			key:            "text",
			want:           "No visible text detected",
		},
		{
			name: "describe",
			path: "/enrichment/describe",
			setup: func(svc *MockEnrichmentService) {
				svc.On("Describe", mock.Anything, isPhoto).Return("A bronze fibula.", nil)
			},
			expectedStatus: http.StatusOK,
			key:            "description",
			want:           "A bronze fibula.",
		},
		{
			name: "describe failure",
			path: "/enrichment/describe",
			setup: func(svc *MockEnrichmentService) {
				svc.On("Describe", mock.Anything, isPhoto).
					Return("", &service.NoticeError{Kind: service.ErrUpstream, Notice: "Failed to generate description", Err: errors.New("429")})
			},
			expectedStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockEnrichmentService{}
			tt.setup(mockService)
			handler := NewEnrichmentHandler(mockService, cfg)

			router := setupRouter()
			router.POST("/enrichment/extract-text", handler.ExtractText)
			router.POST("/enrichment/describe", handler.Describe)

			body, contentType := multipartBody("file", "a.png", content, nil)
			req := httptest.NewRequest("POST", tt.path, body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.key != "" {
				data := decodeResponse(w)["data"].(map[string]interface{})
				assert.Equal(t, tt.want, data[tt.key])
			}
			mockService.AssertExpectations(t)
		})
	}
}
