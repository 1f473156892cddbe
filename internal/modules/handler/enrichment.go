package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/media"
)

type EnrichmentHandler struct {
	svc      service.EnrichmentService
	maxBytes int64
}

func NewEnrichmentHandler(s service.EnrichmentService, cfg *config.Config) *EnrichmentHandler {
	return &EnrichmentHandler{svc: s, maxBytes: megabytes(cfg.Server.MaxUploadMB)}
}

type ExtractTextResp struct {
	Text string `json:"text"`
}

type DescribeResp struct {
	Description string `json:"description"`
}

func (h *EnrichmentHandler) photo(c *gin.Context) (*media.Photo, bool) {
	name, data, err := readUpload(c, "file", h.maxBytes)
	if err != nil {
		writeUploadErr(c, "file", err)
		return nil, false
	}
	return media.NewPhoto(name, data), true
}

// ExtractText godoc
//
//	@Summary		Extract text from photo
//	@Description	Report visible text, symbols or markings on an artifact photo
//	@Tags			enrichment
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Artifact photo"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ExtractTextResp}
//	@Router			/enrichment/extract-text [post]
func (h *EnrichmentHandler) ExtractText(c *gin.Context) {
	photo, ok := h.photo(c)
	if !ok {
		return
	}
	text, err := h.svc.ExtractText(c.Request.Context(), photo)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: ExtractTextResp{Text: text}})
}

// Describe godoc
//
//	@Summary		Describe photo
//	@Description	Generate a short archaeological description of an artifact photo
//	@Tags			enrichment
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Artifact photo"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.DescribeResp}
//	@Router			/enrichment/describe [post]
func (h *EnrichmentHandler) Describe(c *gin.Context) {
	photo, ok := h.photo(c)
	if !ok {
		return
	}
	desc, err := h.svc.Describe(c.Request.Context(), photo)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: DescribeResp{Description: desc}})
}
