package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
)

type UploadHandler struct {
	svc      service.UploadService
	maxBytes int64
}

func NewUploadHandler(s service.UploadService, cfg *config.Config) *UploadHandler {
	return &UploadHandler{svc: s, maxBytes: megabytes(cfg.Server.MaxUploadMB)}
}

// UploadFile godoc
//
//	@Summary		Upload file
//	@Description	Store a file and return the URL it can be fetched from
//	@Tags			integrations
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=service.UploadResult}
//	@Router			/integrations/upload [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	name, data, err := readUpload(c, "file", h.maxBytes)
	if err != nil {
		writeUploadErr(c, "file", err)
		return
	}

	res, err := h.svc.Upload(c.Request.Context(), name, data)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: res})
}
