package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/share"
)

// QRFetcher downloads a rendered QR image.
type QRFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, string, error)
}

type ArtifactHandler struct {
	svc service.ArtifactService
	qr  QRFetcher
}

func NewArtifactHandler(s service.ArtifactService, qr QRFetcher) *ArtifactHandler {
	return &ArtifactHandler{svc: s, qr: qr}
}

type ListArtifactsResp struct {
	Artifacts    []*model.Artifact `json:"artifacts"`
	EmptyMessage string            `json:"empty_message,omitempty"`
}

// ListArtifacts godoc
//
//	@Summary		List artifacts
//	@Description	List artifacts newest first, optionally filtered by a case-insensitive match on name or description
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			q	query	string	false	"Search text"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListArtifactsResp}
//	@Router			/artifact [get]
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	q := c.Query("q")
	artifacts, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		writeErr(c, err)
		return
	}

	resp := ListArtifactsResp{Artifacts: artifacts}
	if len(artifacts) == 0 {
		resp.Artifacts = []*model.Artifact{}
		resp.EmptyMessage = service.EmptyArtifactsMessage(q)
	}
	c.JSON(http.StatusOK, serializer.Response{Data: resp})
}

// GetArtifact godoc
//
//	@Summary		Get artifact
//	@Description	Get an artifact with its display values, map links and QR image URL
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			artifact_id	path	string	true	"Artifact ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ArtifactView}
//	@Router			/artifact/{artifact_id} [get]
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}

	view, err := h.svc.View(c.Request.Context(), artifactID)
	if err != nil {
		if service.NoticeOf(err) == "" && isNotFound(err) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("Artifact not found", err))
			return
		}
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: view})
}

type CreateArtifactReq struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	PhotoURL         string   `json:"photo_url"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	LocationAccuracy *float64 `json:"location_accuracy"`
	Color            string   `json:"color"`
	ExtractedText    string   `json:"extracted_text"`
}

// CreateArtifact godoc
//
//	@Summary		Create artifact
//	@Description	Create an artifact from an uploaded photo URL and a location fix
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateArtifactReq	true	"Artifact fields"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Artifact}
//	@Router			/artifact [post]
func (h *ArtifactHandler) CreateArtifact(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	req := CreateArtifactReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	artifact, err := h.svc.Create(c.Request.Context(), who, service.CreateArtifactInput{
		Name:             req.Name,
		Description:      req.Description,
		PhotoURL:         req.PhotoURL,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		LocationAccuracy: req.LocationAccuracy,
		Color:            req.Color,
		ExtractedText:    req.ExtractedText,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Msg: "Artifact saved successfully!", Data: artifact})
}

// UpdateArtifact godoc
//
//	@Summary		Update artifact
//	@Description	Edit name, description, extracted text or color
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			artifact_id	path	string						true	"Artifact ID"	Format(uuid)
//	@Param			payload		body	service.UpdateArtifactInput	true	"Fields to change"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Artifact}
//	@Router			/artifact/{artifact_id} [patch]
func (h *ArtifactHandler) UpdateArtifact(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}
	req := service.UpdateArtifactInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	artifact, err := h.svc.Update(c.Request.Context(), artifactID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: artifact})
}

// DeleteArtifact godoc
//
//	@Summary		Delete artifact
//	@Description	Delete an artifact. The request must carry confirm=true; deleting twice succeeds.
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			artifact_id	path	string	true	"Artifact ID"	Format(uuid)
//	@Param			confirm		query	boolean	true	"Explicit confirmation"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/artifact/{artifact_id} [delete]
func (h *ArtifactHandler) DeleteArtifact(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("deletion must be confirmed", nil))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), artifactID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type ShareArtifactReq struct {
	// Native is the device share sheet result: shared, canceled or failed.
	// Empty means the device has no share capability.
	Native string `json:"native" binding:"omitempty,oneof=shared canceled failed"`
}

// ShareArtifact godoc
//
//	@Summary		Share artifact
//	@Description	Resolve the share payload and outcome. Without a native share capability the page URL is returned for the clipboard.
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			artifact_id	path	string						true	"Artifact ID"	Format(uuid)
//	@Param			payload		body	handler.ShareArtifactReq	false	"Device share result"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=share.Outcome}
//	@Router			/artifact/{artifact_id}/share [post]
func (h *ArtifactHandler) ShareArtifact(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}
	req := ShareArtifactReq{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
	}

	var native share.Sharer
	if req.Native != "" {
		native = share.Reported{Result: req.Native}
	}
	out, err := h.svc.Share(c.Request.Context(), artifactID, native, &share.Recorder{})
	if err != nil {
		writeErrData(c, err, out)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: out.Notice, Data: out})
}

// GetArtifactQR godoc
//
//	@Summary		Artifact QR code
//	@Description	QR image URL encoding the artifact page, and the download file name
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			artifact_id	path	string	true	"Artifact ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.QRInfo}
//	@Router			/artifact/{artifact_id}/qr [get]
func (h *ArtifactHandler) GetArtifactQR(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}
	info, err := h.svc.QR(c.Request.Context(), artifactID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: info})
}

// DownloadArtifactQR godoc
//
//	@Summary		Download artifact QR code
//	@Description	The QR image as an attachment
//	@Tags			artifact
//	@Produce		png
//	@Param			artifact_id	path	string	true	"Artifact ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{file}	binary
//	@Router			/artifact/{artifact_id}/qr/download [get]
func (h *ArtifactHandler) DownloadArtifactQR(c *gin.Context) {
	artifactID, ok := pathUUID(c, "artifact_id")
	if !ok {
		return
	}
	info, err := h.svc.QR(c.Request.Context(), artifactID)
	if err != nil {
		writeErr(c, err)
		return
	}
	data, contentType, err := h.qr.Fetch(c.Request.Context(), info.ImageURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, serializer.UpstreamErr("Failed to download QR code", err))
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Filename}))
	c.Data(http.StatusOK, contentType, data)
}
