package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/geo"
)

type CaptureHandler struct {
	svc      service.CaptureService
	maxBytes int64
}

func NewCaptureHandler(s service.CaptureService, cfg *config.Config) *CaptureHandler {
	return &CaptureHandler{svc: s, maxBytes: megabytes(cfg.Server.MaxUploadMB)}
}

// DeviceFix is what the device's positioning capability produced. No fields
// at all means the device has no such capability.
type DeviceFix struct {
	Latitude  *float64 `form:"latitude" json:"latitude"`
	Longitude *float64 `form:"longitude" json:"longitude"`
	Accuracy  *float64 `form:"accuracy" json:"accuracy"`
	ErrorCode string   `form:"error_code" json:"error_code"`
}

func (f DeviceFix) provider() geo.Provider {
	switch {
	case f.ErrorCode != "":
		return geo.Reported{ErrorCode: f.ErrorCode}
	case f.Latitude != nil && f.Longitude != nil:
		fix := &geo.Coordinates{Latitude: *f.Latitude, Longitude: *f.Longitude}
		if f.Accuracy != nil {
			fix.Accuracy = *f.Accuracy
		}
		return geo.Reported{Fix: fix}
	case f.Latitude != nil || f.Longitude != nil:
		return geo.Reported{}
	default:
		return nil
	}
}

// NewDraft godoc
//
//	@Summary		Start capture
//	@Description	Open an empty capture form
//	@Tags			capture
//	@Produce		json
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture [post]
func (h *CaptureHandler) NewDraft(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	view, err := h.svc.New(c.Request.Context(), who)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: view})
}

// GetDraft godoc
//
//	@Summary		Get capture form
//	@Description	Current state of a capture form, including enrichment progress
//	@Tags			capture
//	@Produce		json
//	@Param			draft_id	path	string	true	"Draft ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture/{draft_id} [get]
func (h *CaptureHandler) GetDraft(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	draftID, ok := pathUUID(c, "draft_id")
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), draftID, who)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: view})
}

// SelectPhoto godoc
//
//	@Summary		Select photo
//	@Description	Replace the photo, record the device position fix and start text extraction and description in parallel
//	@Tags			capture
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			draft_id	path		string	true	"Draft ID"	Format(uuid)
//	@Param			photo		formData	file	true	"Artifact photo"
//	@Param			latitude	formData	number	false	"Device latitude"
//	@Param			longitude	formData	number	false	"Device longitude"
//	@Param			accuracy	formData	number	false	"Accuracy radius in meters"
//	@Param			error_code	formData	string	false	"Device positioning error"	Enums(permission_denied, position_unavailable, timeout, unsupported)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture/{draft_id}/photo [put]
func (h *CaptureHandler) SelectPhoto(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	draftID, ok := pathUUID(c, "draft_id")
	if !ok {
		return
	}
	fix := DeviceFix{}
	if err := c.ShouldBind(&fix); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	name, data, err := readUpload(c, "photo", h.maxBytes)
	if err != nil {
		writeUploadErr(c, "photo", err)
		return
	}

	view, err := h.svc.SelectPhoto(c.Request.Context(), draftID, who, name, data, fix.provider())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: view})
}

// Locate godoc
//
//	@Summary		Capture location
//	@Description	Retry the position fix with what the device reports
//	@Tags			capture
//	@Accept			json
//	@Produce		json
//	@Param			draft_id	path	string				true	"Draft ID"	Format(uuid)
//	@Param			payload		body	handler.DeviceFix	false	"Device fix"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.DraftView}
//	@Failure		422	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture/{draft_id}/location [post]
func (h *CaptureHandler) Locate(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	draftID, ok := pathUUID(c, "draft_id")
	if !ok {
		return
	}
	fix := DeviceFix{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&fix); err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
	}

	view, err := h.svc.Locate(c.Request.Context(), draftID, who, fix.provider())
	if err != nil {
		writeErrData(c, err, view)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: geo.Notice(nil), Data: view})
}

// UpdateDraft godoc
//
//	@Summary		Edit capture form
//	@Description	Change name, description or extracted text. The description is locked while it is being generated.
//	@Tags			capture
//	@Accept			json
//	@Produce		json
//	@Param			draft_id	path	string					true	"Draft ID"	Format(uuid)
//	@Param			payload		body	service.CapturePatch	true	"Fields to change"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture/{draft_id} [patch]
func (h *CaptureHandler) UpdateDraft(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	draftID, ok := pathUUID(c, "draft_id")
	if !ok {
		return
	}
	patch := service.CapturePatch{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	view, err := h.svc.Update(c.Request.Context(), draftID, who, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: view})
}

// SubmitDraft godoc
//
//	@Summary		Save artifact
//	@Description	Upload the photo, then create the artifact. On failure the form is returned unchanged for a retry.
//	@Tags			capture
//	@Produce		json
//	@Param			draft_id	path	string	true	"Draft ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Artifact}
//	@Failure		502	{object}	serializer.Response{data=service.DraftView}
//	@Router			/capture/{draft_id}/submit [post]
func (h *CaptureHandler) SubmitDraft(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	draftID, ok := pathUUID(c, "draft_id")
	if !ok {
		return
	}

	artifact, view, err := h.svc.Submit(c.Request.Context(), draftID, who)
	if err != nil {
		writeErrData(c, err, view)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Msg: "Artifact saved successfully!", Data: artifact})
}
