package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/middleware"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
)

var errFileTooLarge = errors.New("file too large")

// errorResponse classifies err into a status code and envelope. The user
// facing notice carried by err becomes msg.
func errorResponse(err error) (int, serializer.Response) {
	msg := service.NoticeOf(err)
	switch {
	case errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest, serializer.ParamErr(msg, err)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, serializer.NotFoundErr(msg, err)
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, serializer.ConflictErr(msg, err)
	case errors.Is(err, service.ErrLocation):
		return http.StatusUnprocessableEntity, serializer.Err(http.StatusUnprocessableEntity, msg, err)
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, serializer.UpstreamErr(msg, err)
	default:
		return http.StatusInternalServerError, serializer.DBErr(msg, err)
	}
}

func writeErr(c *gin.Context, err error) {
	writeErrData(c, err, nil)
}

// writeErrData is writeErr with the current state attached, so the client can
// keep rendering it.
func writeErrData(c *gin.Context, err error, data any) {
	status, res := errorResponse(err)
	res.Data = data
	_ = c.Error(err)
	c.JSON(status, res)
}

func identity(c *gin.Context) (*model.Identity, bool) {
	v, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return nil, false
	}
	who, ok := v.(*model.Identity)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return nil, false
	}
	return who, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return uuid.Nil, false
	}
	return id, true
}

// readUpload reads a multipart file field, refusing anything over maxBytes.
func readUpload(c *gin.Context, field string, maxBytes int64) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	return readFileHeader(fh, maxBytes)
}

func readFileHeader(fh *multipart.FileHeader, maxBytes int64) (string, []byte, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", nil, errFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	r := io.Reader(f)
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", nil, errFileTooLarge
	}
	return fh.Filename, data, nil
}

func writeUploadErr(c *gin.Context, field string, err error) {
	if errors.Is(err, errFileTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, serializer.Err(http.StatusRequestEntityTooLarge, "file too large", err))
		return
	}
	c.JSON(http.StatusBadRequest, serializer.ParamErr(field+" is required", err))
}

func megabytes(mb int64) int64 { return mb << 20 }

func isNotFound(err error) bool { return errors.Is(err, service.ErrNotFound) }
