package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/infra/httpclient"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
)

// SessionEnder ends a session at the auth provider.
type SessionEnder interface {
	Logout(ctx context.Context, token string) (*httpclient.LogoutResponse, error)
}

type ShellHandler struct {
	shell *service.ShellService
	auth  SessionEnder
}

func NewShellHandler(shell *service.ShellService, auth SessionEnder) *ShellHandler {
	return &ShellHandler{shell: shell, auth: auth}
}

// GetShell godoc
//
//	@Summary		Navigation shell
//	@Description	Brand, navigation links with the active page, theme color and shared panel endpoints
//	@Tags			shell
//	@Produce		json
//	@Param			page	query	string	false	"Current page name"	Enums(Capture, Gallery, Notes, ArtifactView)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ShellView}
//	@Router			/shell [get]
func (h *ShellHandler) GetShell(c *gin.Context) {
	c.JSON(http.StatusOK, serializer.Response{Data: h.shell.Shell(c.Query("page"))})
}

// Logout godoc
//
//	@Summary		Sign out
//	@Description	End the session at the auth provider and return where to go next
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=httpclient.LogoutResponse}
//	@Router			/auth/logout [post]
func (h *ShellHandler) Logout(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	res, err := h.auth.Logout(c.Request.Context(), who.Token)
	if err != nil {
		c.JSON(http.StatusBadGateway, serializer.UpstreamErr("Failed to sign out", err))
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: res})
}
