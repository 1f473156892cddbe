package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
)

type AssistantHandler struct {
	svc service.AssistantService
}

func NewAssistantHandler(s service.AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: s}
}

// OpenConversation godoc
//
//	@Summary		Open assistant conversation
//	@Tags			assistant
//	@Produce		json
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=service.Conversation}
//	@Router			/assistant/conversations [post]
func (h *AssistantHandler) OpenConversation(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	conv, err := h.svc.Open(c.Request.Context(), who)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: conv})
}

// GetConversation godoc
//
//	@Summary		Get assistant conversation
//	@Tags			assistant
//	@Produce		json
//	@Param			conversation_id	path	string	true	"Conversation ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.Conversation}
//	@Router			/assistant/conversations/{conversation_id} [get]
func (h *AssistantHandler) GetConversation(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "conversation_id")
	if !ok {
		return
	}
	conv, err := h.svc.Get(c.Request.Context(), convID, who)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: conv})
}

type SendMessageReq struct {
	Content string `json:"content"`
}

// SendMessage godoc
//
//	@Summary		Ask the assistant
//	@Description	Answer a question about every artifact and note. Only one question may be pending per conversation.
//	@Tags			assistant
//	@Accept			json
//	@Produce		json
//	@Param			conversation_id	path	string					true	"Conversation ID"	Format(uuid)
//	@Param			payload			body	handler.SendMessageReq	true	"Question"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.Conversation}
//	@Failure		409	{object}	serializer.Response{}
//	@Router			/assistant/conversations/{conversation_id}/messages [post]
func (h *AssistantHandler) SendMessage(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "conversation_id")
	if !ok {
		return
	}
	req := SendMessageReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	conv, err := h.svc.Send(c.Request.Context(), convID, who, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: conv})
}

// CloseConversation godoc
//
//	@Summary		Close assistant conversation
//	@Description	Discard every turn of the conversation
//	@Tags			assistant
//	@Produce		json
//	@Param			conversation_id	path	string	true	"Conversation ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/assistant/conversations/{conversation_id} [delete]
func (h *AssistantHandler) CloseConversation(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "conversation_id")
	if !ok {
		return
	}
	if err := h.svc.Close(c.Request.Context(), convID, who); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}
