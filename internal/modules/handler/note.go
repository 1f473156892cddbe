package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	"github.com/sitescan/sitescan/internal/modules/service"
)

type NoteHandler struct {
	svc service.NoteService
}

func NewNoteHandler(s service.NoteService) *NoteHandler {
	return &NoteHandler{svc: s}
}

type NoteItem struct {
	*model.Note
	CreatedLabel string `json:"created_label"`
	Author       string `json:"author"`
}

type ListNotesResp struct {
	Notes        []NoteItem `json:"notes"`
	EmptyMessage string     `json:"empty_message,omitempty"`
}

func noteItem(n *model.Note) NoteItem {
	author := n.CreatedBy
	if author == "" {
		author = "Unknown"
	}
	return NoteItem{Note: n, CreatedLabel: n.CreatedDate.Format(service.NoteDateLayout), Author: author}
}

// ListNotes godoc
//
//	@Summary		List notes
//	@Description	List notes newest first, filtered by content and visibility
//	@Tags			note
//	@Accept			json
//	@Produce		json
//	@Param			q			query	string	false	"Search text"
//	@Param			visibility	query	string	false	"all, private or public"	Enums(all, private, public)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListNotesResp}
//	@Router			/note [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	q := c.Query("q")
	visibility := model.NoteVisibility(c.DefaultQuery("visibility", string(model.NoteVisibilityAll)))

	notes, err := h.svc.List(c.Request.Context(), who, q, visibility)
	if err != nil {
		writeErr(c, err)
		return
	}

	resp := ListNotesResp{Notes: make([]NoteItem, 0, len(notes))}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, noteItem(n))
	}
	if len(notes) == 0 {
		resp.EmptyMessage = service.EmptyNotesMessage(q, visibility)
	}
	c.JSON(http.StatusOK, serializer.Response{Data: resp})
}

type CreateNoteReq struct {
	Content   string `json:"content"`
	IsPrivate bool   `json:"is_private"`
}

// CreateNote godoc
//
//	@Summary		Create note
//	@Description	Save a quick note. Whitespace-only content is rejected.
//	@Tags			note
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateNoteReq	true	"Note"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=handler.NoteItem}
//	@Router			/note [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	req := CreateNoteReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	n, err := h.svc.Create(c.Request.Context(), who, req.Content, req.IsPrivate)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Msg: "Note saved", Data: noteItem(n)})
}
