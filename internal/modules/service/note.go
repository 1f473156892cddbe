package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/infra/cache"
	mq "github.com/sitescan/sitescan/internal/infra/queue"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/repo"
	"go.uber.org/zap"
)

const NoteDateLayout = "Jan 2, 2006 3:04 PM"

type NoteService interface {
	List(ctx context.Context, who *model.Identity, query string, visibility model.NoteVisibility) ([]*model.Note, error)
	Create(ctx context.Context, who *model.Identity, content string, isPrivate bool) (*model.Note, error)
}

type noteService struct {
	r      repo.NoteRepo
	cache  cache.QueryCache
	events mq.EventPublisher
	log    *zap.Logger
}

func NewNoteService(r repo.NoteRepo, c cache.QueryCache, events mq.EventPublisher, log *zap.Logger) NoteService {
	return &noteService{r: r, cache: c, events: events, log: log}
}

// FilterNotes applies the visibility filter and a case-insensitive substring
// match on content.
func FilterNotes(notes []*model.Note, query string, visibility model.NoteVisibility) []*model.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*model.Note, 0, len(notes))
	for _, n := range notes {
		if !visibility.Matches(n) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// VisibleTo drops private notes written by someone else.
func VisibleTo(notes []*model.Note, who *model.Identity) []*model.Note {
	me := who.Attribution()
	out := make([]*model.Note, 0, len(notes))
	for _, n := range notes {
		if n.IsPrivate && n.CreatedBy != me {
			continue
		}
		out = append(out, n)
	}
	return out
}

func EmptyNotesMessage(query string, visibility model.NoteVisibility) string {
	if strings.TrimSpace(query) != "" || (visibility != "" && visibility != model.NoteVisibilityAll) {
		return "No notes found"
	}
	return "No notes yet. Use Quick Note to add one!"
}

func (s *noteService) List(ctx context.Context, who *model.Identity, query string, visibility model.NoteVisibility) ([]*model.Note, error) {
	if visibility == "" {
		visibility = model.NoteVisibilityAll
	}
	if !visibility.Valid() {
		return nil, invalid(fmt.Sprintf("unknown visibility %q", visibility))
	}
	all, err := cache.GetOrLoad(ctx, s.cache, cache.KeyNotes, s.r.List)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return FilterNotes(VisibleTo(all, who), query, visibility), nil
}

func (s *noteService) Create(ctx context.Context, who *model.Identity, content string, isPrivate bool) (*model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("Please enter a note")
	}

	n := &model.Note{
		ID:        uuid.New(),
		Content:   content,
		IsPrivate: isPrivate,
		CreatedBy: who.Attribution(),
	}
	if err := s.r.Create(ctx, n); err != nil {
		return nil, notice(ErrUpstream, "Failed to save note", err)
	}

	keys := []string{cache.KeyNotes}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
	evt := mq.EntityEvent{Entity: mq.EntityNote, Op: mq.OpCreate, ID: n.ID.String(), Invalidate: keys}
	if err := s.events.PublishEvent(ctx, evt); err != nil {
		s.log.Warn("publish entity event failed", zap.Error(err))
	}
	return n, nil
}
