package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sitescan/sitescan/internal/infra/cache"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFilterNotes(t *testing.T) {
	dig := &model.Note{Content: "dig site A", IsPrivate: true}
	lunch := &model.Note{Content: "lunch break", IsPrivate: false}
	notes := []*model.Note{dig, lunch}

	assert.Equal(t, []*model.Note{dig}, FilterNotes(notes, "dig", model.NoteVisibilityPrivate))
	assert.Empty(t, FilterNotes(notes, "dig", model.NoteVisibilityPublic))
	assert.Equal(t, notes, FilterNotes(notes, "", model.NoteVisibilityAll))
	assert.Equal(t, []*model.Note{lunch}, FilterNotes(notes, "LUNCH", model.NoteVisibilityAll))
}

func TestVisibleTo(t *testing.T) {
	mine := &model.Note{Content: "mine", IsPrivate: true, CreatedBy: "a@x"}
	theirs := &model.Note{Content: "theirs", IsPrivate: true, CreatedBy: "b@x"}
	public := &model.Note{Content: "public", CreatedBy: "b@x"}

	got := VisibleTo([]*model.Note{mine, theirs, public}, &model.Identity{Email: "a@x"})
	assert.Equal(t, []*model.Note{mine, public}, got)
}

func TestEmptyNotesMessage(t *testing.T) {
	assert.Equal(t, "No notes yet. Use Quick Note to add one!", EmptyNotesMessage("", model.NoteVisibilityAll))
	assert.Equal(t, "No notes found", EmptyNotesMessage("x", model.NoteVisibilityAll))
	assert.Equal(t, "No notes found", EmptyNotesMessage("", model.NoteVisibilityPrivate))
}

func TestNoteService_List(t *testing.T) {
	who := &model.Identity{Email: "a@x"}
	notes := []*model.Note{
		{Content: "dig site A", IsPrivate: true, CreatedBy: "a@x"},
		{Content: "lunch break", CreatedBy: "b@x"},
	}

	repo := &MockNoteRepo{}
	repo.On("List", mock.Anything).Return(notes, nil).Once()
	s := NewNoteService(repo, cache.NewMemory(time.Minute), &recordingPublisher{}, zap.NewNop())

	got, err := s.List(context.Background(), who, "dig", model.NoteVisibilityPrivate)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dig site A", got[0].Content)

	got, err = s.List(context.Background(), who, "", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.List(context.Background(), who, "", "friends")
	assert.ErrorIs(t, err, ErrInvalid)

	repo.AssertExpectations(t)
}

func TestNoteService_Create(t *testing.T) {
	who := &model.Identity{Email: "a@x"}

	tests := []struct {
		name        string
		content     string
		setup       func(*MockNoteRepo)
		expectError error
		notice      string
	}{
		{
			name:    "trimmed content saved",
			content: "  found a bead  ",
			setup: func(r *MockNoteRepo) {
				r.On("Create", mock.Anything, mock.MatchedBy(func(n *model.Note) bool {
					return n.Content == "found a bead" && n.IsPrivate && n.CreatedBy == "a@x"
				})).Return(nil)
			},
		},
		{
			name:        "whitespace only rejected",
			content:     " \n\t ",
			setup:       func(r *MockNoteRepo) {},
			expectError: ErrInvalid,
			notice:      "Please enter a note",
		},
		{
			name:    "store failure",
			content: "x",
			setup: func(r *MockNoteRepo) {
				r.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))
			},
			expectError: ErrUpstream,
			notice:      "Failed to save note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockNoteRepo{}
			tt.setup(repo)
			c := cache.NewMemory(time.Minute)
			require.NoError(t, c.Set(context.Background(), cache.KeyNotes, []byte("[]")))
			pub := &recordingPublisher{}
			s := NewNoteService(repo, c, pub, zap.NewNop())

			n, err := s.Create(context.Background(), who, tt.content, true)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Equal(t, tt.notice, NoticeOf(err))
				assert.Nil(t, n)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "found a bead", n.Content)
				_, ok, _ := c.Get(context.Background(), cache.KeyNotes)
				assert.False(t, ok)
				require.Len(t, pub.events, 1)
				assert.Equal(t, []string{cache.KeyNotes}, pub.events[0].Invalidate)
			}
			repo.AssertExpectations(t)
		})
	}
}
