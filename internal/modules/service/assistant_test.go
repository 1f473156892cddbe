package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/llm"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssistant(t *testing.T) (*assistantService, *MockArtifactService, *MockNoteService, *MockInvoker) {
	t.Helper()
	prompts, err := llm.LoadPrompts()
	require.NoError(t, err)
	arts := &MockArtifactService{}
	notes := &MockNoteService{}
	inv := &MockInvoker{}
	cfg := &config.Config{Assistant: config.AssistantCfg{PromptTokenBudget: 100000}}
	s := NewAssistantService(arts, notes, inv, prompts, cfg, zap.NewNop()).(*assistantService)
	s.now = func() time.Time { return fixedNow }
	return s, arts, notes, inv
}

func TestAssistantService_Send(t *testing.T) {
	who := &model.Identity{Email: "field@example.org"}
	shard := createTestArtifact("Bronze Shard", "green patina")
	note := &model.Note{ID: uuid.New(), Content: "dig site A", CreatedBy: who.Email}

	t.Run("answer is appended after the question", func(t *testing.T) {
		s, arts, notes, inv := newTestAssistant(t)
		arts.On("List", mock.Anything, "").Return([]*model.Artifact{shard}, nil)
		notes.On("List", mock.Anything, who, "", model.NoteVisibilityAll).Return([]*model.Note{note}, nil)
		inv.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "Bronze Shard") &&
				strings.Contains(p, "green patina") &&
				strings.Contains(p, "dig site A") &&
				strings.Contains(p, "How many bronze items?")
		}), []string(nil)).Return("One bronze item.", nil)

		c, err := s.Open(context.Background(), who)
		require.NoError(t, err)
		assert.Empty(t, c.Turns)

		c, err = s.Send(context.Background(), c.ID, who, "  How many bronze items?  ")
		require.NoError(t, err)
		require.Len(t, c.Turns, 2)
		assert.Equal(t, Turn{Role: RoleUser, Content: "How many bronze items?", At: fixedNow}, c.Turns[0])
		assert.Equal(t, RoleAssistant, c.Turns[1].Role)
		assert.Equal(t, "One bronze item.", c.Turns[1].Content)
		assert.False(t, c.Loading)
		inv.AssertExpectations(t)
	})

	t.Run("failure appends the apology", func(t *testing.T) {
		s, arts, notes, inv := newTestAssistant(t)
		arts.On("List", mock.Anything, "").Return(nil, nil)
		notes.On("List", mock.Anything, who, "", model.NoteVisibilityAll).Return([]*model.Note{}, nil)
		inv.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "[]")
		}), []string(nil)).Return("", errors.New("rate limited"))

		c, _ := s.Open(context.Background(), who)
		c, err := s.Send(context.Background(), c.ID, who, "hello")
		require.NoError(t, err)
		require.Len(t, c.Turns, 2)
		assert.Equal(t, AssistantApology, c.Turns[1].Content)
	})

	t.Run("snapshot failure appends the apology", func(t *testing.T) {
		s, arts, _, inv := newTestAssistant(t)
		arts.On("List", mock.Anything, "").Return(nil, errors.New("db down"))

		c, _ := s.Open(context.Background(), who)
		c, err := s.Send(context.Background(), c.ID, who, "hello")
		require.NoError(t, err)
		assert.Equal(t, AssistantApology, c.Turns[1].Content)
		inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty question", func(t *testing.T) {
		s, _, _, _ := newTestAssistant(t)
		c, _ := s.Open(context.Background(), who)
		_, err := s.Send(context.Background(), c.ID, who, "   ")
		assert.ErrorIs(t, err, ErrInvalid)

		got, err := s.Get(context.Background(), c.ID, who)
		require.NoError(t, err)
		assert.Empty(t, got.Turns)
	})

	t.Run("one question in flight", func(t *testing.T) {
		s, _, _, _ := newTestAssistant(t)
		c, _ := s.Open(context.Background(), who)
		s.mu.Lock()
		s.convs[c.ID].loading = true
		s.mu.Unlock()

		_, err := s.Send(context.Background(), c.ID, who, "again?")
		assert.ErrorIs(t, err, ErrBusy)
		assert.Equal(t, "Please wait for the current answer", NoticeOf(err))
	})
}

func TestAssistantService_Ownership(t *testing.T) {
	s, _, _, _ := newTestAssistant(t)
	ana := &model.Identity{Email: "ana@example.org"}
	ben := &model.Identity{Email: "ben@example.org"}

	c, err := s.Open(context.Background(), ana)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), c.ID, ben)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Close(context.Background(), c.ID, ben), ErrNotFound)

	require.NoError(t, s.Close(context.Background(), c.ID, ana))
	_, err = s.Get(context.Background(), c.ID, ana)
	assert.ErrorIs(t, err, ErrNotFound)
}
