package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/llm"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/tiktoken-go/tokenizer"
	"go.uber.org/zap"
)

const AssistantApology = "Sorry, I encountered an error. Please try again."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is the in-memory transcript of one assistant chat.
// Loading is true while a reply is pending.
type Conversation struct {
	ID      uuid.UUID `json:"id"`
	Turns   []Turn    `json:"turns"`
	Loading bool      `json:"loading"`
}

type AssistantService interface {
	Open(ctx context.Context, who *model.Identity) (*Conversation, error)
	Get(ctx context.Context, conversationID uuid.UUID, who *model.Identity) (*Conversation, error)
	// Send appends the question, answers it from a snapshot of every artifact
	// and note, and appends the answer or a fixed apology. Only one question
	// may be in flight per conversation.
	Send(ctx context.Context, conversationID uuid.UUID, who *model.Identity, question string) (*Conversation, error)
	Close(ctx context.Context, conversationID uuid.UUID, who *model.Identity) error
}

type conversation struct {
	owner   string
	turns   []Turn
	loading bool
}

type assistantService struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*conversation

	artifacts ArtifactService
	notes     NoteService
	llm       llm.Invoker
	prompts   *llm.Prompts
	codec     tokenizer.Codec
	budget    int
	log       *zap.Logger
	now       func() time.Time
}

func NewAssistantService(artifacts ArtifactService, notes NoteService, inv llm.Invoker, prompts *llm.Prompts, cfg *config.Config, log *zap.Logger) AssistantService {
	s := &assistantService{
		convs:     make(map[uuid.UUID]*conversation),
		artifacts: artifacts,
		notes:     notes,
		llm:       inv,
		prompts:   prompts,
		budget:    cfg.Assistant.PromptTokenBudget,
		log:       log,
		now:       time.Now,
	}
	if codec, err := tokenizer.Get(tokenizer.Cl100kBase); err == nil {
		s.codec = codec
	} else {
		log.Warn("prompt token counting disabled", zap.Error(err))
	}
	return s
}

func (c *conversation) snapshot(id uuid.UUID) *Conversation {
	return &Conversation{ID: id, Turns: append([]Turn{}, c.turns...), Loading: c.loading}
}

func (s *assistantService) lookup(id uuid.UUID, who *model.Identity) (*conversation, error) {
	c, ok := s.convs[id]
	if !ok || c.owner != who.Attribution() {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *assistantService) Open(_ context.Context, who *model.Identity) (*Conversation, error) {
	id := uuid.New()
	c := &conversation{owner: who.Attribution()}
	s.mu.Lock()
	s.convs[id] = c
	s.mu.Unlock()
	return c.snapshot(id), nil
}

func (s *assistantService) Get(_ context.Context, id uuid.UUID, who *model.Identity) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(id, who)
	if err != nil {
		return nil, err
	}
	return c.snapshot(id), nil
}

func (s *assistantService) Close(_ context.Context, id uuid.UUID, who *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(id, who); err != nil {
		return err
	}
	delete(s.convs, id)
	return nil
}

func (s *assistantService) Send(ctx context.Context, id uuid.UUID, who *model.Identity, question string) (*Conversation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalid("Please enter a question")
	}

	s.mu.Lock()
	c, err := s.lookup(id, who)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if c.loading {
		s.mu.Unlock()
		return nil, notice(ErrBusy, "Please wait for the current answer", nil)
	}
	c.turns = append(c.turns, Turn{Role: RoleUser, Content: question, At: s.now()})
	c.loading = true
	s.mu.Unlock()

	// the answer is appended even if the caller goes away
	answer, err := s.answer(context.WithoutCancel(ctx), who, question)
	if err != nil {
		s.log.Warn("assistant answer failed", zap.String("conversation_id", id.String()), zap.Error(err))
		answer = AssistantApology
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Content: answer, At: s.now()})
	c.loading = false
	return c.snapshot(id), nil
}

func (s *assistantService) answer(ctx context.Context, who *model.Identity, question string) (string, error) {
	prompt, err := s.buildPrompt(ctx, who, question)
	if err != nil {
		return "", err
	}
	return s.llm.Invoke(ctx, prompt)
}

func (s *assistantService) buildPrompt(ctx context.Context, who *model.Identity, question string) (string, error) {
	artifacts, err := s.artifacts.List(ctx, "")
	if err != nil {
		return "", err
	}
	notes, err := s.notes.List(ctx, who, "", model.NoteVisibilityAll)
	if err != nil {
		return "", err
	}

	if artifacts == nil {
		artifacts = []*model.Artifact{}
	}
	artifactsJSON, err := sonic.ConfigStd.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize artifacts: %w", err)
	}
	notesJSON, err := sonic.ConfigStd.MarshalIndent(notes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize notes: %w", err)
	}

	prompt, err := s.prompts.RenderAssistant(llm.AssistantInput{
		Artifacts: string(artifactsJSON),
		Notes:     string(notesJSON),
		Question:  question,
	})
	if err != nil {
		return "", err
	}
	s.checkBudget(prompt)
	return prompt, nil
}

// checkBudget only warns; the snapshot is always sent whole.
func (s *assistantService) checkBudget(prompt string) {
	if s.codec == nil || s.budget <= 0 {
		return
	}
	n, err := s.codec.Count(prompt)
	if err != nil {
		return
	}
	if n > s.budget {
		s.log.Warn("assistant prompt over token budget", zap.Int("tokens", n), zap.Int("budget", s.budget))
	}
}
