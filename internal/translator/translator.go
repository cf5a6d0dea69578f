// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     translator
// Description: Natural language to SQL translation through hosted LLMs
// Author:      Mike Stoffels
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package translator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/msto63/englishquery/internal/history"
	"github.com/msto63/englishquery/pkg/core/apperr"
	"github.com/msto63/englishquery/pkg/core/logging"
	"github.com/msto63/englishquery/pkg/core/metrics"
)

// Translator turns a question into the model's raw reply. The reply may
// still carry markdown fences.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

// SchemaAware translators accept a description of the target database
type SchemaAware interface {
	SetSchema(schema string)
}

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options configures a translator
type Options struct {
	Provider        string
	Model           string
	ReasoningEffort string
	Temperature     float32
	BaseURL         string
	APIKey          string
	Timeout         time.Duration

	Prompts    *PromptBook
	PromptName string

	History      history.Store
	Conversation string
	HistoryLimit int
}

// New creates the translator for opts.Provider
func New(ctx context.Context, opts Options) (Translator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperr.New(apperr.CodeConfiguration, "api key is required")
	}
	switch opts.Provider {
	case "", ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderGemini:
		return NewGemini(ctx, opts)
	default:
		return nil, apperr.New(apperr.CodeConfiguration, fmt.Sprintf("unknown translator provider %q", opts.Provider))
	}
}

// session holds the state shared by all providers: the system prompt,
// optional schema context and the chat history.
type session struct {
	provider string
	opts     Options
	logger   *logging.Logger

	mu     sync.RWMutex
	schema string
}

func newSession(provider string, opts Options) *session {
	if opts.Prompts == nil {
		opts.Prompts = DefaultPromptBook()
	}
	if opts.PromptName == "" {
		opts.PromptName = DefaultPromptName
	}
	return &session{
		provider: provider,
		opts:     opts,
		logger:   logging.New("translator").With("provider", provider),
	}
}

// SetSchema sets the database description sent with every request
func (s *session) SetSchema(schema string) {
	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()
}

// systemPrompt returns the current prompt text plus schema context
func (s *session) systemPrompt() string {
	prompt := s.opts.Prompts.System(s.opts.PromptName)

	s.mu.RLock()
	schema := s.schema
	s.mu.RUnlock()

	if schema == "" {
		return prompt
	}
	return prompt + "\n\n" + schema
}

// turns returns prior conversation messages, oldest first
func (s *session) turns(ctx context.Context) []history.Message {
	if s.opts.History == nil || s.opts.Conversation == "" {
		return nil
	}
	msgs, err := s.opts.History.Recent(ctx, s.opts.Conversation, s.opts.HistoryLimit)
	if err != nil {
		s.logger.Warn("Failed to load chat history", "error", err)
		return nil
	}
	return msgs
}

// record appends a completed exchange to the history
func (s *session) record(ctx context.Context, question, reply string) {
	if s.opts.History == nil || s.opts.Conversation == "" {
		return
	}
	if _, err := s.opts.History.Append(ctx, s.opts.Conversation, history.RoleUser, question); err != nil {
		s.logger.Warn("Failed to store question", "error", err)
		return
	}
	if _, err := s.opts.History.Append(ctx, s.opts.Conversation, history.RoleAssistant, reply); err != nil {
		s.logger.Warn("Failed to store reply", "error", err)
	}
}

// run wraps a provider call with timeout, validation, metrics and history
func (s *session) run(ctx context.Context, text string, call func(ctx context.Context, text string) (string, error)) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.New(apperr.CodeBlankInput, "nothing to translate").WithOp("translate")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := call(ctx, text)
	metrics.ObserveTranslation(s.provider, time.Since(start))
	if err != nil {
		s.logger.Error("Translation failed", "error", err)
		return "", apperr.Wrap(err, apperr.CodeTranslation, "translate")
	}
	if strings.TrimSpace(reply) == "" {
		return "", apperr.New(apperr.CodeTranslation, "model returned an empty reply").WithOp("translate")
	}

	s.logger.Debug("Translation received", "model", s.opts.Model, "duration", time.Since(start))
	s.record(ctx, text, reply)
	return reply, nil
}
