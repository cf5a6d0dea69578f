// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     translator
// Description: OpenAI chat completion translator
// Author:      Mike Stoffels
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/msto63/englishquery/internal/history"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-5-nano"

// OpenAITranslator translates through the OpenAI chat completions API or
// any compatible endpoint.
type OpenAITranslator struct {
	*session
	client *openai.Client
}

// NewOpenAI creates an OpenAI translator
func NewOpenAI(opts Options) *OpenAITranslator {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return &OpenAITranslator{
		session: newSession(ProviderOpenAI, opts),
		client:  openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider name
func (t *OpenAITranslator) Name() string {
	return ProviderOpenAI
}

// Translate sends text with the system prompt and recent history
func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	return t.run(ctx, text, func(ctx context.Context, text string) (string, error) {
		resp, err := t.client.CreateChatCompletion(ctx, t.buildRequest(ctx, text))
		if err != nil {
			return "", describeOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty chat completion choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func (t *OpenAITranslator) buildRequest(ctx context.Context, text string) openai.ChatCompletionRequest {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: t.systemPrompt()},
	}
	for _, m := range t.turns(ctx) {
		role := openai.ChatMessageRoleUser
		if m.Role == history.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	req := openai.ChatCompletionRequest{
		Model:           t.opts.Model,
		Messages:        messages,
		ReasoningEffort: t.opts.ReasoningEffort,
	}
	if t.opts.Temperature > 0 {
		req.Temperature = t.opts.Temperature
	}
	return req
}

func describeOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai api error (status %d): %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openai request failed (status %d): %w", reqErr.HTTPStatusCode, err)
	}
	return err
}
