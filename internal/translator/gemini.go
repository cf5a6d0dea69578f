// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     translator
// Description: Google Gemini translator
// Author:      Mike Stoffels
// Created:     2026-01-16
// License:     MIT
// ============================================================================

package translator

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/msto63/englishquery/internal/history"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiTranslator translates through the Gemini API
type GeminiTranslator struct {
	*session
	client *genai.Client
}

// NewGemini creates a Gemini translator
func NewGemini(ctx context.Context, opts Options) (*GeminiTranslator, error) {
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiTranslator{
		session: newSession(ProviderGemini, opts),
		client:  client,
	}, nil
}

// Name returns the provider name
func (t *GeminiTranslator) Name() string {
	return ProviderGemini
}

// Translate sends text with the system instruction and recent history
func (t *GeminiTranslator) Translate(ctx context.Context, text string) (string, error) {
	return t.run(ctx, text, func(ctx context.Context, text string) (string, error) {
		var contents []*genai.Content
		for _, m := range t.turns(ctx) {
			role := genai.Role(genai.RoleUser)
			if m.Role == history.RoleAssistant {
				role = genai.RoleModel
			}
			contents = append(contents, genai.NewContentFromText(m.Content, role))
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))

		config := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(t.systemPrompt(), genai.RoleUser),
		}
		if t.opts.Temperature > 0 {
			config.Temperature = genai.Ptr(t.opts.Temperature)
		}

		resp, err := t.client.Models.GenerateContent(ctx, t.opts.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}
		return resp.Text(), nil
	})
}
