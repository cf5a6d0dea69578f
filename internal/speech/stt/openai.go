// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     stt
// Description: Transcription through the OpenAI audio API
// Author:      Mike Stoffels
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the transcription model used when none is configured
const DefaultModel = openai.Whisper1

// Config holds STT configuration
type Config struct {
	// APIKey authenticates against the service
	APIKey string

	// BaseURL overrides the API endpoint (any OpenAI-compatible server)
	BaseURL string

	// Model is the transcription model
	Model string

	// Language is the spoken language, e.g. "en"; empty or "auto" detects
	Language string
}

// OpenAITranscriber implements Transcriber via /audio/transcriptions
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAI creates a transcriber
func NewOpenAI(cfg Config) *OpenAITranscriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	language := cfg.Language
	if language == "auto" {
		language = ""
	}
	return &OpenAITranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: language,
	}
}

// Transcribe uploads the samples as WAV and returns the recognised text.
// Blank text yields ErrUnintelligible.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "speech.wav",
		Reader:   bytes.NewReader(EncodeWAV(samples, sampleRate)),
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return Result{}, fmt.Errorf("transcription request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{}, ErrUnintelligible
	}

	var duration float32
	if sampleRate > 0 {
		duration = float32(len(samples)) / float32(sampleRate)
	}
	return Result{Text: text, Language: t.language, Duration: duration}, nil
}

// Close releases resources
func (t *OpenAITranscriber) Close() error {
	return nil
}
