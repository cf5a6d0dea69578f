// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     stt
// Description: Speech-to-text interface
// Author:      Mike Stoffels
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"errors"
)

// ErrUnintelligible is returned when the service answered but recognised
// no words.
var ErrUnintelligible = errors.New("speech was not understood")

// Transcriber converts recorded speech to text
type Transcriber interface {
	// Transcribe converts mono samples at the given rate to text
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error)

	// Close releases resources
	Close() error
}

// Result holds the transcription result
type Result struct {
	// Text is the transcribed text
	Text string

	// Language is the detected or requested language
	Language string

	// Duration is the audio duration in seconds
	Duration float32
}
