// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     vad
// Description: Voice activity detection and utterance tracking
// Author:      Mike Stoffels
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package vad

import "time"

// Detector decides whether a block of samples contains speech
type Detector interface {
	// Process reports whether speech is present in the samples
	Process(samples []float32) (bool, error)

	// Close releases resources
	Close() error
}

// Config holds VAD configuration
type Config struct {
	// SampleRate is the audio sample rate (8000, 16000, 32000 or 48000)
	SampleRate int

	// Mode is the WebRTC aggressiveness (0-3, higher filters more)
	Mode int
}

// DefaultConfig returns default VAD configuration
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Mode:       2,
	}
}

// Phase is the position of a Tracker within one utterance
type Phase int

const (
	// PhaseWaiting means no speech has been heard yet
	PhaseWaiting Phase = iota
	// PhaseSpeaking means speech started and the phrase is open
	PhaseSpeaking
	// PhaseTimedOut means no speech started within the wait limit
	PhaseTimedOut
	// PhaseComplete means the phrase ended by pause or length limit
	PhaseComplete
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseSpeaking:
		return "speaking"
	case PhaseTimedOut:
		return "timed_out"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Done reports whether the tracker has reached a final phase
func (p Phase) Done() bool {
	return p == PhaseTimedOut || p == PhaseComplete
}

// Limits bound one utterance. All durations are audio time.
type Limits struct {
	// WaitTimeout is how long to wait for speech to begin
	WaitTimeout time.Duration

	// PauseThreshold is the trailing silence that ends a phrase
	PauseThreshold time.Duration

	// PhraseTimeLimit caps the phrase length; zero means no cap
	PhraseTimeLimit time.Duration
}

// Tracker follows one utterance frame by frame
type Tracker struct {
	limits  Limits
	phase   Phase
	waited  time.Duration
	speech  time.Duration
	silence time.Duration
}

// NewTracker creates a tracker in the waiting phase
func NewTracker(limits Limits) *Tracker {
	return &Tracker{limits: limits}
}

// Update advances the tracker by one frame and returns the new phase
func (t *Tracker) Update(isSpeech bool, frame time.Duration) Phase {
	switch t.phase {
	case PhaseWaiting:
		if isSpeech {
			t.phase = PhaseSpeaking
			t.speech = frame
			return t.phase
		}
		t.waited += frame
		if t.limits.WaitTimeout > 0 && t.waited >= t.limits.WaitTimeout {
			t.phase = PhaseTimedOut
		}

	case PhaseSpeaking:
		t.speech += frame
		if isSpeech {
			t.silence = 0
		} else {
			t.silence += frame
		}
		switch {
		case t.limits.PauseThreshold > 0 && t.silence >= t.limits.PauseThreshold:
			t.phase = PhaseComplete
		case t.limits.PhraseTimeLimit > 0 && t.speech >= t.limits.PhraseTimeLimit:
			t.phase = PhaseComplete
		}
	}
	return t.phase
}

// Phase returns the current phase
func (t *Tracker) Phase() Phase {
	return t.phase
}

// SpeechDuration returns the audio time since speech began
func (t *Tracker) SpeechDuration() time.Duration {
	return t.speech
}
