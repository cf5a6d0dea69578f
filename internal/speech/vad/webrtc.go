// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     vad
// Description: WebRTC VAD implementation
// Author:      Mike Stoffels
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package vad

import (
	"fmt"
	"slices"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

var validRates = []int{8000, 16000, 32000, 48000}

// WebRTCVAD implements Detector using WebRTC's VAD
type WebRTCVAD struct {
	vad        *webrtcvad.VAD
	sampleRate int
}

// NewWebRTCVAD creates a WebRTC VAD. The mode is clamped to 0-3.
func NewWebRTCVAD(cfg Config) (*WebRTCVAD, error) {
	if !slices.Contains(validRates, cfg.SampleRate) {
		return nil, fmt.Errorf("invalid sample rate %d, must be one of %v", cfg.SampleRate, validRates)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	mode := min(max(cfg.Mode, 0), 3)
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &WebRTCVAD{
		vad:        vad,
		sampleRate: cfg.SampleRate,
	}, nil
}

// Process reports speech if any 10ms frame of the samples is voiced
func (w *WebRTCVAD) Process(samples []float32) (bool, error) {
	frameSize := w.sampleRate / 100
	pcm := ToInt16(samples)

	if len(pcm) < frameSize {
		padded := make([]int16, frameSize)
		copy(padded, pcm)
		pcm = padded
	}

	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		active, err := w.vad.Process(w.sampleRate, int16ToBytes(pcm[i:i+frameSize]))
		if err != nil {
			return false, fmt.Errorf("VAD processing failed: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

// Close releases resources
func (w *WebRTCVAD) Close() error {
	return nil
}

// ToInt16 converts float samples in [-1, 1] to 16-bit PCM, clamping
// out-of-range values.
func ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		s = min(max(s, -1), 1)
		out[i] = int16(s * 32767)
	}
	return out
}

// int16ToBytes converts samples to little-endian bytes
func int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
