// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     audio
// Description: Sample buffers for recording and pre-roll
// Author:      Mike Stoffels
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package audio

import "time"

// RingBuffer keeps the most recent samples up to its capacity. It is
// owned by a single goroutine.
type RingBuffer struct {
	data     []float32
	writePos int
	count    int
}

// NewRingBuffer creates a ring buffer with the given capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest when full
func (rb *RingBuffer) Write(samples []float32) {
	for _, s := range samples {
		rb.data[rb.writePos] = s
		rb.writePos = (rb.writePos + 1) % len(rb.data)
		if rb.count < len(rb.data) {
			rb.count++
		}
	}
}

// GetAll returns the buffered samples from oldest to newest
func (rb *RingBuffer) GetAll() []float32 {
	out := make([]float32, rb.count)
	start := (rb.writePos - rb.count + len(rb.data)) % len(rb.data)
	for i := 0; i < rb.count; i++ {
		out[i] = rb.data[(start+i)%len(rb.data)]
	}
	return out
}

// Len returns the number of buffered samples
func (rb *RingBuffer) Len() int {
	return rb.count
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.writePos = 0
	rb.count = 0
}

// Recording is a growing buffer of captured samples
type Recording struct {
	samples    []float32
	sampleRate int
}

// NewRecording creates an empty recording
func NewRecording(sampleRate int) *Recording {
	return &Recording{
		samples:    make([]float32, 0, sampleRate*10),
		sampleRate: sampleRate,
	}
}

// Append adds samples
func (r *Recording) Append(samples []float32) {
	r.samples = append(r.samples, samples...)
}

// Samples returns the recorded samples
func (r *Recording) Samples() []float32 {
	return r.samples
}

// Len returns the number of samples
func (r *Recording) Len() int {
	return len(r.samples)
}

// Duration returns the recorded audio time
func (r *Recording) Duration() time.Duration {
	return FrameDuration(len(r.samples), r.sampleRate)
}

// FrameDuration converts a sample count to audio time
func FrameDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
