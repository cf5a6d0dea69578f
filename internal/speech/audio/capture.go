// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     audio
// Description: Microphone capture using PortAudio
// Author:      Mike Stoffels
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	// DefaultSampleRate is 16kHz, what speech recognizers expect
	DefaultSampleRate = 16000

	// DefaultFramesPerBuffer is 30ms at 16kHz
	DefaultFramesPerBuffer = 480

	// DefaultChannels is mono audio
	DefaultChannels = 1
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	SampleRate  int
	BufferSize  int
	Channels    int
	DeviceIndex int // index into ListInputDevices; negative selects the system default
}

// DefaultCaptureConfig returns default capture configuration
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:  DefaultSampleRate,
		BufferSize:  DefaultFramesPerBuffer,
		Channels:    DefaultChannels,
		DeviceIndex: -1,
	}
}

// Capture reads audio frames from one input device. A Capture is used
// for a single recording: Start, read Output until done, Stop.
type Capture struct {
	mu         sync.Mutex
	cfg        CaptureConfig
	stream     *portaudio.Stream
	running    bool
	outputChan chan []float32
	loopDone   chan struct{}
}

// NewCapture initializes PortAudio and prepares a capture
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFramesPerBuffer
	}
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultChannels
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Capture{
		cfg:        cfg,
		outputChan: make(chan []float32, 100),
	}, nil
}

// Start opens the device and begins delivering frames on Output
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}

	buffer := make([]float32, c.cfg.BufferSize*c.cfg.Channels)

	device, err := inputDevice(c.cfg.DeviceIndex)
	if err != nil {
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: c.cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: c.cfg.BufferSize,
	}
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return fmt.Errorf("failed to open audio stream on %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	c.stream = stream
	c.running = true
	c.loopDone = make(chan struct{})

	go c.captureLoop(ctx, stream, buffer, c.loopDone)
	return nil
}

// captureLoop reads from the stream until ctx is done or Stop is called.
// Output is closed when the loop ends.
func (c *Capture) captureLoop(ctx context.Context, stream *portaudio.Stream, buffer []float32, done chan struct{}) {
	defer close(done)
	defer close(c.outputChan)

	for {
		if ctx.Err() != nil || !c.IsRunning() {
			return
		}

		if err := stream.Read(); err != nil {
			if !c.IsRunning() {
				return
			}
			// Input overflow drops a buffer; keep reading
			continue
		}

		samples := make([]float32, len(buffer))
		copy(samples, buffer)

		select {
		case c.outputChan <- samples:
		case <-ctx.Done():
			return
		default:
			// Consumer is behind, drop this buffer
		}
	}
}

// Stop stops the stream and waits for the read loop to end
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	stream := c.stream
	c.stream = nil
	done := c.loopDone
	c.mu.Unlock()

	// Stopping the stream unblocks a pending Read
	_ = stream.Stop()
	<-done

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}

// Close stops capturing and releases PortAudio
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Output returns the channel that receives audio frames
func (c *Capture) Output() <-chan []float32 {
	return c.outputChan
}

// IsRunning returns whether capture is currently running
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SampleRate returns the sample rate
func (c *Capture) SampleRate() int {
	return c.cfg.SampleRate
}

// inputDevice resolves an index from ListInputDevices, or the default
// input device for a negative index.
func inputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}
	var inputs []*portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, dev)
		}
	}
	if index >= len(inputs) {
		return nil, fmt.Errorf("input device %d not found (%d available)", index, len(inputs))
	}
	return inputs[index], nil
}

// DeviceInfo holds information about an input device
type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices returns the available input devices. Index matches
// CaptureConfig.DeviceIndex.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultInputName string
	if defaultInput != nil {
		defaultInputName = defaultInput.Name
	}

	var inputDevices []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputDevices = append(inputDevices, DeviceInfo{
				Index:             len(inputDevices),
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultInputName,
			})
		}
	}
	return inputDevices, nil
}
