// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     speech
// Description: Push-to-talk listener turning one spoken phrase into text
// Author:      Mike Stoffels
// Created:     2026-01-18
// License:     MIT
// ============================================================================

// Package speech records one phrase from a microphone, transcribes it and
// reports the text through callbacks. Each session ends in exactly one
// Outcome, after which the listener is idle again and the stop callback
// has fired once.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/msto63/englishquery/internal/speech/audio"
	"github.com/msto63/englishquery/internal/speech/stt"
	"github.com/msto63/englishquery/internal/speech/vad"
	"github.com/msto63/englishquery/pkg/core/logging"
	"github.com/msto63/englishquery/pkg/core/metrics"
)

const (
	// DefaultStopTimeout bounds how long Stop waits for the worker
	DefaultStopTimeout = time.Second

	// DefaultRequestTimeout bounds one transcription request
	DefaultRequestTimeout = 30 * time.Second

	preRoll = 300 * time.Millisecond
)

// AudioSource delivers mono float frames from a capture device
type AudioSource interface {
	Start(ctx context.Context) error
	Output() <-chan []float32
	Stop() error
	SampleRate() int
}

// SourceFactory opens the source for a device index
type SourceFactory func(deviceIndex int) (AudioSource, error)

// DetectorFactory creates a voice activity detector for a sample rate
type DetectorFactory func(sampleRate int) (vad.Detector, error)

// DeviceLister enumerates input devices
type DeviceLister func() ([]audio.DeviceInfo, error)

// Listener is a push-to-talk speech listener
type Listener struct {
	mu       sync.Mutex
	settings Settings
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}

	onTranscription func(string)
	onLog           func(string)
	onStop          func()

	state           *StateMachine
	transcriber     stt.Transcriber
	sourceFactory   SourceFactory
	detectorFactory DetectorFactory
	deviceLister    DeviceLister
	stopTimeout     time.Duration
	requestTimeout  time.Duration
	logger          *logging.Logger
}

// Option configures a Listener
type Option func(*Listener)

// WithSourceFactory replaces the microphone source
func WithSourceFactory(f SourceFactory) Option {
	return func(l *Listener) { l.sourceFactory = f }
}

// WithDetectorFactory replaces the WebRTC detector. A factory returning
// a nil detector makes the energy threshold the only speech test.
func WithDetectorFactory(f DetectorFactory) Option {
	return func(l *Listener) { l.detectorFactory = f }
}

// WithDeviceLister replaces the PortAudio device enumeration
func WithDeviceLister(f DeviceLister) Option {
	return func(l *Listener) { l.deviceLister = f }
}

// WithStopTimeout sets how long Stop waits for the worker to finish
func WithStopTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.stopTimeout = d
		}
	}
}

// WithRequestTimeout bounds each transcription request
func WithRequestTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.requestTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// MicrophoneSource opens PortAudio capture devices at sampleRate
func MicrophoneSource(sampleRate int) SourceFactory {
	return func(deviceIndex int) (AudioSource, error) {
		cfg := audio.DefaultCaptureConfig()
		cfg.SampleRate = sampleRate
		cfg.DeviceIndex = deviceIndex
		capture, err := audio.NewCapture(cfg)
		if err != nil {
			return nil, err
		}
		return &microphone{capture}, nil
	}
}

// microphone releases PortAudio when the session stops
type microphone struct {
	*audio.Capture
}

func (m *microphone) Stop() error {
	return m.Capture.Close()
}

// WebRTCDetector creates WebRTC detectors with the given aggressiveness
func WebRTCDetector(mode int) DetectorFactory {
	return func(sampleRate int) (vad.Detector, error) {
		return vad.NewWebRTCVAD(vad.Config{SampleRate: sampleRate, Mode: mode})
	}
}

// New creates an idle listener
func New(settings Settings, transcriber stt.Transcriber, opts ...Option) *Listener {
	l := &Listener{
		settings:        settings,
		state:           NewStateMachine(),
		transcriber:     transcriber,
		sourceFactory:   MicrophoneSource(audio.DefaultSampleRate),
		detectorFactory: WebRTCDetector(vad.DefaultConfig().Mode),
		deviceLister:    audio.ListInputDevices,
		stopTimeout:     DefaultStopTimeout,
		requestTimeout:  DefaultRequestTimeout,
		logger:          logging.New("speech"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state
func (l *Listener) State() State {
	return l.state.Current()
}

// IsListening reports whether a session is running
func (l *Listener) IsListening() bool {
	return l.state.Current() == StateListening
}

// OnStateChange registers a state change listener. Listeners run
// synchronously and must not call back into the Listener.
func (l *Listener) OnStateChange(fn StateChangeListener) {
	l.state.AddListener(fn)
}

// Settings returns a copy of the current settings
func (l *Listener) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// SetDeviceIndex selects the input device for the next session
func (l *Listener) SetDeviceIndex(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings.DeviceIndex = index
}

// SetConfig replaces the settings for the next session
func (l *Listener) SetConfig(settings Settings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = settings
}

// SetTranscriptionCallback sets the receiver of recognised text
func (l *Listener) SetTranscriptionCallback(fn func(text string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTranscription = fn
}

// SetLogCallback sets the receiver of user-facing status lines
func (l *Listener) SetLogCallback(fn func(message string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLog = fn
}

// SetStopCallback sets the callback fired once when a session ends
func (l *Listener) SetStopCallback(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = fn
}

// ListMicrophones returns the available input devices
func (l *Listener) ListMicrophones() ([]audio.DeviceInfo, error) {
	return l.deviceLister()
}

// Start begins a listening session. It returns false if a session is
// already running or the listener was shut down.
func (l *Listener) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || !l.state.Transition(StateListening) {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.run(ctx, cancel, l.settings, done)
	return true
}

// Stop ends the running session and waits up to the stop timeout for
// the worker. It does nothing when idle.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state.Current() != StateListening || l.cancel == nil {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()

	timer := time.NewTimer(l.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		l.logger.Warn("Listener did not stop in time", "timeout", l.stopTimeout)
	}
}

// Toggle starts an idle listener or stops a running one
func (l *Listener) Toggle() {
	if l.IsListening() {
		l.Stop()
		return
	}
	l.Start()
}

// Shutdown stops any running session and refuses further starts
func (l *Listener) Shutdown() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.Stop()
}

func (l *Listener) run(ctx context.Context, cancel context.CancelFunc, settings Settings, done chan struct{}) {
	defer cancel()
	outcome, text := l.listen(ctx, settings)
	l.transitionToIdle(outcome, text, done)
}

// transitionToIdle is the single exit of every session
func (l *Listener) transitionToIdle(outcome Outcome, text string, done chan struct{}) {
	defer close(done)

	metrics.IncListenerOutcome(outcome.String())
	l.logger.Debug("Listening session ended", "outcome", outcome.String())

	if outcome == OutcomeTranscribed {
		l.emitTranscription(text)
	}
	l.state.Transition(StateIdle)
	l.notifyStop()
}

func (l *Listener) listen(ctx context.Context, settings Settings) (Outcome, string) {
	l.logf("Listening for speech...")

	src, err := l.sourceFactory(settings.DeviceIndex)
	if err != nil {
		l.logf("Microphone Error: %v", err)
		return OutcomeServiceError, ""
	}
	stopSource := sync.OnceFunc(func() {
		if err := src.Stop(); err != nil {
			l.logger.Warn("Failed to stop audio source", "error", err)
		}
	})
	defer stopSource()

	if err := src.Start(ctx); err != nil {
		l.logf("Microphone Error: %v", err)
		return OutcomeServiceError, ""
	}
	rate := src.SampleRate()

	detector, err := l.detectorFactory(rate)
	if err != nil {
		l.logf("Speech Error: %v", err)
		return OutcomeServiceError, ""
	}
	gate := vad.NewGate(settings.EnergyThreshold, detector)
	defer gate.Close()

	samples, outcome := l.capture(ctx, src, gate, settings)
	if outcome != nil {
		return *outcome, ""
	}
	stopSource()

	return l.transcribe(ctx, samples, rate)
}

// capture records one phrase. A non-nil outcome means the session ended
// before there was anything to transcribe.
func (l *Listener) capture(ctx context.Context, src AudioSource, gate *vad.Gate, settings Settings) ([]float32, *Outcome) {
	end := func(o Outcome) ([]float32, *Outcome) { return nil, &o }

	rate := src.SampleRate()
	tracker := vad.NewTracker(vad.Limits{
		WaitTimeout:     settings.WaitTimeout(),
		PauseThreshold:  settings.PauseDuration(),
		PhraseTimeLimit: settings.PhraseLimit(),
	})
	pending := audio.NewRingBuffer(int(preRoll) * rate / int(time.Second))
	recording := audio.NewRecording(rate)

	// The tracker counts audio time; the timer covers a device that
	// delivers nothing at all.
	var waitC <-chan time.Time
	if wait := settings.WaitTimeout(); wait > 0 {
		waitTimer := time.NewTimer(wait + preRoll)
		defer waitTimer.Stop()
		waitC = waitTimer.C
	}

	frames := src.Output()
	for {
		select {
		case <-ctx.Done():
			return end(OutcomeStopped)

		case <-waitC:
			waitC = nil
			if tracker.Phase() == vad.PhaseWaiting {
				l.logf("Stopped listening due to silence")
				return end(OutcomeSilenceTimeout)
			}

		case frame, ok := <-frames:
			if !ok {
				if ctx.Err() != nil {
					return end(OutcomeStopped)
				}
				if recording.Len() > 0 {
					return recording.Samples(), nil
				}
				l.logf("Speech Error: audio stream ended")
				return end(OutcomeServiceError)
			}

			speech, err := gate.IsSpeech(frame)
			if err != nil {
				l.logf("Speech Error: %v", err)
				return end(OutcomeServiceError)
			}

			switch tracker.Update(speech, audio.FrameDuration(len(frame), rate)) {
			case vad.PhaseWaiting:
				pending.Write(frame)
			case vad.PhaseTimedOut:
				l.logf("Stopped listening due to silence")
				return end(OutcomeSilenceTimeout)
			case vad.PhaseSpeaking:
				if recording.Len() == 0 {
					recording.Append(pending.GetAll())
				}
				recording.Append(frame)
			case vad.PhaseComplete:
				if recording.Len() == 0 {
					recording.Append(pending.GetAll())
				}
				recording.Append(frame)
				return recording.Samples(), nil
			}
		}
	}
}

func (l *Listener) transcribe(ctx context.Context, samples []float32, rate int) (Outcome, string) {
	if l.transcriber == nil {
		l.logf("Speech Error: no transcription service configured")
		return OutcomeServiceError, ""
	}

	reqCtx, cancel := context.WithTimeout(ctx, l.requestTimeout)
	defer cancel()

	res, err := l.transcriber.Transcribe(reqCtx, samples, rate)
	switch {
	case err == nil && strings.TrimSpace(res.Text) != "":
		text := strings.TrimSpace(res.Text)
		l.logf("Transcribed: %s", text)
		return OutcomeTranscribed, text
	case err == nil, errors.Is(err, stt.ErrUnintelligible):
		l.logf("Speech Error: Could not understand audio.")
		return OutcomeUnintelligible, ""
	case ctx.Err() != nil:
		return OutcomeStopped, ""
	default:
		l.logf("Speech Error: %v", err)
		return OutcomeServiceError, ""
	}
}

func (l *Listener) callbacks() (func(string), func(string), func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onTranscription, l.onLog, l.onStop
}

func (l *Listener) emitTranscription(text string) {
	fn, _, _ := l.callbacks()
	if fn != nil {
		l.safeCall("transcription", func() { fn(text) })
	}
}

func (l *Listener) notifyStop() {
	_, _, fn := l.callbacks()
	if fn != nil {
		l.safeCall("stop", fn)
	}
}

func (l *Listener) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Debug(msg)

	_, fn, _ := l.callbacks()
	if fn != nil {
		l.safeCall("log", func() { fn(msg) })
	}
}

// safeCall runs a user callback, logging instead of propagating a panic
func (l *Listener) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Listener callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
