package vad

import (
	"errors"
	"testing"
	"time"
)

const frame = 30 * time.Millisecond

func TestTracker_TimesOutWithoutSpeech(t *testing.T) {
	tr := NewTracker(Limits{WaitTimeout: 90 * time.Millisecond, PauseThreshold: time.Second})

	phases := []Phase{
		tr.Update(false, frame),
		tr.Update(false, frame),
		tr.Update(false, frame),
	}
	want := []Phase{PhaseWaiting, PhaseWaiting, PhaseTimedOut}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("Update #%d = %v, want %v", i, phases[i], want[i])
		}
	}
	if !tr.Phase().Done() {
		t.Error("Phase().Done() = false, want true")
	}
}

func TestTracker_CompletesOnPause(t *testing.T) {
	tr := NewTracker(Limits{WaitTimeout: time.Second, PauseThreshold: 60 * time.Millisecond})

	if got := tr.Update(true, frame); got != PhaseSpeaking {
		t.Fatalf("Update(speech) = %v, want speaking", got)
	}
	tr.Update(false, frame)
	// Speech resets the pause counter
	tr.Update(true, frame)
	if got := tr.Update(false, frame); got != PhaseSpeaking {
		t.Errorf("Update after reset = %v, want speaking", got)
	}
	if got := tr.Update(false, frame); got != PhaseComplete {
		t.Errorf("Update after pause = %v, want complete", got)
	}
	if got := tr.SpeechDuration(); got != 5*frame {
		t.Errorf("SpeechDuration() = %v, want %v", got, 5*frame)
	}
}

func TestTracker_CompletesOnPhraseLimit(t *testing.T) {
	tr := NewTracker(Limits{PauseThreshold: time.Second, PhraseTimeLimit: 90 * time.Millisecond})

	tr.Update(true, frame)
	tr.Update(true, frame)
	if got := tr.Update(true, frame); got != PhaseComplete {
		t.Errorf("Update at phrase limit = %v, want complete", got)
	}
	// Final phases stick
	if got := tr.Update(true, frame); got != PhaseComplete {
		t.Errorf("Update after complete = %v, want complete", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
	got := RMS([]float32{0.5, -0.5, 0.5, -0.5})
	if want := 0.5 * 32767; got < want-0.01 || got > want+0.01 {
		t.Errorf("RMS(square) = %v, want %v", got, want)
	}
}

type stubDetector struct {
	speech bool
	err    error
	calls  int
}

func (d *stubDetector) Process([]float32) (bool, error) {
	d.calls++
	return d.speech, d.err
}

func (d *stubDetector) Close() error { return nil }

func TestGate_IsSpeech(t *testing.T) {
	loud := []float32{0.2, -0.2, 0.2, -0.2}
	quiet := []float32{0.0001, -0.0001}

	tests := []struct {
		name      string
		samples   []float32
		detector  *stubDetector
		want      bool
		wantCalls int
	}{
		{"quiet skips detector", quiet, &stubDetector{speech: true}, false, 0},
		{"loud and voiced", loud, &stubDetector{speech: true}, true, 1},
		{"loud but unvoiced", loud, &stubDetector{speech: false}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(300, tt.detector)
			got, err := g.IsSpeech(tt.samples)
			if err != nil {
				t.Fatalf("IsSpeech() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSpeech() = %v, want %v", got, tt.want)
			}
			if tt.detector.calls != tt.wantCalls {
				t.Errorf("detector calls = %d, want %d", tt.detector.calls, tt.wantCalls)
			}
		})
	}
}

func TestGate_EnergyOnlyAndErrors(t *testing.T) {
	g := NewGate(300, nil)
	if ok, _ := g.IsSpeech([]float32{0.5, -0.5}); !ok {
		t.Error("energy-only gate should accept loud audio")
	}

	boom := errors.New("boom")
	g = NewGate(0, &stubDetector{err: boom})
	if _, err := g.IsSpeech([]float32{0.5}); !errors.Is(err, boom) {
		t.Errorf("IsSpeech() error = %v, want %v", err, boom)
	}
}

func TestToInt16_Clamps(t *testing.T) {
	got := ToInt16([]float32{2, -2, 0})
	if got[0] != 32767 || got[1] != -32767 || got[2] != 0 {
		t.Errorf("ToInt16() = %v, want [32767 -32767 0]", got)
	}
}

func TestNewWebRTCVAD_RejectsRate(t *testing.T) {
	if _, err := NewWebRTCVAD(Config{SampleRate: 44100}); err == nil {
		t.Error("NewWebRTCVAD(44100) error = nil, want error")
	}
}
