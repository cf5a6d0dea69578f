package vad

import "math"

// RMS returns the root mean square energy of the samples on the 16-bit
// PCM scale, so thresholds match the usual recognizer settings.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) * 32767
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Gate combines an energy floor with an optional Detector. A frame is
// speech when its energy reaches the threshold and the detector agrees.
type Gate struct {
	threshold float64
	detector  Detector
}

// NewGate creates a gate. A nil detector makes the gate energy-only.
func NewGate(threshold float64, detector Detector) *Gate {
	return &Gate{threshold: threshold, detector: detector}
}

// IsSpeech classifies one frame
func (g *Gate) IsSpeech(samples []float32) (bool, error) {
	if RMS(samples) < g.threshold {
		return false, nil
	}
	if g.detector == nil {
		return true, nil
	}
	return g.detector.Process(samples)
}

// Close closes the detector, if any
func (g *Gate) Close() error {
	if g.detector == nil {
		return nil
	}
	return g.detector.Close()
}
