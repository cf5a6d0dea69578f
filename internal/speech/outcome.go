package speech

// Outcome is how one listening session ended
type Outcome int

const (
	// OutcomeTranscribed - text was recognised and delivered
	OutcomeTranscribed Outcome = iota
	// OutcomeSilenceTimeout - no speech started within the wait limit
	OutcomeSilenceTimeout
	// OutcomeUnintelligible - speech was captured but not understood
	OutcomeUnintelligible
	// OutcomeServiceError - capture or recognition service failed
	OutcomeServiceError
	// OutcomeStopped - Stop was called
	OutcomeStopped
)

// String returns the outcome name used in logs and metrics
func (o Outcome) String() string {
	switch o {
	case OutcomeTranscribed:
		return "transcribed"
	case OutcomeSilenceTimeout:
		return "silence_timeout"
	case OutcomeUnintelligible:
		return "unintelligible"
	case OutcomeServiceError:
		return "service_error"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
