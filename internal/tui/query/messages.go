package query

import (
	"github.com/msto63/englishquery/internal/orchestrator"
)

// submitDoneMsg is sent when a question has been answered or failed
type submitDoneMsg struct {
	submission *orchestrator.Submission
	err        error
}

// voiceEventKind distinguishes listener callbacks
type voiceEventKind int

const (
	voiceText voiceEventKind = iota
	voiceLog
	voiceStopped
)

// voiceMsg carries one listener callback into the UI loop
type voiceMsg struct {
	kind voiceEventKind
	text string
}

// voiceToggledMsg is sent after a start or stop request returned
type voiceToggledMsg struct {
	listening bool
}
