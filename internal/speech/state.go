// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     speech
// Description: Listener state machine
// Author:      Mike Stoffels
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package speech

import (
	"slices"
	"sync"
)

// State represents the current state of the listener
type State int

const (
	// StateIdle - microphone closed, waiting for Start
	StateIdle State = iota

	// StateListening - capturing and transcribing one phrase
	StateListening
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// Icon returns an icon for the state
func (s State) Icon() string {
	switch s {
	case StateIdle:
		return "⏸"
	case StateListening:
		return "🎤"
	default:
		return "?"
	}
}

var validTransitions = map[State][]State{
	StateIdle:      {StateListening},
	StateListening: {StateIdle},
}

// StateChangeListener is called when state changes
type StateChangeListener func(oldState, newState State)

// StateMachine manages state transitions
type StateMachine struct {
	mu           sync.RWMutex
	currentState State
	listeners    []StateChangeListener
}

// NewStateMachine creates a state machine in StateIdle
func NewStateMachine() *StateMachine {
	return &StateMachine{currentState: StateIdle}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Transition changes to a new state. It returns false for transitions
// that are not allowed, including a transition to the current state.
func (sm *StateMachine) Transition(newState State) bool {
	sm.mu.Lock()
	oldState := sm.currentState
	if !slices.Contains(validTransitions[oldState], newState) {
		sm.mu.Unlock()
		return false
	}
	sm.currentState = newState
	listeners := slices.Clone(sm.listeners)
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, newState)
	}
	return true
}

// AddListener adds a state change listener
func (sm *StateMachine) AddListener(listener StateChangeListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}
