// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     version
// Description: Central version management for all components
// Author:      Mike Stoffels
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package version

// Version constants for all components
const (
	// Application version
	Application = "1.0.0"

	// Component versions
	Connector  = "1.0.0"
	Translator = "1.0.0"
	Listener   = "1.0.0"
	Login      = "1.0.0"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "connector", "mariadb":
		return Connector
	case "translator":
		return Translator
	case "listener", "speech":
		return Listener
	case "login":
		return Login
	default:
		return Application
	}
}

// Components returns the component names in display order
func Components() []string {
	return []string{"connector", "translator", "listener", "login"}
}
