package model

// Centralized icons for outcome listings.
// Using simple single-width characters for consistent terminal rendering
const (
	IconPassed    = "✓"
	IconFailed    = "✗"
	IconUpdated   = "↻" // Golden rewritten
	IconUntouched = "=" // Golden already matched
	IconTop       = "T" // Rendering of the unbounded delta
)
