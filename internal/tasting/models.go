package tasting

import (
	"encoding/json"
	"time"
)

// Package is a host-authored tasting event. Participants reach it through
// a session, never directly.
type Package struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	HostID      string    `json:"hostId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Wine belongs to a package. Wines are ordered by Position (1-based,
// unique within the package).
type Wine struct {
	ID          string    `json:"id"`
	PackageID   string    `json:"packageId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Slide belongs to a wine. Position is unique only within the wine; the
// payload blob is typed per slide type and decoded by the deck engine.
type Slide struct {
	ID          string          `json:"id"`
	WineID      string          `json:"wineId"`
	Type        string          `json:"type"`
	SectionType string          `json:"sectionType,omitempty"`
	Position    int             `json:"position"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Session is a live run of a package that participants join by code,
// without an account.
type Session struct {
	ID        string    `json:"id"`
	PackageID string    `json:"packageId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

type Participant struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Response is a participant's answer to a question slide. One response per
// participant per slide; re-submitting replaces the answer.
type Response struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId"`
	ParticipantID string          `json:"participantId"`
	SlideID       string          `json:"slideId"`
	Answer        json.RawMessage `json:"answer"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// AnalyticsSummary is the fixed-shape aggregate shown on the completion
// view. Consumers display it; how it is computed is nobody's business but
// this service's.
type AnalyticsSummary struct {
	SessionID     string          `json:"sessionId"`
	ParticipantID string          `json:"participantId"`
	Responses     int             `json:"responses"`
	GroupSize     int             `json:"groupSize"`
	Agreement     float64         `json:"agreement"`
	Personality   string          `json:"personality"`
	Wines         []WineBreakdown `json:"wines"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

type WineBreakdown struct {
	WineID    string  `json:"wineId"`
	Name      string  `json:"name"`
	Responses int     `json:"responses"`
	Agreement float64 `json:"agreement"`
}
