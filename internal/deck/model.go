package deck

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SlideType enumerates the kinds of content a wine's deck can hold.
type SlideType string

const (
	SlideInterlude    SlideType = "interlude"
	SlideQuestion     SlideType = "question"
	SlideVideoMessage SlideType = "video_message"
	SlideAudioMessage SlideType = "audio_message"
	SlideMedia        SlideType = "media"

	// SlideTransition still appears in decks authored before transitions
	// became synthesized during playback. It is never traversed as content.
	SlideTransition SlideType = "transition"
)

// SectionType groups a wine's slides into the three phases of a tasting.
type SectionType string

const (
	SectionNone     SectionType = ""
	SectionIntro    SectionType = "intro"
	SectionDeepDive SectionType = "deep_dive"
	SectionEnding   SectionType = "ending"
)

// Wine is an ordered component of a package. Position is 1-based and
// unique within the package.
type Wine struct {
	ID          string `json:"id"`
	PackageID   string `json:"packageId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// Package is a host-authored tasting event containing one or more wines.
type Package struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	HostID      string `json:"hostId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Slide is an atomic content unit of a tasting. Position is an integer
// ordering key unique only within the owning wine, never globally.
type Slide struct {
	ID       string      `json:"id"`
	WineID   string      `json:"wineId"`
	Position int         `json:"position"`
	Type     SlideType   `json:"type"`
	Section  SectionType `json:"sectionType,omitempty"`
	Payload  Payload     `json:"payload"`
}

// Payload is the type-specific content of a slide. Each slide type has
// exactly one payload variant, so a switch over Kind covers every case.
type Payload interface {
	Kind() SlideType
}

type InterludePayload struct {
	Title          string `json:"title"`
	Body           string `json:"body,omitempty"`
	IsWelcome      bool   `json:"is_welcome,omitempty"`
	IsPackageIntro bool   `json:"is_package_intro,omitempty"`
}

func (InterludePayload) Kind() SlideType { return SlideInterlude }

type QuestionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type QuestionPayload struct {
	Prompt        string           `json:"prompt"`
	Options       []QuestionOption `json:"options,omitempty"`
	AllowMultiple bool             `json:"allow_multiple,omitempty"`
}

func (QuestionPayload) Kind() SlideType { return SlideQuestion }

type VideoMessagePayload struct {
	URL         string `json:"url"`
	DurationSec int    `json:"duration_sec,omitempty"`
}

func (VideoMessagePayload) Kind() SlideType { return SlideVideoMessage }

type AudioMessagePayload struct {
	URL         string `json:"url"`
	DurationSec int    `json:"duration_sec,omitempty"`
}

func (AudioMessagePayload) Kind() SlideType { return SlideAudioMessage }

type MediaItem struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type MediaPayload struct {
	Items []MediaItem `json:"items"`
}

func (MediaPayload) Kind() SlideType { return SlideMedia }

// TransitionPayload carries nothing; kept so legacy rows still decode.
type TransitionPayload struct{}

func (TransitionPayload) Kind() SlideType { return SlideTransition }

// DecodePayload unmarshals a stored payload blob into the variant matching
// the slide type. Unknown types are an error, never a silent default.
func DecodePayload(t SlideType, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case SlideInterlude:
		var p InterludePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case SlideQuestion:
		var p QuestionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case SlideVideoMessage:
		var p VideoMessagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case SlideAudioMessage:
		var p AudioMessagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case SlideMedia:
		var p MediaPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case SlideTransition:
		return TransitionPayload{}, nil
	default:
		return nil, fmt.Errorf("deck: unknown slide type %q", t)
	}
}

// IsWelcome reports whether s is a wine's welcome slide: an interlude in
// the intro section flagged is_welcome. The title match is a legacy
// fallback for decks authored before the flag existed.
func IsWelcome(s Slide) bool {
	if s.Type != SlideInterlude || s.Section != SectionIntro {
		return false
	}
	p, ok := s.Payload.(InterludePayload)
	if !ok {
		return false
	}
	if p.IsWelcome {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), "welcome")
}

// IsPackageIntro reports whether s is the package-level intro slide. It is
// stored against the first wine but traverses before every wine.
func IsPackageIntro(s Slide) bool {
	p, ok := s.Payload.(InterludePayload)
	return ok && p.IsPackageIntro
}

// SortByPosition returns a copy of slides ordered by ascending position,
// ties broken by ID so the order is deterministic.
func SortByPosition(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// slidesOfWine filters slides belonging to a single wine.
func slidesOfWine(slides []Slide, wineID string) []Slide {
	var out []Slide
	for _, s := range slides {
		if s.WineID == wineID {
			out = append(out, s)
		}
	}
	return out
}
