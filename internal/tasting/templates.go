package tasting

import "encoding/json"

// SlideTemplate is a quick-builder preset for common slide shapes. The
// create-slide handler uses templates as defaults; any field in the
// request body overrides the template's value.
type SlideTemplate struct {
	Type        string
	SectionType string
	Payload     json.RawMessage
}

var slideTemplates = map[string]SlideTemplate{
	"welcome": {
		Type:        "interlude",
		SectionType: "intro",
		Payload:     json.RawMessage(`{"title":"Welcome","body":"","is_welcome":true}`),
	},
	"package_intro": {
		Type:        "interlude",
		SectionType: "intro",
		Payload:     json.RawMessage(`{"title":"","body":"","is_package_intro":true}`),
	},
	"first_impression": {
		Type:        "question",
		SectionType: "intro",
		Payload: json.RawMessage(`{
			"prompt": "What is your first impression?",
			"options": [
				{"id": "love", "label": "Love it"},
				{"id": "curious", "label": "Curious"},
				{"id": "unsure", "label": "Not sure yet"}
			]
		}`),
	},
	"aroma": {
		Type:        "question",
		SectionType: "deep_dive",
		Payload: json.RawMessage(`{
			"prompt": "Which aromas do you notice?",
			"allow_multiple": true,
			"options": [
				{"id": "fruit", "label": "Fruit"},
				{"id": "floral", "label": "Floral"},
				{"id": "oak", "label": "Oak"},
				{"id": "spice", "label": "Spice"},
				{"id": "earth", "label": "Earth"}
			]
		}`),
	},
	"verdict": {
		Type:        "question",
		SectionType: "ending",
		Payload: json.RawMessage(`{
			"prompt": "Would you buy this wine?",
			"options": [
				{"id": "yes", "label": "Yes"},
				{"id": "maybe", "label": "Maybe"},
				{"id": "no", "label": "No"}
			]
		}`),
	},
	"host_video": {
		Type:        "video_message",
		SectionType: "deep_dive",
		Payload:     json.RawMessage(`{"url":""}`),
	},
}
