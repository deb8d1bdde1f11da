package tasting

import (
	"context"
)

// personality labels for the completion view, keyed off how often the
// participant matched the group's modal answer.
const (
	personalityHarmonizer  = "crowd harmonizer"
	personalityBalanced    = "balanced taster"
	personalityIndependent = "independent palate"
)

const (
	harmonizerThreshold = 0.75
	balancedThreshold   = 0.45
)

type sessionResponse struct {
	ParticipantID string
	SlideID       string
	WineID        string
	WineName      string
	Answer        string
}

// buildSummary aggregates one participant's answers against the whole
// group. Agreement is the share of the participant's answered slides where
// their answer equals the slide's modal answer (ties resolved toward the
// participant, which reads as generous but keeps the label stable when two
// answers split the room evenly).
func (s *Server) buildSummary(ctx context.Context, sessionID, participantID string) (AnalyticsSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.participant_id, r.slide_id, w.id, w.name, r.answer::text
		FROM responses r
		JOIN slides sl ON sl.id = r.slide_id
		JOIN wines w ON w.id = sl.wine_id
		WHERE r.session_id = $1
	`, sessionID)
	if err != nil {
		return AnalyticsSummary{}, err
	}
	defer rows.Close()

	var all []sessionResponse
	for rows.Next() {
		var sr sessionResponse
		if err := rows.Scan(&sr.ParticipantID, &sr.SlideID, &sr.WineID, &sr.WineName, &sr.Answer); err != nil {
			return AnalyticsSummary{}, err
		}
		all = append(all, sr)
	}
	if err := rows.Err(); err != nil {
		return AnalyticsSummary{}, err
	}

	var groupSize int
	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants WHERE session_id = $1
	`, sessionID).Scan(&groupSize); err != nil {
		return AnalyticsSummary{}, err
	}

	// Modal answer per slide, across the whole group.
	counts := make(map[string]map[string]int)
	for _, sr := range all {
		if counts[sr.SlideID] == nil {
			counts[sr.SlideID] = make(map[string]int)
		}
		counts[sr.SlideID][sr.Answer]++
	}

	summary := AnalyticsSummary{
		SessionID:     sessionID,
		ParticipantID: participantID,
		GroupSize:     groupSize,
		Wines:         []WineBreakdown{},
	}

	wineIndex := make(map[string]int)
	wineMatches := make(map[string]int)

	matches := 0
	for _, sr := range all {
		if sr.ParticipantID != participantID {
			continue
		}
		summary.Responses++

		if _, ok := wineIndex[sr.WineID]; !ok {
			wineIndex[sr.WineID] = len(summary.Wines)
			summary.Wines = append(summary.Wines, WineBreakdown{
				WineID: sr.WineID,
				Name:   sr.WineName,
			})
		}
		wb := &summary.Wines[wineIndex[sr.WineID]]
		wb.Responses++

		if isModal(counts[sr.SlideID], sr.Answer) {
			matches++
			wineMatches[sr.WineID]++
		}
	}

	if summary.Responses > 0 {
		summary.Agreement = float64(matches) / float64(summary.Responses)
	}
	for id, idx := range wineIndex {
		wb := &summary.Wines[idx]
		if wb.Responses > 0 {
			wb.Agreement = float64(wineMatches[id]) / float64(wb.Responses)
		}
	}

	switch {
	case summary.Responses == 0:
		summary.Personality = personalityIndependent
	case summary.Agreement >= harmonizerThreshold:
		summary.Personality = personalityHarmonizer
	case summary.Agreement >= balancedThreshold:
		summary.Personality = personalityBalanced
	default:
		summary.Personality = personalityIndependent
	}

	return summary, nil
}

// isModal reports whether answer is (one of) the most common answer(s)
// for a slide.
func isModal(slideCounts map[string]int, answer string) bool {
	best := 0
	for _, n := range slideCounts {
		if n > best {
			best = n
		}
	}
	return best > 0 && slideCounts[answer] == best
}
