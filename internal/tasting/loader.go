package tasting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tastingroom/internal/deck"
)

// ErrSessionNotFound is returned by the loader when no session matches the
// requested code.
var ErrSessionNotFound = errors.New("session not found")

// SessionLoader resolves a session code into the data the playback side
// needs: the session row plus the package's wines and slides in deck form.
// The realtime service owns the traversal; this is its read path.
type SessionLoader struct {
	db DB
}

func NewSessionLoader(db DB) *SessionLoader {
	return &SessionLoader{db: db}
}

// Load fetches the session and its package deck.
func (l *SessionLoader) Load(ctx context.Context, code string) (Session, []deck.Wine, []deck.Slide, error) {
	var sess Session
	err := l.db.QueryRow(ctx, `
		SELECT id, package_id, code, created_at
		FROM sessions
		WHERE code = $1
	`, code).Scan(&sess.ID, &sess.PackageID, &sess.Code, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, nil, nil, err
	}

	rows, err := l.db.Query(ctx, `
		SELECT id, package_id, name, description, position, created_at
		FROM wines
		WHERE package_id = $1
		ORDER BY position ASC
	`, sess.PackageID)
	if err != nil {
		return Session{}, nil, nil, err
	}
	defer rows.Close()

	var wines []deck.Wine
	for rows.Next() {
		var wn Wine
		if err := rows.Scan(&wn.ID, &wn.PackageID, &wn.Name, &wn.Description, &wn.Position, &wn.CreatedAt); err != nil {
			return Session{}, nil, nil, err
		}
		wines = append(wines, toDeckWine(wn))
	}
	if err := rows.Err(); err != nil {
		return Session{}, nil, nil, err
	}

	srows, err := l.db.Query(ctx, `
		SELECT s.id, s.wine_id, s.type, COALESCE(s.section_type, ''), s.position, s.payload, s.created_at
		FROM slides s
		JOIN wines w ON w.id = s.wine_id
		WHERE w.package_id = $1
		ORDER BY w.position ASC, s.position ASC
	`, sess.PackageID)
	if err != nil {
		return Session{}, nil, nil, err
	}
	defer srows.Close()

	var slides []deck.Slide
	for srows.Next() {
		var sl Slide
		if err := srows.Scan(&sl.ID, &sl.WineID, &sl.Type, &sl.SectionType, &sl.Position, &sl.Payload, &sl.CreatedAt); err != nil {
			return Session{}, nil, nil, err
		}
		ds, err := toDeckSlide(sl)
		if err != nil {
			return Session{}, nil, nil, fmt.Errorf("slide %s: %w", sl.ID, err)
		}
		slides = append(slides, ds)
	}
	if err := srows.Err(); err != nil {
		return Session{}, nil, nil, err
	}

	return sess, wines, slides, nil
}
