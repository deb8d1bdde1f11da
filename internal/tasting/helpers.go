package tasting

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tastingroom/internal/deck"
)

// DB is the slice of pgxpool.Pool the handlers need. Tests swap in fakes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func (s *Server) getPackageHost(ctx context.Context, packageID string) (hostID string, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT host_id
		FROM packages
		WHERE id = $1
	`, packageID).Scan(&hostID)
	return
}

// getWineOwner resolves a wine to its package and host for access checks.
func (s *Server) getWineOwner(ctx context.Context, wineID string) (packageID, hostID string, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT w.package_id, p.host_id
		FROM wines w
		JOIN packages p ON p.id = w.package_id
		WHERE w.id = $1
	`, wineID).Scan(&packageID, &hostID)
	return
}

// getSlideOwner resolves a slide to its wine, package and host.
func (s *Server) getSlideOwner(ctx context.Context, slideID string) (wineID, packageID, hostID string, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT s.wine_id, w.package_id, p.host_id
		FROM slides s
		JOIN wines w ON w.id = s.wine_id
		JOIN packages p ON p.id = w.package_id
		WHERE s.id = $1
	`, slideID).Scan(&wineID, &packageID, &hostID)
	return
}

// codeAlphabet avoids 0/O and 1/I so codes survive being read out loud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newAccessCode returns a 6-character code for packages and sessions.
func newAccessCode() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "AAAAAA"
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// publishEvent pushes an event to the realtime broadcast channel
// (best-effort). Events carrying a "room" land only in that session's
// websocket room.
func (s *Server) publishEvent(ctx context.Context, event map[string]any) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("tasting-service: marshal event: %v", err)
		return
	}
	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("tasting-service: publish event: %v", err)
	}
}

// wineSlidesTx loads one wine's slides inside a transaction, locking the
// rows so concurrent reorders serialize on the store side too.
func wineSlidesTx(ctx context.Context, tx pgx.Tx, wineID string) ([]Slide, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, wine_id, type, COALESCE(section_type, ''), position, payload, created_at
		FROM slides
		WHERE wine_id = $1
		ORDER BY position ASC
		FOR UPDATE
	`, wineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slide
	for rows.Next() {
		var sl Slide
		if err := rows.Scan(&sl.ID, &sl.WineID, &sl.Type, &sl.SectionType, &sl.Position, &sl.Payload, &sl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// toDeckSlide converts a stored slide into the engine's typed shape,
// decoding the payload blob per slide type.
func toDeckSlide(sl Slide) (deck.Slide, error) {
	payload, err := deck.DecodePayload(deck.SlideType(sl.Type), sl.Payload)
	if err != nil {
		return deck.Slide{}, err
	}
	return deck.Slide{
		ID:       sl.ID,
		WineID:   sl.WineID,
		Position: sl.Position,
		Type:     deck.SlideType(sl.Type),
		Section:  deck.SectionType(sl.SectionType),
		Payload:  payload,
	}, nil
}

func toDeckWine(w Wine) deck.Wine {
	return deck.Wine{
		ID:          w.ID,
		PackageID:   w.PackageID,
		Name:        w.Name,
		Description: w.Description,
		Position:    w.Position,
	}
}
