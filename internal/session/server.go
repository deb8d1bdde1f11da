package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"tastingroom/internal/deck"
	"tastingroom/internal/tasting"
)

var upgrader = websocket.Upgrader{
	// Origin is enforced at the gateway; the service itself is not exposed.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Loader resolves a session code into the deck the playback runs over.
type Loader interface {
	Load(ctx context.Context, code string) (tasting.Session, []deck.Wine, []deck.Slide, error)
}

// run is the live playback state of one session: the traversal plus the
// mutex serializing navigation against it.
type run struct {
	mu        sync.Mutex
	sessionID string
	trav      *deck.Traversal
}

type Server struct {
	hub    *Hub
	rdb    *redis.Client
	loader Loader
	ctx    context.Context

	mu   sync.Mutex
	runs map[string]*run
}

func NewServer(hub *Hub, rdb *redis.Client, loader Loader, ctx context.Context) *Server {
	return &Server{
		hub:    hub,
		rdb:    rdb,
		loader: loader,
		ctx:    ctx,
		runs:   make(map[string]*run),
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/sessions/{code}/ws", s.handleWS)
	r.Get("/sessions/{code}/state", s.handleState)
	r.Post("/sessions/{code}/advance", s.handleAdvance)
	r.Post("/sessions/{code}/back", s.handleBack)

	return r
}

// RunRedisSubscriber forwards events published on the broadcast channel
// into the hub. Events carrying a "room" reach only that session's
// clients; everything else goes to every connection.
func (s *Server) RunRedisSubscriber() {
	sub := s.rdb.Subscribe(s.ctx, "broadcast")
	defer sub.Close()

	ch := sub.Channel()
	for msg := range ch {
		var envelope struct {
			Room string `json:"room"`
		}
		_ = json.Unmarshal([]byte(msg.Payload), &envelope)
		s.hub.Send(envelope.Room, []byte(msg.Payload))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "session-service",
	})
}

// sessionRun returns the live run for a session code, creating it on first
// touch. The sequence is built once per run; editor changes during a live
// session do not reshuffle slides under participants.
func (s *Server) sessionRun(ctx context.Context, code string) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rn, ok := s.runs[code]; ok {
		return rn, nil
	}

	sess, wines, slides, err := s.loader.Load(ctx, code)
	if err != nil {
		return nil, err
	}

	entries := deck.BuildSequence(wines, slides)
	rn := &run{sessionID: sess.ID}
	rn.trav = deck.NewTraversal(entries, func() {
		s.publish(map[string]any{
			"type": "session.completed",
			"room": sess.ID,
			"payload": map[string]any{
				"sessionId": sess.ID,
			},
		})
	})
	s.runs[code] = rn
	return rn, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rn, err := s.sessionRun(r.Context(), code)
	if err != nil {
		if errors.Is(err, tasting.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session-service: ws load session: %v", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("session-service: ws upgrade: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		room: rn.sessionID,
		send: make(chan []byte, 256),
	}
	s.hub.register <- client

	// Late joiners land on the current slide, not the beginning.
	rn.mu.Lock()
	state := currentState(rn)
	rn.mu.Unlock()
	if b, err := json.Marshal(map[string]any{
		"type":    "session.state",
		"payload": state,
	}); err == nil {
		client.send <- b
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rn, err := s.sessionRun(r.Context(), code)
	if err != nil {
		if errors.Is(err, tasting.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session-service: state load session: %v", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}

	rn.mu.Lock()
	state := currentState(rn)
	rn.mu.Unlock()
	writeJSON(w, http.StatusOK, state)
}

// handleAdvance moves the session forward one step and tells the room what
// kind of move it was, so clients can play the matching transition before
// landing.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rn, err := s.sessionRun(r.Context(), code)
	if err != nil {
		if errors.Is(err, tasting.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session-service: advance load session: %v", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}

	rn.mu.Lock()
	step := rn.trav.Next()
	payload := map[string]any{
		"sessionId": rn.sessionID,
		"kind":      step.Kind.String(),
		"delayMs":   step.Delay.Milliseconds(),
		"entry":     wireEntry(step.Entry),
		"progress":  rn.trav.Progress(),
		"index":     rn.trav.Index(),
		"done":      rn.trav.Done(),
	}
	rn.mu.Unlock()

	s.publish(map[string]any{
		"type":    "session.advanced",
		"room":    rn.sessionID,
		"payload": payload,
	})

	writeJSON(w, http.StatusOK, payload)
}

// handleBack moves the session one slide back, immediately and without a
// transition.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rn, err := s.sessionRun(r.Context(), code)
	if err != nil {
		if errors.Is(err, tasting.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session-service: back load session: %v", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}

	rn.mu.Lock()
	entry, ok := rn.trav.Previous()
	var wire any
	if ok {
		wire = wireEntry(&entry)
	}
	payload := map[string]any{
		"sessionId": rn.sessionID,
		"moved":     ok,
		"entry":     wire,
		"progress":  rn.trav.Progress(),
		"index":     rn.trav.Index(),
		"done":      rn.trav.Done(),
	}
	rn.mu.Unlock()

	s.publish(map[string]any{
		"type":    "session.rewound",
		"room":    rn.sessionID,
		"payload": payload,
	})

	writeJSON(w, http.StatusOK, payload)
}

// publish routes events through redis so every service replica's hub sees
// them, falling back to the local hub when redis is absent (tests).
func (s *Server) publish(event map[string]any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("session-service: marshal event: %v", err)
		return
	}
	if s.rdb == nil {
		room, _ := event["room"].(string)
		s.hub.Send(room, data)
		return
	}
	if err := s.rdb.Publish(s.ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("session-service: publish event: %v", err)
	}
}

// currentState snapshots where a run stands. Callers hold rn.mu.
func currentState(rn *run) map[string]any {
	var wire any
	if entry, ok := rn.trav.Current(); ok {
		wire = wireEntry(&entry)
	}
	return map[string]any{
		"sessionId": rn.sessionID,
		"entry":     wire,
		"progress":  rn.trav.Progress(),
		"index":     rn.trav.Index(),
		"done":      rn.trav.Done(),
	}
}

// wireEntry is the JSON shape of a sequence entry sent to clients.
func wireEntry(e *deck.SequenceEntry) any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"slide":        e.Slide,
		"wineId":       e.WineID,
		"section":      e.Section,
		"packageIntro": e.PackageIntro,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
