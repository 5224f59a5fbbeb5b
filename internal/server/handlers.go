package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/sessions"
	"whackgoblin/internal/wshub"
)

const sessionCookie = "session_id"

type Server struct {
	Sessions *sessions.Store
	Tmpl     *template.Template
}

// getSession resolves the current session from the session_id cookie.
func (s *Server) getSession(r *http.Request) *sessions.Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	return s.Sessions.Get(cookie.Value)
}

// requireSession writes a 404 when the caller has no live session.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *sessions.Session {
	sess := s.getSession(r)
	if sess == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
	}
	return sess
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(r)
	if sess == nil {
		sess = s.Sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if err := s.Tmpl.ExecuteTemplate(w, "game", sess.Game.Snapshot()); err != nil {
		log.Println(err)
		http.Error(w, "Error rendering game page", http.StatusInternalServerError)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if sess := s.requireSession(w, r); sess != nil {
		sess.Game.Start()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if sess := s.requireSession(w, r); sess != nil {
		sess.Game.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if sess := s.requireSession(w, r); sess != nil {
		sess.Game.Toggle()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess := s.requireSession(w, r); sess != nil {
		log.Printf("[Handle:Reset] Session %s\n", sess.ID)
		sess.Game.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= len(sess.Game.Snapshot().Cells) {
		http.Error(w, "Invalid cell index", http.StatusBadRequest)
		return
	}
	sess.Game.Click(index)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	if !sess.Game.Key(r.PathValue("code")) {
		http.Error(w, "Unknown key", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	hidden, err := strconv.ParseBool(r.FormValue("hidden"))
	if err != nil {
		http.Error(w, "Invalid hidden value", http.StatusBadRequest)
		return
	}
	sess.Game.SetVisible(!hidden)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, sess.Game.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	msgChan := sess.Broadcaster.Subscribe()
	defer sess.Broadcaster.Unsubscribe(msgChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.Broadcaster.Done():
			return
		case msg := <-msgChan:
			s.Sessions.Touch(sess)
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Msg, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[WSHub] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wshub.Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	sess.Hub.Register(client)
	defer sess.Hub.Unregister(client.ID)
	go client.WritePump(ctx)

	// A swept session closes its game; drop the socket with it.
	go func() {
		select {
		case <-sess.Broadcaster.Done():
			conn.Close(websocket.StatusGoingAway, "session ended")
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		var msg wshub.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				log.Printf("[WSHub] Read error: %v\n", err)
			}
			return
		}
		s.Sessions.Touch(sess)
		if err := dispatch(sess.Game, msg); err != nil {
			log.Printf("[WSHub] %v\n", err)
		}
	}
}

// dispatch applies one client control message to the game.
func dispatch(g *gamedata.Game, msg wshub.ClientMessage) error {
	switch msg.Type {
	case wshub.MsgClick:
		g.Click(msg.Index)
	case wshub.MsgKey:
		if !g.Key(msg.Key) {
			return fmt.Errorf("unknown key %q", msg.Key)
		}
	case wshub.MsgStart:
		g.Start()
	case wshub.MsgPause:
		g.Pause()
	case wshub.MsgReset:
		g.Reset()
	case wshub.MsgVisibility:
		g.SetVisible(!msg.Hidden)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": len(s.Sessions.List()),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Encode error: %v\n", err)
	}
}
