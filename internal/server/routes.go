package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whackgoblin/internal/config"
	"whackgoblin/internal/sessions"
	"whackgoblin/internal/timers"
	"whackgoblin/web"
)

func Run() error {
	appCfg := config.Load()

	store := sessions.NewStore(appCfg.Game(), timers.Real(), appCfg.SessionTTLDuration())
	defer store.Close()

	srv, err := NewServer(store)
	if err != nil {
		return err
	}

	addr := "0.0.0.0:" + appCfg.Port
	log.Printf("[Server] Mode %s, %dx%d board\n", appCfg.Game().Mode, appCfg.GridSize, appCfg.GridSize)
	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	return http.ListenAndServe(addr, srv.Routes())
}

func NewServer(store *sessions.Store) (*Server, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Server{
		Sessions: store,
		Tmpl:     tmpl,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /game/start", s.handleStart)
	mux.HandleFunc("POST /game/pause", s.handlePause)
	mux.HandleFunc("POST /game/reset", s.handleReset)
	mux.HandleFunc("POST /game/toggle", s.handleToggle)
	mux.HandleFunc("POST /game/click/{index}", s.handleClick)
	mux.HandleFunc("POST /game/key/{code}", s.handleKey)
	mux.HandleFunc("POST /game/visibility", s.handleVisibility)
	mux.HandleFunc("GET /game/state", s.handleState)
	mux.HandleFunc("GET /game/summary", s.handleSummary)
	mux.HandleFunc("GET /game/events", s.handleEvents)
	mux.HandleFunc("GET /game/ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		log.Printf("[Server] Static assets unavailable: %v\n", err)
	} else {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}
	return mux
}
