package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"math/rand"
	"net/http"
	"time"
)

//go:embed templates static
var content embed.FS

// ServerConfig holds configuration for the dashboard server.
type ServerConfig struct {
	Port         int           // port to listen on
	Title        string        // dashboard title shown in the header
	Username     string        // login username
	Password     string        // login password
	EmitInterval time.Duration // interval between simulated metric samples, 0 disables
}

// Server provides the modelboard dashboard over HTTP.
type Server struct {
	cfg      ServerConfig
	store    *Store
	hub      *Hub
	buffer   *Buffer
	sessions *Sessions
	srv      *http.Server
}

// NewServer creates a dashboard server backed by the given store.
func NewServer(cfg ServerConfig, store *Store, hub *Hub, buffer *Buffer) *Server {
	if cfg.Title == "" {
		cfg.Title = "Modelboard"
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		buffer:   buffer,
		sessions: NewSessions(),
	}
}

// Start begins listening for HTTP requests.
// blocks until the server is stopped or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	mux, err := s.routes()
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.EmitInterval > 0 {
		go s.emitMetrics(ctx)
	}

	// shutdown listener
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Buffer returns the server's event buffer.
func (s *Server) Buffer() *Buffer {
	return s.buffer
}

// Sessions returns the server's session registry.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// routes builds the request mux.
func (s *Server) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
	mux.HandleFunc("GET /results", s.requireAuth(s.handleResults))
	mux.HandleFunc("GET /charts", s.requireAuth(s.handleCharts))
	mux.HandleFunc("GET /api/models", s.requireAuth(s.handleModels))
	mux.HandleFunc("GET /api/metrics", s.requireAuth(s.handleMetrics))
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("static filesystem: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	return mux, nil
}

// requireAuth redirects unauthenticated requests to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessions.userFrom(r); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// render executes a template from the embedded filesystem.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, err := template.ParseFS(content, "templates/"+name)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("[WARN] render %s: %v", name, err)
	}
}

// loginData holds data for the login template.
type loginData struct {
	Title string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.userFrom(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, "login.html", loginData{Title: s.cfg.Title})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	user := r.PostFormValue("username")
	pass := r.PostFormValue("password")
	if user != s.cfg.Username || pass != s.cfg.Password {
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, "login.html", loginData{Title: s.cfg.Title, Error: "invalid username or password"})
		return
	}

	id := s.sessions.Create(user)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Destroy(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// pageData is the common part of the authenticated page templates.
type pageData struct {
	Title string
	User  string
}

// indexData holds data for the dashboard template.
type indexData struct {
	pageData
	Summary Summary
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessions.userFrom(r)
	s.render(w, "dashboard.html", indexData{
		pageData: pageData{Title: s.cfg.Title, User: user},
		Summary:  s.store.Summary(),
	})
}

// resultsData holds data for the results template.
type resultsData struct {
	pageData
	Generated time.Time
	Models    []Model
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessions.userFrom(r)
	snap := s.store.Snapshot()
	s.render(w, "results.html", resultsData{
		pageData:  pageData{Title: s.cfg.Title, User: user},
		Generated: snap.Generated,
		Models:    snap.Models,
	})
}

// chartsData holds data for the charts template.
type chartsData struct {
	pageData
	Models      []Model
	SampleCount int
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessions.userFrom(r)
	s.render(w, "charts.html", chartsData{
		pageData:    pageData{Title: s.cfg.Title, User: user},
		Models:      s.store.Snapshot().Models,
		SampleCount: s.buffer.Count(),
	})
}

// handleModels serves the current results snapshot as JSON.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(snap)
	if err != nil {
		http.Error(w, "unable to encode results", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

// handleMetrics serves the buffered samples for one chart widget, letting
// charts backfill without replaying the whole event stream.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	widget := r.URL.Query().Get("widget")
	if widget == "" {
		http.Error(w, "widget parameter is required", http.StatusBadRequest)
		return
	}

	events := s.buffer.ByWidget(widget)
	if events == nil {
		events = []Event{} // encode as [] rather than null
	}

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(events)
	if err != nil {
		http.Error(w, "unable to encode metrics", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// handleEvents serves the SSE stream: buffered history first, then live.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	eventCh := s.hub.Subscribe()
	defer s.hub.Unsubscribe(eventCh)

	// events recorded between Subscribe and the buffer snapshot arrive on
	// both paths; track the newest replayed timestamp and skip live events
	// at or before it
	var lastReplayed time.Time
	for _, event := range s.buffer.All() {
		data, err := event.JSON()
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if event.Timestamp.After(lastReplayed) {
			lastReplayed = event.Timestamp
		}
	}
	flusher.Flush()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return // hub closed
			}
			if !event.Timestamp.After(lastReplayed) {
				continue // already delivered in the replay
			}
			data, err := event.JSON()
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// emitMetrics periodically broadcasts simulated latency samples, cycling
// through the stored models. gives the charts page live data to render.
func (s *Server) emitMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.EmitInterval)
	defer ticker.Stop()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // simulated samples, not security sensitive
	idx := 0

	for {
		select {
		case <-ticker.C:
			models := s.store.Snapshot().Models
			if len(models) == 0 {
				continue
			}
			m := models[idx%len(models)]
			idx++

			// jitter the baseline latency by up to ±15%
			jitter := 1 + (rnd.Float64()-0.5)*0.3
			e := NewMetricEvent("latency", m.Name, m.LatencyMs*jitter, "ms")
			s.buffer.Add(e)
			s.hub.Broadcast(e)

		case <-ctx.Done():
			return
		}
	}
}
