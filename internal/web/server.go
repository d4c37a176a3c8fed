// Package web serves the hydration monitor's status page, intake history and metrics.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/hydration-cup/internal/logic"
	"github.com/sweeney/hydration-cup/internal/status"
)

// IntakeSource lists intake events at or after a given time.
type IntakeSource interface {
	Intakes(since time.Time) ([]logic.IntakeEvent, error)
}

// Options selects the optional endpoints.
type Options struct {
	// Gatherer enables /metrics.
	Gatherer prometheus.Gatherer
	// Intakes enables /intakes.json and the daily total on the page.
	Intakes IntakeSource
	// Now defaults to time.Now. It decides where "today" starts.
	Now func() time.Time
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	intakes    IntakeSource
	now        func() time.Time
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	s := &Server{tracker: tracker, intakes: opts.Intakes, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if opts.Intakes != nil {
		mux.HandleFunc("/intakes.json", s.handleIntakes)
	}
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	page := pageData{Snapshot: s.tracker.Snapshot()}
	if s.intakes != nil {
		if events, err := s.intakes.Intakes(startOfDay(s.now())); err == nil {
			page.HasToday = true
			page.TodayML = logic.TotalML(events)
			page.TodayDrinks = len(events)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, page)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// IntakesJSON is the /intakes.json document.
type IntakesJSON struct {
	Since   string       `json:"since"`
	Events  []IntakeJSON `json:"events"`
	TotalML int          `json:"total_ml"`
}

// IntakeJSON is one event in IntakesJSON.
type IntakeJSON struct {
	Time     string `json:"time"`
	AmountML int    `json:"amount_ml"`
}

// handleIntakes lists today's intakes, or those since the RFC3339 ?since= value.
func (s *Server) handleIntakes(w http.ResponseWriter, r *http.Request) {
	since := startOfDay(s.now())
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}

	events, err := s.intakes.Intakes(since)
	if err != nil {
		http.Error(w, "weight log unavailable", http.StatusServiceUnavailable)
		return
	}

	doc := IntakesJSON{
		Since:   since.Format(time.RFC3339),
		Events:  make([]IntakeJSON, 0, len(events)),
		TotalML: logic.TotalML(events),
	}
	for _, e := range events {
		doc.Events = append(doc.Events, IntakeJSON{Time: e.Time.Format(time.RFC3339), AmountML: e.AmountML})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
