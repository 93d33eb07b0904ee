// Package admin serves the HTTP control surface for a running session.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"archops-sim/internal/catalog"
	"archops-sim/internal/metrics"
	"archops-sim/internal/scoreboard"
	"archops-sim/internal/session"
	"archops-sim/internal/sim"
)

//go:embed templates/status.html
var content embed.FS

// Server exposes session state and commands over HTTP.
type Server struct {
	sess      *session.Session
	metrics   *metrics.Metrics
	board     *scoreboard.Board
	log       *slog.Logger
	accessLog io.Writer
	tpl       *template.Template
	router    *mux.Router
	srv       *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m at /metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithScoreboard serves b at /api/scoreboard and on the status page.
func WithScoreboard(b *scoreboard.Board) Option { return func(s *Server) { s.board = b } }

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

// WithAccessLog writes Apache-style request logs to w.
func WithAccessLog(w io.Writer) Option { return func(s *Server) { s.accessLog = w } }

// NewServer builds the router for sess.
func NewServer(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		sess: sess,
		log:  slog.Default(),
		tpl:  template.Must(template.New("status.html").ParseFS(content, "templates/status.html")),
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	// API routes hang off the root router so a method mismatch answers 405.
	api := func(path string, h http.HandlerFunc, methods ...string) {
		r.HandleFunc("/api"+path, h).Methods(methods...)
	}
	api("/state", s.handleState, http.MethodGet)
	api("/tickets", s.handleTickets, http.MethodGet)
	api("/shop", s.handleShop, http.MethodGet)
	api("/violations", s.handleViolations, http.MethodGet)
	api("/roadmap", s.handleRoadmap, http.MethodGet)
	api("/result", s.handleResult, http.MethodGet)
	api("/scoreboard", s.handleScoreboard, http.MethodGet)

	api("/components", s.handlePlace, http.MethodPost)
	api("/components/{id:[0-9]+}/{op:upgrade|repair|select}", s.handleComponentOp, http.MethodPost)
	api("/components/{id:[0-9]+}", s.handleComponentDelete, http.MethodDelete)
	api("/links", s.handleLink, http.MethodPost, http.MethodDelete)
	api("/tickets/{id:[0-9]+}/{op:fix|defer}", s.handleTicketOp, http.MethodPost)
	api("/tickets/{id:[0-9]+}/refactor", s.handleRefactor, http.MethodPost)
	api("/shop/{item}", s.handleBuy, http.MethodPost)
	api("/incidents/{kind}", s.handleIncident, http.MethodPost)
	api("/pause", s.handlePause, http.MethodPost)
	api("/resume", s.handleResume, http.MethodPost)
	api("/reset", s.handleReset, http.MethodPost)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the router, wrapped in the access log when one is set.
func (s *Server) Handler() http.Handler {
	if s.accessLog != nil {
		return handlers.LoggingHandler(s.accessLog, s.router)
	}
	return s.router
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.log.Info("admin server listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeResult maps an engine result to 200 or 409 Conflict.
func writeResult(w http.ResponseWriter, r sim.Result) {
	status := http.StatusOK
	if !r.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, r)
}

// execute runs c through the session, mapping usage errors to 400.
func (s *Server) execute(w http.ResponseWriter, c session.Command) {
	r, err := s.sess.Execute(c)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, r)
}

type statusPage struct {
	Snap       sim.Snapshot
	Paused     bool
	Tickets    []sim.Ticket
	Shop       []sim.Offer
	Violations []sim.Violation
	Roadmap    []sim.RoadmapStep
	Scores     []scoreboard.Entry
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var page statusPage
	s.sess.Do(func(e *sim.Simulator) {
		page.Snap = e.Snapshot()
		page.Tickets = e.Tickets()
		page.Shop = e.Shop()
		page.Violations = e.ArchViolations()
		page.Roadmap = e.RefactorRoadmap()
	})
	page.Paused = s.sess.Paused()
	if s.board != nil {
		if scores, err := s.board.List(); err == nil {
			page.Scores = scores
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, page); err != nil {
		s.log.Warn("render status page", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	var out []sim.Ticket
	s.sess.Do(func(e *sim.Simulator) { out = e.Tickets() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	var out struct {
		Capacity sim.CapacityView `json:"capacity"`
		Offers   []sim.Offer      `json:"offers"`
	}
	s.sess.Do(func(e *sim.Simulator) {
		out.Capacity = e.Capacity()
		out.Offers = e.Shop()
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	var out []sim.Violation
	s.sess.Do(func(e *sim.Simulator) { out = e.ArchViolations() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var out []sim.RoadmapStep
	s.sess.Do(func(e *sim.Simulator) { out = e.RefactorRoadmap() })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var res sim.RunResult
	var ok bool
	s.sess.Do(func(e *sim.Simulator) { res, ok = e.LastRun() })
	if !ok {
		writeError(w, http.StatusNotFound, "run still in progress")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotFound, "scoreboard disabled")
		return
	}
	entries, err := s.board.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type placeRequest struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type placeResponse struct {
	sim.Result
	ID int `json:"id,omitempty"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	k, err := catalog.Parse(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var resp placeResponse
	s.sess.Do(func(e *sim.Simulator) {
		resp.ID, resp.Result = e.Place(k, sim.Position{X: req.X, Y: req.Y})
	})
	status := http.StatusCreated
	if !resp.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleComponentOp(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	s.execute(w, session.Command{Action: v["op"], Args: []string{v["id"]}})
}

func (s *Server) handleComponentDelete(w http.ResponseWriter, r *http.Request) {
	s.execute(w, session.Command{Action: "delete", Args: []string{mux.Vars(r)["id"]}})
}

type linkRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	action := "link"
	if r.Method == http.MethodDelete {
		action = "unlink"
	}
	s.execute(w, session.Command{Action: action, Args: []string{strconv.Itoa(req.From), strconv.Itoa(req.To)}})
}

func (s *Server) handleTicketOp(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	s.execute(w, session.Command{Action: v["op"], Args: []string{v["id"]}})
}

type refactorRequest struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

func (s *Server) handleRefactor(w http.ResponseWriter, r *http.Request) {
	req := refactorRequest{Action: "auto"}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	args := []string{mux.Vars(r)["id"], req.Action}
	if req.Target != "" {
		args = append(args, req.Target)
	}
	s.execute(w, session.Command{Action: "refactor", Args: args})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.execute(w, session.Command{Action: "buy", Args: []string{mux.Vars(r)["item"]}})
}

func (s *Server) handleIncident(w http.ResponseWriter, r *http.Request) {
	s.execute(w, session.Command{Action: "incident", Args: []string{mux.Vars(r)["kind"]}})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.sess.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.sess.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

type resetRequest struct {
	Seed   *uint32 `json:"seed"`
	Preset string  `json:"preset"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	var args []string
	if req.Seed != nil {
		args = append(args, strconv.FormatUint(uint64(*req.Seed), 10))
	}
	if req.Preset != "" {
		args = append(args, req.Preset)
	}
	s.execute(w, session.Command{Action: "reset", Args: args})
}
