// Package ops serves the operational HTTP surface: health, Prometheus
// metrics and a small read-only JSON API over the leaderboard.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkallio/inviteboard/internal/leaderboard/app"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage"
	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
	"github.com/mkallio/inviteboard/internal/platform/metrics"
	"github.com/mkallio/inviteboard/internal/platform/timeouts"
)

// Service is the read-only pipeline surface the API exposes.
type Service interface {
	Snapshot() app.Snapshot
	Stats(userID int64) (app.UserStats, error)
}

var _ Service = (*app.Service)(nil)

// Options configure the ops server.
type Options struct {
	Addr string
	// MetricsUser and MetricsPass protect /metrics with basic auth when both
	// are set; otherwise the endpoint is served unprotected.
	MetricsUser string
	MetricsPass string
}

// Server is the ops HTTP server.
type Server struct {
	service    Service
	journal    storage.PublishJournal
	httpServer *http.Server
	router     *mux.Router
}

// New assembles the routes. The journal may be nil, in which case the
// publish history endpoint returns an empty list.
func New(service Service, journal storage.PublishJournal, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8090"
	}

	s := &Server{service: service, journal: journal}

	router := mux.NewRouter()
	router.Use(monitorMiddleware)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	var metricsHandler http.Handler = promhttp.Handler()
	if opts.MetricsUser != "" && opts.MetricsPass != "" {
		metricsHandler = basicAuth(opts.MetricsUser, opts.MetricsPass, metricsHandler)
	}
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/ranking", s.handleRanking).Methods(http.MethodGet)
	api.HandleFunc("/stats/{user_id}", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/publishes", s.handlePublishes).Methods(http.MethodGet)

	s.router = router
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  timeouts.HTTPRead,
		WriteTimeout: timeouts.HTTPWrite,
		IdleTimeout:  timeouts.HTTPIdle,
	}
	return s
}

// ServeHTTP dispatches to the configured routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	log.Printf("ops server listening at %s", s.httpServer.Addr)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down ops server: %w", err)
		}
		<-serveErr
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rankingEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Invites  int    `json:"invites"`
}

type rankingResponse struct {
	Entries      []rankingEntry `json:"entries"`
	Participants int            `json:"participants"`
	TotalInvites int            `json:"total_invites"`
	LastUpdated  string         `json:"last_updated,omitempty"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	snapshot := s.service.Snapshot()

	resp := rankingResponse{
		Entries:      make([]rankingEntry, 0, len(snapshot.Entries)),
		Participants: snapshot.Participants,
		TotalInvites: snapshot.TotalInvites,
	}
	for _, entry := range snapshot.Entries {
		resp.Entries = append(resp.Entries, rankingEntry{
			Rank:     entry.Rank,
			UserID:   entry.UserID,
			Username: entry.Username,
			Invites:  entry.Invites,
		})
	}
	if !snapshot.LastUpdated.IsZero() {
		resp.LastUpdated = snapshot.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Invites   int    `json:"invites"`
	Rank      int    `json:"rank"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stats, err := s.service.Stats(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, statsResponse{
		UserID:    stats.Record.UserID,
		Username:  stats.Record.Username,
		Invites:   stats.Record.Invites,
		Rank:      stats.Rank,
		CreatedAt: stats.Record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: stats.Record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

type publishEntry struct {
	ID            string `json:"id"`
	Reason        string `json:"reason"`
	Outcome       string `json:"outcome"`
	AttemptCount  int32  `json:"attempt_count"`
	LastError     string `json:"last_error,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type publishesResponse struct {
	Publishes []publishEntry `json:"publishes"`
}

func (s *Server) handlePublishes(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	resp := publishesResponse{Publishes: []publishEntry{}}
	if s.journal == nil {
		respondWithJSON(w, http.StatusOK, resp)
		return
	}

	attempts, err := s.journal.ListPublishes(r.Context(), limit)
	if err != nil {
		log.Printf("list publish attempts: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for _, attempt := range attempts {
		resp.Publishes = append(resp.Publishes, publishEntry{
			ID:            attempt.ID,
			Reason:        attempt.Reason,
			Outcome:       attempt.Outcome,
			AttemptCount:  attempt.AttemptCount,
			LastError:     attempt.LastError,
			CommitMessage: attempt.CommitMessage,
			CreatedAt:     attempt.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func monitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		// Prefer the route template over the raw path so user ids do not
		// explode the label cardinality.
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		metrics.ObserveHTTPRequest(path, r.Method, strconv.Itoa(recorder.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func basicAuth(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, ok := r.BasicAuth()
		if !ok || gotUser != user || gotPass != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal error"
	}
	respondWithJSON(w, status, map[string]string{
		"error":  message,
		"code":   string(code),
		"domain": apperrors.Domain,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
