// Package server exposes runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
	"golang.org/x/time/rate"
)

// Runner performs one end-to-end run.
type Runner interface {
	Run(ctx context.Context, params domain.RunParams) (*domain.RunResult, error)
}

type Server struct {
	runner  Runner
	logger  *slog.Logger
	limiter *rate.Limiter
	// runs are sequential; one outbound request in flight at a time
	runMu sync.Mutex

	httpServer *http.Server
}

// NewServer wires the routes. dashboard may be nil. Runs triggered over HTTP
// are admitted at most once per interval, with the given burst.
func NewServer(port string, runner Runner, dashboard http.Handler, interval time.Duration, burst int, logger *slog.Logger) *Server {
	s := &Server{
		runner:  runner,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /reddit/{subreddit}/hot-comments-to-csv", s.handleHotComments)
	if dashboard != nil {
		mux.Handle("GET /dashboard", dashboard)
	}

	s.httpServer = &http.Server{
		Addr:        ":" + port,
		Handler:     withLogging(logger, mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks until the server is shut down or fails.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type limitsReminder struct {
	MaxPostsPerHotRequest     int    `json:"max_posts_per_hot_request"`
	MaxCommentsPerPostRequest string `json:"max_comments_per_post_request"`
}

type runResponse struct {
	Subreddit      string         `json:"subreddit"`
	RunID          string         `json:"run_id"`
	PostsProcessed int            `json:"posts_processed"`
	CommentsTotal  int            `json:"comments_total_returned"`
	CSVSavedTo     string         `json:"csv_saved_to"`
	LimitsReminder limitsReminder `json:"limits_reminder"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "reddit hot comments exporter"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHotComments(w http.ResponseWriter, r *http.Request) {
	params, err := parseParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many runs, try again shortly")
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	// A run is not cancelled mid-way when the client disconnects.
	result, err := s.runner.Run(context.WithoutCancel(r.Context()), params)
	if err != nil {
		status, msg := errorStatus(err)
		s.logger.Error("run failed", "subreddit", params.Subreddit, "status", status, "error", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		Subreddit:      result.Subreddit,
		RunID:          result.RunID,
		PostsProcessed: result.PostsProcessed,
		CommentsTotal:  result.CommentsTotal,
		CSVSavedTo:     result.OutputPath,
		LimitsReminder: limitsReminder{
			MaxPostsPerHotRequest:     domain.MaxPostsPerHotRequest,
			MaxCommentsPerPostRequest: fmt.Sprintf("~%d (first batch; more-comments not expanded)", domain.MaxCommentsPerPostRequest),
		},
	})
}

// parseParams applies defaults for absent query parameters.
func parseParams(r *http.Request) (domain.RunParams, error) {
	p := domain.DefaultRunParams(r.PathValue("subreddit"))
	q := r.URL.Query()

	ints := []struct {
		name string
		dst  *int
	}{
		{"posts_limit", &p.PostsLimit},
		{"comments_limit", &p.CommentsLimit},
		{"depth", &p.Depth},
		{"polite_delay_ms", &p.PoliteDelayMS},
	}
	for _, f := range ints {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%s must be an integer", f.name)
		}
		*f.dst = n
	}
	if v := q.Get("sort"); v != "" {
		p.Sort = domain.CommentSort(v)
	}
	return p, nil
}

func errorStatus(err error) (int, string) {
	var (
		upErr *domain.UpstreamError
		wErr  *domain.WriteError
		vErr  *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyResult):
		return http.StatusNotFound, "no posts found in this subreddit"
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, vErr.Error()
	case errors.As(err, &upErr):
		if upErr.StatusKnown() && upErr.StatusCode >= 400 {
			return upErr.StatusCode, "HTTP error listing posts: " + upErr.Error()
		}
		return http.StatusInternalServerError, "error listing posts: " + upErr.Error()
	case errors.As(err, &wErr):
		return http.StatusInternalServerError, "could not save CSV: " + wErr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
