package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/cache"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/observability"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/pipeline"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/store/mongostore"
)

// serveCommand creates the serve command running the layout HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP API",
		Long: `Run the layout HTTP API.

Endpoints:

  POST /layout        compute a layout for a posted graph
  GET  /layout/{id}   fetch a previously computed run (requires MongoDB)
  GET  /runs          list recent runs (requires MongoDB)
  GET  /healthz       liveness probe

Environment:

  REDIS_URL   use Redis instead of the local file cache
  MONGO_URI   persist completed runs in MongoDB
  MONGO_DB    MongoDB database name (default: treelayout)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	backend, keyer, err := c.newServeCache(ctx, noCache)
	if err != nil {
		return err
	}
	defer backend.Close()

	var store *mongostore.Store
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		store, err = mongostore.Connect(ctx, uri, os.Getenv("MONGO_DB"))
		if err != nil {
			return err
		}
		defer store.Close(context.Background())
		c.Logger.Info("run persistence enabled", "db", os.Getenv("MONGO_DB"))
	}

	srv := &apiServer{
		runner: pipeline.NewRunner(backend, keyer, c.Logger),
		store:  store,
		logger: c.Logger,
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// newServeCache picks the cache backend for the API: Redis when configured,
// the local file cache otherwise. API keys are namespaced so they never
// collide with CLI-generated entries in a shared Redis.
func (c *CLI) newServeCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache {
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		rc, err := cache.NewRedisCache(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Info("using redis cache")
		return rc, cache.NewScopedKeyer(nil, "api:"), nil
	}
	return newCache(false), cache.NewDefaultKeyer(), nil
}

// =============================================================================
// API Server
// =============================================================================

type apiServer struct {
	runner *pipeline.Runner
	store  *mongostore.Store
	logger *log.Logger
}

// layoutRequest is the POST /layout payload.
type layoutRequest struct {
	Graph   graph.Graph      `json:"graph"`
	Options pipeline.Options `json:"options"`
}

// layoutResponse is the POST /layout reply.
type layoutResponse struct {
	ID        string            `json:"id"`
	GraphHash string            `json:"graph_hash"`
	Layout    graph.Layout      `json:"layout"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Cached    bool              `json:"cached"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Post("/layout", s.handleLayout)
	r.Get("/layout/{id}", s.handleGetRun)
	r.Get("/runs", s.handleListRuns)
	return r
}

// observe logs each request and forwards timing to the API hooks.
func (s *apiServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.API().OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		observability.API().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), duration)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", duration.Round(time.Millisecond))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Graph, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := layoutResponse{
		ID:        uuid.NewString(),
		GraphHash: result.GraphHash,
		Layout:    result.Layout,
		Cached:    result.CacheInfo.LayoutHit,
	}
	for format, data := range result.Artifacts {
		if format == pipeline.FormatJSON {
			continue // the layout field already carries it
		}
		if resp.Artifacts == nil {
			resp.Artifacts = make(map[string]string)
		}
		resp.Artifacts[format] = string(data)
	}

	if s.store != nil {
		run := mongostore.FromLayout(resp.ID, result.Layout)
		if err := s.store.SaveRun(r.Context(), run); err != nil {
			s.logger.Warn("persist run failed", "id", resp.ID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "run persistence is not configured"))
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "run persistence is not configured"))
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// Response Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(code),
	})
}

// statusFor maps machine error codes to HTTP status codes.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidConfig,
		errors.ErrCodeInvalidGraph,
		errors.ErrCodeDanglingEdge,
		errors.ErrCodeDuplicateNode,
		errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeNodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
