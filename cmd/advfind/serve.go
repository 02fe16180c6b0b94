package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/dispatch"
	"github.com/hazyhaar/advfind/finder"
	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/idgen"
	"github.com/hazyhaar/advfind/kit"
	"github.com/hazyhaar/advfind/render"
	"github.com/hazyhaar/advfind/shield"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP, one document per session",
	Long: `Starts an HTTP API. POST /v1/sessions with {"html": ...} or {"url": ...}
opens a session on a document; POST /v1/sessions/{id}/{service} calls an
engine service (advfind_search, advfind_navigate, ...) with a JSON body.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8086", "listen address")
	serveCmd.Flags().DurationVar(&serveTimeout, "call-timeout", 30*time.Second, "per-call timeout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	st, al, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	s := newServer(logger, engineOptions(st, al), loadDocument)
	defer s.closeAll()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("advfind: listening", "addr", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("advfind: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type session struct {
	engine *finder.Engine
	router *dispatch.Router
}

// server holds the open sessions. Each session owns an engine and a
// dispatch router bound to it.
type server struct {
	log  *slog.Logger
	opts []finder.Option
	load func(ctx context.Context, src string) (*dom.Document, error)

	mu       sync.Mutex
	sessions map[string]*session
}

func newServer(log *slog.Logger, opts []finder.Option, load func(context.Context, string) (*dom.Document, error)) *server {
	return &server{
		log:      log,
		opts:     opts,
		load:     load,
		sessions: make(map[string]*session),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.Stack(s.log) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleOpen)
		r.Get("/{id}/document", s.handleDocument)
		r.Post("/{id}/{service}", s.handleCall)
		r.Delete("/{id}", s.handleClose)
	})
	return r
}

func (s *server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, bodyStatus(err), err)
		return
	}

	var (
		doc *dom.Document
		err error
	)
	switch {
	case req.HTML != "":
		doc, err = dom.ParseString(req.HTML, req.URL)
	case req.URL != "":
		doc, err = s.load(r.Context(), req.URL)
	default:
		writeError(w, 400, errors.New("html or url is required"))
		return
	}
	if err != nil {
		writeError(w, 422, err)
		return
	}

	id := idgen.New()
	opts := append(slices.Clone(s.opts), finder.WithLogger(s.log.With("session", id)))
	e := finder.New(doc, cfg, opts...)
	mws := []dispatch.HandlerMiddleware{dispatch.Recovery(s.log), dispatch.Logging(s.log)}
	if serveTimeout > 0 {
		mws = append(mws, dispatch.Timeout(serveTimeout))
	}
	router := dispatch.New(dispatch.WithLogger(s.log), dispatch.WithMiddleware(mws...))
	e.RegisterConnectivity(router)

	s.mu.Lock()
	s.sessions[id] = &session{engine: e, router: router}
	s.mu.Unlock()

	shield.GetLogger(r.Context()).Info("advfind: session opened", "session", id, "url", req.URL)
	writeJSON(w, 201, map[string]string{"id": id})
}

func (s *server) handleCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := s.get(id)
	if sess == nil {
		writeError(w, 404, fmt.Errorf("session %s not found", id))
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, bodyStatus(err), err)
		return
	}

	ctx := kit.WithSessionID(r.Context(), id)

	resp, err := sess.router.Call(ctx, chi.URLParam(r, "service"), payload)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	w.Write(resp)
}

func (s *server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := s.get(id)
	if sess == nil {
		writeError(w, 404, fmt.Errorf("session %s not found", id))
		return
	}
	rd, f, err := renderer(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, 400, err)
		return
	}
	switch f {
	case render.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	err = sess.engine.View(func(d *dom.Document) error { return rd.Write(w, d, f) })
	if err != nil {
		s.log.Warn("advfind: render failed", "session", id, "error", err)
	}
}

func (s *server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if sess == nil {
		writeError(w, 404, fmt.Errorf("session %s not found", id))
		return
	}
	sess.engine.Close()
	writeJSON(w, 200, map[string]string{"status": "closed"})
}

func (s *server) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.engine.Close()
		delete(s.sessions, id)
	}
}

func bodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return 413
	}
	return 400
}

func statusFor(err error) int {
	var notFound *dispatch.ErrServiceNotFound
	switch {
	case errors.As(err, &notFound), errors.Is(err, finder.ErrUnknownPattern):
		return 404
	case errors.Is(err, finder.ErrNoUsableMatcher), errors.Is(err, finder.ErrEmptyTerms), errors.Is(err, finder.ErrNoQuery):
		return 422
	case errors.Is(err, context.DeadlineExceeded):
		return 504
	default:
		return 400
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
