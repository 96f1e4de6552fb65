// Package server exposes the document pipeline over HTTP and websocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/rag"
	"github.com/ziadkadry99/docsense/internal/render"
)

// DefaultMaxUploadBytes caps a single upload (50 MB).
const DefaultMaxUploadBytes int64 = 50 << 20

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxUploadBytes int64

	// ProviderType, ChatModel and SuggestModel drive model validation and
	// the defaults applied when a request omits model_name.
	ProviderType string
	ChatModel    string
	SuggestModel string
}

// Pipeline is the document pipeline the server drives. *rag.Pipeline
// implements it.
type Pipeline interface {
	Ingest(ctx context.Context, path string) rag.IngestResult
	Delete(ctx context.Context, filename string) error
	AskWithHistory(ctx context.Context, question, model string, history []rag.Turn) (*rag.Answer, error)
	Suggest(ctx context.Context, path, model string) []string
}

// Server is the DocSense HTTP API.
type Server struct {
	cfg        Config
	pipeline   Pipeline
	corpus     *corpus.Corpus
	renderer   *render.Renderer
	validate   *validator.Validate
	origins    []string
	upgrader   websocket.Upgrader
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, pipeline Pipeline, docs *corpus.Corpus, renderer *render.Renderer) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if renderer == nil {
		renderer = render.New()
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		corpus:   docs,
		renderer: renderer,
		validate: newValidator(cfg.ProviderType),
		origins:  cfg.AllowedOrigins,
	}
	if len(s.origins) == 0 {
		s.origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket is long lived, so it sits outside the request timeout.
	r.Get("/ws/chat", s.handleChatSocket)

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Get("/", s.handleRoot)
		r.Post("/upload", s.handleUpload)
		r.Get("/files", s.handleListFiles)
		r.Delete("/files/{filename}", s.handleDeleteFile)
		r.Post("/chat", s.handleChat)
		r.Get("/questions/{filename}", s.handleQuestions)
		r.Get("/models", s.handleModels)
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("docsense server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request through phuslu/log.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
