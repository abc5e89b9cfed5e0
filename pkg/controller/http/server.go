package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	filesDir string
	maxBody  int64
	now      func() time.Time
}

type Options func(*Server)

// WithLocalFiles serves the local upload directory under /files/
func WithLocalFiles(dir string) Options {
	return func(s *Server) {
		s.filesDir = dir
	}
}

// WithMaxUploadSize limits multipart request bodies
func WithMaxUploadSize(size int64) Options {
	return func(s *Server) {
		s.maxBody = size
	}
}

// WithClock overrides the time used to compute conversation time groups
func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

const defaultMaxUploadSize = 32 << 20

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		uc:      uc,
		maxBody: defaultMaxUploadSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler)

	// Edge function compatible endpoints
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(identityMiddleware(uc.Identity))
		r.Post("/contract-analysis", s.contractAnalysisHandler)
		r.Post("/zep-memory", s.zepMemoryHandler)
		r.Post("/conversational-ai", s.conversationalHandler)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identityMiddleware(uc.Identity))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversationsHandler)
			r.Post("/", s.createConversationHandler)

			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", s.getConversationHandler)
				r.Patch("/", s.renameConversationHandler)
				r.Delete("/", s.deleteConversationHandler)

				r.Get("/messages", s.listMessagesHandler)
				r.Post("/messages", s.createMessageHandler)
				r.Get("/contracts", s.listConversationContractsHandler)
				r.Post("/files", s.uploadFileHandler)
			})
		})

		r.Get("/contracts", s.listContractsHandler)
		r.Delete("/contracts/{contractID}", s.deleteContractHandler)
	})

	if s.filesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger stores a logger tagged with the request ID in the context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.From(ctx).With("request_id", middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(logging.With(ctx, logger)))
	})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
