package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"rebanho/backend/internal/dispatch"
)

type Server struct {
	dispatcher     *dispatch.Orchestrator
	recipients     *dispatch.RecipientRepo
	log            *zap.Logger
	jwtSecret      []byte
	allowedOrigins map[string]struct{}
	allowAnyOrigin bool
	limiter        *dispatchLimiter
}

func NewServer(dispatcher *dispatch.Orchestrator, recipients *dispatch.RecipientRepo,
	log *zap.Logger, jwtSecret string, corsOrigins []string) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	allowed := make(map[string]struct{}, len(corsOrigins))
	anyOrigin := len(corsOrigins) == 0
	for _, origin := range corsOrigins {
		if origin == "*" {
			anyOrigin = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return &Server{
		dispatcher:     dispatcher,
		recipients:     recipients,
		log:            log,
		jwtSecret:      []byte(jwtSecret),
		allowedOrigins: allowed,
		allowAnyOrigin: anyOrigin,
		limiter:        newDispatchLimiter(10, time.Minute),
	}
}

func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/relatorios-envio/tipos", s.handleReportTypes)
	mux.Handle("GET /api/relatorios-envio/destinatarios", s.authOptional(http.HandlerFunc(s.handleRecipients)))
	mux.Handle("POST /api/relatorios-envio/enviar", s.authOptional(http.HandlerFunc(s.handleDispatch)))

	return s.withCORS(mux)
}
