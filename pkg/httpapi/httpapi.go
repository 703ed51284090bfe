// Caminho: pkg/httpapi/httpapi.go
// Resumo: Rotas HTTP do portal do morador (links de convite), compartilhadas entre o
// servidor local e o handler serverless.

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/auth"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	linksvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/links"
)

const (
	apiPrefix    = "/api/portal-cliente"
	maxBodyBytes = 1 << 20
)

// Options configura o handler.
type Options struct {
	SecretKey string
	// SecretAlgorithm é o único algoritmo HMAC aceito nos Bearer (padrão HS256).
	SecretAlgorithm string
	ServiceName     string
	Version         string
	// Location interpreta datas sem fuso (AAAA-MM-DD) no corpo das requisições.
	Location *time.Location
	Logger   *slog.Logger
	// Ready, se definido, é consultado por /healthz.
	Ready func(ctx context.Context) error
}

// Server expõe o motor de links por HTTP.
type Server struct {
	links  *linksvc.Service
	opts   Options
	log    *slog.Logger
	router *mux.Router
}

// New monta as rotas.
func New(links *linksvc.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "vigiae-remote-concierge"
	}
	s := &Server{links: links, opts: opts, log: opts.Logger, router: mux.NewRouter()}

	r := s.router
	r.HandleFunc("/", s.rootHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.Handle("/resident/invitation-links", s.requireResident(s.createLinkHandler)).Methods(http.MethodPost)
	api.Handle("/resident/invitation-links", s.requireResident(s.listLinksHandler)).Methods(http.MethodGet)
	api.Handle("/resident/invitation-links/{id}", s.requireResident(s.revokeLinkHandler)).Methods(http.MethodDelete)
	api.Handle("/resident/invitation-links/{id}/visitors", s.requireResident(s.listVisitorsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/invitation/{token}", s.publicLinkHandler).Methods(http.MethodGet)
	api.HandleFunc("/invitation/{token}/register", s.registerVisitorHandler).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	return s
}

// ServeHTTP roteia e registra uma linha de log por requisição
// (método, caminho, status, duração, UA, bytes).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	defer func() {
		s.log.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).String(),
			"ua", strings.TrimSpace(r.Header.Get("User-Agent")),
			"bytes", sw.nbytes,
			"ip", clientIP(r),
		)
	}()
	s.router.ServeHTTP(sw, r)
}

// writeJSON escreve uma resposta JSON com status e payload arbitrários.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

// statusFor traduz o código de domínio em status HTTP.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidInput, domain.CodeInvalidDocument:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeRevoked, domain.CodeExpired:
		return http.StatusGone
	case domain.CodeCapacityExceeded, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde um erro do motor. Causas internas vão só para o log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		s.log.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, "HTTP_500", "Erro interno")
		return
	}
	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", de.Code, "error", err)
	}
	writeFailure(w, status, string(de.Code), de.Message)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":      false,
				"service": s.opts.ServiceName,
				"status":  "unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": s.opts.ServiceName,
		"status":  "healthy",
	})
}

// rootHandler responde um resumo básico do serviço.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": s.opts.ServiceName,
		"version": s.opts.Version,
		"endpoints": []string{
			"/healthz",
			"POST " + apiPrefix + "/resident/invitation-links",
			"GET " + apiPrefix + "/resident/invitation-links",
			"DELETE " + apiPrefix + "/resident/invitation-links/{id}",
			"GET " + apiPrefix + "/resident/invitation-links/{id}/visitors",
			"GET " + apiPrefix + "/invitation/{token}",
			"POST " + apiPrefix + "/invitation/{token}/register",
		},
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"code":    "HTTP_404",
		"message": "Rota não encontrada",
		"path":    r.URL.Path,
	})
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, "HTTP_405", "Método não permitido")
}

// statusWriter captura status/bytes para logging.
type statusWriter struct {
	http.ResponseWriter
	status int
	nbytes int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.nbytes += n
	return n, err
}

// clientIP extrai IP do X-Forwarded-For ou RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

type residentKey struct{}

// requireResident exige um Bearer válido com papel de morador.
func (s *Server) requireResident(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "AUTH_401_001", "Token ausente")
			return
		}
		id, err := auth.Verify(s.opts.SecretKey, s.opts.SecretAlgorithm, tok)
		switch {
		case errors.Is(err, auth.ErrForbidden):
			writeFailure(w, http.StatusForbidden, "AUTH_403_001", "Acesso restrito a moradores")
			return
		case err != nil:
			writeFailure(w, http.StatusUnauthorized, "AUTH_401_002", "Token inválido ou expirado")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), residentKey{}, id.ResidentID)))
	})
}

func residentFrom(ctx context.Context) string {
	id, _ := ctx.Value(residentKey{}).(string)
	return id
}
