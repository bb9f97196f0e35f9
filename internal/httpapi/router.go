package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Engine is the subset of *authcore.Engine the routes call.
type Engine interface {
	middleware.Validator
	Login(ctx context.Context, username, password string) (authcore.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, token string) error
	CheckPassword(candidate, username, email string) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Logger  *zap.Logger
	Metrics http.Handler
	Health  map[string]HealthCheck
}

type handler struct {
	engine Engine
	logger *zap.Logger
	health map[string]HealthCheck
}

// NewRouter returns the auth routes plus /metrics and /healthz.
func NewRouter(engine Engine, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{engine: engine, logger: logger, health: opts.Health}

	r := mux.NewRouter()
	r.Use(middleware.RequestLog(logger))

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", h.login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	auth.HandleFunc("/password/check", h.checkPassword).Methods(http.MethodPost)
	auth.Handle("/me", middleware.Guard(engine)(http.HandlerFunc(h.me))).Methods(http.MethodGet)

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type passwordCheckRequest struct {
	Password string `json:"password"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.engine.Login(middleware.RequestContext(r), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteSuccess(w, "", map[string]any{"tokens": pair})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		middleware.WriteError(w, fmt.Errorf("%w: refresh token required", authcore.ErrValidationFailed))
		return
	}

	access, err := h.engine.Refresh(middleware.RequestContext(r), req.Refresh)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteSuccess(w, "Access token refreshed", map[string]string{"access": access})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		middleware.WriteError(w, fmt.Errorf("%w: refresh token required", authcore.ErrValidationFailed))
		return
	}

	if err := h.engine.Revoke(middleware.RequestContext(r), req.Refresh); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteSuccess(w, "Logged out (token revoked)", nil)
}

func (h *handler) checkPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordCheckRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.CheckPassword(req.Password, req.Username, req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteSuccess(w, "", nil)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, authcore.ErrNoCredential)
		return
	}
	middleware.WriteSuccess(w, "", p)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.health))
	healthy := true
	for name, check := range h.health {
		if err := check(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, middleware.Response{
			ErrorCode: middleware.CodeStoreUnavailable,
			Message:   "STORE_UNAVAILABLE",
			Data:      status,
		})
		return
	}
	middleware.WriteSuccess(w, "", status)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		middleware.WriteError(w, fmt.Errorf("%w: invalid request body", authcore.ErrValidationFailed))
		return false
	}
	return true
}
