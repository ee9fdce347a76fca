package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lanebridge/authcore/internal/auth"
	"github.com/lanebridge/authcore/internal/infrastructure/config"
	"github.com/lanebridge/authcore/internal/infrastructure/database"
	"github.com/lanebridge/authcore/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// tokenSweepInterval is how often expired refresh token records are purged.
const tokenSweepInterval = time.Hour

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	DB         *database.DB
	Keys       *auth.KeyProvider
	Tokens     *auth.TokenService
	UserRepo   auth.UserRepository
	TenantRepo auth.TenantRepository
	TokenRepo  auth.TokenRepository
	Version    string
}

// Server is the HTTP API server for authcore.
//
// It manages the HTTP listener, routes, middleware, and the periodic sweep
// of expired refresh token records. The server is created with New() and
// started with Start().
//
// Thread Safety: all methods are safe for concurrent use.
type Server struct {
	cfg        config.APIConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	db         *database.DB
	keys       *auth.KeyProvider
	tokens     *auth.TokenService
	userRepo   auth.UserRepository
	tenantRepo auth.TenantRepository
	tokenRepo  auth.TokenRepository
	version    string
	metrics    *serverMetrics

	// accessKeyfunc resolves the key for access token verification: the
	// local public key normally, or a remote JWKS when configured.
	accessKeyfunc jwt.Keyfunc

	server *http.Server
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Keys == nil {
		return nil, fmt.Errorf("key provider is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.UserRepo == nil || deps.TenantRepo == nil || deps.TokenRepo == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	s := &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		db:         deps.DB,
		keys:       deps.Keys,
		tokens:     deps.Tokens,
		userRepo:   deps.UserRepo,
		tenantRepo: deps.TenantRepo,
		tokenRepo:  deps.TokenRepo,
		version:    deps.Version,
		metrics:    newServerMetrics(),
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It resolves the access token verification keys, starts the expired record
// sweeper, and launches the HTTP listener in a background goroutine. The
// server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if err := s.resolveKeyfunc(srvCtx); err != nil {
		return err
	}

	go s.sweepExpiredTokensLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// resolveKeyfunc selects the access token verification source. A configured
// JWKS URL delegates to a remote key set with background refresh; otherwise
// the locally loaded key verifies its own tokens.
func (s *Server) resolveKeyfunc(ctx context.Context) error {
	if s.secCfg.JWT.JWKSURL == "" {
		s.accessKeyfunc = s.keys.Keyfunc()
		return nil
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{s.secCfg.JWT.JWKSURL})
	if err != nil {
		return fmt.Errorf("loading remote key set %s: %w", s.secCfg.JWT.JWKSURL, err)
	}
	s.accessKeyfunc = kf.Keyfunc
	s.logger.Info("access tokens verified against remote key set", "url", s.secCfg.JWT.JWKSURL)
	return nil
}

// sweepExpiredTokensLoop periodically deletes expired refresh token records.
// Expired records are already unusable; the sweep only reclaims storage.
func (s *Server) sweepExpiredTokensLoop(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.tokenRepo.DeleteExpired(ctx)
			if err != nil {
				s.logger.Warn("sweeping expired refresh tokens", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("swept expired refresh tokens", "deleted", deleted)
			}
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
