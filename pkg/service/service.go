// Package service serves the Twitter authenticator over HTTP for hosts that own the device
// account store.
package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/NethermindEth/locktwitter/pkg/authenticator"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/utils/metrics"
)

const (
	defaultMaxConcurrentLogins = 4
	defaultLoginTimeout        = 2 * time.Minute
)

// Authenticator is the part of authenticator.TwitterAuthenticator the service uses.
type Authenticator interface {
	Connection() string
	CanUseNativeAuthentication(ctx context.Context) bool
	Authenticate(ctx context.Context, opts authenticator.LoginOptions) (*identity.Credentials, error)
}

type LoginServiceConfig struct {
	Authenticator       Authenticator
	ServerAddr          string
	MaxConcurrentLogins int
	LoginTimeout        time.Duration
	Metrics             *metrics.MetricsCollector
	Logger              *slog.Logger
}

type LoginService struct {
	auth         Authenticator
	serverAddr   string
	loginTimeout time.Duration

	pool    pond.Pool
	logins  singleflight.Group
	metrics *metrics.MetricsCollector
	logger  *slog.Logger
	router  *gin.Engine
}

func NewLoginService(config *LoginServiceConfig) (*LoginService, error) {
	if config == nil || config.Authenticator == nil {
		return nil, fmt.Errorf("login service requires an authenticator")
	}

	maxLogins := config.MaxConcurrentLogins
	if maxLogins <= 0 {
		maxLogins = defaultMaxConcurrentLogins
	}
	loginTimeout := config.LoginTimeout
	if loginTimeout <= 0 {
		loginTimeout = defaultLoginTimeout
	}
	collector := config.Metrics
	if collector == nil {
		collector = metrics.NewMetricsCollector()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &LoginService{
		auth:         config.Authenticator,
		serverAddr:   config.ServerAddr,
		loginTimeout: loginTimeout,
		pool:         pond.NewPool(maxLogins),
		metrics:      collector,
		logger:       logger,
	}
	s.router = s.newRouter()

	return s, nil
}

// Handler returns the HTTP handler serving the service routes.
func (s *LoginService) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then waits for in-flight logins to finish.
func (s *LoginService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.startServer(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.pool.StopAndWait()
		return nil
	})
	return g.Wait()
}

func (s *LoginService) startServer(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.serverAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("login service listening", "addr", s.serverAddr, "connection", s.auth.Connection())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
	}

	return nil
}

func (s *LoginService) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.HandleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics))
	router.GET("/capability", s.HandleCapability)
	router.POST("/login", s.HandleLogin)

	return router
}

func (s *LoginService) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CapabilityResponse struct {
	Connection string `json:"connection"`
	Available  bool   `json:"available"`
}

func (s *LoginService) HandleCapability(c *gin.Context) {
	c.JSON(http.StatusOK, &CapabilityResponse{
		Connection: s.auth.Connection(),
		Available:  s.auth.CanUseNativeAuthentication(c.Request.Context()),
	})
}

type LoginRequest struct {
	Scope      string         `json:"scope"`
	Parameters map[string]any `json:"parameters"`
}

type LoginResponse struct {
	Connection  string                `json:"connection"`
	Credentials *identity.Credentials `json:"credentials"`
	Shared      bool                  `json:"shared"`
}

func (s *LoginService) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login request"})
		return
	}

	key, err := loginKey(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login parameters"})
		return
	}

	v, err, shared := s.logins.Do(key, func() (interface{}, error) {
		return s.login(c.Request.Context(), &req)
	})
	if err != nil {
		status, body := errorResponse(err)
		s.logger.Warn("login request failed", "status", status, "error", err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, &LoginResponse{
		Connection:  s.auth.Connection(),
		Credentials: v.(*identity.Credentials),
		Shared:      shared,
	})
}

// login runs one authentication on the pool. The login is detached from the request that
// started it since concurrent identical requests share its result.
func (s *LoginService) login(ctx context.Context, req *LoginRequest) (*identity.Credentials, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loginTimeout)
	defer cancel()

	var credentials *identity.Credentials
	task := s.pool.SubmitErr(func() error {
		s.metrics.SetGauge(metrics.MetricInflightLogins, s.pool.RunningWorkers())

		var err error
		credentials, err = s.auth.Authenticate(ctx, authenticator.LoginOptions{
			Scope:      req.Scope,
			Parameters: req.Parameters,
		})
		return err
	})

	if err := task.Wait(); err != nil {
		return nil, err
	}
	return credentials, nil
}

// loginKey identifies requests that can share one login.
func loginKey(req *LoginRequest) (string, error) {
	params, err := json.Marshal(req.Parameters)
	if err != nil {
		return "", err
	}
	return req.Scope + "\x00" + string(params), nil
}
