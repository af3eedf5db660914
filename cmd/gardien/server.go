package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/cachestore"
	"github.com/gardien-bot/gardien/modbot/countstore"
	"github.com/gardien-bot/gardien/modbot/engine"
	"github.com/gardien-bot/gardien/modbot/gateway"
	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"gorm.io/plugin/opentelemetry/tracing"
)

// HTTP request metrics. The collectors live in the default registry, so the middleware is built
// once per process and shared by every Server.
var httpMetrics = echoprometheus.NewMiddleware("gardien")

type Server struct {
	Engine  *engine.Engine
	gateway *gateway.Gateway
	echo    *echo.Echo
	httpd   *http.Server
	logger  *slog.Logger
}

type Config struct {
	Logger          *slog.Logger
	Token           string
	Engine          engine.Config
	DataFile        string
	RedisURL        string
	DatabaseURL     string
	MaxDBConns      int
	DBTracing       bool
	SlackWebhookURL string
	Bind            string
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	// guild and role lookups are served from the gateway state when possible
	session.StateEnabled = true

	// DM channel IDs per user; members are always fetched fresh
	dmChannels := cachestore.NewMemCache[string](5_000, 24*time.Hour)
	client := platform.NewDiscordClient(session, dmChannels, logger)

	var counters countstore.CountStore
	if config.RedisURL != "" {
		logger.Info("using redis for acceptance counter")
		rcs, err := countstore.NewRedisCountStore(config.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		counters = rcs
	} else {
		logger.Info("using data file for acceptance counter", "path", config.DataFile)
		counters = countstore.NewFileCountStore(config.DataFile, logger)
	}

	// read at start: creates or repairs the record before the first event
	state, err := counters.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading acceptance counter: %w", err)
	}
	logger.Info("loaded acceptance counter", "acceptance_number", state.AcceptanceNumber)

	eng := engine.NewEngine(logger, client, counters, config.Engine)

	if config.DatabaseURL != "" {
		db, err := auditstore.SetupDatabase(config.DatabaseURL, config.MaxDBConns)
		if err != nil {
			return nil, err
		}
		if config.DBTracing {
			if err := db.Use(tracing.NewPlugin()); err != nil {
				return nil, err
			}
		}
		audit, err := auditstore.NewGormAuditStore(db)
		if err != nil {
			return nil, fmt.Errorf("migrating audit database: %w", err)
		}
		eng.Audit = audit
	}

	if config.SlackWebhookURL != "" {
		eng.Notifier = engine.NewSlackNotifier(config.SlackWebhookURL, logger)
	}

	srv := &Server{
		Engine:  eng,
		gateway: gateway.New(session, eng, logger),
		echo:    echo.New(),
		logger:  logger,
	}

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)
	srv.httpd = &http.Server{
		Handler:        srv.echo,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}
	srv.configureRoutes()

	return srv, nil
}

func (srv *Server) configureRoutes() {
	e := srv.echo
	e.HideBanner = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("gardien"))
	e.Use(httpMetrics)
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/", srv.HandleKeepalive)
	e.GET("/_health", srv.HandleHealthCheck)
}

func (srv *Server) HandleKeepalive(c echo.Context) error {
	return c.String(http.StatusOK, "alive")
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "gardien"})
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var msg string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("gardien-http-internal-error", "err", err)
	}
	if err := c.JSON(code, GenericStatus{Status: "error", Daemon: "gardien", Message: msg}); err != nil {
		srv.logger.Error("failed to write HTTP error response", "err", err)
	}
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Connects to the discord gateway and serves the keepalive endpoint until SIGINT or SIGTERM.
func (srv *Server) Run(ctx context.Context) error {
	if err := srv.gateway.Open(); err != nil {
		return fmt.Errorf("connecting to discord gateway: %w", err)
	}

	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	srv.logger.Info("registering OS exit signal handler")
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exitSignals:
		srv.logger.Info("received OS exit signal", "signal", sig)
	case <-ctx.Done():
		srv.logger.Info("context cancelled", "err", ctx.Err())
	}

	if err := srv.Shutdown(); err != nil {
		srv.logger.Error("shutdown error", "err", err)
	}
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return errors.Join(
		srv.gateway.Close(),
		srv.httpd.Shutdown(ctx),
	)
}
