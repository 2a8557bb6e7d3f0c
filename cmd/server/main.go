package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/lukisch/n8n-workflow-manager/internal/api"
	"github.com/lukisch/n8n-workflow-manager/internal/auth"
	"github.com/lukisch/n8n-workflow-manager/internal/config"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/mcp"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/internal/tls"
	"github.com/lukisch/n8n-workflow-manager/internal/toolchain"
)

func main() {
	ctx := context.Background()

	configFile := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.JSON)
	logger.Info("configuration loaded (environment=%s, db=%s)", cfg.Environment, cfg.DB.Driver)

	store, err := repository.Open(ctx, repository.Options{Driver: cfg.DB.Driver, Path: cfg.DB.Path, DSN: cfg.DB.DSN})
	if err != nil {
		logger.Error("failed to open database: %v", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer store.Close()
	logger.Info("database ready (%s)", store.Dialect())

	var registrar services.Registrar
	if cfg.Registration.Enabled {
		registrar = toolchain.NewRegistrar(cfg.Registration.DBPath)
	}
	clients := services.NewClientFactory(cfg.Remote.Timeout)
	workflows := services.NewWorkflowService(store, registrar, logger.With("component", "workflows"))
	syncer := services.NewSyncService(store, clients, logger.With("component", "sync"))
	syncer.SetPageSize(cfg.Remote.PageSize)
	servers := services.NewServerService(store, clients, logger.With("component", "servers"))
	templates := services.NewTemplateService(store, logger.With("component", "templates"))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware("n8n-workflow-manager"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("%s %s %d %s subject=%s", v.Method, v.URI, v.Status, v.Latency, auth.Subject(c.Request().Context()))
			return nil
		},
	}))

	authz, err := auth.New(ctx, cfg, logger.With("component", "auth"))
	if err != nil {
		logger.Error("failed to initialize auth: %v", err)
		log.Fatalf("auth initialization failed: %v", err)
	}
	if authz.Enabled() {
		e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
		e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
		e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	}

	apiServer := &api.Server{
		Repo:      store,
		Workflows: workflows,
		Sync:      syncer,
		Servers:   servers,
		Templates: templates,
		Logger:    logger.With("component", "api"),
	}
	e.GET("/health", apiServer.HandleHealth)
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, apiServer)
	logger.Info("REST API handlers mounted (auth=%t)", authz.Enabled())

	mcpServer := mcp.NewServer(workflows, syncer, servers)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpRoute := echo.WrapHandler(mcpHandlers)
	e.Any("/mcp", mcpRoute, echo.WrapMiddleware(authz.RequireAuth))
	e.Any("/mcp/*", mcpRoute, echo.WrapMiddleware(authz.RequireAuth))
	logger.Info("MCP protocol handlers mounted")

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.Issuer)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.ClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(api.OAuthRedirectHandler)))

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // pulls of large servers take a while
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			log.Fatalf("tls.enable requires tls.cert_file and tls.key_file")
		}
		generated, err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			log.Fatalf("TLS certificate: %v", err)
		}
		if generated {
			logger.Warn("generated self-signed certificate %s for %v", cfg.TLS.CertFile, cfg.TLS.Hostnames)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on %s (tls=%t)", addr, cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error: %v", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error: %v", err)
			}
		}
		logger.Info("server stopped gracefully")
	}
}
