package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/collabedit/docsync/docs"
	"github.com/collabedit/docsync/internal/api/handler"
	"github.com/collabedit/docsync/internal/api/middleware"
	"github.com/collabedit/docsync/internal/core/ports"
)

// Deps holds what the router needs. Metrics are served only when both
// Registerer and Gatherer are set.
type Deps struct {
	Documents ports.DocumentService
	Auth      ports.CredentialVerifier
	Health    []ports.HealthChecker
	Logger    zerolog.Logger

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Swagger    bool

	// MaxBodyBytes caps /api request bodies. Zero disables the cap.
	MaxBodyBytes int64
}

// envelopeBytes is room for the JSON keys and fields around the content.
const envelopeBytes = 4 << 10

// BodyLimit returns the request size that fits a document of maxContentBytes.
// JSON escaping can grow content up to six times (\u003c for '<').
func BodyLimit(maxContentBytes int) int64 {
	if maxContentBytes <= 0 {
		return 0
	}
	return int64(maxContentBytes)*6 + envelopeBytes
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, middleware.HeaderClientSession},
	}))
	e.Use(middleware.ClientSession())
	e.Use(middleware.RequestLogger(deps.Logger))

	if deps.Registerer != nil && deps.Gatherer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "docsync",
			Registerer: deps.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: deps.Gatherer,
		}))
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	docHandler := handler.NewDocumentHandler(deps.Documents)
	apiHandler := handler.NewAPIHandler(authHandler, docHandler)

	// --- Document API (no auth: login gates only the client UI) ---
	api := e.Group("/api")
	if deps.MaxBodyBytes > 0 {
		api.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dB", deps.MaxBodyBytes)))
	}
	api.GET("", docHandler.Read)
	api.POST("", apiHandler.Post)
	api.POST("/login", authHandler.Login)
	api.GET("/documents/:id", docHandler.Read)
	api.POST("/documents/:id", docHandler.Save)

	// --- Health probes ---
	healthHandler := handler.NewHealthHandler(deps.Health...)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are the backends up?

	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}
