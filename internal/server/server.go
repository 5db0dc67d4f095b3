// Package server wires the HTTP surface of the roleplay service: routing,
// middleware, request validation, and the handlers themselves.
package server

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"rpstage/internal/character"
	"rpstage/internal/config"
)

// Server serves the roleplay API over HTTP.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	loader *character.Loader
	log    *zap.Logger
}

// New builds a Server from the loaded configuration.
func New(cfg *config.Config, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover(), middleware.CORS())
	e.Validator = &requestValidator{validate: validator.New()}

	s := &Server{
		echo:   e,
		cfg:    cfg,
		loader: character.NewLoader(cfg.CharactersDir, log),
		log:    log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.POST("/respond", s.respond)
	s.echo.GET("/health", s.health)
	s.echo.GET("/list_roles", s.listRoles)
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP dispatches a request through the echo instance.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// requestValidator plugs validator/v10 into echo's binding pipeline.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
