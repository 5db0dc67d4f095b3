package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rpstage/internal/character"
	"rpstage/internal/reply"
)

type messageRequest struct {
	Message    string   `json:"message" validate:"required"`
	Characters []string `json:"characters"`
}

type replyAtom struct {
	Name  string `json:"name"`
	Reply string `json:"reply"`
}

type replyResponse struct {
	Replies []replyAtom `json:"replies"`
}

// respond produces one reply per requested character, in request order.
// Characters are handled independently: in lenient mode a failing
// character yields an error-text reply instead of aborting the request.
func (s *Server) respond(c echo.Context) error {
	req := new(messageRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	names := req.Characters
	if len(names) == 0 {
		names = []string{s.cfg.DefaultCharacter}
	}

	replies := make([]replyAtom, len(names))
	g, ctx := errgroup.WithContext(c.Request().Context())
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := s.replyFor(name, req.Message)
			if err != nil {
				if s.cfg.StrictErrors {
					return err
				}
				s.log.Warn("character reply failed",
					zap.String("character", name),
					zap.Error(err))
				text = fmt.Sprintf(s.cfg.MsgReplyError, name, err)
			}
			replies[i] = replyAtom{Name: name, Reply: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, replyResponse{Replies: replies})
}

func (s *Server) replyFor(name, message string) (string, error) {
	def, err := s.loader.Load(name)
	if err != nil {
		return "", err
	}
	return reply.Generate(def, message), nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) listRoles(c echo.Context) error {
	roles, err := s.loader.ListRoles()
	if err != nil {
		s.log.Error("failed to list characters", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string][]string{"roles": roles})
}

// httpError maps the character package's error kinds onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, character.ErrInvalidName), errors.Is(err, character.ErrPathEscape):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, character.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
