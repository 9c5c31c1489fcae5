package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"persona/app/config"
	"persona/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type TurnHandler interface {
	HandleTurn(ctx context.Context, message string, history []conversation.Message) (*conversation.Turn, error)
}

type chatRequest struct {
	Message string                 `json:"message" validate:"required"`
	History []conversation.Message `json:"history" validate:"dive"`
}

type chatResponse struct {
	Reply string             `json:"reply"`
	State conversation.State `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Service exposes the turn handler over HTTP.
type Service struct {
	cfg      *config.Config
	turns    TurnHandler
	validate *validator.Validate
	app      *fiber.App

	// baseCtx parents every request context; Run replaces it with its own ctx
	baseCtx context.Context
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*conversation.Service](di),
	), nil
}

func NewService(cfg *config.Config, turns TurnHandler) *Service {
	s := &Service{
		cfg:      cfg,
		turns:    turns,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		app: fiber.New(fiber.Config{
			AppName:               "persona",
			DisableStartupMessage: true,
		}),
		baseCtx: context.Background(),
	}

	s.app.Use(recover.New())
	s.app.Use(s.bindContext)
	s.app.Use(logRequest)

	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Post("/chat", s.chat)

	return s
}

func (s *Service) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then shuts the server down.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Addr)
	if err != nil {
		return oops.In("server").With("addr", s.cfg.HTTP.Addr).Wrapf(err, "failed to listen")
	}

	slog.Info("HTTP server started", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)

	// set before serving starts, so handlers never see it change
	s.baseCtx = ctx

	g.Go(func() error {
		if err := s.app.Listener(ln); err != nil && ctx.Err() == nil {
			return oops.In("server").Wrapf(err, "serve")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		slog.Info("Shutting down HTTP server...")

		err := s.app.ShutdownWithTimeout(shutdownTimeout)
		_ = ln.Close()

		return err
	})

	return g.Wait()
}

func (s *Service) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Service) chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	turn, err := s.turns.HandleTurn(c.UserContext(), req.Message, req.History)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c.Status(fiber.StatusRequestTimeout).JSON(errorResponse{Error: "request cancelled"})
		}

		slog.Error("Turn failed", "error", err)

		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to generate a reply"})
	}

	return c.JSON(chatResponse{
		Reply: turn.Reply,
		State: turn.State,
	})
}

// bindContext gives each request a context that is cancelled when the server stops.
func (s *Service) bindContext(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	c.SetUserContext(ctx)

	return c.Next()
}

func logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	slog.Debug("HTTP request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)

	return err
}
