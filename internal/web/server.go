package web

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Djarid/vinput/pkg/command"
	"github.com/Djarid/vinput/pkg/pipeline"
)

// StatusSource exposes pipeline counters to the status endpoint.
type StatusSource interface {
	Snapshot() pipeline.Stats
}

// Config holds web server settings.
type Config struct {
	// Enabled turns the server on. Default: false; the pipeline runs
	// headless without it.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Addr is the listen address, e.g. ":8090".
	Addr string `yaml:"addr" json:"addr"`
}

// Server exposes pipeline status over HTTP and live events over websocket.
type Server struct {
	app    *fiber.App
	hub    *Hub
	status StatusSource
	table  *command.Table
	addr   string
	logger *slog.Logger
	start  time.Time
}

// NewServer builds the server and its routes.
func NewServer(cfg Config, status StatusSource, table *command.Table, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	s := &Server{
		app:    app,
		hub:    hub,
		status: status,
		table:  table,
		addr:   cfg.Addr,
		logger: logger,
		start:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/status", s.handleStatus)
	s.app.Get("/commands", s.handleCommands)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/events", websocket.New(func(conn *websocket.Conn) {
		NewClient(s.hub, conn).Run()
	}))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"pipeline": s.status.Snapshot(),
		"commands": s.table.Len(),
		"clients":  s.hub.ClientCount(),
		"uptime":   time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleCommands(c *fiber.Ctx) error {
	type entry struct {
		Phrase string       `json:"phrase"`
		Type   command.Type `json:"type"`
	}
	entries := s.table.Entries()
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entry{Phrase: e.Phrase, Type: e.Action.Type})
	}
	return c.JSON(out)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web: listen %s: %w", s.addr, err)
		}
		return nil
	}
}

// Test hook: the fiber app for httptest-style requests.
func (s *Server) testApp() *fiber.App {
	return s.app
}
