package server

import (
	"fmt"
	"net"
	"time"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

// SessionHeader carries the caller's session id. Requests without one get a
// fresh id back in the same header.
const SessionHeader = "X-Session-ID"

const sessionKey = "session_id"

type Server struct {
	app      *fiber.App
	engine   *engine.Engine
	sessions session.Store
	cfg      *config.Config
}

// NewServer wires the JSON API. cfg is only needed to open transfer targets
// and may be nil, in which case transfers are rejected.
func NewServer(e *engine.Engine, sessions session.Store, cfg *config.Config) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "datagen",
		DisableStartupMessage: true,
	})

	server := &Server{
		app:      app,
		engine:   e,
		sessions: sessions,
		cfg:      cfg,
	}

	server.setupRoutes()
	return server
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	api := s.app.Group("/api", s.withSession)

	// Catalog
	api.Get("/providers", s.handleGetProviders)
	api.Get("/providers/:provider/methods", s.handleGetMethods)
	api.Get("/presets", s.handleGetPresets)

	// Generation
	api.Post("/generate", s.handleGenerate)
	api.Post("/presets/:name/generate", s.handleGeneratePreset)

	// Stored tables
	api.Get("/tables", s.handleGetTables)
	api.Get("/tables/:name", s.handleGetTable)
	api.Post("/tables/:name/export", s.handleExportTable)
	api.Post("/tables/:name/transfer", s.handleTransferTable)

	api.Delete("/session", s.handleDeleteSession)
}

func (s *Server) withSession(c *fiber.Ctx) error {
	id := c.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(SessionHeader, id)
	c.Locals(sessionKey, id)
	return c.Next()
}

// Start listens on port, or the next free port after it.
func (s *Server) Start(port int) error {
	available := findAvailablePort(port)
	if available != port {
		fmt.Printf("Port %d is in use, using port %d instead\n", port, available)
	}

	fmt.Printf("datagen API listening on http://localhost:%d/api\n", available)
	return s.app.Listen(fmt.Sprintf(":%d", available))
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

func findAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port
	}
	return startPort
}
