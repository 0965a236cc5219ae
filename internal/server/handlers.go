package server

import (
	"context"
	"strconv"
	"time"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/presets"
	"github.com/Rana718/datagen/internal/registry"
	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/session"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/gofiber/fiber/v2"
)

const defaultPreview = 10

type generateRequest struct {
	Table   string                 `json:"table"`
	Fields  []schema.FieldDocument `json:"fields"`
	Rows    int                    `json:"rows"`
	Mode    string                 `json:"mode"`
	Seed    int64                  `json:"seed"`
	Preview int                    `json:"preview"`
}

type presetRequest struct {
	Table      string            `json:"table"`
	Fields     []string          `json:"fields"`
	References map[string]string `json:"references"`
	Rows       int               `json:"rows"`
	Mode       string            `json:"mode"`
	Seed       int64             `json:"seed"`
	Preview    int               `json:"preview"`
}

type generateResponse struct {
	Table      TableData `json:"table"`
	Sinks      []string  `json:"sinks"`
	Fallbacks  []string  `json:"fallbacks,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

func (s *Server) loadSession(c *fiber.Ctx) (*session.Session, error) {
	id, _ := c.Locals(sessionKey).(string)
	return s.sessions.Get(c.UserContext(), id)
}

func (s *Server) handleGetProviders(c *fiber.Ctx) error {
	return JSON(c, registry.Providers())
}

func (s *Server) handleGetMethods(c *fiber.Ctx) error {
	methods, err := registry.ListMethods(c.Params("provider"))
	if err != nil {
		return JSONError(c, fiber.StatusNotFound, err.Error())
	}
	return JSON(c, methods)
}

func (s *Server) handleGetPresets(c *fiber.Ctx) error {
	return JSON(c, presets.List())
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var body generateRequest
	if err := c.BodyParser(&body); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	doc := &schema.Document{Table: body.Table, Fields: body.Fields}
	sch, err := doc.Schema()
	if err != nil {
		return JSONPipelineError(c, err)
	}

	return s.generate(c, sch, body.Rows, body.Mode, body.Seed, body.Preview, nil)
}

func (s *Server) handleGeneratePreset(c *fiber.Ctx) error {
	p, err := presets.Get(c.Params("name"))
	if err != nil {
		return JSONPipelineError(c, err)
	}

	var body presetRequest
	if err := c.BodyParser(&body); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess, err := s.loadSession(c)
	if err != nil {
		return JSONError(c, fiber.StatusServiceUnavailable, "failed to load session: "+err.Error())
	}

	ctx := c.UserContext()
	sch, fallbacks, err := p.Build(presets.Options{
		Fields:     body.Fields,
		Table:      body.Table,
		References: body.References,
		Available:  s.available(ctx, sess),
	})
	if err != nil {
		return JSONPipelineError(c, err)
	}

	return s.generate(c, sch, body.Rows, body.Mode, body.Seed, body.Preview, fallbacks)
}

// available reports tables a preset may reference: the session's own tables
// plus whatever the store already holds.
func (s *Server) available(ctx context.Context, sess *session.Session) func(string) bool {
	return func(table string) bool {
		if sess.Has(table) {
			return true
		}
		reader := s.engine.Reader()
		if reader == nil {
			return false
		}
		exists, err := reader.TableExists(ctx, table)
		return err == nil && exists
	}
}

func (s *Server) generate(c *fiber.Ctx, sch *schema.Schema, rows int, modeName string, seed int64, preview int, fallbacks []string) error {
	mode, err := sink.ParseMode(modeName)
	if err != nil {
		return JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	sess, err := s.loadSession(c)
	if err != nil {
		return JSONError(c, fiber.StatusServiceUnavailable, "failed to load session: "+err.Error())
	}

	ctx := c.UserContext()
	res, err := s.engine.Generate(ctx, sess, engine.Request{Schema: sch, Rows: rows, Mode: mode, Seed: seed})
	if err != nil {
		return JSONPipelineError(c, err)
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return JSONError(c, fiber.StatusServiceUnavailable, "table generated but session not saved: "+err.Error())
	}

	if preview <= 0 {
		preview = defaultPreview
	}
	return JSON(c, generateResponse{
		Table:      tableData(res.Table, preview),
		Sinks:      res.Sinks,
		Fallbacks:  fallbacks,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func (s *Server) handleGetTables(c *fiber.Ctx) error {
	names, err := s.engine.Tables(c.UserContext())
	if err != nil {
		return JSONPipelineError(c, err)
	}

	sess, err := s.loadSession(c)
	if err != nil {
		return JSONError(c, fiber.StatusServiceUnavailable, "failed to load session: "+err.Error())
	}

	if names == nil {
		names = []string{}
	}
	return JSON(c, fiber.Map{
		"tables":  names,
		"session": sess.Tables(),
	})
}

func (s *Server) handleGetTable(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil {
		return JSONError(c, fiber.StatusBadRequest, "limit must be an integer")
	}

	t, err := s.engine.Table(c.UserContext(), c.Params("name"))
	if err != nil {
		return JSONPipelineError(c, err)
	}
	return JSON(c, tableData(t, limit))
}

func (s *Server) handleExportTable(c *fiber.Ctx) error {
	var body struct {
		Format string `json:"format"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return JSONError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	path, err := s.engine.Export(c.UserContext(), c.Params("name"), body.Format)
	if err != nil {
		return JSONPipelineError(c, err)
	}
	return JSON(c, fiber.Map{"path": path})
}

func (s *Server) handleTransferTable(c *fiber.Ctx) error {
	var body struct {
		Target string `json:"target"`
		As     string `json:"as"`
		Mode   string `json:"mode"`
	}
	if err := c.BodyParser(&body); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if s.cfg == nil {
		return JSONError(c, fiber.StatusBadRequest, "transfers are not configured")
	}
	switch body.Target {
	case "":
		body.Target = config.SinkDatabase
	case config.SinkDatabase, config.SinkStore, config.SinkFile:
	default:
		return JSONError(c, fiber.StatusBadRequest, "unknown transfer target: "+body.Target)
	}
	mode, err := sink.ParseMode(body.Mode)
	if err != nil {
		return JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	from := s.engine.Reader()
	if from == nil {
		return JSONError(c, fiber.StatusNotFound, "no local store to transfer from")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Minute)
	defer cancel()

	to, err := engine.OpenSink(ctx, s.cfg, body.Target)
	if err != nil {
		return JSONPipelineError(c, err)
	}
	defer to.Close()

	t, err := engine.Transfer(ctx, from, to, c.Params("name"), body.As, mode)
	if err != nil {
		return JSONPipelineError(c, err)
	}
	return JSON(c, fiber.Map{
		"table":  t.Name,
		"rows":   len(t.Rows),
		"target": to.Name(),
	})
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id, _ := c.Locals(sessionKey).(string)
	if err := s.sessions.Delete(c.UserContext(), id); err != nil {
		return JSONError(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return JSONMessage(c, "session ended")
}
