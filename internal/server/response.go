package server

import (
	"errors"

	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/Rana718/datagen/internal/types"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success  bool            `json:"success"`
	Data     any             `json:"data,omitempty"`
	Message  string          `json:"message,omitempty"`
	Category engine.Category `json:"category,omitempty"`
}

func JSON(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Success: false, Message: message})
}

// JSONPipelineError reports a pipeline error with its category and the
// status that category maps to.
func JSONPipelineError(c *fiber.Ctx, err error) error {
	category := engine.Classify(err)
	return c.Status(statusFor(category, err)).JSON(Response{
		Success:  false,
		Message:  err.Error(),
		Category: category,
	})
}

func statusFor(category engine.Category, err error) int {
	switch category {
	case engine.CategorySchema:
		return fiber.StatusBadRequest
	case engine.CategoryReference, engine.CategoryGeneration:
		return fiber.StatusUnprocessableEntity
	}

	var notFound *sink.TableNotFoundError
	var unavailable *sink.SinkUnavailableError
	switch {
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &unavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

// TableData is the wire form of a table. Rows are arrays in column order so
// clients see columns in schema order.
type TableData struct {
	Name     string         `json:"name"`
	Columns  []types.Column `json:"columns"`
	Rows     [][]any        `json:"rows"`
	RowCount int            `json:"row_count"`
}

func tableData(t *types.Table, limit int) TableData {
	head := t.Head(limit)
	rows := make([][]any, len(head))
	for i, row := range head {
		values := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			values[j] = row[col.Name]
		}
		rows[i] = values
	}
	return TableData{Name: t.Name, Columns: t.Columns, Rows: rows, RowCount: len(t.Rows)}
}

func JSONMessage(c *fiber.Ctx, message string) error {
	return c.JSON(Response{Success: true, Message: message})
}
