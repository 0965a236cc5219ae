package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/types"
)

// FileSink writes each table as a CSV file in a directory. It can create
// and export but not append or read back.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "exports"
	}
	return &FileSink{dir: dir}
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Close() error { return nil }

func (f *FileSink) Dir() string { return f.dir }

func (f *FileSink) CreateOrReplace(_ context.Context, t *types.Table) error {
	if _, err := export.Export(t, export.FormatCSV, f.dir); err != nil {
		return &SinkError{Sink: f.Name(), Op: "create", Table: t.Name, Err: err}
	}
	return nil
}

func (f *FileSink) Export(_ context.Context, t *types.Table, format, dir string) (string, error) {
	if dir == "" {
		dir = f.dir
	}
	path, err := export.Export(t, format, dir)
	if err != nil {
		return "", &SinkError{Sink: f.Name(), Op: "export", Table: t.Name, Err: err}
	}
	return path, nil
}

// Snapshot keeps the bytes of the table's current CSV file, if any.
func (f *FileSink) Snapshot(_ context.Context, name string) (Restore, error) {
	path := filepath.Join(f.dir, name+"."+export.FormatCSV)
	prior, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return func(context.Context) error {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &SinkError{Sink: f.Name(), Op: "restore", Table: name, Err: err}
			}
			return nil
		}, nil
	}
	if err != nil {
		return nil, &SinkError{Sink: f.Name(), Op: "snapshot", Table: name, Err: err}
	}
	return func(context.Context) error {
		if err := os.WriteFile(path, prior, 0644); err != nil {
			return &SinkError{Sink: f.Name(), Op: "restore", Table: name, Err: err}
		}
		return nil
	}, nil
}
