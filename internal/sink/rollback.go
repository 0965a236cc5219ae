package sink

import (
	"context"
	"errors"

	"github.com/Rana718/datagen/internal/types"
)

// ErrNoSnapshot is returned by Snapshot for sinks whose writes cannot be
// undone.
var ErrNoSnapshot = errors.New("sink cannot restore a table after a write")

// Pinger reports whether a sink is reachable right now.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dropper removes a table and its recorded column definitions. Dropping a
// table that does not exist is not an error.
type Dropper interface {
	DropTable(ctx context.Context, name string) error
}

// AppendChecker reports, without writing, whether t could be appended to
// the stored table name. A missing table passes: Write creates it.
type AppendChecker interface {
	CheckAppend(ctx context.Context, name string, t *types.Table) error
}

// Snapshotter captures a table in a sink-specific way.
type Snapshotter interface {
	Snapshot(ctx context.Context, name string) (Restore, error)
}

// Restore puts a table back the way it was when its snapshot was taken.
type Restore func(ctx context.Context) error

// Check runs the cheap checks Write would otherwise fail on halfway:
// reachability and, for appends, column compatibility.
func Check(ctx context.Context, s Sink, t *types.Table, mode Mode) error {
	if p, ok := s.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if mode == ModeAppend {
		if c, ok := s.(AppendChecker); ok {
			return c.CheckAppend(ctx, t.Name, t)
		}
	}
	return nil
}

// Snapshot records the current state of table name in s so a later write
// can be undone. A table that does not exist yet is restored by dropping it.
func Snapshot(ctx context.Context, s Sink, name string) (Restore, error) {
	if sn, ok := s.(Snapshotter); ok {
		return sn.Snapshot(ctx, name)
	}

	r, readable := s.(Reader)
	creator, creatable := s.(Creator)
	if !readable || !creatable {
		return nil, &SinkError{Sink: s.Name(), Op: "snapshot", Table: name, Err: ErrNoSnapshot}
	}

	exists, err := r.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		dropper, ok := s.(Dropper)
		if !ok {
			return nil, &SinkError{Sink: s.Name(), Op: "snapshot", Table: name, Err: ErrNoSnapshot}
		}
		return func(ctx context.Context) error {
			return dropper.DropTable(ctx, name)
		}, nil
	}

	prior, err := r.ReadAll(ctx, name)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return creator.CreateOrReplace(ctx, prior)
	}, nil
}
