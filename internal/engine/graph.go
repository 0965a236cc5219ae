package engine

import (
	"fmt"
	"strings"
)

// CircularDependencyError is returned when schemas in one batch reference
// each other in a cycle.
type CircularDependencyError struct {
	Tables []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Tables, " → "))
}

// dependencyGraph orders tables so every referenced table is generated
// before the tables that reference it. Tables outside the graph are assumed
// to exist already.
type dependencyGraph struct {
	deps  map[string][]string
	names []string
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{deps: make(map[string][]string)}
}

func (g *dependencyGraph) add(table string, deps []string) {
	if _, ok := g.deps[table]; !ok {
		g.names = append(g.names, table)
	}
	g.deps[table] = deps
}

// order returns a topological order that keeps insertion order among
// independent tables.
func (g *dependencyGraph) order() ([]string, error) {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string
	var order []string

	var visit func(string) error
	visit = func(table string) error {
		if onPath[table] {
			start := 0
			for i, name := range path {
				if name == table {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), table)
			return &CircularDependencyError{Tables: cycle}
		}
		if visited[table] {
			return nil
		}

		onPath[table] = true
		path = append(path, table)
		for _, dep := range g.deps[table] {
			if _, inGraph := g.deps[dep]; !inGraph || dep == table {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onPath[table] = false

		visited[table] = true
		order = append(order, table)
		return nil
	}

	for _, table := range g.names {
		if err := visit(table); err != nil {
			return nil, err
		}
	}
	return order, nil
}
