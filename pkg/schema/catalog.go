// Package schema holds the graph schema catalog consulted by the plan
// analyzer. The catalog is a read-mostly snapshot of labels, their
// properties, and the indexes declared over them. It never talks to the
// database itself; refreshes go through a caller-supplied source.
package schema

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Index describes one declared index.
type Index struct {
	Label    string
	Property string
}

// Label describes one node label: the properties observed on it and which
// of them carry an index.
type Label struct {
	Name       string
	Properties []string
	Indexes    []string
}

// Snapshot is one immutable schema state as returned by a Source.
type Snapshot struct {
	Labels    []Label
	FetchedAt time.Time
}

// Source fetches the current schema from the database. It is an external
// collaborator; the catalog has no knowledge of the transport behind it.
type Source interface {
	FetchSchema(ctx context.Context) (*Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Snapshot, error)

// FetchSchema implements Source.
func (f SourceFunc) FetchSchema(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}

// Catalog is the shared schema view. Reads vastly outnumber refreshes, so
// lookups take a read lock and Refresh swaps the maps under a write lock.
type Catalog struct {
	mu        sync.RWMutex
	props     map[string]map[string]bool // label -> property -> present
	indexes   map[string]map[string]bool // label -> property -> indexed
	fetchedAt time.Time
}

// NewCatalog returns an empty catalog. An empty catalog answers every
// lookup negatively, which disables missing-index findings until the first
// refresh lands.
func NewCatalog() *Catalog {
	return &Catalog{
		props:   make(map[string]map[string]bool),
		indexes: make(map[string]map[string]bool),
	}
}

// Refresh fetches a fresh snapshot from the source and swaps it in.
func (c *Catalog) Refresh(ctx context.Context, src Source) error {
	snap, err := src.FetchSchema(ctx)
	if err != nil {
		return fmt.Errorf("schema refresh: %w", err)
	}
	c.Apply(snap)
	return nil
}

// Apply replaces the catalog contents with the given snapshot.
func (c *Catalog) Apply(snap *Snapshot) {
	props := make(map[string]map[string]bool, len(snap.Labels))
	indexes := make(map[string]map[string]bool, len(snap.Labels))
	for _, l := range snap.Labels {
		pm := make(map[string]bool, len(l.Properties))
		for _, p := range l.Properties {
			pm[p] = true
		}
		im := make(map[string]bool, len(l.Indexes))
		for _, p := range l.Indexes {
			im[p] = true
		}
		props[l.Name] = pm
		indexes[l.Name] = im
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.props = props
	c.indexes = indexes
	if snap.FetchedAt.IsZero() {
		c.fetchedAt = time.Now()
	} else {
		c.fetchedAt = snap.FetchedAt
	}
}

// HasProperty reports whether the label is known to carry the property.
func (c *Catalog) HasProperty(label, property string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props[label][property]
}

// HasIndex reports whether an index is declared for (label, property).
func (c *Catalog) HasIndex(label, property string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[label][property]
}

// MissingIndex reports whether (label, property) is a known property that
// an equivalent indexed lookup could serve but no index is declared for.
func (c *Catalog) MissingIndex(label, property string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props[label][property] && !c.indexes[label][property]
}

// FetchedAt returns the time of the last applied snapshot.
func (c *Catalog) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Labels returns the known label names. Primarily for diagnostics.
func (c *Catalog) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.props))
	for name := range c.props {
		out = append(out, name)
	}
	return out
}
