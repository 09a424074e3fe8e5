// Package catalog keeps the form schemas a backend serves, keyed by form id.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// ErrDuplicate is returned when an id is registered twice.
var ErrDuplicate = errors.New("catalog: duplicate schema id")

// NotFoundError reports a lookup of an unknown id together with the ids that
// do exist.
type NotFoundError struct {
	ID        string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Schema '%s' not found. Available schemas: [%s]", e.ID, quoteIDs(e.Available))
}

func quoteIDs(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "'" + id + "'"
	}
	return strings.Join(quoted, ", ")
}

// Entry is one registered schema.
type Entry struct {
	ID     string
	Source string
	Schema schema.FormSchema
}

// Registry is an insertion-ordered set of schemas. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add registers s under id.
func (r *Registry) Add(id, source string, s schema.FormSchema) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("catalog: %s: empty schema id", source)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %q (%s and %s)", ErrDuplicate, id, existing.Source, source)
	}
	r.entries[id] = Entry{ID: id, Source: source, Schema: s}
	r.order = append(r.order, id)
	return nil
}

// Get returns the schema registered under id or a *NotFoundError.
func (r *Registry) Get(id string) (schema.FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return schema.FormSchema{}, &NotFoundError{ID: id, Available: append([]string(nil), r.order...)}
	}
	return entry.Schema, nil
}

// IDs returns the registered ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Entries returns every entry in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// Len returns the number of schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// LoadFS registers every .json, .yaml and .yml file of fsys. The id is the
// file name without its extension.
func (r *Registry) LoadFS(fsys fs.FS) error {
	if fsys == nil {
		return nil
	}
	return fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", name, err)
		}
		doc, err := schema.NewDocument(schema.SourceFromFS(name), data)
		if err != nil {
			return fmt.Errorf("catalog: %s: %w", name, err)
		}
		parsed, err := schema.ParseDocument(doc)
		if err != nil {
			return err
		}
		return r.Add(schemaID(name), name, parsed)
	})
}

func schemaID(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
