// Package store persists accepted form submissions.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/goliatone/go-formflow/pkg/api"
)

// Record is one stored submission.
type Record struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	FormID    string       `json:"formId" db:"form_id"`
	Data      api.FormData `json:"data" db:"data"`
	Timestamp time.Time    `json:"timestamp" db:"created_at"`
}

// Store saves and lists submissions. Implementations are safe for concurrent
// use and list records in insertion order.
type Store interface {
	Save(ctx context.Context, formID string, data api.FormData) (Record, error)
	// List returns the submissions of formID, or all of them when formID is
	// empty.
	List(ctx context.Context, formID string) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Save(ctx context.Context, formID string, data api.FormData) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	record := Record{
		ID:        uuid.New(),
		FormID:    formID,
		Data:      data.Clone(),
		Timestamp: m.now().UTC(),
	}
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	return record, nil
}

func (m *Memory) List(ctx context.Context, formID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if formID == "" {
		return slices.Clone(m.records), nil
	}
	return lo.Filter(m.records, func(r Record, _ int) bool { return r.FormID == formID }), nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *Memory) Close() error { return nil }
