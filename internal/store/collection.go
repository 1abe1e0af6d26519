package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// Collection is a named, ordered sequence of records of type R.
type Collection[R any] struct {
	name    string
	backend Backend
	mu      sync.Mutex
}

// NewCollection binds a collection name to a backend.
func NewCollection[R any](backend Backend, name string) *Collection[R] {
	return &Collection[R]{name: name, backend: backend}
}

// Name returns the collection name.
func (c *Collection[R]) Name() string {
	return c.name
}

// LoadAll returns every record. A collection that was never written is
// initialized empty and returned as an empty slice.
func (c *Collection[R]) LoadAll(ctx context.Context) ([]R, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// ReplaceAll overwrites the collection with records.
func (c *Collection[R]) ReplaceAll(ctx context.Context, records []R) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replace(ctx, records)
}

// Update runs fn against the current records and persists what it returns.
// The collection stays locked for the whole sequence. If fn fails nothing is
// written and its error is returned unchanged.
func (c *Collection[R]) Update(ctx context.Context, fn func([]R) ([]R, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return c.replace(ctx, next)
}

func (c *Collection[R]) load(ctx context.Context) ([]R, error) {
	body, err := c.backend.Read(ctx, c.name)
	if errors.Is(err, ErrNotExist) {
		if err := c.replace(ctx, nil); err != nil {
			return nil, err
		}
		return []R{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}

	records := []R{}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return records, nil
}

func (c *Collection[R]) replace(ctx context.Context, records []R) error {
	if records == nil {
		records = []R{}
	}
	body, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.backend.Write(ctx, c.name, body); err != nil {
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	return nil
}
