// Package bank keeps compiled items by identifier so that many candidate
// sessions can share one Definition.
package bank

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/itemengine/pkg/item"
)

var (
	// ErrItemNotFound is returned when no item has the requested identifier.
	ErrItemNotFound = errors.New("item not found")

	// ErrDuplicateItem is returned by Add when the identifier is taken.
	ErrDuplicateItem = errors.New("duplicate item identifier")
)

// Bank is an in-memory store of compiled items. It is safe for concurrent
// use; the sessions it creates are not shared.
type Bank struct {
	mu    sync.RWMutex
	items map[string]*item.Definition

	// opts are applied before the per-call options of every Compile and
	// NewSession.
	opts []item.Option
}

// New creates an empty bank. opts apply to every compilation and session.
func New(opts ...item.Option) *Bank {
	return &Bank{
		items: make(map[string]*item.Definition),
		opts:  opts,
	}
}

func (b *Bank) options(extra []item.Option) []item.Option {
	out := make([]item.Option, 0, len(b.opts)+len(extra))
	out = append(out, b.opts...)
	return append(out, extra...)
}

// Add compiles source and stores it under its item identifier. An item that
// is already present is not replaced.
func (b *Bank) Add(source []byte, name string) (*item.Definition, error) {
	def, err := item.Compile(source, b.options([]item.Option{item.WithSourceName(name)})...)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.items[def.Identifier()]; ok {
		return existing, fmt.Errorf("%w: %q", ErrDuplicateItem, def.Identifier())
	}
	b.items[def.Identifier()] = def
	return def, nil
}

// Put stores def, replacing any item with the same identifier.
func (b *Bank) Put(def *item.Definition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[def.Identifier()] = def
}

// Get returns the item with the given identifier.
func (b *Bank) Get(identifier string) (*item.Definition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.items[identifier]
	return def, ok
}

// Remove deletes an item and reports whether it was present. Sessions
// already started keep running.
func (b *Bank) Remove(identifier string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[identifier]
	delete(b.items, identifier)
	return ok
}

// Identifiers returns the stored item identifiers, sorted.
func (b *Bank) Identifiers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.items))
	for id := range b.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored items.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// NewSession starts an independent session over a stored item.
func (b *Bank) NewSession(identifier string, opts ...item.Option) (*item.Item, error) {
	def, ok := b.Get(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, identifier)
	}
	return item.NewSession(def, b.options(opts)...)
}
