// Package registry tracks, per category of the running game, the image
// the last successful capture produced.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrUnknownCategory = errors.New("unknown category")

// Slot is one category and its current image, if any.
type Slot struct {
	Label    string `json:"label"`
	Path     string `json:"path,omitempty"`
	Captured bool   `json:"captured"`
}

// Registry maps category labels to the path of their processed image.
// A label is either absent or points at a file written by the store.
type Registry struct {
	labels []string
	paths  map[string]string
	mu     sync.RWMutex
}

// New creates a registry for the given labels with nothing captured.
func New(labels []string) *Registry {
	return &Registry{
		labels: slices.Clone(labels),
		paths:  make(map[string]string, len(labels)),
	}
}

func (r *Registry) known(label string) error {
	if !slices.Contains(r.labels, label) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, label)
	}
	return nil
}

// Labels returns the categories in game order.
func (r *Registry) Labels() []string {
	return slices.Clone(r.labels)
}

// Set records path as the current image of label.
func (r *Registry) Set(label, path string) error {
	if err := r.known(label); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("empty path for %s", label)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[label] = path
	return nil
}

// Get returns the current image of label and whether there is one.
func (r *Registry) Get(label string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.paths[label]
	return p, ok
}

// Clear forgets the image of label.
func (r *Registry) Clear(label string) error {
	if err := r.known(label); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, label)
	return nil
}

// Reset forgets every image.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.paths)
}

// Snapshot returns every category in game order with its current image.
func (r *Registry) Snapshot() []Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slots := make([]Slot, len(r.labels))
	for i, l := range r.labels {
		p, ok := r.paths[l]
		slots[i] = Slot{Label: l, Path: p, Captured: ok}
	}
	return slots
}

// Captured lists the captured labels in game order.
func (r *Registry) Captured() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.paths))
	for _, l := range r.labels {
		if _, ok := r.paths[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Complete reports whether every category has an image.
func (r *Registry) Complete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths) == len(r.labels)
}
