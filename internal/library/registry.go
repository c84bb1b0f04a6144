// Package library loads named sequences from YAML files and keeps them
// available for lookup. A directory watcher reloads the set when files
// change.
package library

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// ErrUnknownSequence is returned when a lookup names a sequence that is not
// in the registry.
var ErrUnknownSequence = errors.New("unknown sequence")

// Registry holds all loaded sequences by name. Sequences are immutable, so
// handing the same pointer to multiple callers is safe.
type Registry struct {
	mu        sync.RWMutex
	sequences map[string]*sequence.Sequence
}

// NewRegistry creates an empty sequence registry.
func NewRegistry() *Registry {
	return &Registry{
		sequences: make(map[string]*sequence.Sequence),
	}
}

// Register adds a sequence to the registry.
func (r *Registry) Register(name string, seq *sequence.Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sequences[name]; exists {
		return fmt.Errorf("sequence %q already registered", name)
	}

	r.sequences[name] = seq
	return nil
}

// Get retrieves a sequence by name.
func (r *Registry) Get(name string) (*sequence.Sequence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq, exists := r.sequences[name]
	return seq, exists
}

// Resolve is Get with an error for command handling paths.
func (r *Registry) Resolve(name string) (*sequence.Sequence, error) {
	seq, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSequence, name)
	}
	return seq, nil
}

// Replace swaps the whole sequence set. Used by reloads so that a changed
// file never leaves the registry half old, half new.
func (r *Registry) Replace(sequences map[string]*sequence.Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences = sequences
}

// Names returns all registered sequence names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sequences))
	for name := range r.sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered sequences.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences)
}
