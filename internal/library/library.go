package library

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// Library is a registry bound to a set of file paths it loads from.
// Sequences registered at runtime (from Lua scripts) are tracked separately
// so that file reloads do not drop them.
type Library struct {
	*Registry
	paths    []string
	capacity int

	rtMu    sync.Mutex
	runtime map[string]*sequence.Sequence
}

// New creates a library reading from the given paths. capacity bounds the
// steps per sequence; zero keeps the builder default.
func New(paths []string, capacity int) *Library {
	return &Library{
		Registry: NewRegistry(),
		paths:    paths,
		capacity: capacity,
		runtime:  make(map[string]*sequence.Sequence),
	}
}

// Paths returns the configured source paths.
func (l *Library) Paths() []string {
	return l.paths
}

// Capacity returns the per-sequence step bound. Zero means the builder
// default.
func (l *Library) Capacity() int {
	return l.capacity
}

// Reload parses all sequence files and swaps the registry content in one
// step, carrying runtime registrations over. On error the previous set is
// kept and the error returned. File definitions shadow runtime ones with
// the same name.
func (l *Library) Reload() (int, error) {
	sequences, err := LoadPaths(l.paths, l.capacity)
	if err != nil {
		return 0, err
	}

	l.rtMu.Lock()
	for name, seq := range l.runtime {
		if _, exists := sequences[name]; exists {
			log.Warn().Str("sequence", name).Msg("File sequence shadows runtime registration")
			continue
		}
		sequences[name] = seq
	}
	l.rtMu.Unlock()

	l.Replace(sequences)
	return len(sequences), nil
}

// Put registers a sequence built at runtime, replacing any previous
// runtime entry with the same name.
func (l *Library) Put(name string, seq *sequence.Sequence) {
	l.rtMu.Lock()
	l.runtime[name] = seq
	l.rtMu.Unlock()

	l.mu.Lock()
	l.sequences[name] = seq
	l.mu.Unlock()
}
