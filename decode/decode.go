// Package decode defines the contract shared by the protocol decoders, so a
// set of active decoders can be driven and reported on uniformly.
package decode

import (
	"sort"
	"sync"
)

// Statistics carries a decoder's counters for the reporting surface.
type Statistics map[string]any

// Decoder is implemented by all protocol decoders. The decode operation
// itself is typed per protocol; this contract covers what every decoder
// shares.
type Decoder interface {
	Name() string
	Statistics() Statistics
}

// Registry keeps the set of active decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds the given decoder, replacing any decoder with the same name.
func (r *Registry) Register(decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoder.Name()] = decoder
}

func (r *Registry) Get(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decoder, ok := r.decoders[name]
	return decoder, ok
}

// Names returns the registered decoder names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllStatistics returns the current counters of every registered decoder.
func (r *Registry) AllStatistics() map[string]Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]Statistics, len(r.decoders))
	for name, decoder := range r.decoders {
		result[name] = decoder.Statistics()
	}
	return result
}
