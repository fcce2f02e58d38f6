// Package provider implements the pattern-matched, priority-ordered
// ticker-to-provider registry (spec §4.1) and its built-in providers.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// Provider resolves OHLC bars and dividend events for a ticker over a date
// range. Both methods are inclusive of start/end and return an empty slice
// (never an error) when no data is available for the range.
type Provider interface {
	GetPrices(start, end time.Time) ([]domain.Bar, error)
	GetDividends(start, end time.Time) ([]domain.DividendEvent, error)
}

// Factory constructs a Provider bound to a specific ticker.
type Factory func(ticker string) (Provider, error)

type registration struct {
	pattern  string
	priority int
	factory  Factory
}

// Registry is a process-wide, priority-ordered mapping from ticker patterns
// to provider factories. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a factory for tickers matching pattern, at the given
// priority (lower values are tried first). Patterns are one of:
//   - exact:       "USD"
//   - prefix-wild: "BTC-*"
//   - universal:   "*"
func (r *Registry) Register(pattern string, priority int, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.regs = append(r.regs, registration{
		pattern:  strings.ToUpper(pattern),
		priority: priority,
		factory:  factory,
	})

	sort.SliceStable(r.regs, func(i, j int) bool {
		return r.regs[i].priority < r.regs[j].priority
	})
}

// Reset clears all registrations. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = nil
}

// Resolve uppercases ticker and returns the first matching provider in
// priority order. Returns domain.ErrNoProviderRegistered if nothing matches.
func (r *Registry) Resolve(ticker string) (Provider, error) {
	upper := strings.ToUpper(ticker)

	r.mu.RLock()
	regs := make([]registration, len(r.regs))
	copy(regs, r.regs)
	r.mu.RUnlock()

	for _, reg := range regs {
		if matchPattern(reg.pattern, upper) {
			p, err := reg.factory(upper)
			if err != nil {
				return nil, fmt.Errorf("building provider for %q: %w", upper, err)
			}
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrNoProviderRegistered, upper)
}

// matchPattern implements the three-case pattern grammar of spec §4.1.
func matchPattern(pattern, ticker string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "-*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(ticker, prefix)
	}
	return pattern == ticker
}
