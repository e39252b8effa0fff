package github

import (
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerSet holds per-host circuit breakers. A run against many
// dependencies hits the same API host for each of them; once the host is
// down there is no point hammering it for every remaining dependency.
type breakerSet struct {
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

func newBreakerSet() *breakerSet {
	return &breakerSet{
		breakers: make(map[string]*circuit.Breaker),
	}
}

// get returns or creates the circuit breaker for the given host.
func (s *breakerSet) get(host string) *circuit.Breaker {
	s.mu.RLock()
	breaker, exists := s.breakers[host]
	s.mu.RUnlock()

	if exists {
		return breaker
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := s.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, resets on a backoff schedule.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	s.breakers[host] = breaker
	return breaker
}
