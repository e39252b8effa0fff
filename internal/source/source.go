// Package source defines the tag-source abstraction: a capability that
// yields the raw tag names published for a project on a hosting service.
package source

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// TagSource lists the raw tag names of a project. The sequence is lazy:
// implementations may paginate under the hood and yield tags as pages
// arrive. A yielded error terminates the sequence.
type TagSource interface {
	// Tags yields tag names for a project identified by its owner/repo
	// slug. Order is whatever the hosting service returns; consumers
	// must not depend on it.
	Tags(ctx context.Context, project string) iter.Seq2[string, error]
}

// Factory creates a tag source for a given base URL and access token.
type Factory func(baseURL, token string) TagSource

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a hosting-service factory to the global registry.
// host is the service identifier (e.g. "github"), defaultURL its API root.
func Register(host string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[host] = factory
	defaults[host] = defaultURL
}

// New creates a tag source for the given hosting service. If baseURL is
// empty, the service's default API root is used.
func New(host string, baseURL, token string) (TagSource, error) {
	mu.RLock()
	factory, ok := factories[host]
	defaultURL := defaults[host]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown hosting service: %s", host)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	return factory(baseURL, token), nil
}

// SupportedHosts returns all registered hosting services.
func SupportedHosts() []string {
	mu.RLock()
	defer mu.RUnlock()

	hosts := make([]string, 0, len(factories))
	for host := range factories {
		hosts = append(hosts, host)
	}
	return hosts
}
