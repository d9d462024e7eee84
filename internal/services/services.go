// Package services provides the service instances that service-backed fields
// resolve through.
//
// A Registry holds one factory per service name and is shared by every
// execution. Each execution opens a Scope, which creates an instance the
// first time a name is resolved and reuses it for the rest of the execution.
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
)

// Factory creates a service instance for one execution.
type Factory func(ctx context.Context) (any, error)

// UnknownServiceError reports a name no factory was registered for.
type UnknownServiceError struct {
	Name string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("service %q is not registered", e.Name)
}

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register sets the factory for name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
	return r
}

// RegisterInstance registers a service shared by every execution.
func (r *Registry) RegisterInstance(name string, v any) *Registry {
	return r.Register(name, func(context.Context) (any, error) { return v, nil })
}

// Names returns the registered service names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Scope opens the per-execution view of r. A nil registry yields a scope
// that resolves nothing.
func (r *Registry) Scope() *Scope {
	return &Scope{registry: r, instances: map[string]any{}}
}

// Scope resolves services for one execution. It implements
// expr.ServiceResolver.
type Scope struct {
	registry  *Registry
	mu        sync.Mutex
	instances map[string]any
	resolved  []string
}

// Resolve returns the instance for name, creating it on first use. A failed
// factory is retried on the next call.
func (s *Scope) Resolve(ctx context.Context, name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.instances[name]; ok {
		return v, nil
	}
	if s.registry == nil {
		return nil, &UnknownServiceError{Name: name}
	}
	f, ok := s.registry.factory(name)
	if !ok {
		return nil, &UnknownServiceError{Name: name}
	}
	start := time.Now()
	v, err := f(ctx)
	eventbus.Publish(ctx, events.ServiceResolved{
		Service:  name,
		Err:      err,
		Start:    start,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"service": name}).Debug("service created")
	s.instances[name] = v
	s.resolved = append(s.resolved, name)
	return v, nil
}

// Resolved returns the names created by this scope in creation order.
func (s *Scope) Resolved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resolved...)
}
