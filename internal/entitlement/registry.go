package entitlement

import (
	"fmt"
	"sort"
)

// Factory constructs a fresh Service instance. Services are stateless;
// every query or operation gets its own instance.
type Factory func() Service

// Registry is the indirection table from service name to factory. Related
// services (dependent/required/incompatible) are resolved through it so
// declarations never reference concrete types directly.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the service's name. Re-registering a name
// replaces the previous factory; tests use this to substitute fakes.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New constructs a fresh service instance by name.
func (r *Registry) New(name string) (Service, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", name)
	}
	return f(), nil
}

// Engine constructs an engine for the named service sharing deps.
func (r *Registry) Engine(name string, deps Deps, opts Options) (*Engine, error) {
	svc, err := r.New(name)
	if err != nil {
		return nil, err
	}
	return NewEngine(svc, deps, opts), nil
}

// ValidServices returns the registered service names, sorted.
func (r *Registry) ValidServices() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the registry of the services this client ships.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("esm-infra", NewESMInfra)
	r.Register("esm-apps", NewESMApps)
	r.Register("livepatch", NewLivepatch)
	r.Register("realtime-kernel", NewRealtimeKernel)
	r.Register("monitord", NewMonitord)
	return r
}
