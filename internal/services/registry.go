package services

import (
	"fmt"
	"sort"
	"sync"
)

// RegisteredAdapter pairs an adapter with its current descriptor.
type RegisteredAdapter struct {
	Descriptor AdapterDescriptor
	Adapter    Adapter
	order      int
}

type Registry interface {
	Register(desc AdapterDescriptor, adapter Adapter) error
	Configure(overrides []AdapterDescriptor) error
	ListAdapters(mediaType string) ([]RegisteredAdapter, error)
	Descriptors() []AdapterDescriptor
}

type registry struct {
	mu       sync.RWMutex
	adapters map[string]*RegisteredAdapter
	next     int
}

func NewRegistry() Registry {
	return &registry{adapters: make(map[string]*RegisteredAdapter)}
}

func (r *registry) Register(desc AdapterDescriptor, adapter Adapter) error {
	if desc.Name == "" {
		return fmt.Errorf("adapter name is required")
	}
	if adapter == nil {
		return fmt.Errorf("adapter %s: nil implementation", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[desc.Name]; exists {
		return fmt.Errorf("adapter %s already registered", desc.Name)
	}
	r.adapters[desc.Name] = &RegisteredAdapter{
		Descriptor: desc,
		Adapter:    adapter,
		order:      r.next,
	}
	r.next++
	return nil
}

// Configure replaces the descriptors of already registered adapters. Every
// override must name a registered adapter, and an adapter registered as
// unavailable cannot be enabled. Registration order is kept. Either every
// override applies or none does.
func (r *registry) Configure(overrides []AdapterDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range overrides {
		ra, ok := r.adapters[o.Name]
		if !ok {
			return fmt.Errorf("configure: unknown adapter %s", o.Name)
		}
		if u, stub := ra.Adapter.(*unavailableAdapter); stub && o.Enabled {
			return fmt.Errorf("configure: adapter %s cannot be enabled: %s", o.Name, u.reason)
		}
	}
	for _, o := range overrides {
		r.adapters[o.Name].Descriptor = o
	}
	return nil
}

// ListAdapters returns enabled adapters supporting mediaType, lowest priority
// first, ties broken by registration order.
func (r *registry) ListAdapters(mediaType string) ([]RegisteredAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []RegisteredAdapter
	for _, ra := range r.adapters {
		if ra.Descriptor.Enabled && ra.Descriptor.Supports(mediaType) {
			out = append(out, *ra)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoAdapterAvailable, mediaType)
	}

	sortAdapters(out)
	return out, nil
}

func (r *registry) Descriptors() []AdapterDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]RegisteredAdapter, 0, len(r.adapters))
	for _, ra := range r.adapters {
		all = append(all, *ra)
	}
	sortAdapters(all)

	descs := make([]AdapterDescriptor, len(all))
	for i, ra := range all {
		descs[i] = ra.Descriptor
	}
	return descs
}

func sortAdapters(list []RegisteredAdapter) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Descriptor.Priority != list[j].Descriptor.Priority {
			return list[i].Descriptor.Priority < list[j].Descriptor.Priority
		}
		return list[i].order < list[j].order
	})
}
