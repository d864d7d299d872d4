package coordinator

import (
	"sort"
	"sync"

	"github.com/domuslab/domus-core/internal/protocol"
)

// Registry is the coordinator's in-memory view of the admitted fleet, keyed
// by device id. It holds only what registration envelopes carried; nothing
// is persisted.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]protocol.Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]protocol.Sender)}
}

// Add records a device. It reports false when the id was already present;
// the stored descriptor is refreshed either way.
func (r *Registry) Add(sender protocol.Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.devices[sender.ID]
	r.devices[sender.ID] = sender
	return !exists
}

// Remove forgets a device, reporting whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.devices[id]
	delete(r.devices, id)
	return exists
}

// Contains reports whether a device id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Get returns the registered descriptor for id.
func (r *Registry) Get(id string) (protocol.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.devices[id]
	return s, ok
}

// Size returns the number of registered devices.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// List returns the registered descriptors ordered by device id.
func (r *Registry) List() []protocol.Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.Sender, 0, len(r.devices))
	for _, s := range r.devices {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TotalConsumption sums the nominal draw of every registered device.
func (r *Registry) TotalConsumption() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, s := range r.devices {
		total += s.Consumption
	}
	return total
}
