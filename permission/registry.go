package permission

import (
	"errors"
	"sync"
)

var (
	ErrRegistryFrozen      = errors.New("registry frozen")
	ErrEmptyPermission     = errors.New("permission name cannot be empty")
	ErrDuplicatePermission = errors.New("permission already registered")
	ErrPermissionLimit     = errors.New("permission limit exceeded")
)

// Registry maps permission names to bit positions within a [Mask64].
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName []string
	frozen    bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{nameToBit: make(map[string]int)}
}

// Register assigns the next free bit to name. Must be called before
// [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}
	if name == "" {
		return -1, ErrEmptyPermission
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, ErrDuplicatePermission
	}

	next := len(r.bitToName)
	if next >= 64 {
		return -1, ErrPermissionLimit
	}

	r.nameToBit[name] = next
	r.bitToName = append(r.bitToName, name)
	return next, nil
}

// Bit returns the bit for name, or false if it was never registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission assigned to bit.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if bit < 0 || bit >= len(r.bitToName) {
		return "", false
	}
	return r.bitToName[bit], true
}

// Names expands mask into permission names in registration order.
func (r *Registry) Names(mask Mask64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, mask.Count())
	for bit, name := range r.bitToName {
		if mask.Has(bit) {
			out = append(out, name)
		}
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bitToName)
}
