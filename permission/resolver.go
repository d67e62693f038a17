package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownPermission = errors.New("permission not registered")
	ErrDuplicateRole     = errors.New("role already defined")
	ErrEmptyRole         = errors.New("role name cannot be empty")
)

type role struct {
	def  RoleDef
	mask Mask64
}

// Resolver answers permission, route and hierarchy questions for a fixed
// role table. It holds no mutable state after construction.
type Resolver struct {
	registry *Registry
	roles    map[string]*role
	aliases  map[string]string
	admin    string
}

// NewResolver compiles defs against catalog. admin names the role that is
// treated as holding every permission; aliases maps lower-cased spellings to
// role names.
func NewResolver(catalog []string, defs []RoleDef, aliases map[string]string, admin string) (*Resolver, error) {
	reg := NewRegistry()
	for _, name := range catalog {
		if _, err := reg.Register(name); err != nil {
			return nil, fmt.Errorf("register %q: %w", name, err)
		}
	}
	reg.Freeze()

	r := &Resolver{
		registry: reg,
		roles:    make(map[string]*role, len(defs)),
		aliases:  make(map[string]string, len(aliases)),
		admin:    admin,
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, ErrEmptyRole
		}
		if _, exists := r.roles[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, def.Name)
		}
		var mask Mask64
		for _, p := range def.Permissions {
			bit, ok := reg.Bit(p)
			if !ok {
				return nil, fmt.Errorf("%w: %s (role %s)", ErrUnknownPermission, p, def.Name)
			}
			mask.Set(bit)
		}
		def.Permissions = append([]string(nil), def.Permissions...)
		def.RoutePrefixes = append([]string(nil), def.RoutePrefixes...)
		r.roles[def.Name] = &role{def: def, mask: mask}
	}

	for alias, target := range aliases {
		if _, ok := r.roles[target]; !ok {
			return nil, fmt.Errorf("alias %q targets undefined role %q", alias, target)
		}
		r.aliases[strings.ToLower(alias)] = target
	}
	return r, nil
}

// Default returns the resolver for the platform role table.
func Default() *Resolver {
	r, err := NewResolver(Catalog(), DefaultRoles(), DefaultAliases(), RoleAdmin)
	if err != nil {
		panic("permission: default role table is invalid: " + err.Error())
	}
	return r
}

// Normalize maps a role spelling to its canonical name.
func (r *Resolver) Normalize(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(name)
	if _, ok := r.roles[trimmed]; ok {
		return trimmed, true
	}
	upper := strings.ToUpper(trimmed)
	if _, ok := r.roles[upper]; ok {
		return upper, true
	}
	target, ok := r.aliases[strings.ToLower(trimmed)]
	return target, ok
}

func (r *Resolver) lookup(name string) *role {
	canonical, ok := r.Normalize(name)
	if !ok {
		return nil
	}
	return r.roles[canonical]
}

// IsAdmin reports whether name resolves to the administrator role.
func (r *Resolver) IsAdmin(name string) bool {
	canonical, ok := r.Normalize(name)
	return ok && canonical == r.admin
}

// HasPermission reports whether the role grants permission.
func (r *Resolver) HasPermission(roleName, permission string) bool {
	ro := r.lookup(roleName)
	if ro == nil {
		return false
	}
	bit, ok := r.registry.Bit(permission)
	if !ok {
		return false
	}
	return ro.mask.Has(bit)
}

// Permissions lists the permissions granted to the role.
func (r *Resolver) Permissions(roleName string) []string {
	ro := r.lookup(roleName)
	if ro == nil {
		return nil
	}
	return r.registry.Names(ro.mask)
}

// HasRouteAccess reports whether any of the role's route prefixes is a
// prefix of path.
func (r *Resolver) HasRouteAccess(roleName, path string) bool {
	ro := r.lookup(roleName)
	if ro == nil {
		return false
	}
	for _, prefix := range ro.def.RoutePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Level returns the hierarchy level of the role, 0 when unknown.
func (r *Resolver) Level(roleName string) int {
	ro := r.lookup(roleName)
	if ro == nil {
		return 0
	}
	return ro.def.Level
}

// HasHigherOrEqualLevel reports whether role a sits at or above role b.
func (r *Resolver) HasHigherOrEqualLevel(a, b string) bool {
	return r.Level(a) >= r.Level(b)
}

// Description returns the human readable role description.
func (r *Resolver) Description(roleName string) string {
	ro := r.lookup(roleName)
	if ro == nil {
		return ""
	}
	return ro.def.Description
}

// Roles returns canonical role names ordered by descending level.
func (r *Resolver) Roles() []string {
	out := make([]string, 0, len(r.roles))
	for name := range r.roles {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := r.roles[out[i]].def.Level, r.roles[out[j]].def.Level
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

// KnownPermission reports whether name is part of the catalog.
func (r *Resolver) KnownPermission(name string) bool {
	_, ok := r.registry.Bit(name)
	return ok
}
