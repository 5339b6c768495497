package wayland

import "fmt"

// Global is one compositor-advertised interface.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry tracks the globals announced through wl_registry.
type Registry struct {
	conn    *Conn
	id      uint32
	globals map[uint32]Global
	order   []uint32

	// OnGlobalRemove is called when a global disappears after startup.
	OnGlobalRemove func(Global)
}

// Dispatch handles wl_registry events.
func (r *Registry) Dispatch(m *Message) {
	switch m.Opcode {
	case 0: // global
		g := Global{Name: m.Uint(), Interface: m.String(), Version: m.Uint()}
		if m.Err() != nil {
			return
		}
		if _, ok := r.globals[g.Name]; !ok {
			r.order = append(r.order, g.Name)
		}
		r.globals[g.Name] = g
	case 1: // global_remove
		name := m.Uint()
		if m.Err() != nil {
			return
		}
		g, ok := r.globals[name]
		if !ok {
			return
		}
		delete(r.globals, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		if r.OnGlobalRemove != nil {
			r.OnGlobalRemove(g)
		}
	}
}

// Find returns the first advertised global implementing iface.
func (r *Registry) Find(iface string) (Global, bool) {
	for _, name := range r.order {
		if g := r.globals[name]; g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Globals returns every advertised global in announcement order.
func (r *Registry) Globals() []Global {
	out := make([]Global, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.globals[name])
	}
	return out
}

// Bind creates a client object for g at min(g.Version, maxVersion) and routes
// its events to d. It returns the new object id and the bound version.
func (r *Registry) Bind(g Global, maxVersion uint32, d Dispatcher) (uint32, uint32, error) {
	version := g.Version
	if maxVersion < version {
		version = maxVersion
	}
	id := r.conn.NewObject(d)
	req := NewRequest(r.id, 0).
		Uint(g.Name).
		String(g.Interface).
		Uint(version).
		NewID(id)
	if err := r.conn.Send(req); err != nil {
		r.conn.Forget(id)
		return 0, 0, fmt.Errorf("bind %s: %w", g.Interface, err)
	}
	return id, version, nil
}
