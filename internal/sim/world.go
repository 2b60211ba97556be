package sim

import "sync"

// Listener receives an emitted application event. Listeners run
// synchronously on the goroutine that emits.
type Listener func(event string, args []any)

// EventAny subscribes a listener to every emitted event, whatever its name.
const EventAny = "*"

// World is the authoritative state bundle for one simulation session: the
// object table, the simulation clock, the event listener registry, and the
// host variable store. The runtime and the capability calls it exposes are
// the only writers; renderers read through cloned snapshots.
type World struct {
	mu      sync.RWMutex
	objects map[string]*Object
	order   []string

	elapsed float64
	dt      float64

	listeners map[string][]Listener
	vars      map[string]any
}

// NewWorld creates an empty world with the clock at zero.
func NewWorld() *World {
	return &World{
		objects:   make(map[string]*Object),
		listeners: make(map[string][]Listener),
		vars:      make(map[string]any),
	}
}

// AddObject inserts o into the table. An existing object under the same id
// is replaced in place, keeping its draw order. Nil objects and empty ids
// are ignored.
func (w *World) AddObject(o *Object) {
	if o == nil || o.ID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.objects[o.ID]; !exists {
		w.order = append(w.order, o.ID)
	}
	w.objects[o.ID] = o
}

// RemoveObject deletes the object under id and reports whether it existed.
func (w *World) RemoveObject(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.objects[id]; !ok {
		return false
	}
	delete(w.objects, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// Object returns a clone of the object under id.
func (w *World) Object(id string) (*Object, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objects[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Has reports whether an object exists under id.
func (w *World) Has(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.objects[id]
	return ok
}

// Len returns the object count.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.objects)
}

// IDs returns the object ids in insertion order.
func (w *World) IDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Snapshot returns clones of every object in insertion order, safe to read
// from any goroutine while the simulation keeps mutating the originals.
func (w *World) Snapshot() []*Object {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Object, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.objects[id].Clone())
	}
	return out
}

// Each calls fn for every object in insertion order while holding the write
// lock. fn must not call back into the world.
func (w *World) Each(fn func(*Object)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.order {
		fn(w.objects[id])
	}
}

// SetObjectProperty writes a property on the object under id. A missing id
// is a silent no-op, matching the best-effort capability contract.
func (w *World) SetObjectProperty(id, prop string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if o, ok := w.objects[id]; ok {
		o.SetProperty(prop, value)
	}
}

// GetObjectProperty reads a property from the object under id.
func (w *World) GetObjectProperty(id, prop string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objects[id]
	if !ok {
		return nil, false
	}
	return o.GetProperty(prop)
}

// Clock returns the elapsed simulated seconds and the last frame delta.
func (w *World) Clock() (elapsed, dt float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.elapsed, w.dt
}

// advance moves the clock forward by dt seconds.
func (w *World) advance(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.elapsed += dt
	w.dt = dt
}

// On registers a listener for event. Dispatch order is registration order.
func (w *World) On(event string, l Listener) {
	if l == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners[event] = append(w.listeners[event], l)
}

// listenersFor returns a snapshot of the listeners registered for event.
func (w *World) listenersFor(event string) []Listener {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ls := w.listeners[event]
	out := make([]Listener, len(ls))
	copy(out, ls)
	return out
}

// SetVar stores a host variable.
func (w *World) SetVar(name string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vars[name] = v
}

// Var reads a host variable.
func (w *World) Var(name string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.vars[name]
	return v, ok
}

// Vars returns a copy of the variable store.
func (w *World) Vars() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.vars))
	for k, v := range w.vars {
		out[k] = v
	}
	return out
}

// Reset returns the world to its initial dynamic state: clock zeroed, every
// velocity zeroed, variable store cleared. Objects, their positions, and
// listener registrations survive.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.elapsed = 0
	w.dt = 0
	w.vars = make(map[string]any)
	for _, o := range w.objects {
		o.VX = 0
		o.VY = 0
	}
}
