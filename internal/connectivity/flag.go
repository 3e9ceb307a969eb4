package connectivity

import "sync"

// Flag is a manually driven Observer. The TUI uses it for explicit
// offline toggling and tests use it to script transitions.
type Flag struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

// NewFlag creates a Flag with the given initial state.
func NewFlag(online bool) *Flag {
	return &Flag{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

// Online implements Observer.
func (f *Flag) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

// SetOnline updates the state, notifying subscribers only on transitions.
func (f *Flag) SetOnline(online bool) {
	f.mu.Lock()
	if f.online == online {
		f.mu.Unlock()
		return
	}
	f.online = online
	fns := make([]func(bool), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	// Callbacks run outside the lock so they can query Online()
	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe implements Observer.
func (f *Flag) Subscribe(fn func(online bool)) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
