// Package connectivity tracks whether the Inkwell service is reachable.
// Components that care about network state take an Observer instead of
// probing ambient globals, so tests can drive transitions deterministically.
package connectivity

// Observer reports the current network state and notifies on changes.
// Implementations must be safe for concurrent use. Callbacks may be invoked
// from arbitrary goroutines and must not block.
type Observer interface {
	// Online reports whether the service is currently considered reachable.
	Online() bool

	// Subscribe registers fn to be called on every online/offline transition.
	// The returned cancel func removes the subscription.
	Subscribe(fn func(online bool)) (cancel func())
}

// Static is an Observer with a fixed state and no transitions.
type Static bool

// Online implements Observer.
func (s Static) Online() bool { return bool(s) }

// Subscribe implements Observer. Static never transitions, so the
// subscription is a no-op.
func (s Static) Subscribe(func(online bool)) (cancel func()) {
	return func() {}
}

// Always returns an Observer that is permanently online.
func Always() Observer { return Static(true) }
