package layout

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

var (
	// ErrEmptyRef is returned when registering under an empty reference.
	ErrEmptyRef = errors.New("layout: empty reference")
	// ErrNilLayout is returned when registering a nil layout.
	ErrNilLayout = errors.New("layout: nil layout")
	// ErrConflictingRegistration indicates an attempt to register a
	// different layout under an existing reference.
	ErrConflictingRegistration = errors.New("layout: conflicting registration")
)

// UnknownLayoutError reports a reference with no registered layout.
type UnknownLayoutError struct {
	Ref Ref
}

// Error implements the error interface.
func (e *UnknownLayoutError) Error() string {
	return fmt.Sprintf("layout: unknown layout %q", e.Ref)
}

// Registry maps references to compiled layouts.
//
// Registration is meant to happen once, while the registry is built.
// Lookups and the discriminant cache are safe for concurrent use.
type Registry struct {
	// mu guards write-side consistency and count.
	mu sync.Mutex
	// layouts maps Ref to Layout.
	layouts sync.Map
	count   int

	// discriminants caches *Discriminants per sum Ref.
	discriminants sync.Map
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores l under ref.
// It is idempotent for a structurally identical layout.
func (r *Registry) Register(ref Ref, l Layout) error {
	if ref == "" {
		return ErrEmptyRef
	}
	if l == nil || reflect.ValueOf(l).IsNil() {
		return ErrNilLayout
	}

	// Fast read path: idempotency / conflict check without locking.
	if old, ok := r.layouts.Load(ref); ok {
		return checkSame(ref, old.(Layout), l)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := r.layouts.Load(ref); ok {
		return checkSame(ref, old.(Layout), l)
	}
	r.layouts.Store(ref, l)
	r.count++
	return nil
}

func checkSame(ref Ref, old, l Layout) error {
	if reflect.DeepEqual(old, l) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrConflictingRegistration, ref)
}

// MustRegister is like Register but panics on error.
// Intended for fixtures.
func (r *Registry) MustRegister(ref Ref, l Layout) *Registry {
	if err := r.Register(ref, l); err != nil {
		panic(err)
	}
	return r
}

// Get returns the layout registered under ref.
func (r *Registry) Get(ref Ref) (Layout, bool) {
	v, ok := r.layouts.Load(ref)
	if !ok {
		return nil, false
	}
	return v.(Layout), true
}

// Lookup is like Get but fails with *UnknownLayoutError.
func (r *Registry) Lookup(ref Ref) (Layout, error) {
	l, ok := r.Get(ref)
	if !ok {
		return nil, &UnknownLayoutError{Ref: ref}
	}
	return l, nil
}

// Refs returns every registered reference in sorted order.
func (r *Registry) Refs() []Ref {
	refs := make([]Ref, 0, r.Len())
	r.layouts.Range(func(key, _ any) bool {
		refs = append(refs, key.(Ref))
		return true
	})
	slices.Sort(refs)
	return refs
}

// Len returns the number of registered layouts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
