package node

import (
	"reflect"

	"golang.org/x/xerrors"
)

// registry is a dependency injector that resolves a pointer to the first
// injected component assignable to the pointed type. Components are kept in
// injection order, and injecting a component of an existing type replaces the
// previous one in place.
//
// - implements node.Injector
type registry struct {
	components []reflect.Value
}

// NewInjector returns an empty injector.
func NewInjector() Injector {
	return &registry{}
}

// Resolve implements node.Injector. It sets the value pointed by dst to the
// first component that can be assigned to it.
func (r *registry) Resolve(dst interface{}) error {
	ptr := reflect.ValueOf(dst)
	if ptr.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	target := ptr.Elem()
	if !target.IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", ptr)
	}

	for _, component := range r.components {
		if component.Type().AssignableTo(target.Type()) {
			target.Set(component)
			return nil
		}
	}

	return xerrors.Errorf("couldn't find dependency for '%v'", target.Type())
}

// Inject implements node.Injector.
func (r *registry) Inject(component interface{}) {
	value := reflect.ValueOf(component)

	for i, existing := range r.components {
		if existing.Type() == value.Type() {
			r.components[i] = value
			return
		}
	}

	r.components = append(r.components, value)
}
