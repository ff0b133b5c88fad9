package grove

import "reflect"

type builtin int

const (
	notBuiltin builtin = iota
	builtinSelf
	builtinScopeFactory
)

// resolutionKey identifies one registration in the resolved-instance caches.
// closed is set only for services materialized from an open-generic
// registration, whose *service is shared by every instantiation.
type resolutionKey struct {
	svc    *service
	closed reflect.Type
}

// service is the table's wrapper around one registration. next links the
// registrations of the same service type in order.
type service struct {
	descriptor  *Descriptor
	serviceType reflect.Type
	lifetime    Lifetime
	builtin     builtin
	key         resolutionKey
	next        *service
}

func newService(d *Descriptor) *service {
	s := &service{descriptor: d, serviceType: d.serviceType, lifetime: d.lifetime}
	s.key = resolutionKey{svc: s}
	return s
}

// serviceEntry is the chain of registrations for one service type.
type serviceEntry struct {
	first *service
	last  *service
}

func (e *serviceEntry) add(s *service) {
	if e.first == nil {
		e.first, e.last = s, s
		return
	}
	e.last.next = s
	e.last = s
}

// services returns the chain in registration order.
func (e *serviceEntry) services() []*service {
	var out []*service
	for s := e.first; s != nil; s = s.next {
		out = append(out, s)
	}
	return out
}

// serviceTable groups registrations by service type. It is built once by
// NewProvider and never mutated afterwards, so it is read without locks.
type serviceTable struct {
	services map[reflect.Type]*serviceEntry
	// generics holds open-generic registrations keyed by the generic
	// definition of their service type.
	generics map[string]*serviceEntry
}

func newServiceTable(descriptors []*Descriptor) *serviceTable {
	t := &serviceTable{
		services: make(map[reflect.Type]*serviceEntry),
		generics: make(map[string]*serviceEntry),
	}
	for _, d := range descriptors {
		t.add(d)
	}

	t.addBuiltin(serviceProviderType, Transient, builtinSelf)
	t.addBuiltin(scopeFactoryType, Scoped, builtinScopeFactory)
	return t
}

func (t *serviceTable) add(d *Descriptor) {
	s := newService(d)
	if d.open {
		g, _ := genericOf(d.serviceType)
		entryFor(t.generics, g.definition).add(s)
		return
	}
	entryFor(t.services, d.serviceType).add(s)
}

func (t *serviceTable) addBuiltin(serviceType reflect.Type, lifetime Lifetime, kind builtin) {
	s := &service{serviceType: serviceType, lifetime: lifetime, builtin: kind}
	s.key = resolutionKey{svc: s}
	entryFor(t.services, serviceType).add(s)
}

func entryFor[K comparable](m map[K]*serviceEntry, key K) *serviceEntry {
	e, ok := m[key]
	if !ok {
		e = &serviceEntry{}
		m[key] = e
	}
	return e
}

// tryGetEntry returns the registrations for exactly serviceType.
func (t *serviceTable) tryGetEntry(serviceType reflect.Type) (*serviceEntry, bool) {
	e, ok := t.services[serviceType]
	return e, ok
}

// openEntry returns the open-generic registrations whose generic definition
// matches serviceType's.
func (t *serviceTable) openEntry(serviceType reflect.Type) (*serviceEntry, bool) {
	g, ok := genericOf(serviceType)
	if !ok {
		return nil, false
	}
	e, ok := t.generics[g.definition]
	return e, ok
}
