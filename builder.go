package grove

import (
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// callSiteChain tracks the service types currently being planned so a type
// that depends on itself is reported instead of recursing forever.
type callSiteChain struct {
	active map[reflect.Type]struct{}
	stack  []reflect.Type
}

func newCallSiteChain() *callSiteChain {
	return &callSiteChain{active: make(map[reflect.Type]struct{})}
}

func (c *callSiteChain) enter(t reflect.Type) error {
	if _, ok := c.active[t]; ok {
		return errors.Wrapf(ErrCircularDependency, "%s", c.path(t))
	}
	c.active[t] = struct{}{}
	c.stack = append(c.stack, t)
	return nil
}

func (c *callSiteChain) exit(t reflect.Type) {
	delete(c.active, t)
	c.stack = c.stack[:len(c.stack)-1]
}

// path renders the chain from the first occurrence of t back to t,
// e.g. "*app.A -> *app.B -> *app.A".
func (c *callSiteChain) path(t reflect.Type) string {
	start := 0
	for i, s := range c.stack {
		if s == t {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(c.stack)-start+1)
	for _, s := range c.stack[start:] {
		parts = append(parts, s.String())
	}
	parts = append(parts, t.String())
	return strings.Join(parts, " -> ")
}

// planBuilder turns a requested service type into a call-site tree.
type planBuilder struct {
	table        *serviceTable
	introspector TypeIntrospector
}

// build returns the plan for t, or nil when t is neither registered nor a
// collection.
func (b *planBuilder) build(t reflect.Type) (CallSite, error) {
	return b.callSite(t, newCallSiteChain())
}

func (b *planBuilder) callSite(t reflect.Type, chain *callSiteChain) (CallSite, error) {
	if err := chain.enter(t); err != nil {
		return nil, err
	}
	defer chain.exit(t)

	if entry, ok := b.table.tryGetEntry(t); ok {
		return b.resolveCallSite(entry.last, chain)
	}
	if entry, ok := b.table.openEntry(t); ok {
		svc, err := b.closeService(entry.last, t)
		if err != nil {
			return nil, err
		}
		return b.resolveCallSite(svc, chain)
	}
	if t.Kind() == reflect.Slice {
		return b.collectionCallSite(t, chain)
	}
	return nil, nil
}

// closeService materializes an open-generic registration for closed. The
// result is not added to the table; its resolution key is derived from the
// open registration so instance caching stays stable across plans.
func (b *planBuilder) closeService(open *service, closed reflect.Type) (*service, error) {
	d, err := closeDescriptor(open.descriptor, closed, b.introspector)
	if err != nil {
		return nil, err
	}
	return &service{
		descriptor:  d,
		serviceType: closed,
		lifetime:    d.lifetime,
		key:         resolutionKey{svc: open, closed: closed},
	}, nil
}

func (b *planBuilder) collectionCallSite(t reflect.Type, chain *callSiteChain) (CallSite, error) {
	item := t.Elem()

	var members []*service
	if entry, ok := b.table.tryGetEntry(item); ok {
		members = entry.services()
	} else if entry, ok := b.table.openEntry(item); ok {
		for _, open := range entry.services() {
			svc, err := b.closeService(open, item)
			if err != nil {
				return nil, err
			}
			members = append(members, svc)
		}
	}

	if len(members) == 0 {
		return &EmptyCollectionCallSite{Type: t}, nil
	}

	sites := make([]CallSite, len(members))
	for i, svc := range members {
		cs, err := b.resolveCallSite(svc, chain)
		if err != nil {
			return nil, err
		}
		sites[i] = cs
	}
	return &ClosedCollectionCallSite{Type: t, Members: sites}, nil
}

// resolveCallSite wraps the creation node of svc in its lifetime node.
// Registered instances are returned as is.
func (b *planBuilder) resolveCallSite(svc *service, chain *callSiteChain) (CallSite, error) {
	inner, err := b.createCallSite(svc, chain)
	if err != nil {
		return nil, err
	}
	if _, ok := inner.(*InstanceCallSite); ok {
		return inner, nil
	}

	switch svc.lifetime {
	case Scoped:
		return &ScopedCallSite{Service: svc.serviceType, Inner: inner, key: svc.key}, nil
	case Singleton:
		return &SingletonCallSite{Service: svc.serviceType, Inner: inner, key: svc.key}, nil
	default:
		return &TransientCallSite{Inner: inner}, nil
	}
}

func (b *planBuilder) createCallSite(svc *service, chain *callSiteChain) (CallSite, error) {
	switch svc.builtin {
	case builtinSelf:
		return &SelfProviderCallSite{}, nil
	case builtinScopeFactory:
		return &ScopeFactoryCallSite{}, nil
	}

	d := svc.descriptor
	switch {
	case d.instance != nil:
		return &InstanceCallSite{Descriptor: d}, nil
	case d.factory != nil:
		return &FactoryCallSite{Descriptor: d}, nil
	default:
		return b.constructorCallSite(d, chain)
	}
}

// constructorCallSite selects the constructor of d's implementation type.
// With several candidates the one with the most parameters that can be
// fully satisfied wins; another satisfiable candidate that is not a subset
// of the winner makes the choice ambiguous.
func (b *planBuilder) constructorCallSite(d *Descriptor, chain *callSiteChain) (CallSite, error) {
	impl := d.implementationType
	var ctors []Constructor
	if d.constructor != nil {
		ctors = []Constructor{*d.constructor}
	} else {
		ctors = b.introspector.Constructors(impl)
	}

	switch len(ctors) {
	case 0:
		return nil, errors.Wrapf(ErrNoPublicConstructor, "%s", impl)
	case 1:
		ctor := ctors[0]
		if len(ctor.params) == 0 {
			return &CreateInstanceCallSite{Descriptor: d, Constructor: ctor}, nil
		}
		args, err := b.populate(impl, ctor.params, chain, true)
		if err != nil {
			return nil, err
		}
		return &ConstructorCallSite{Type: impl, Constructor: ctor, Args: args}, nil
	}

	sort.SliceStable(ctors, func(i, j int) bool {
		return len(ctors[i].params) > len(ctors[j].params)
	})

	var (
		best     Constructor
		bestArgs []CallSite
		found    bool
		bestSet  map[reflect.Type]struct{}
	)
	for _, ctor := range ctors {
		args, err := b.populate(impl, ctor.params, chain, false)
		if err != nil {
			return nil, err
		}
		if args == nil {
			continue
		}

		if !found {
			best, bestArgs, found = ctor, args, true
			continue
		}

		if bestSet == nil {
			bestSet = best.paramTypes()
		}
		for _, p := range ctor.params {
			if _, ok := bestSet[p.Type]; !ok {
				return nil, errors.Wrapf(ErrAmbiguousConstructor, "%s: %s and %s", impl, best, ctor)
			}
		}
	}

	if !found {
		return nil, errors.Wrapf(ErrUnresolvableDependency, "no constructor of %s can be satisfied", impl)
	}
	if len(best.params) == 0 {
		return &CreateInstanceCallSite{Descriptor: d, Constructor: best}, nil
	}
	return &ConstructorCallSite{Type: impl, Constructor: best, Args: bestArgs}, nil
}

// populate plans every parameter. When strict is false an unresolvable
// parameter makes populate return nil, nil instead of an error.
func (b *planBuilder) populate(impl reflect.Type, params []Parameter, chain *callSiteChain, strict bool) ([]CallSite, error) {
	args := make([]CallSite, len(params))
	for i, p := range params {
		cs, err := b.callSite(p.Type, chain)
		if err != nil {
			return nil, err
		}
		if cs == nil && p.HasDefault {
			cs = &ConstantCallSite{Type: p.Type, Value: p.Default}
		}
		if cs == nil {
			if !strict {
				return nil, nil
			}
			return nil, errors.Wrapf(ErrUnresolvableDependency, "unable to resolve %s while activating %s", p.Type, impl)
		}
		args[i] = cs
	}
	return args, nil
}
