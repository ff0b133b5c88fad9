package grove

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// ServiceCollection is the ordered list of registrations a [Provider] is
// built from. It also owns the [ConstructorSet] used, by default, to
// construct implementation types.
//
// Registrations for the same service type accumulate: the last one wins when
// a single service is requested, all of them are returned, in order, when a
// slice of the service type is requested.
type ServiceCollection struct {
	mu           sync.Mutex
	descriptors  []*Descriptor
	constructors *ConstructorSet
}

// NewServiceCollection creates an empty [ServiceCollection].
func NewServiceCollection() *ServiceCollection {
	return &ServiceCollection{constructors: NewConstructorSet()}
}

// Constructors returns the collection's constructor set.
func (c *ServiceCollection) Constructors() *ConstructorSet {
	return c.constructors
}

// Register adds a constructor function and registers its return type, or the
// type given with [As], as a service. The constructor must have the
// signature func(deps...) T or func(deps...) (T, error); its parameters are
// resolved by type. The default lifetime is [Singleton].
func (c *ServiceCollection) Register(constructor any, opts ...Option) error {
	r := registration{lifetime: Singleton}
	for _, opt := range opts {
		opt(&r)
	}

	ctor, err := NewConstructor(constructor, r.ctorOpts...)
	if err != nil {
		return err
	}

	serviceType := r.serviceType
	if serviceType == nil {
		serviceType = ctor.Result()
	}

	d, err := NewTypeDescriptor(serviceType, ctor.Result(), r.lifetime)
	if err != nil {
		return err
	}

	d.constructor = &ctor
	c.constructors.Add(ctor)
	return c.Add(d)
}

// AddType registers impl as serviceType. impl is constructed through the
// provider's type introspector.
func (c *ServiceCollection) AddType(serviceType, impl reflect.Type, lifetime Lifetime) error {
	d, err := NewTypeDescriptor(serviceType, impl, lifetime)
	if err != nil {
		return err
	}
	return c.Add(d)
}

// AddInstance registers a pre-built singleton.
func (c *ServiceCollection) AddInstance(serviceType reflect.Type, instance any) error {
	d, err := NewInstanceDescriptor(serviceType, instance)
	if err != nil {
		return err
	}
	return c.Add(d)
}

// AddFactory registers a factory function.
func (c *ServiceCollection) AddFactory(serviceType reflect.Type, lifetime Lifetime, factory Factory) error {
	d, err := NewFactoryDescriptor(serviceType, factory, lifetime)
	if err != nil {
		return err
	}
	return c.Add(d)
}

// AddOpenGeneric registers impl for every instantiation of serviceType; see
// [NewOpenGenericDescriptor].
func (c *ServiceCollection) AddOpenGeneric(serviceType, impl reflect.Type, lifetime Lifetime) error {
	d, err := NewOpenGenericDescriptor(serviceType, impl, lifetime)
	if err != nil {
		return err
	}
	return c.Add(d)
}

// Add appends a descriptor. It fails with [ErrInvalidDescriptor] for
// descriptors not created by the New*Descriptor functions.
func (c *ServiceCollection) Add(d *Descriptor) error {
	if err := d.check(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors = append(c.descriptors, d)
	return nil
}

// TryAdd appends d only if no registration exists for its service type. It
// reports whether d was added.
func (c *ServiceCollection) TryAdd(d *Descriptor) bool {
	if d.check() != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.descriptors {
		if existing.serviceType == d.serviceType {
			return false
		}
	}
	c.descriptors = append(c.descriptors, d)
	return true
}

// AddEnumerable appends d as one more member of its service type's
// collection. It fails with [ErrDuplicateImplementation] when the same
// implementation is already registered for the service type, or when d's
// implementation cannot be told apart from the service type itself.
func (c *ServiceCollection) AddEnumerable(d *Descriptor) error {
	if err := d.check(); err != nil {
		return err
	}

	impl := d.resultType()
	if impl == nil || impl == d.serviceType {
		return errors.Wrapf(ErrDuplicateImplementation, "%s: implementation type is indistinguishable from the service type", d.serviceType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.descriptors {
		if existing.serviceType == d.serviceType && existing.resultType() == impl {
			return errors.Wrapf(ErrDuplicateImplementation, "%s already registered for %s", impl, d.serviceType)
		}
	}
	c.descriptors = append(c.descriptors, d)
	return nil
}

// TryAddEnumerable is like [ServiceCollection.AddEnumerable] but skips
// duplicates silently. It reports whether d was added.
func (c *ServiceCollection) TryAddEnumerable(d *Descriptor) bool {
	return c.AddEnumerable(d) == nil
}

// Replace removes the first registration of d's service type, if any, and
// appends d.
func (c *ServiceCollection) Replace(d *Descriptor) error {
	if err := d.check(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.descriptors {
		if existing.serviceType == d.serviceType {
			c.descriptors = append(c.descriptors[:i], c.descriptors[i+1:]...)
			break
		}
	}
	c.descriptors = append(c.descriptors, d)
	return nil
}

// RemoveAll removes every registration of serviceType and returns how many
// were removed.
func (c *ServiceCollection) RemoveAll(serviceType reflect.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.descriptors[:0]
	for _, d := range c.descriptors {
		if d.serviceType != serviceType {
			kept = append(kept, d)
		}
	}
	removed := len(c.descriptors) - len(kept)
	clear(c.descriptors[len(kept):])
	c.descriptors = kept
	return removed
}

// Descriptors returns a copy of the registrations in order.
func (c *ServiceCollection) Descriptors() []*Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Len returns the number of registrations.
func (c *ServiceCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.descriptors)
}

// BuildProvider is shorthand for [NewProvider](c, opts...).
func (c *ServiceCollection) BuildProvider(opts ...ProviderOption) (*Provider, error) {
	return NewProvider(c, opts...)
}

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// AddTyped registers implementation type I as service S:
//
//	grove.AddTyped[Store, *postgresStore](services, grove.Scoped)
func AddTyped[S, I any](c *ServiceCollection, lifetime Lifetime) error {
	return c.AddType(reflect.TypeFor[S](), reflect.TypeFor[I](), lifetime)
}

// AddValue registers instance as a singleton of service S.
func AddValue[S any](c *ServiceCollection, instance S) error {
	return c.AddInstance(reflect.TypeFor[S](), instance)
}

// AddFactoryFor registers a typed factory for service S. The declared result
// type lets [ServiceCollection.AddEnumerable] detect duplicates.
func AddFactoryFor[S, I any](c *ServiceCollection, lifetime Lifetime, factory func(ServiceProvider) (I, error)) error {
	if factory == nil {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: factory is nil", reflect.TypeFor[S]())
	}
	d, err := NewFactoryDescriptor(reflect.TypeFor[S](), func(sp ServiceProvider) (any, error) {
		return factory(sp)
	}, lifetime)
	if err != nil {
		return err
	}
	impl := reflect.TypeFor[I]()
	if !impl.AssignableTo(d.serviceType) {
		return errors.Wrapf(ErrInvalidDescriptor, "%s is not assignable to %s", impl, d.serviceType)
	}
	d.factoryType = impl
	return c.Add(d)
}
