package grove

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Factory builds a service instance using the provider that requested it.
type Factory func(sp ServiceProvider) (any, error)

// Descriptor is an immutable registration: a service type, a lifetime and
// exactly one implementation strategy (implementation type, instance or
// factory). Use the New*Descriptor functions to create one.
type Descriptor struct {
	serviceType        reflect.Type
	lifetime           Lifetime
	implementationType reflect.Type
	instance           any
	factory            Factory

	// constructor pins the constructor for registrations made through
	// ServiceCollection.Register.
	constructor *Constructor
	// factoryType is the result type a typed factory declared, if any.
	factoryType reflect.Type
	open        bool
}

// NewTypeDescriptor registers impl, constructed through the type
// introspector, as serviceType.
func NewTypeDescriptor(serviceType, impl reflect.Type, lifetime Lifetime) (*Descriptor, error) {
	if err := checkService(serviceType, lifetime); err != nil {
		return nil, err
	}
	if impl == nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s: implementation type is nil", serviceType)
	}
	if !impl.AssignableTo(serviceType) {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s is not assignable to %s", impl, serviceType)
	}
	return &Descriptor{serviceType: serviceType, lifetime: lifetime, implementationType: impl}, nil
}

// NewInstanceDescriptor registers a pre-built instance. Instances are always
// singletons.
func NewInstanceDescriptor(serviceType reflect.Type, instance any) (*Descriptor, error) {
	if err := checkService(serviceType, Singleton); err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s: instance is nil", serviceType)
	}
	if !reflect.TypeOf(instance).AssignableTo(serviceType) {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%T is not assignable to %s", instance, serviceType)
	}
	return &Descriptor{serviceType: serviceType, lifetime: Singleton, instance: instance}, nil
}

// NewFactoryDescriptor registers a factory function.
func NewFactoryDescriptor(serviceType reflect.Type, factory Factory, lifetime Lifetime) (*Descriptor, error) {
	if err := checkService(serviceType, lifetime); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s: factory is nil", serviceType)
	}
	return &Descriptor{serviceType: serviceType, lifetime: lifetime, factory: factory}, nil
}

// NewOpenGenericDescriptor registers a generic implementation for every
// instantiation of a generic service type. serviceType and impl are sample
// instantiations (any type arguments) identifying the two generic
// definitions, e.g. reflect.TypeFor[Repository[any]]() and
// reflect.TypeFor[*memoryRepository[any]](). Instantiations of impl must be
// known to the provider's [TypeCloser].
func NewOpenGenericDescriptor(serviceType, impl reflect.Type, lifetime Lifetime) (*Descriptor, error) {
	d, err := NewTypeDescriptor(serviceType, impl, lifetime)
	if err != nil {
		return nil, err
	}
	if _, ok := genericOf(serviceType); !ok {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s is not a generic type", serviceType)
	}
	if _, ok := genericOf(impl); !ok {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s is not a generic type", impl)
	}
	d.open = true
	return d, nil
}

func checkService(serviceType reflect.Type, lifetime Lifetime) error {
	if serviceType == nil {
		return errors.Wrap(ErrInvalidDescriptor, "service type is nil")
	}
	if !lifetime.valid() {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: unknown lifetime %d", serviceType, lifetime)
	}
	return nil
}

// check rejects descriptors not built by the New*Descriptor functions, such
// as a zero Descriptor.
func (d *Descriptor) check() error {
	if d == nil {
		return errors.Wrap(ErrInvalidDescriptor, "descriptor is nil")
	}
	if err := checkService(d.serviceType, d.lifetime); err != nil {
		return err
	}

	strategies := 0
	for _, set := range []bool{d.implementationType != nil, d.instance != nil, d.factory != nil} {
		if set {
			strategies++
		}
	}
	if strategies != 1 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: want exactly one implementation strategy, got %d", d.serviceType, strategies)
	}
	return nil
}

// ServiceType returns the registered contract.
func (d *Descriptor) ServiceType() reflect.Type { return d.serviceType }

// Lifetime returns the registration's lifetime.
func (d *Descriptor) Lifetime() Lifetime { return d.lifetime }

// ImplementationType returns the type constructed for the service, or nil
// for instance and factory registrations.
func (d *Descriptor) ImplementationType() reflect.Type { return d.implementationType }

// Instance returns the pre-built instance, or nil.
func (d *Descriptor) Instance() any { return d.instance }

// Factory returns the factory, or nil.
func (d *Descriptor) Factory() Factory { return d.factory }

// IsOpenGeneric reports whether d serves every instantiation of a generic
// service type.
func (d *Descriptor) IsOpenGeneric() bool { return d.open }

// resultType is the best known concrete type produced by d, or nil when it
// cannot be determined (untyped factories).
func (d *Descriptor) resultType() reflect.Type {
	switch {
	case d.implementationType != nil:
		return d.implementationType
	case d.instance != nil:
		return reflect.TypeOf(d.instance)
	default:
		return d.factoryType
	}
}

func (d *Descriptor) String() string {
	switch {
	case d.implementationType != nil:
		return fmt.Sprintf("%s %s => %s", d.lifetime, d.serviceType, d.implementationType)
	case d.instance != nil:
		return fmt.Sprintf("%s %s => instance %T", d.lifetime, d.serviceType, d.instance)
	default:
		return fmt.Sprintf("%s %s => factory", d.lifetime, d.serviceType)
	}
}
