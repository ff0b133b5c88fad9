package grove

import "github.com/pkg/errors"

var (
	// ErrNoPublicConstructor is returned when an implementation type has no
	// constructor known to the type introspector.
	ErrNoPublicConstructor = errors.New("no public constructor")

	// ErrAmbiguousConstructor is returned when two constructors of the same
	// implementation type can both be satisfied and neither parameter set
	// contains the other.
	ErrAmbiguousConstructor = errors.New("ambiguous constructor")

	// ErrUnresolvableDependency is returned when a constructor parameter
	// cannot be resolved and declares no default value.
	ErrUnresolvableDependency = errors.New("unable to resolve dependency")

	// ErrCircularDependency is returned when a service depends on itself,
	// directly or transitively. The error message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrCapturedScopedBySingleton is returned by scope validation when a
	// singleton depends on a scoped service.
	ErrCapturedScopedBySingleton = errors.New("scoped service captured by singleton")

	// ErrScopedResolvedFromRoot is returned by scope validation when a scoped
	// service, or a service depending on one, is resolved from the root
	// provider.
	ErrScopedResolvedFromRoot = errors.New("scoped service resolved from root provider")

	// ErrDuplicateImplementation is returned by
	// [ServiceCollection.AddEnumerable] when the implementation is already
	// registered for the service type or cannot be told apart from it.
	ErrDuplicateImplementation = errors.New("duplicate implementation in collection")

	// ErrUseAfterDispose is returned when a disposed provider is used.
	ErrUseAfterDispose = errors.New("provider already disposed")

	// ErrServiceNotFound is returned by GetRequiredService when no service of
	// the requested type is registered.
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidDescriptor is returned when a descriptor does not carry
	// exactly one valid implementation strategy.
	ErrInvalidDescriptor = errors.New("invalid service descriptor")

	// ErrInvalidConstructor is returned when a constructor function has an
	// unsupported signature.
	ErrInvalidConstructor = errors.New("invalid constructor")
)
