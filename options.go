package grove

import (
	"reflect"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// registration holds the settings collected by [Option]s during
// [ServiceCollection.Register].
type registration struct {
	lifetime    Lifetime
	serviceType reflect.Type
	ctorOpts    []ConstructorOption
}

// Option configures a constructor registration.
type Option func(*registration)

// WithLifetime sets the [Lifetime] of the registration. The default is
// [Singleton].
func WithLifetime(l Lifetime) Option {
	return func(r *registration) {
		r.lifetime = l
	}
}

// As registers the constructor under serviceType instead of its return
// type. The return type must be assignable to serviceType.
func As(serviceType reflect.Type) Option {
	return func(r *registration) {
		r.serviceType = serviceType
	}
}

// AsType is the generic form of [As]:
//
//	services.Register(NewPostgresStore, grove.AsType[Store]())
func AsType[T any]() Option {
	return As(reflect.TypeFor[T]())
}

// WithParamDefault declares a default for the constructor parameter at
// index; see [WithDefault].
func WithParamDefault(index int, value any) Option {
	return func(r *registration) {
		r.ctorOpts = append(r.ctorOpts, WithDefault(index, value))
	}
}

// ---------------------------------------------------------------------------
// Provider options
// ---------------------------------------------------------------------------

type providerOptions struct {
	validateScopes bool
	specialize     bool
	logger         logrus.FieldLogger
	metrics        metrics.Registry
	introspector   TypeIntrospector
}

func defaultProviderOptions() providerOptions {
	return providerOptions{
		specialize: true,
		logger:     logrus.StandardLogger(),
	}
}

// ProviderOption configures [NewProvider].
type ProviderOption func(*providerOptions)

// WithValidateScopes enables lifetime validation: scoped services captured by
// singletons and scoped services resolved from the root provider are
// rejected.
func WithValidateScopes(enabled bool) ProviderOption {
	return func(o *providerOptions) {
		o.validateScopes = enabled
	}
}

// WithSpecialization controls whether plans requested repeatedly are
// compiled in the background. Enabled by default.
func WithSpecialization(enabled bool) ProviderOption {
	return func(o *providerOptions) {
		o.specialize = enabled
	}
}

// WithLogger sets the logger. The default is logrus' standard logger.
func WithLogger(l logrus.FieldLogger) ProviderOption {
	return func(o *providerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the registry engine metrics are recorded in. By default
// every root provider gets its own registry.
func WithMetrics(r metrics.Registry) ProviderOption {
	return func(o *providerOptions) {
		o.metrics = r
	}
}

// WithIntrospector replaces the service collection's [ConstructorSet] as the
// source of constructors.
func WithIntrospector(i TypeIntrospector) ProviderOption {
	return func(o *providerOptions) {
		o.introspector = i
	}
}
