// Package grove provides a reflection-based dependency injection engine with
// lifetimes, scopes and collection resolution.
//
// Services are registered in a [ServiceCollection] and resolved through a
// [Provider] built from it. Constructors are plain functions whose
// parameters are the dependencies; they are planned once per requested type
// and the plan is reused for every later resolution.
//
// # Quick Start
//
//	services := grove.NewServiceCollection()
//	services.Register(NewLogger)
//	services.Register(NewDatabase, grove.WithLifetime(grove.Scoped))
//
//	root, err := services.BuildProvider(grove.WithValidateScopes(true))
//	scope, err := root.CreateScope()
//	defer scope.Dispose()
//
//	db, err := grove.GetRequiredService[*Database](scope)
//
// # Lifetimes
//
// [Singleton] (default for Register): one instance per root provider,
// shared by all scopes.
//
// [Scoped]: one instance per provider (the root counts as a scope unless
// scope validation is enabled).
//
// [Transient]: a new instance on every resolution. Transients implementing
// io.Closer are closed when the provider that resolved them is disposed.
//
// # Collections
//
// Requesting []T yields one instance per registration of T in registration
// order, or an empty slice when there is none. Use
// [ServiceCollection.AddEnumerable] to register several implementations.
//
// # Open Generics
//
// [ServiceCollection.AddOpenGeneric] registers a generic implementation for
// every instantiation of a generic service type. Go cannot instantiate
// generic types at runtime, so each instantiation must have a registered
// constructor in the collection's [ConstructorSet].
//
// # Plans
//
// A plan is a tree of [CallSite] nodes. Plans are interpreted at first and
// compiled into closures in the background once requested repeatedly. Use
// [FormatPlan] or [Provider.Plans] to inspect them.
package grove
