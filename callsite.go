package grove

import "reflect"

// CallSiteKind enumerates the plan node kinds.
type CallSiteKind int

const (
	KindConstant CallSiteKind = iota
	KindInstance
	KindCreateInstance
	KindConstructor
	KindFactory
	KindSelfProvider
	KindScopeFactory
	KindEmptyCollection
	KindClosedCollection
	KindTransient
	KindScoped
	KindSingleton
)

var kindNames = [...]string{
	KindConstant:         "constant",
	KindInstance:         "instance",
	KindCreateInstance:   "create-instance",
	KindConstructor:      "constructor",
	KindFactory:          "factory",
	KindSelfProvider:     "self-provider",
	KindScopeFactory:     "scope-factory",
	KindEmptyCollection:  "empty-collection",
	KindClosedCollection: "collection",
	KindTransient:        "transient",
	KindScoped:           "scoped",
	KindSingleton:        "singleton",
}

func (k CallSiteKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// CallSite is one node of a resolution plan: the recipe for producing one
// instance. The set of implementations is closed; executors switch on the
// concrete type.
type CallSite interface {
	Kind() CallSiteKind
	// ServiceType is the type of the value the node produces.
	ServiceType() reflect.Type

	callSite()
}

// ConstantCallSite yields a fixed value, used for constructor parameter
// defaults.
type ConstantCallSite struct {
	Type  reflect.Type
	Value any
}

// InstanceCallSite yields a registered instance.
type InstanceCallSite struct {
	Descriptor *Descriptor
}

// CreateInstanceCallSite calls a parameterless constructor.
type CreateInstanceCallSite struct {
	Descriptor  *Descriptor
	Constructor Constructor
}

// ConstructorCallSite calls a constructor with arguments produced by Args.
type ConstructorCallSite struct {
	Type        reflect.Type
	Constructor Constructor
	Args        []CallSite
}

// FactoryCallSite calls a registered factory.
type FactoryCallSite struct {
	Descriptor *Descriptor
}

// SelfProviderCallSite yields the provider performing the resolution.
type SelfProviderCallSite struct{}

// ScopeFactoryCallSite yields a [ScopeFactory] bound to the resolving
// provider.
type ScopeFactoryCallSite struct{}

// EmptyCollectionCallSite yields an empty slice for a service type with no
// registrations.
type EmptyCollectionCallSite struct {
	Type reflect.Type
}

// ClosedCollectionCallSite yields a slice holding one instance per
// registration, in registration order.
type ClosedCollectionCallSite struct {
	Type    reflect.Type
	Members []CallSite
}

// TransientCallSite produces a new instance on every call and tracks it for
// disposal by the requesting provider.
type TransientCallSite struct {
	Inner CallSite
}

// ScopedCallSite caches the instance in the requesting provider.
type ScopedCallSite struct {
	// Service is the registered service type.
	Service reflect.Type
	Inner   CallSite

	key resolutionKey
}

// SingletonCallSite caches the instance in the root provider.
type SingletonCallSite struct {
	Service reflect.Type
	Inner   CallSite

	key resolutionKey
}

func (*ConstantCallSite) Kind() CallSiteKind         { return KindConstant }
func (*InstanceCallSite) Kind() CallSiteKind         { return KindInstance }
func (*CreateInstanceCallSite) Kind() CallSiteKind   { return KindCreateInstance }
func (*ConstructorCallSite) Kind() CallSiteKind      { return KindConstructor }
func (*FactoryCallSite) Kind() CallSiteKind          { return KindFactory }
func (*SelfProviderCallSite) Kind() CallSiteKind     { return KindSelfProvider }
func (*ScopeFactoryCallSite) Kind() CallSiteKind     { return KindScopeFactory }
func (*EmptyCollectionCallSite) Kind() CallSiteKind  { return KindEmptyCollection }
func (*ClosedCollectionCallSite) Kind() CallSiteKind { return KindClosedCollection }
func (*TransientCallSite) Kind() CallSiteKind        { return KindTransient }
func (*ScopedCallSite) Kind() CallSiteKind           { return KindScoped }
func (*SingletonCallSite) Kind() CallSiteKind        { return KindSingleton }

func (c *ConstantCallSite) ServiceType() reflect.Type         { return c.Type }
func (c *InstanceCallSite) ServiceType() reflect.Type         { return c.Descriptor.serviceType }
func (c *CreateInstanceCallSite) ServiceType() reflect.Type   { return c.Constructor.Result() }
func (c *ConstructorCallSite) ServiceType() reflect.Type      { return c.Type }
func (c *FactoryCallSite) ServiceType() reflect.Type          { return c.Descriptor.serviceType }
func (*SelfProviderCallSite) ServiceType() reflect.Type       { return serviceProviderType }
func (*ScopeFactoryCallSite) ServiceType() reflect.Type       { return scopeFactoryType }
func (c *EmptyCollectionCallSite) ServiceType() reflect.Type  { return c.Type }
func (c *ClosedCollectionCallSite) ServiceType() reflect.Type { return c.Type }
func (c *TransientCallSite) ServiceType() reflect.Type        { return c.Inner.ServiceType() }
func (c *ScopedCallSite) ServiceType() reflect.Type           { return c.Service }
func (c *SingletonCallSite) ServiceType() reflect.Type        { return c.Service }

func (*ConstantCallSite) callSite()         {}
func (*InstanceCallSite) callSite()         {}
func (*CreateInstanceCallSite) callSite()   {}
func (*ConstructorCallSite) callSite()      {}
func (*FactoryCallSite) callSite()          {}
func (*SelfProviderCallSite) callSite()     {}
func (*ScopeFactoryCallSite) callSite()     {}
func (*EmptyCollectionCallSite) callSite()  {}
func (*ClosedCollectionCallSite) callSite() {}
func (*TransientCallSite) callSite()        {}
func (*ScopedCallSite) callSite()           {}
func (*SingletonCallSite) callSite()        {}
