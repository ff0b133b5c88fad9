package grove

// Lifetime controls how many instances of a service the provider creates and
// which provider owns them.
type Lifetime int

const (
	// Transient means a new instance is constructed on every request. Results
	// implementing io.Closer are tracked by the requesting provider and closed
	// when it is disposed.
	Transient Lifetime = iota

	// Scoped means one instance per scope. The root provider is itself a
	// scope, but resolving scoped services from it is rejected when scope
	// validation is enabled.
	Scoped

	// Singleton means one instance per root provider, shared by every scope
	// created from it.
	Singleton
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}

func (l Lifetime) valid() bool {
	return l >= Transient && l <= Singleton
}
