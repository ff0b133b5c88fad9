package grove

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// genericType splits an instantiated generic type into its definition and
// its rendered type arguments. reflect cannot instantiate generic types at
// runtime, so open-generic registrations match on these strings and rely on
// a [TypeCloser] to find compiled instantiations.
type genericType struct {
	// definition is the pointer prefix, package path and bare type name,
	// e.g. "*example.com/app.memoryRepo".
	definition string
	// args is the bracketed argument list, e.g. "[example.com/app.User]".
	args string
}

func genericOf(t reflect.Type) (genericType, bool) {
	if t == nil {
		return genericType{}, false
	}

	var prefix strings.Builder
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		prefix.WriteByte('*')
		t = t.Elem()
	}

	name := t.Name()
	i := strings.IndexByte(name, '[')
	if i <= 0 || !strings.HasSuffix(name, "]") {
		return genericType{}, false
	}

	prefix.WriteString(t.PkgPath())
	prefix.WriteByte('.')
	prefix.WriteString(name[:i])
	return genericType{definition: prefix.String(), args: name[i:]}, true
}

// closeDescriptor materializes the concrete descriptor serving closed from
// an open-generic descriptor. It has no side effects; callers cache the
// result through the plan cache only.
func closeDescriptor(open *Descriptor, closed reflect.Type, introspector TypeIntrospector) (*Descriptor, error) {
	g, ok := genericOf(closed)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%s is not a generic instantiation", closed)
	}

	closer, ok := introspector.(TypeCloser)
	if !ok {
		return nil, errors.Wrapf(ErrNoPublicConstructor, "closing %s: type introspector cannot close generic types", closed)
	}

	impl, ok := closer.CloseGeneric(open.implementationType, g.args)
	if !ok {
		return nil, errors.Wrapf(ErrNoPublicConstructor, "closing %s: no constructor registered for %s instantiated with %s",
			closed, open.implementationType, g.args)
	}

	return NewTypeDescriptor(closed, impl, open.lifetime)
}
