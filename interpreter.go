package grove

import (
	"reflect"

	"github.com/pkg/errors"
)

// interpreter executes a plan by walking its call-site tree on every call.
type interpreter struct{}

func (in interpreter) resolve(cs CallSite, p *Provider) (any, error) {
	switch cs := cs.(type) {
	case *ConstantCallSite:
		return cs.Value, nil

	case *InstanceCallSite:
		return cs.Descriptor.instance, nil

	case *CreateInstanceCallSite:
		return construct(cs.Constructor, nil)

	case *ConstructorCallSite:
		args := make([]reflect.Value, len(cs.Args))
		for i, arg := range cs.Args {
			v, err := in.resolve(arg, p)
			if err != nil {
				return nil, err
			}
			if args[i], err = valueFor(v, cs.Constructor.params[i].Type); err != nil {
				return nil, err
			}
		}
		return construct(cs.Constructor, args)

	case *FactoryCallSite:
		return callFactory(cs.Descriptor, p)

	case *SelfProviderCallSite:
		return p, nil

	case *ScopeFactoryCallSite:
		return p.scopeFactory(), nil

	case *EmptyCollectionCallSite:
		return reflect.MakeSlice(cs.Type, 0, 0).Interface(), nil

	case *ClosedCollectionCallSite:
		item := cs.Type.Elem()
		slice := reflect.MakeSlice(cs.Type, len(cs.Members), len(cs.Members))
		for i, member := range cs.Members {
			v, err := in.resolve(member, p)
			if err != nil {
				return nil, err
			}
			rv, err := valueFor(v, item)
			if err != nil {
				return nil, err
			}
			slice.Index(i).Set(rv)
		}
		return slice.Interface(), nil

	case *TransientCallSite:
		v, err := in.resolve(cs.Inner, p)
		if err != nil {
			return nil, err
		}
		return p.captureDisposable(v)

	case *ScopedCallSite:
		return p.cached(cs.key, func() (any, error) {
			return in.resolve(cs.Inner, p)
		})

	case *SingletonCallSite:
		root := p.root
		return root.cached(cs.key, func() (any, error) {
			return in.resolve(cs.Inner, root)
		})

	default:
		return nil, errors.Errorf("unsupported call site %T", cs)
	}
}

// construct invokes ctor and unwraps its result.
func construct(ctor Constructor, args []reflect.Value) (any, error) {
	v, err := ctor.Invoke(args)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing %s", ctor.result)
	}
	return v.Interface(), nil
}

func callFactory(d *Descriptor, p *Provider) (any, error) {
	v, err := d.factory(p)
	if err != nil {
		return nil, errors.Wrapf(err, "factory for %s", d.serviceType)
	}
	return v, nil
}

// valueFor converts a resolved instance into an argument of type t. nil
// becomes the zero value of t.
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, errors.Wrapf(ErrInvalidDescriptor, "resolved %s is not assignable to %s", rv.Type(), t)
	}
	return rv, nil
}
