package grove

import "reflect"

// accessorFunc produces the instance for one plan in provider p.
type accessorFunc func(p *Provider) (any, error)

// specializer compiles a call-site tree into nested closures so repeated
// resolutions skip the type switch and precompute argument types.
type specializer struct{}

func (s specializer) compile(cs CallSite) accessorFunc {
	switch cs := cs.(type) {
	case *ConstantCallSite:
		v := cs.Value
		return func(*Provider) (any, error) { return v, nil }

	case *InstanceCallSite:
		v := cs.Descriptor.instance
		return func(*Provider) (any, error) { return v, nil }

	case *CreateInstanceCallSite:
		ctor := cs.Constructor
		return func(*Provider) (any, error) { return construct(ctor, nil) }

	case *ConstructorCallSite:
		return s.compileConstructor(cs)

	case *FactoryCallSite:
		d := cs.Descriptor
		return func(p *Provider) (any, error) { return callFactory(d, p) }

	case *SelfProviderCallSite:
		return func(p *Provider) (any, error) { return p, nil }

	case *ScopeFactoryCallSite:
		return func(p *Provider) (any, error) { return p.scopeFactory(), nil }

	case *EmptyCollectionCallSite:
		t := cs.Type
		return func(*Provider) (any, error) { return reflect.MakeSlice(t, 0, 0).Interface(), nil }

	case *ClosedCollectionCallSite:
		return s.compileCollection(cs)

	case *TransientCallSite:
		inner := s.compile(cs.Inner)
		return func(p *Provider) (any, error) {
			v, err := inner(p)
			if err != nil {
				return nil, err
			}
			return p.captureDisposable(v)
		}

	case *ScopedCallSite:
		inner, key := s.compile(cs.Inner), cs.key
		return func(p *Provider) (any, error) {
			if v, ok := p.resolved.TryGet(key); ok {
				return v, nil
			}
			return p.cached(key, func() (any, error) { return inner(p) })
		}

	case *SingletonCallSite:
		inner, key := s.compile(cs.Inner), cs.key
		return func(p *Provider) (any, error) {
			root := p.root
			if v, ok := root.resolved.TryGet(key); ok {
				return v, nil
			}
			return root.cached(key, func() (any, error) { return inner(root) })
		}

	default:
		// Unknown kinds fall back to the interpreter.
		return func(p *Provider) (any, error) { return interpreter{}.resolve(cs, p) }
	}
}

func (s specializer) compileConstructor(cs *ConstructorCallSite) accessorFunc {
	ctor := cs.Constructor
	args := make([]accessorFunc, len(cs.Args))
	types := make([]reflect.Type, len(cs.Args))
	for i, arg := range cs.Args {
		args[i] = s.compile(arg)
		types[i] = ctor.params[i].Type
	}

	return func(p *Provider) (any, error) {
		values := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := arg(p)
			if err != nil {
				return nil, err
			}
			if values[i], err = valueFor(v, types[i]); err != nil {
				return nil, err
			}
		}
		return construct(ctor, values)
	}
}

func (s specializer) compileCollection(cs *ClosedCollectionCallSite) accessorFunc {
	t, item := cs.Type, cs.Type.Elem()
	members := make([]accessorFunc, len(cs.Members))
	for i, m := range cs.Members {
		members[i] = s.compile(m)
	}

	return func(p *Provider) (any, error) {
		slice := reflect.MakeSlice(t, len(members), len(members))
		for i, member := range members {
			v, err := member(p)
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
	}
}
