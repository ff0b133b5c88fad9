package grove

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/ARTM2000/grove/internal/syncmap"
)

// validator checks plans for lifetime violations. It remembers, per
// requested service type, the first scoped service its plan depends on so
// root resolutions of that type can be rejected.
type validator struct {
	scoped syncmap.Map[reflect.Type, reflect.Type]
}

// validatePlan reports a scoped service captured by a singleton anywhere in
// cs, the plan for requested.
func (v *validator) validatePlan(requested reflect.Type, cs CallSite) error {
	scoped, err := v.visit(cs, nil)
	if err != nil {
		return err
	}
	if scoped != nil {
		v.scoped.Set(requested, scoped)
	}
	return nil
}

// visit walks cs depth first. singleton is the nearest singleton ancestor,
// or nil. It returns the first scoped service type reached.
func (v *validator) visit(cs CallSite, singleton *SingletonCallSite) (reflect.Type, error) {
	switch cs := cs.(type) {
	case *TransientCallSite:
		return v.visit(cs.Inner, singleton)

	case *SingletonCallSite:
		return v.visit(cs.Inner, cs)

	case *ScopedCallSite:
		if _, ok := cs.Inner.(*ScopeFactoryCallSite); ok {
			return nil, nil
		}
		if singleton != nil {
			return nil, errors.Wrapf(ErrCapturedScopedBySingleton,
				"cannot consume scoped service %s from singleton %s", cs.Service, singleton.Service)
		}
		if _, err := v.visit(cs.Inner, nil); err != nil {
			return nil, err
		}
		return cs.Service, nil

	case *ConstructorCallSite:
		return v.visitAll(cs.Args, singleton)

	case *ClosedCollectionCallSite:
		return v.visitAll(cs.Members, singleton)

	default:
		return nil, nil
	}
}

func (v *validator) visitAll(sites []CallSite, singleton *SingletonCallSite) (reflect.Type, error) {
	var first reflect.Type
	for _, cs := range sites {
		scoped, err := v.visit(cs, singleton)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = scoped
		}
	}
	return first, nil
}

// validateResolution rejects resolving, from the root provider, a service
// whose plan depends on a scoped service.
func (v *validator) validateResolution(requested reflect.Type, root bool) error {
	if !root {
		return nil
	}
	scoped, ok := v.scoped.TryGet(requested)
	if !ok {
		return nil
	}
	if scoped == requested {
		return errors.Wrapf(ErrScopedResolvedFromRoot, "cannot resolve scoped service %s from root provider", requested)
	}
	return errors.Wrapf(ErrScopedResolvedFromRoot,
		"cannot resolve %s from root provider because it requires scoped service %s", requested, scoped)
}
