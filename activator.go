package grove

import (
	"reflect"

	"github.com/pkg/errors"
)

// CreateInstance constructs implType, a type that need not be registered,
// with services from p. args supply parameters the provider cannot: each
// argument fills the first not yet filled parameter it is assignable to.
// Among the constructors accepting all of args, the one whose leading
// parameters line up with args in order for the longest run wins; ties go
// to the constructor listed first by the introspector. Remaining parameters
// are resolved from p, falling back to declared defaults.
//
// The instance is not tracked for disposal.
func CreateInstance(p *Provider, implType reflect.Type, args ...any) (any, error) {
	if implType == nil {
		return nil, errors.New("implementation type is nil")
	}
	if p.disposed.Load() {
		return nil, errors.Wrapf(ErrUseAfterDispose, "activating %s", implType)
	}

	var (
		chosen Constructor
		slots  []int
		best   = -1
	)
	for _, ctor := range p.engine.builder.introspector.Constructors(implType) {
		m, exact, ok := matchArgs(ctor, args)
		if !ok {
			continue
		}
		if exact > best {
			chosen, slots, best = ctor, m, exact
		}
	}
	if best < 0 {
		return nil, errors.Wrapf(ErrNoPublicConstructor, "no constructor of %s accepts the given arguments", implType)
	}

	values := make([]reflect.Value, len(chosen.params))
	for i, param := range chosen.params {
		var v any
		if slot := slots[i]; slot >= 0 {
			v = args[slot]
		} else {
			resolved, err := p.GetService(param.Type)
			if err != nil {
				return nil, err
			}
			switch {
			case resolved != nil:
				v = resolved
			case param.HasDefault:
				v = param.Default
			default:
				return nil, errors.Wrapf(ErrUnresolvableDependency,
					"unable to resolve %s while activating %s", param.Type, implType)
			}
		}

		rv, err := valueFor(v, param.Type)
		if err != nil {
			return nil, err
		}
		values[i] = rv
	}

	return construct(chosen, values)
}

// matchArgs maps each constructor parameter to the index of the argument
// filling it, or -1. exact is the index of the last parameter in the
// unbroken leading run filled by the argument at the same position.
func matchArgs(ctor Constructor, args []any) (slots []int, exact int, ok bool) {
	slots = make([]int, len(ctor.params))
	for i := range slots {
		slots[i] = -1
	}

	next := 0
	for ai, arg := range args {
		matched := false
		for pi := next; pi < len(ctor.params); pi++ {
			if slots[pi] >= 0 || !accepts(ctor.params[pi].Type, arg) {
				continue
			}
			slots[pi] = ai
			matched = true
			if pi == next {
				next++
				if pi == ai {
					exact = pi
				}
			}
			break
		}
		if !matched {
			return nil, 0, false
		}
	}
	return slots, exact, true
}

func accepts(t reflect.Type, arg any) bool {
	if arg != nil {
		return reflect.TypeOf(arg).AssignableTo(t)
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// CreateInstanceOf is the typed form of [CreateInstance].
func CreateInstanceOf[T any](p *Provider, args ...any) (T, error) {
	var zero T
	v, err := CreateInstance(p, reflect.TypeFor[T](), args...)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("cannot convert %T to %s", v, reflect.TypeFor[T]())
	}
	return out, nil
}

// GetServiceOrCreateInstance resolves t from p, constructing it with
// [CreateInstance] when it is not registered.
func GetServiceOrCreateInstance(p *Provider, t reflect.Type) (any, error) {
	v, err := p.GetService(t)
	if err != nil || v != nil {
		return v, err
	}
	return CreateInstance(p, t)
}
