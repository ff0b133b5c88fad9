package grove

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

//go:generate mockgen -destination=internal/mocks/introspector.go -package=mocks github.com/ARTM2000/grove TypeIntrospector

// TypeIntrospector enumerates the constructors of an implementation type.
// Go types have no constructors of their own, so an introspector maps a type
// to the constructor functions that produce it. [ConstructorSet] is the
// default implementation.
type TypeIntrospector interface {
	Constructors(t reflect.Type) []Constructor
}

// TypeCloser is an optional capability of a [TypeIntrospector]. It finds the
// instantiation of a generic implementation type whose type arguments are
// rendered as args (for example "[main.User]"). Open-generic registrations
// can only be closed through an introspector implementing it.
type TypeCloser interface {
	CloseGeneric(open reflect.Type, args string) (reflect.Type, bool)
}

// Parameter describes one constructor parameter.
type Parameter struct {
	Type       reflect.Type
	HasDefault bool
	Default    any
}

// Constructor is a function producing an implementation type, together with
// its parameter metadata.
type Constructor struct {
	fn     reflect.Value
	result reflect.Type
	params []Parameter
}

// ConstructorOption configures parameter metadata in [NewConstructor].
type ConstructorOption func(*constructorConfig)

type constructorConfig struct {
	defaults map[int]any
}

// WithDefault declares a default value for the parameter at index. The
// default is used when the parameter type cannot be resolved. A nil value
// stands for the zero value of the parameter type.
func WithDefault(index int, value any) ConstructorOption {
	return func(c *constructorConfig) {
		c.defaults[index] = value
	}
}

// NewConstructor validates fn and returns its [Constructor]. fn must be a
// non-variadic function with the signature func(deps...) T or
// func(deps...) (T, error).
func NewConstructor(fn any, opts ...ConstructorOption) (Constructor, error) {
	if fn == nil {
		return Constructor{}, errors.Wrap(ErrInvalidConstructor, "constructor is nil")
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s is not a function", typ)
	}
	if val.IsNil() {
		return Constructor{}, errors.Wrap(ErrInvalidConstructor, "constructor is a nil function")
	}
	if typ.IsVariadic() {
		return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s must not be variadic", typ)
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s must return (T) or (T, error)", typ)
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s: second return value must implement error", typ)
	}

	cfg := constructorConfig{defaults: make(map[int]any)}
	for _, opt := range opts {
		opt(&cfg)
	}

	params := make([]Parameter, typ.NumIn())
	for i := range params {
		params[i] = Parameter{Type: typ.In(i)}
	}
	for i, def := range cfg.defaults {
		if i < 0 || i >= len(params) {
			return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s: default for parameter %d out of range", typ, i)
		}
		if def != nil && !reflect.TypeOf(def).AssignableTo(params[i].Type) {
			return Constructor{}, errors.Wrapf(ErrInvalidConstructor, "%s: default %T not assignable to parameter %d (%s)", typ, def, i, params[i].Type)
		}
		params[i].HasDefault = true
		params[i].Default = def
	}

	return Constructor{fn: val, result: typ.Out(0), params: params}, nil
}

// zeroConstructor allocates a zero value of the struct t points to.
func zeroConstructor(t reflect.Type) Constructor {
	return Constructor{result: t}
}

// Result returns the type the constructor produces.
func (c Constructor) Result() reflect.Type { return c.result }

// Params returns the constructor's parameters in declaration order.
func (c Constructor) Params() []Parameter { return c.params }

// Invoke calls the constructor with args, which must match [Constructor.Params].
func (c Constructor) Invoke(args []reflect.Value) (reflect.Value, error) {
	if len(args) != len(c.params) {
		return reflect.Value{}, fmt.Errorf("%s: got %d arguments, want %d", c, len(args), len(c.params))
	}
	if !c.fn.IsValid() {
		return reflect.New(c.result.Elem()), nil
	}

	results := c.fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return reflect.Value{}, results[1].Interface().(error)
	}
	return results[0], nil
}

func (c Constructor) String() string {
	if !c.fn.IsValid() {
		return "new(" + c.result.Elem().String() + ")"
	}
	return c.fn.Type().String()
}

func (c Constructor) paramTypes() map[reflect.Type]struct{} {
	set := make(map[reflect.Type]struct{}, len(c.params))
	for _, p := range c.params {
		set[p.Type] = struct{}{}
	}
	return set
}

// ---------------------------------------------------------------------------
// ConstructorSet
// ---------------------------------------------------------------------------

// ConstructorSet is a [TypeIntrospector] backed by registered constructor
// functions. A type may have several constructors; they are returned in
// registration order.
//
// A pointer-to-struct type with no registered constructor reports a single
// implicit constructor that allocates a zero value, the counterpart of a
// parameterless default constructor. Other types without registered
// constructors report none.
type ConstructorSet struct {
	mu     sync.RWMutex
	byType map[reflect.Type][]Constructor
	// order lists result types in first-registration order for CloseGeneric.
	order []reflect.Type
}

// NewConstructorSet creates an empty [ConstructorSet].
func NewConstructorSet() *ConstructorSet {
	return &ConstructorSet{byType: make(map[reflect.Type][]Constructor)}
}

// Register validates fn with [NewConstructor] and adds it.
func (s *ConstructorSet) Register(fn any, opts ...ConstructorOption) (Constructor, error) {
	c, err := NewConstructor(fn, opts...)
	if err != nil {
		return Constructor{}, err
	}
	s.Add(c)
	return c, nil
}

// Add adds an already validated constructor.
func (s *ConstructorSet) Add(c Constructor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byType[c.result]; !ok {
		s.order = append(s.order, c.result)
	}
	s.byType[c.result] = append(s.byType[c.result], c)
}

// Constructors implements [TypeIntrospector].
func (s *ConstructorSet) Constructors(t reflect.Type) []Constructor {
	s.mu.RLock()
	registered := s.byType[t]
	s.mu.RUnlock()

	if len(registered) > 0 {
		out := make([]Constructor, len(registered))
		copy(out, registered)
		return out
	}

	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return []Constructor{zeroConstructor(t)}
	}
	return nil
}

// CloseGeneric implements [TypeCloser] by searching the registered result
// types for an instantiation of open's generic definition with args.
func (s *ConstructorSet) CloseGeneric(open reflect.Type, args string) (reflect.Type, bool) {
	def, ok := genericOf(open)
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.order {
		if g, ok := genericOf(t); ok && g.definition == def.definition && g.args == args {
			return t, true
		}
	}
	return nil, false
}
