package grove

import (
	"reflect"

	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// GetService is the typed form of [ServiceProvider.GetService]. It returns
// the zero value of T when nothing is registered:
//
//	logger, err := grove.GetService[*Logger](scope)
func GetService[T any](sp ServiceProvider) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	v, err := sp.GetService(t)
	if err != nil || v == nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("cannot convert %T to %s", v, t)
	}
	return out, nil
}

// GetRequiredService is like [GetService] but fails with
// [ErrServiceNotFound] when nothing is registered for T:
//
//	db, err := grove.GetRequiredService[*Database](scope)
func GetRequiredService[T any](sp ServiceProvider) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	v, err := sp.GetService(t)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, errors.Wrapf(ErrServiceNotFound, "%s", t)
	}

	out, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("cannot convert %T to %s", v, t)
	}
	return out, nil
}

// GetServices resolves every registration of T, in registration order. It
// returns an empty slice when T has none.
func GetServices[T any](sp ServiceProvider) ([]T, error) {
	return GetRequiredService[[]T](sp)
}

// MustGetService is GetRequiredService panicking on error. It is intended for
// program setup code.
func MustGetService[T any](sp ServiceProvider) T {
	v, err := GetRequiredService[T](sp)
	if err != nil {
		panic(err)
	}
	return v
}
