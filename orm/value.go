package orm

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Value reads attribute name of m as a T, converting between the scalar
// types drivers return (int64 for integers, string for MySQL text, ...).
// A missing or NULL attribute yields the zero T.
//
//	age, err := orm.Value[int](user, "age")
func Value[T any](m *Model, name string) (T, error) {
	var zero T
	v := m.Get(name)
	if v == nil {
		return zero, nil
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case int:
		out, err = cast.ToIntE(v)
	case int8:
		out, err = cast.ToInt8E(v)
	case int16:
		out, err = cast.ToInt16E(v)
	case int32:
		out, err = cast.ToInt32E(v)
	case int64:
		out, err = cast.ToInt64E(v)
	case uint:
		out, err = cast.ToUintE(v)
	case uint32:
		out, err = cast.ToUint32E(v)
	case uint64:
		out, err = cast.ToUint64E(v)
	case float32:
		out, err = cast.ToFloat32E(v)
	case float64:
		out, err = cast.ToFloat64E(v)
	case string:
		out, err = cast.ToStringE(v)
	case bool:
		out, err = cast.ToBoolE(v)
	case time.Time:
		out, err = cast.ToTimeE(v)
	default:
		t, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("orm: attribute %q of %s is %T, not %T", name, m.desc.name, v, zero)
		}
		return t, nil
	}
	if err != nil {
		return zero, fmt.Errorf("orm: attribute %q of %s: %w", name, m.desc.name, err)
	}
	return out.(T), nil //nolint:forcetypeassert // matched by the switch above
}
