package codec

import (
	"fmt"
	"reflect"
	"strconv"
)

// ErrUnsupportedKey indicates a key whose kind has no canonical encoding.
type ErrUnsupportedKey struct {
	Key any
}

func (e *ErrUnsupportedKey) Error() string {
	return fmt.Sprintf("unsupported key type %T", e.Key)
}

// EncodeKey produces the canonical, type-discriminating textual form of a
// collection key, used as a storage key suffix.
//
// The single-character discriminant keeps keys of different types disjoint:
// integer 42 encodes as "i:42", the string "42" as "s:42", so mixed-type
// namespaces can never collide. Floats use the shortest decimal form that
// round-trips (strconv 'g', precision -1), so 1.0 and 1 stay distinct too.
//
// The reflect.Kind switch intentionally covers named types: any type whose
// underlying kind is string, integer, float or bool encodes the same as its
// underlying value.
func EncodeKey(key any) (string, error) {
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.String:
		return "s:" + v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "i:" + strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "u:" + strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return "f:" + strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case reflect.Bool:
		if v.Bool() {
			return "b:1", nil
		}
		return "b:0", nil
	default:
		return "", &ErrUnsupportedKey{Key: key}
	}
}
