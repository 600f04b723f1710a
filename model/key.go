package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Date is a calendar date expressed as days since the Unix epoch.
type Date int32

// DateOf converts a time.Time to its Date, truncating to UTC midnight.
// Instants before the epoch floor to the preceding day.
func DateOf(t time.Time) Date {
	secs := t.Unix()
	days := secs / 86400
	if secs%86400 < 0 {
		days--
	}
	return Date(days)
}

// Key is an immutable, comparable typed key. Keys of the same Kind order
// by the natural ordering of their primitive type. Key is a value type and
// safe to use as a map key.
type Key struct {
	kind Kind
	num  int64   // KindLong, KindDate (days), KindBool (0/1)
	real float64 // KindDouble, KindFloat (widened)
	str  string  // KindString
}

// LongKey returns a KindLong key.
func LongKey(v int64) Key { return Key{kind: KindLong, num: v} }

// DoubleKey returns a KindDouble key.
func DoubleKey(v float64) Key { return Key{kind: KindDouble, real: v} }

// FloatKey returns a KindFloat key.
func FloatKey(v float32) Key { return Key{kind: KindFloat, real: float64(v)} }

// StringKey returns a KindString key.
func StringKey(v string) Key { return Key{kind: KindString, str: v} }

// BoolKey returns a KindBool key.
func BoolKey(v bool) Key {
	var n int64
	if v {
		n = 1
	}
	return Key{kind: KindBool, num: n}
}

// DateKey returns a KindDate key.
func DateKey(v Date) Key { return Key{kind: KindDate, num: int64(v)} }

// KeyOf normalizes an arbitrary Go value into a typed Key.
//
// Signed integers up to 64 bits widen to KindLong because the query layer
// always compares against 64-bit literals. time.Time values truncate to
// KindDate. Any other type fails with ErrUnsupportedValueType.
func KeyOf(v any) (Key, error) {
	switch x := v.(type) {
	case int64:
		return LongKey(x), nil
	case int:
		return LongKey(int64(x)), nil
	case int32:
		return LongKey(int64(x)), nil
	case int16:
		return LongKey(int64(x)), nil
	case int8:
		return LongKey(int64(x)), nil
	case float64:
		return DoubleKey(x), nil
	case float32:
		return FloatKey(x), nil
	case string:
		return StringKey(x), nil
	case bool:
		return BoolKey(x), nil
	case Date:
		return DateKey(x), nil
	case time.Time:
		return DateKey(DateOf(x)), nil
	case Key:
		return x, nil
	default:
		return Key{}, &ErrUnsupportedValueType{Value: v}
	}
}

// Kind returns the key's kind.
func (k Key) Kind() Kind { return k.kind }

// Long returns the KindLong payload.
func (k Key) Long() int64 { return k.num }

// Double returns the KindDouble payload.
func (k Key) Double() float64 { return k.real }

// Float returns the KindFloat payload.
func (k Key) Float() float32 { return float32(k.real) }

// Str returns the KindString payload.
func (k Key) Str() string { return k.str }

// Bool returns the KindBool payload.
func (k Key) Bool() bool { return k.num != 0 }

// Date returns the KindDate payload.
func (k Key) Date() Date { return Date(k.num) }

// Value returns the key's payload as an untyped value.
func (k Key) Value() any {
	switch k.kind {
	case KindLong:
		return k.num
	case KindDouble:
		return k.real
	case KindFloat:
		return float32(k.real)
	case KindString:
		return k.str
	case KindBool:
		return k.num != 0
	case KindDate:
		return Date(k.num)
	default:
		return nil
	}
}

func (k Key) String() string {
	switch k.kind {
	case KindDouble, KindFloat:
		return fmt.Sprintf("%v(%g)", k.kind, k.real)
	case KindString:
		return fmt.Sprintf("string(%q)", k.str)
	default:
		return fmt.Sprintf("%v(%d)", k.kind, k.num)
	}
}

// Compare orders k against other by the natural ordering of their kind and
// returns -1, 0 or +1. Comparing keys of different kinds is a programming
// error and panics.
func (k Key) Compare(other Key) int {
	if k.kind != other.kind {
		panic(fmt.Sprintf("model: cannot compare %v key with %v key", k.kind, other.kind))
	}
	switch k.kind {
	case KindDouble, KindFloat:
		return compareFloat(k.real, other.real)
	case KindString:
		return strings.Compare(k.str, other.str)
	default:
		return compareInt(k.num, other.num)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	default:
		// Order NaNs before everything so sorting stays total.
		an, bn := math.IsNaN(a), math.IsNaN(b)
		switch {
		case an && bn:
			return 0
		case an:
			return -1
		default:
			return 1
		}
	}
}
