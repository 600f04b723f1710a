package model

import "fmt"

// Kind identifies the primitive type of a key. Every index instance holds
// keys of exactly one Kind; mixing kinds in one store is rejected at
// ingestion time.
type Kind uint8

const (
	// KindInvalid is the zero value. An empty store carries it as a
	// kind-agnostic tag; stores with entries never do.
	KindInvalid Kind = iota
	// KindLong is a 64-bit signed integer. 32-bit integers are widened to
	// KindLong on ingestion because predicate literals are always 64-bit.
	KindLong
	// KindDouble is a 64-bit float.
	KindDouble
	// KindFloat is a 32-bit float.
	KindFloat
	// KindString is an arbitrary UTF-8 string.
	KindString
	// KindBool orders false before true.
	KindBool
	// KindDate is a date expressed as days since the Unix epoch.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the supported key kinds.
func (k Kind) Valid() bool {
	return k >= KindLong && k <= KindDate
}

// ErrUnsupportedValueType indicates a key or value of a kind no index codec
// is registered for.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnsupportedValueType struct {
	Value any
	cause error
}

func (e *ErrUnsupportedValueType) Error() string {
	return fmt.Sprintf("unsupported value type: %T", e.Value)
}

func (e *ErrUnsupportedValueType) Unwrap() error { return e.cause }
