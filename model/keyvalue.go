package model

// KeyValue is an immutable key/value pair fed into an ordered index. The
// value is an opaque payload, conventionally a comma-joined list of
// positional "symbol:offset" tokens.
type KeyValue struct {
	Key   Key
	Value string
}

// NewKeyValue pairs a typed key with its positional payload.
func NewKeyValue(key Key, value string) KeyValue {
	return KeyValue{Key: key, Value: value}
}
