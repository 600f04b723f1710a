package model

// Operator is the predicate shape of a lookup request.
type Operator uint8

const (
	// OpEqual is `key == value`.
	OpEqual Operator = iota + 1
	// OpBetween is `low <= key <= high`.
	OpBetween
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpBetween:
		return "between"
	default:
		return "unknown"
	}
}

// Request is a normalized lookup request produced by the query layer from a
// predicate. Indexes answer the shapes they support and reject the rest.
type Request struct {
	op   Operator
	low  Key
	high Key
}

// Equal builds an equality request for key.
func Equal(key Key) Request {
	return Request{op: OpEqual, low: key, high: key}
}

// Between builds a bounded range request, inclusive on both ends.
func Between(low, high Key) Request {
	return Request{op: OpBetween, low: low, high: high}
}

// Operator returns the request's predicate shape.
func (r Request) Operator() Operator { return r.op }

// Value returns the operand of an equality request.
func (r Request) Value() Key { return r.low }

// Bounds returns the inclusive bounds of a between request.
func (r Request) Bounds() (low, high Key) { return r.low, r.high }
