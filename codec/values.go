package codec

import "time"

// Undefined is the codec's "absent" marker, distinct from nil/null (§4.1).
type Undefined struct{}

// Number carries a numeric value the bare-JSON-number policy cannot encode
// losslessly: +/-Infinity, NaN, negative zero, or a decimal literal outside
// the 64-bit-float-safe integer range (§4.1's numeric policy).
type Number struct {
	Literal string
}

func (n Number) IsNaN() bool      { return n.Literal == "NaN" }
func (n Number) IsInfinite() bool { return n.Literal == "Infinity" || n.Literal == "-Infinity" }
func (n Number) IsNegZero() bool  { return n.Literal == "-0" }

// BigInt carries an arbitrary-precision integer as its canonical decimal
// string (§4.1).
type BigInt struct {
	Literal string
}

// DateValue is an ISO date-time, or the explicit "invalid" sentinel a
// source Date object can carry (§4.1).
type DateValue struct {
	Time  time.Time
	Valid bool
}

// Regexp is a regular expression's source and flags, kept distinct from a
// plain string to preserve its domain type across the wire (§4.1).
type Regexp struct {
	Source string
	Flags  string
}

// URLValue carries a URL by its serialized form (§4.1).
type URLValue struct {
	Raw string
}

// ErrorValue mirrors a thrown error's shape (§4.1): name, message, and the
// optional stack/code/cause fields.
type ErrorValue struct {
	Name    string
	Message string
	Stack   *string
	Code    *string
	Cause   any
}

// Blob is an opaque byte payload with a media type (§4.1). Blobs require
// asynchronous encoding; see EncodeAsync.
type Blob struct {
	MediaType string
	Size      int64
	Data      []byte
}

// TypedArray is a typed numeric array view: an element kind (e.g. "uint8",
// "int32", "float64") plus little-endian backing bytes (§4.1).
type TypedArray struct {
	Kind string
	Data []byte
}

// DataView is an aligned buffer view with no element-kind discriminant.
type DataView struct {
	Data []byte
}

// ArrayBuffer is a raw byte buffer with no structure beyond its length.
type ArrayBuffer struct {
	Data []byte
}

// Object is an ordered, keyed record — the composite that carries plain
// JSON "object" semantics while preserving property-order (§8) and
// reference identity (it is always handled as a pointer).
type Object struct {
	Keys   []string
	Values map[string]any
}

// NewObject builds an empty ordered record.
func NewObject() *Object {
	return &Object{Values: map[string]any{}}
}

// Set appends key/value, overwriting the value but keeping first-seen
// key order if key already exists.
func (o *Object) Set(key string, value any) *Object {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
	return o
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Array is an ordered sequence, handled as a pointer for reference
// identity.
type Array struct {
	Items []any
}

// OrderedMap is a keyed mapping with arbitrary key types (§4.1); Go maps
// cannot hold non-comparable or domain-typed keys directly, so pairs are
// carried as parallel slices in insertion order.
type OrderedMap struct {
	Keys   []any
	Values []any
}

func (m *OrderedMap) Get(key any) (any, bool) {
	for i, k := range m.Keys {
		if deepEqualKey(k, key) {
			return m.Values[i], true
		}
	}
	return nil, false
}

func (m *OrderedMap) Set(key, value any) {
	for i, k := range m.Keys {
		if deepEqualKey(k, key) {
			m.Values[i] = value
			return
		}
	}
	m.Keys = append(m.Keys, key)
	m.Values = append(m.Values, value)
}

func deepEqualKey(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return a == b
	}
}

// Set is an unordered-semantics uniqueness collection, kept as an ordered
// slice of first-insertion-order unique items (equality by deepEqualKey).
type Set struct {
	Items []any
}

func (s *Set) Add(value any) {
	for _, existing := range s.Items {
		if deepEqualKey(existing, value) {
			return
		}
	}
	s.Items = append(s.Items, value)
}
