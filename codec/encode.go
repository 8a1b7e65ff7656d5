package codec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"time"
)

const safeIntegerLimit = int64(1) << 53 // 2^53; safe range is +/-(2^53 - 1)

// Encoder turns an in-memory value graph into the codec's JSON envelope,
// assigning a dense reference id to every composite node in first-encounter
// order (§4.1's reference identity rules).
type Encoder struct {
	opts      Options
	allowBlob bool
	nextID    int
	seen      map[any]int
}

func newEncoder(opts Options, allowBlob bool) *Encoder {
	return &Encoder{opts: opts, allowBlob: allowBlob, seen: map[any]int{}}
}

// Encode serializes value synchronously; it refuses Blob values with
// ErrNeedsAsync (§4.1).
func Encode(value any, opts Options) (json.RawMessage, error) {
	enc := newEncoder(opts, false)
	node, err := enc.encode(value, 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

// EncodeAsync serializes value, including Blob payloads read eagerly from
// memory. The context is checked for cancellation once, before encoding
// starts; cancellation during encoding is not observed.
func EncodeAsync(ctx context.Context, value any, opts Options) (json.RawMessage, error) {
	enc := newEncoder(opts, true)
	node, err := enc.encodeCtx(ctx, value, 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

func (e *Encoder) encodeCtx(ctx context.Context, value any, depth int) (any, error) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	return e.encode(value, depth)
}

func (e *Encoder) encode(value any, depth int) (any, error) {
	if depth > e.opts.MaxDepth {
		return nil, errDepth(map[string]any{"depth": depth})
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case Undefined:
		return newOrderedObject().set(TagUndefined, true), nil
	case bool:
		return v, nil
	case string:
		return e.encodeString(v)
	case int:
		return e.encodeInt(int64(v))
	case int8:
		return e.encodeInt(int64(v))
	case int16:
		return e.encodeInt(int64(v))
	case int32:
		return e.encodeInt(int64(v))
	case int64:
		return e.encodeInt(v)
	case uint:
		return e.encodeUint(uint64(v))
	case uint8:
		return e.encodeUint(uint64(v))
	case uint16:
		return e.encodeUint(uint64(v))
	case uint32:
		return e.encodeUint(uint64(v))
	case uint64:
		return e.encodeUint(v)
	case float32:
		return e.encodeFloat(float64(v))
	case float64:
		return e.encodeFloat(v)
	case Number:
		return newOrderedObject().set(TagNumber, v.Literal), nil
	case BigInt:
		return newOrderedObject().set(TagBigInt, v.Literal), nil
	case *big.Int:
		return newOrderedObject().set(TagBigInt, v.String()), nil
	case time.Time:
		return newOrderedObject().set(TagDate, v.UTC().Format(time.RFC3339Nano)), nil
	case DateValue:
		if !v.Valid {
			return newOrderedObject().set(TagDate, "Invalid Date"), nil
		}
		return newOrderedObject().set(TagDate, v.Time.UTC().Format(time.RFC3339Nano)), nil
	case Regexp:
		body := newOrderedObject().set("source", v.Source).set("flags", v.Flags)
		return newOrderedObject().set(TagRegexp, body), nil
	case URLValue:
		return newOrderedObject().set(TagURL, v.Raw), nil
	case ErrorValue:
		return e.encodeErrorValue(v)
	case Blob:
		return e.encodeBlob(v)
	case TypedArray:
		return e.encodeTypedArray(v)
	case DataView:
		return e.encodeBinary(TagDataView, v.Data, nil)
	case ArrayBuffer:
		return e.encodeBinary(TagArrayBuffer, v.Data, nil)
	case []byte:
		return e.encodeBinary(TagArrayBuffer, v, nil)
	case *Object:
		return e.encodeObject(v, depth)
	case *Array:
		return e.encodeArray(v, depth)
	case *OrderedMap:
		return e.encodeMap(v, depth)
	case *Set:
		return e.encodeSet(v, depth)
	default:
		return nil, errUnknownTag(map[string]any{"go_type": goTypeName(value)})
	}
}

func (e *Encoder) encodeString(v string) (any, error) {
	if e.opts.MaxStringLen > 0 && len(v) > e.opts.MaxStringLen {
		return nil, errSizeLimit(map[string]any{"length": len(v), "limit": e.opts.MaxStringLen})
	}
	return v, nil
}

func (e *Encoder) encodeInt(v int64) (any, error) {
	if v > -safeIntegerLimit && v < safeIntegerLimit {
		return v, nil
	}
	return newOrderedObject().set(TagNumber, strconv.FormatInt(v, 10)), nil
}

func (e *Encoder) encodeUint(v uint64) (any, error) {
	if v < uint64(safeIntegerLimit) {
		return v, nil
	}
	return newOrderedObject().set(TagNumber, strconv.FormatUint(v, 10)), nil
}

func (e *Encoder) encodeFloat(v float64) (any, error) {
	switch {
	case math.IsNaN(v):
		return newOrderedObject().set(TagNumber, "NaN"), nil
	case math.IsInf(v, 1):
		return newOrderedObject().set(TagNumber, "Infinity"), nil
	case math.IsInf(v, -1):
		return newOrderedObject().set(TagNumber, "-Infinity"), nil
	case v == 0 && math.Signbit(v):
		return newOrderedObject().set(TagNumber, "-0"), nil
	default:
		return v, nil
	}
}

func (e *Encoder) encodeErrorValue(v ErrorValue) (any, error) {
	obj := newOrderedObject().set("name", v.Name).set("message", v.Message)
	if v.Stack != nil {
		obj.set("stack", *v.Stack)
	}
	if v.Code != nil {
		obj.set("code", *v.Code)
	}
	if v.Cause != nil {
		cause, err := e.encode(v.Cause, 0)
		if err != nil {
			return nil, err
		}
		obj.set("cause", cause)
	}
	return newOrderedObject().set(TagError, obj), nil
}

func (e *Encoder) encodeBlob(v Blob) (any, error) {
	if !e.allowBlob {
		return nil, errNeedsAsync(map[string]any{"media_type": v.MediaType})
	}
	if e.opts.MaxBlobBytes > 0 && len(v.Data) > e.opts.MaxBlobBytes {
		return nil, errSizeLimit(map[string]any{"length": len(v.Data), "limit": e.opts.MaxBlobBytes})
	}
	body := newOrderedObject().
		set("mediaType", v.MediaType).
		set("size", v.Size).
		set("data", base64.StdEncoding.EncodeToString(v.Data))
	return newOrderedObject().set(TagBlob, body), nil
}

func (e *Encoder) encodeTypedArray(v TypedArray) (any, error) {
	if e.opts.MaxBlobBytes > 0 && len(v.Data) > e.opts.MaxBlobBytes {
		return nil, errSizeLimit(map[string]any{"length": len(v.Data), "limit": e.opts.MaxBlobBytes})
	}
	body := newOrderedObject().
		set("kind", v.Kind).
		set("data", base64.StdEncoding.EncodeToString(v.Data))
	return newOrderedObject().set(TagTypedArray, body), nil
}

func (e *Encoder) encodeBinary(tag string, data []byte, extra map[string]any) (any, error) {
	if e.opts.MaxBlobBytes > 0 && len(data) > e.opts.MaxBlobBytes {
		return nil, errSizeLimit(map[string]any{"length": len(data), "limit": e.opts.MaxBlobBytes})
	}
	body := newOrderedObject().set("data", base64.StdEncoding.EncodeToString(data))
	return newOrderedObject().set(tag, body), nil
}

// refIDFor returns (id, alreadySeen). Ids start at 1 so the zero value of
// an unset lookup is never mistaken for a valid reference.
func (e *Encoder) refIDFor(ptr any) (int, bool) {
	if id, ok := e.seen[ptr]; ok {
		return id, true
	}
	e.nextID++
	e.seen[ptr] = e.nextID
	return e.nextID, false
}

func (e *Encoder) encodeObject(v *Object, depth int) (any, error) {
	id, seen := e.refIDFor(v)
	if seen {
		return newOrderedObject().set(TagRef, id), nil
	}
	if hasReservedKey(v.Keys) {
		om := &OrderedMap{}
		for _, k := range v.Keys {
			om.Set(k, v.Values[k])
		}
		return e.encodeMapBody(om, depth, id)
	}
	body := newOrderedObject()
	for _, key := range v.Keys {
		encoded, err := e.encode(v.Values[key], depth+1)
		if err != nil {
			return nil, err
		}
		body.set(key, encoded)
	}
	body.set(tagRefID, id)
	return body, nil
}

func (e *Encoder) encodeArray(v *Array, depth int) (any, error) {
	id, seen := e.refIDFor(v)
	if seen {
		return newOrderedObject().set(TagRef, id), nil
	}
	items := make([]any, 0, len(v.Items))
	for _, item := range v.Items {
		encoded, err := e.encode(item, depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, encoded)
	}
	return newOrderedObject().set(TagArray, items).set(tagRefID, id), nil
}

func (e *Encoder) encodeMap(v *OrderedMap, depth int) (any, error) {
	id, seen := e.refIDFor(v)
	if seen {
		return newOrderedObject().set(TagRef, id), nil
	}
	return e.encodeMapBody(v, depth, id)
}

func (e *Encoder) encodeMapBody(v *OrderedMap, depth int, id int) (any, error) {
	pairs := make([]any, 0, len(v.Keys))
	for i, key := range v.Keys {
		encodedKey, err := e.encode(key, depth+1)
		if err != nil {
			return nil, err
		}
		encodedVal, err := e.encode(v.Values[i], depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, []any{encodedKey, encodedVal})
	}
	return newOrderedObject().set(TagMap, pairs).set(tagRefID, id), nil
}

func (e *Encoder) encodeSet(v *Set, depth int) (any, error) {
	id, seen := e.refIDFor(v)
	if seen {
		return newOrderedObject().set(TagRef, id), nil
	}
	items := make([]any, 0, len(v.Items))
	for _, item := range v.Items {
		encoded, err := e.encode(item, depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, encoded)
	}
	return newOrderedObject().set(TagSet, items).set(tagRefID, id), nil
}

func hasReservedKey(keys []string) bool {
	for _, k := range keys {
		if isReservedTag(k) {
			return true
		}
	}
	return false
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case map[string]any:
		return "map[string]any"
	default:
		return "unsupported"
	}
}
