package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// decoder interprets the tokenizer's raw tree into domain values. Composite
// shells (*Object, *Array, *OrderedMap, *Set) are allocated and registered
// under their __refId before their children are decoded, so a __ref
// encountered anywhere in the subtree — including a self-reference — always
// resolves to the same pointer the rest of the graph holds (§4.1's two-pass
// contract, collapsed into a single allocate-then-fill recursion).
type decoder struct {
	opts   Options
	shells map[int]any
}

// Decode parses data as the codec's JSON envelope.
func Decode(data json.RawMessage, opts Options) (any, error) {
	root, err := scanJSON(data)
	if err != nil {
		return nil, errMalformedTag(map[string]any{"parse_error": err.Error()})
	}
	d := &decoder{opts: opts, shells: map[int]any{}}
	return d.decode(root, 0)
}

func (d *decoder) decode(node any, depth int) (any, error) {
	if depth > d.opts.MaxDepth {
		return nil, errDepth(map[string]any{"depth": depth})
	}
	switch v := node.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		if d.opts.MaxStringLen > 0 && len(v) > d.opts.MaxStringLen {
			return nil, errSizeLimit(map[string]any{"length": len(v), "limit": d.opts.MaxStringLen})
		}
		return v, nil
	case json.Number:
		return decodeBareNumber(v)
	case []any:
		items := make([]any, 0, len(v))
		for _, item := range v {
			decoded, err := d.decode(item, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, decoded)
		}
		return items, nil
	case *rawObj:
		return d.decodeObject(v, depth)
	default:
		return nil, errMalformedTag(map[string]any{"go_type": fmt.Sprintf("%T", node)})
	}
}

func decodeBareNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, errMalformedTag(map[string]any{"number": n.String()})
	}
	return f, nil
}

func (d *decoder) decodeObject(obj *rawObj, depth int) (any, error) {
	tags := obj.reservedKeys()
	switch {
	case len(tags) == 0:
		return d.decodePlainObject(obj, depth)
	case len(tags) > 1:
		return nil, errMalformedTag(map[string]any{"tags": tags})
	}

	tag := tags[0]
	switch tag {
	case TagRef:
		return d.decodeRef(obj)
	case TagCircularRef:
		return nil, errMalformedTag(map[string]any{"tag": TagCircularRef, "reason": "legacy circular placeholder cannot be losslessly decoded"})
	case TagArray:
		return d.decodeArray(obj, depth)
	case TagMap:
		return d.decodeMap(obj, depth)
	case TagSet:
		return d.decodeSet(obj, depth)
	case TagDate:
		return d.decodeDate(obj)
	case TagRegexp:
		return d.decodeRegexp(obj)
	case TagBigInt:
		return d.decodeBigInt(obj)
	case TagNumber:
		return d.decodeNumber(obj)
	case TagBoolean:
		return d.decodeBoolean(obj)
	case TagString:
		return d.decodeString(obj)
	case TagNull:
		return nil, nil
	case TagUndefined:
		return Undefined{}, nil
	case TagBlob:
		return d.decodeBlob(obj)
	case TagArrayBuffer:
		return d.decodeArrayBuffer(obj)
	case TagTypedArray:
		return d.decodeTypedArray(obj)
	case TagDataView:
		return d.decodeDataView(obj)
	case TagError:
		return d.decodeError(obj, depth)
	case TagURL:
		return d.decodeURL(obj)
	default:
		return nil, errUnknownTag(map[string]any{"tag": tag})
	}
}

func (d *decoder) refID(obj *rawObj) (int, bool, error) {
	raw, ok := obj.get(tagRefID)
	if !ok {
		return 0, false, nil
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, false, errMalformedTag(map[string]any{"field": tagRefID})
	}
	id, err := num.Int64()
	if err != nil {
		return 0, false, errMalformedTag(map[string]any{"field": tagRefID})
	}
	return int(id), true, nil
}

func (d *decoder) decodeRef(obj *rawObj) (any, error) {
	raw, ok := obj.get(TagRef)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagRef})
	}
	num, ok := raw.(json.Number)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagRef})
	}
	id, err := num.Int64()
	if err != nil {
		return nil, errMalformedTag(map[string]any{"tag": TagRef})
	}
	shell, ok := d.shells[int(id)]
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagRef, "ref_id": id, "reason": "forward or unknown reference"})
	}
	return shell, nil
}

func (d *decoder) decodePlainObject(obj *rawObj, depth int) (any, error) {
	id, hasID, err := d.refID(obj)
	if err != nil {
		return nil, err
	}
	shell := NewObject()
	if hasID {
		d.shells[id] = shell
	}
	for i, key := range obj.keys {
		if key == tagRefID {
			continue
		}
		value, err := d.decode(obj.vals[i], depth+1)
		if err != nil {
			return nil, err
		}
		shell.Set(key, value)
	}
	return shell, nil
}

func (d *decoder) decodeArray(obj *rawObj, depth int) (any, error) {
	id, hasID, err := d.refID(obj)
	if err != nil {
		return nil, err
	}
	shell := &Array{}
	if hasID {
		d.shells[id] = shell
	}
	raw, _ := obj.get(TagArray)
	items, ok := raw.([]any)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagArray})
	}
	for _, item := range items {
		decoded, err := d.decode(item, depth+1)
		if err != nil {
			return nil, err
		}
		shell.Items = append(shell.Items, decoded)
	}
	return shell, nil
}

func (d *decoder) decodeMap(obj *rawObj, depth int) (any, error) {
	id, hasID, err := d.refID(obj)
	if err != nil {
		return nil, err
	}
	shell := &OrderedMap{}
	if hasID {
		d.shells[id] = shell
	}
	raw, _ := obj.get(TagMap)
	pairs, ok := raw.([]any)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagMap})
	}
	for _, pair := range pairs {
		entry, ok := pair.([]any)
		if !ok || len(entry) != 2 {
			return nil, errMalformedTag(map[string]any{"tag": TagMap, "reason": "pair must have exactly 2 elements"})
		}
		key, err := d.decode(entry[0], depth+1)
		if err != nil {
			return nil, err
		}
		value, err := d.decode(entry[1], depth+1)
		if err != nil {
			return nil, err
		}
		shell.Keys = append(shell.Keys, key)
		shell.Values = append(shell.Values, value)
	}
	return shell, nil
}

func (d *decoder) decodeSet(obj *rawObj, depth int) (any, error) {
	id, hasID, err := d.refID(obj)
	if err != nil {
		return nil, err
	}
	shell := &Set{}
	if hasID {
		d.shells[id] = shell
	}
	raw, _ := obj.get(TagSet)
	items, ok := raw.([]any)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagSet})
	}
	for _, item := range items {
		decoded, err := d.decode(item, depth+1)
		if err != nil {
			return nil, err
		}
		shell.Items = append(shell.Items, decoded)
	}
	return shell, nil
}

func (d *decoder) decodeDate(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagDate)
	str, ok := raw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagDate})
	}
	if str == "Invalid Date" {
		return DateValue{Valid: false}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return nil, errMalformedTag(map[string]any{"tag": TagDate, "value": str})
	}
	return DateValue{Time: parsed, Valid: true}, nil
}

func (d *decoder) decodeRegexp(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagRegexp)
	body, ok := raw.(*rawObj)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagRegexp})
	}
	source, _ := body.get("source")
	flags, _ := body.get("flags")
	sourceStr, _ := source.(string)
	flagsStr, _ := flags.(string)
	return Regexp{Source: sourceStr, Flags: flagsStr}, nil
}

func (d *decoder) decodeBigInt(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagBigInt)
	str, ok := raw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagBigInt})
	}
	if _, ok := new(big.Int).SetString(str, 10); !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagBigInt, "value": str})
	}
	return BigInt{Literal: str}, nil
}

func (d *decoder) decodeNumber(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagNumber)
	str, ok := raw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagNumber})
	}
	return Number{Literal: str}, nil
}

func (d *decoder) decodeBoolean(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagBoolean)
	b, ok := raw.(bool)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagBoolean})
	}
	return b, nil
}

func (d *decoder) decodeString(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagString)
	s, ok := raw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagString})
	}
	return s, nil
}

func (d *decoder) decodeBinaryBody(obj *rawObj, tag string) ([]byte, error) {
	raw, _ := obj.get(tag)
	body, ok := raw.(*rawObj)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": tag})
	}
	dataRaw, _ := body.get("data")
	dataStr, ok := dataRaw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": tag, "field": "data"})
	}
	if d.opts.MaxBlobBytes > 0 {
		// base64 expands length by ~4/3; check the declared size before
		// allocating the decoded buffer (§4.1's size policy for binary).
		if estimatedBytes := (len(dataStr) * 3) / 4; estimatedBytes > d.opts.MaxBlobBytes {
			return nil, errSizeLimit(map[string]any{"tag": tag, "limit": d.opts.MaxBlobBytes})
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return nil, errBadBase64(map[string]any{"tag": tag})
	}
	if d.opts.MaxBlobBytes > 0 && len(decoded) > d.opts.MaxBlobBytes {
		return nil, errSizeLimit(map[string]any{"tag": tag, "length": len(decoded), "limit": d.opts.MaxBlobBytes})
	}
	return decoded, nil
}

func (d *decoder) decodeBlob(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagBlob)
	body, ok := raw.(*rawObj)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagBlob})
	}
	mediaTypeRaw, _ := body.get("mediaType")
	mediaType, _ := mediaTypeRaw.(string)
	sizeRaw, _ := body.get("size")
	var size int64
	if num, ok := sizeRaw.(json.Number); ok {
		size, _ = num.Int64()
	}
	if d.opts.MaxBlobBytes > 0 && size > int64(d.opts.MaxBlobBytes) {
		return nil, errSizeLimit(map[string]any{"tag": TagBlob, "declared_size": size, "limit": d.opts.MaxBlobBytes})
	}
	data, err := d.decodeBinaryBody(obj, TagBlob)
	if err != nil {
		return nil, err
	}
	return Blob{MediaType: mediaType, Size: size, Data: data}, nil
}

func (d *decoder) decodeArrayBuffer(obj *rawObj) (any, error) {
	data, err := d.decodeBinaryBody(obj, TagArrayBuffer)
	if err != nil {
		return nil, err
	}
	return ArrayBuffer{Data: data}, nil
}

func (d *decoder) decodeTypedArray(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagTypedArray)
	body, ok := raw.(*rawObj)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagTypedArray})
	}
	kindRaw, _ := body.get("kind")
	kind, _ := kindRaw.(string)
	data, err := d.decodeBinaryBody(obj, TagTypedArray)
	if err != nil {
		return nil, err
	}
	// Decoding always produces a freshly allocated, zero-offset buffer
	// (§4.1's byte-order note): there is no offset field to restore.
	return TypedArray{Kind: kind, Data: data}, nil
}

func (d *decoder) decodeDataView(obj *rawObj) (any, error) {
	data, err := d.decodeBinaryBody(obj, TagDataView)
	if err != nil {
		return nil, err
	}
	return DataView{Data: data}, nil
}

func (d *decoder) decodeError(obj *rawObj, depth int) (any, error) {
	raw, _ := obj.get(TagError)
	body, ok := raw.(*rawObj)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagError})
	}
	nameRaw, _ := body.get("name")
	messageRaw, _ := body.get("message")
	name, _ := nameRaw.(string)
	message, _ := messageRaw.(string)
	ev := ErrorValue{Name: name, Message: message}
	if stackRaw, ok := body.get("stack"); ok {
		if s, ok := stackRaw.(string); ok {
			ev.Stack = &s
		}
	}
	if codeRaw, ok := body.get("code"); ok {
		if c, ok := codeRaw.(string); ok {
			ev.Code = &c
		}
	}
	if causeRaw, ok := body.get("cause"); ok {
		cause, err := d.decode(causeRaw, depth+1)
		if err != nil {
			return nil, err
		}
		ev.Cause = cause
	}
	return ev, nil
}

func (d *decoder) decodeURL(obj *rawObj) (any, error) {
	raw, _ := obj.get(TagURL)
	str, ok := raw.(string)
	if !ok {
		return nil, errMalformedTag(map[string]any{"tag": TagURL})
	}
	return URLValue{Raw: str}, nil
}
