package codec

import (
	"bytes"
	"encoding/json"
)

// orderedObject marshals its key/value pairs in insertion order. encoding/json
// calls MarshalJSON and writes the returned bytes verbatim, so this is the
// mechanism that gives both envelope tag objects and plain keyed records
// their required property-order preservation (§8).
type orderedObject struct {
	keys []string
	vals []any
}

func newOrderedObject() *orderedObject {
	return &orderedObject{}
}

func (o *orderedObject) set(key string, val any) *orderedObject {
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, val)
	return o
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
