package codec

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func roundTrip(t *testing.T, value any, opts Options) any {
	t.Helper()
	encoded, err := Encode(value, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded
}

func TestMixedRichTypeObjectRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	src := NewObject()
	src.Set("when", DateValue{Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Valid: true})
	src.Set("pattern", Regexp{Source: "a+b*", Flags: "gi"})
	src.Set("big", BigInt{Literal: "123456789012345678901234567890"})
	src.Set("odd", Number{Literal: "NaN"})
	src.Set("missing", Undefined{})
	src.Set("site", URLValue{Raw: "https://example.com/path"})
	src.Set("count", int64(42))

	decoded := roundTrip(t, src, opts)
	obj, ok := decoded.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", decoded)
	}
	if got, _ := obj.Get("when"); got.(DateValue).Time.Unix() != src.Values["when"].(DateValue).Time.Unix() {
		t.Errorf("date mismatch: %+v", got)
	}
	if got, _ := obj.Get("pattern"); got.(Regexp) != (Regexp{Source: "a+b*", Flags: "gi"}) {
		t.Errorf("regexp mismatch: %+v", got)
	}
	if got, _ := obj.Get("big"); got.(BigInt).Literal != "123456789012345678901234567890" {
		t.Errorf("bigint mismatch: %+v", got)
	}
	if got, _ := obj.Get("odd"); !got.(Number).IsNaN() {
		t.Errorf("expected NaN, got %+v", got)
	}
	if _, ok := obj.Get("missing"); !ok {
		t.Fatalf("missing key not preserved")
	} else if _, ok := obj.Values["missing"].(Undefined); !ok {
		t.Errorf("expected Undefined, got %T", obj.Values["missing"])
	}
	if got, _ := obj.Get("site"); got.(URLValue).Raw != "https://example.com/path" {
		t.Errorf("url mismatch: %+v", got)
	}
	if got, _ := obj.Get("count"); got.(int64) != 42 {
		t.Errorf("count mismatch: %+v", got)
	}
	if len(obj.Keys) != len(src.Keys) {
		t.Fatalf("key order not preserved: got %v want %v", obj.Keys, src.Keys)
	}
	for i := range src.Keys {
		if obj.Keys[i] != src.Keys[i] {
			t.Errorf("key order mismatch at %d: got %q want %q", i, obj.Keys[i], src.Keys[i])
		}
	}
}

func TestCyclicReferenceRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	a := NewObject()
	b := NewObject()
	a.Set("name", "a")
	b.Set("name", "b")
	a.Set("next", b)
	b.Set("next", a)

	decoded := roundTrip(t, a, opts)
	decodedA, ok := decoded.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", decoded)
	}
	nextB, ok := decodedA.Get("next")
	if !ok {
		t.Fatalf("missing next on a")
	}
	decodedB, ok := nextB.(*Object)
	if !ok {
		t.Fatalf("expected *Object for b, got %T", nextB)
	}
	backToA, ok := decodedB.Get("next")
	if !ok {
		t.Fatalf("missing next on b")
	}
	if backToA.(*Object) != decodedA {
		t.Errorf("cycle did not resolve to the same pointer")
	}
}

func TestDepthLimitExceeded(t *testing.T) {
	opts := NewOptions(WithMaxDepth(2))
	inner := NewObject()
	inner.Set("leaf", "value")
	middle := NewObject()
	middle.Set("inner", inner)
	outer := NewObject()
	outer.Set("middle", middle)

	_, err := Encode(outer, opts)
	if err == nil {
		t.Fatal("expected depth error")
	}
	if !errors.Is(err, ErrDepth) {
		t.Errorf("expected ErrDepth, got %v", err)
	}
}

func TestStringSizeLimitExceeded(t *testing.T) {
	opts := NewOptions(WithMaxStringLen(4))
	_, err := Encode("too long", opts)
	if !errors.Is(err, ErrSizeLimit) {
		t.Errorf("expected ErrSizeLimit, got %v", err)
	}
}

func TestBlobRequiresAsyncEncode(t *testing.T) {
	opts := DefaultOptions()
	blob := Blob{MediaType: "application/octet-stream", Size: 3, Data: []byte{1, 2, 3}}

	_, err := Encode(blob, opts)
	if !errors.Is(err, ErrNeedsAsync) {
		t.Errorf("expected ErrNeedsAsync from sync Encode, got %v", err)
	}

	encoded, err := EncodeAsync(context.Background(), blob, opts)
	if err != nil {
		t.Fatalf("EncodeAsync: %v", err)
	}
	decoded, err := Decode(encoded, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(Blob)
	if !ok {
		t.Fatalf("expected Blob, got %T", decoded)
	}
	if string(got.Data) != string(blob.Data) || got.MediaType != blob.MediaType {
		t.Errorf("blob mismatch: %+v", got)
	}
}

func TestNumericPolicyEdgeCases(t *testing.T) {
	opts := DefaultOptions()

	cases := []struct {
		name string
		in   float64
		want func(Number) bool
	}{
		{"nan", math.NaN(), Number.IsNaN},
		{"posinf", math.Inf(1), Number.IsInfinite},
		{"neginf", math.Inf(-1), Number.IsInfinite},
		{"negzero", math.Copysign(0, -1), Number.IsNegZero},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			decoded := roundTrip(t, c.in, opts)
			num, ok := decoded.(Number)
			if !ok {
				t.Fatalf("expected Number, got %T", decoded)
			}
			if !c.want(num) {
				t.Errorf("unexpected literal %q for %s", num.Literal, c.name)
			}
		})
	}

	decoded := roundTrip(t, 3.5, opts)
	if f, ok := decoded.(float64); !ok || f != 3.5 {
		t.Errorf("expected bare float 3.5, got %#v", decoded)
	}

	decoded = roundTrip(t, int64(1)<<60, opts)
	num, ok := decoded.(Number)
	if !ok {
		t.Fatalf("expected Number for out-of-range int, got %T", decoded)
	}
	if num.Literal != "1152921504606846976" {
		t.Errorf("unexpected literal %q", num.Literal)
	}

	decoded = roundTrip(t, int64(100), opts)
	if i, ok := decoded.(int64); !ok || i != 100 {
		t.Errorf("expected bare int64 100, got %#v", decoded)
	}
}

func TestReservedKeyCollisionUsesMapEscape(t *testing.T) {
	opts := DefaultOptions()
	src := NewObject()
	src.Set("__date", "not actually a date")
	src.Set("normal", "value")

	encoded, err := Encode(src, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	om, ok := decoded.(*OrderedMap)
	if !ok {
		t.Fatalf("expected *OrderedMap via __map escape hatch, got %T", decoded)
	}
	got, ok := om.Get("__date")
	if !ok || got.(string) != "not actually a date" {
		t.Errorf("collision-escaped value mismatch: %+v", got)
	}
}

func TestArraySetAndTypedArrayRoundTrip(t *testing.T) {
	opts := DefaultOptions()

	arr := &Array{Items: []any{int64(1), "two", true, nil}}
	decoded := roundTrip(t, arr, opts)
	decodedArr, ok := decoded.(*Array)
	if !ok || len(decodedArr.Items) != 4 {
		t.Fatalf("array mismatch: %#v", decoded)
	}

	set := &Set{}
	set.Add("x")
	set.Add("y")
	set.Add("x")
	decoded = roundTrip(t, set, opts)
	decodedSet, ok := decoded.(*Set)
	if !ok || len(decodedSet.Items) != 2 {
		t.Fatalf("set mismatch: %#v", decoded)
	}

	ta := TypedArray{Kind: "uint8", Data: []byte{9, 8, 7}}
	decoded = roundTrip(t, ta, opts)
	decodedTA, ok := decoded.(TypedArray)
	if !ok || decodedTA.Kind != "uint8" || string(decodedTA.Data) != string(ta.Data) {
		t.Fatalf("typed array mismatch: %#v", decoded)
	}
}

func TestCircularRefPlaceholderIsRefused(t *testing.T) {
	opts := DefaultOptions()
	_, err := Decode([]byte(`{"__circular_ref":true}`), opts)
	if err == nil {
		t.Fatal("expected error decoding legacy __circular_ref placeholder")
	}
}

func TestIsTypePreserved(t *testing.T) {
	opts := DefaultOptions()
	if IsTypePreserved([]byte(`{"a":1,"b":"plain"}`), opts) {
		t.Error("expected plain JSON to not be type-preserved")
	}
	if !IsTypePreserved([]byte(`{"a":{"__date":"2026-01-01T00:00:00Z"}}`), opts) {
		t.Error("expected nested tagged value to be detected")
	}
}
