// Package codec implements the type-preserving wire codec: a JSON envelope
// that round-trips dates, regular expressions, big integers, ordered maps
// and sets, binary buffers, errors, URLs, and cyclic object graphs. See
// tags.go for the reserved tag vocabulary and encode.go/decode.go for the
// reference-identity machinery.
package codec
