package dispatch

import "context"

// Chunker marks a handler result as a byte stream: the dispatcher frames
// the response as application/octet-stream and calls NextChunk
// repeatedly, writing each chunk as it arrives instead of buffering the
// whole result. Close is always called exactly once when the dispatcher
// stops reading, whether that's because the stream ended, the handler
// returned an error mid-stream, or the client disconnected — so Close is
// where any underlying resource (file handle, subprocess, network
// connection) must be released, not the handler's own return.
type Chunker interface {
	NextChunk(ctx context.Context) (chunk []byte, more bool, err error)
	Close() error
}

// Sequence marks a handler result as a server-sent-events stream: the
// dispatcher frames the response as text/event-stream and calls Next
// repeatedly, encoding each yielded value through the Typed Codec as one
// "data: ..." frame. The same Close guarantee as Chunker applies.
type Sequence interface {
	Next(ctx context.Context) (value any, more bool, err error)
	Close() error
}

// classify reports which framing, if any, result implements. A result
// satisfying neither is framed as a single scalar JSON body.
func classify(result any) (chunker Chunker, sequence Sequence, scalar bool) {
	if c, ok := result.(Chunker); ok {
		return c, nil, false
	}
	if s, ok := result.(Sequence); ok {
		return nil, s, false
	}
	return nil, nil, true
}
