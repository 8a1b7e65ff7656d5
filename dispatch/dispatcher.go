package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-poto/carrier"
	"github.com/goliatone/go-poto/codec"
	"github.com/goliatone/go-poto/core"
)

// Dispatcher is the Method Dispatcher: it resolves an incoming request to
// a registered MethodSpec, runs it inside a Context Carrier scope, and
// frames its result per §4.4. It satisfies http.Handler so it can be
// mounted directly on an *http.ServeMux — the plain stdlib routing the
// wider example pool reaches for (e.g. codewire's relay handlers) rather
// than a third-party web framework the teacher itself never depends on.
type Dispatcher struct {
	Registry     *Registry
	Auth         Authenticator
	CodecOptions codec.Options
}

func NewDispatcher(registry *Registry, auth Authenticator) *Dispatcher {
	return &Dispatcher{
		Registry:     registry,
		Auth:         auth,
		CodecOptions: codec.DefaultOptions(),
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handlerName, methodName, ok := splitPath(r.URL.Path)
	if !ok {
		d.writeError(w, nil, errUnknownHandler(r.URL.Path))
		return
	}

	spec, ok := d.Registry.Lookup(handlerName, methodName)
	if !ok {
		if d.Registry.HasHandler(handlerName) {
			d.writeError(w, nil, errUnknownMethod(handlerName, methodName))
		} else {
			d.writeError(w, nil, errUnknownHandler(handlerName))
		}
		return
	}
	if !strings.EqualFold(r.Method, spec.Verb) {
		d.writeError(w, nil, errUnknownMethod(handlerName, methodName))
		return
	}

	args, err := decodeArguments(r, d.CodecOptions)
	if err != nil {
		d.writeError(w, nil, errMalformedArguments(err, handlerName, methodName))
		return
	}
	if len(args) < spec.MinArgs {
		d.writeError(w, nil, errTooFewArguments(handlerName, methodName, len(args), spec.MinArgs))
		return
	}

	principal, _ := d.authenticate(r)
	if len(spec.RequiredRoles) > 0 {
		if principal == nil {
			d.writeError(w, nil, errUnauthenticated(handlerName, methodName, spec.RequiredRoles))
			return
		}
		if !principal.HasAnyRole(spec.RequiredRoles) {
			d.writeError(w, nil, errForbidden(handlerName, methodName, spec.RequiredRoles))
			return
		}
	}

	// r.Context() is already cancelled by net/http when the client
	// disconnects; wrapping it in carrier.NewContext means that
	// cancellation is exactly what carrier.Cancelled observes (§4.2
	// invariant 5, §5's cancellation semantics) without a parallel
	// signal.
	ctx, cancel := carrier.NewContext(r.Context(), principal, requestRef(r))
	defer cancel()
	if err := carrier.BindRequestCookies(ctx, requestCookies(r)); err != nil {
		d.writeError(w, ctx, err)
		return
	}

	result, err := spec.Handler(ctx, args)
	if err != nil {
		d.writeError(w, ctx, errHandlerFailed(err, handlerName, methodName))
		return
	}

	chunker, sequence, scalar := classify(result)
	switch {
	case chunker != nil:
		d.writeChunked(w, ctx, chunker)
	case sequence != nil:
		d.writeSequence(w, ctx, sequence)
	case scalar:
		d.writeScalar(w, ctx, result)
	}
}

func splitPath(path string) (handlerName, methodName string, ok bool) {
	trimmed := strings.Trim(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func requestRef(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return r.Method + " " + r.URL.Path
}

func requestCookies(r *http.Request) map[string]string {
	cookies := map[string]string{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies
}

func (d *Dispatcher) authenticate(r *http.Request) (*core.Principal, error) {
	if d.Auth == nil {
		return nil, nil
	}
	return d.Auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
}

// decodeArguments reads the positional argument array per §4.4: a JSON
// body array for POST/PUT/PATCH, a single query parameter for GET/DELETE.
func decodeArguments(r *http.Request, opts codec.Options) ([]any, error) {
	var raw json.RawMessage
	switch strings.ToUpper(r.Method) {
	case http.MethodGet, http.MethodDelete:
		encoded := r.URL.Query().Get("args")
		if encoded == "" {
			return []any{}, nil
		}
		decodedQuery, err := url.QueryUnescape(encoded)
		if err != nil {
			return nil, err
		}
		raw = json.RawMessage(decodedQuery)
	default:
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return []any{}, nil
		}
		raw = body
	}

	decoded, err := codec.Decode(raw, opts)
	if err != nil {
		return nil, err
	}
	switch v := decoded.(type) {
	case []any:
		return v, nil
	case *codec.Array:
		return v.Items, nil
	default:
		return nil, fmt.Errorf("dispatch: expected argument array, got %T", decoded)
	}
}

// flushHeaders writes the carrier's accumulated back-channel headers onto
// w. Must be called exactly once, before the first written byte, per
// §4.4's back-channel header rule.
func (d *Dispatcher) flushHeaders(w http.ResponseWriter, ctx context.Context) {
	if ctx == nil {
		return
	}
	headers, err := carrier.Headers(ctx)
	if err != nil {
		return
	}
	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

func (d *Dispatcher) writeScalar(w http.ResponseWriter, ctx context.Context, value any) {
	encoded, err := codec.Encode(value, d.CodecOptions)
	if err != nil {
		d.writeError(w, ctx, err)
		return
	}
	d.flushHeaders(w, ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)
}

// writeChunked frames a Chunker result as application/octet-stream,
// awaiting each chunk before requesting the next (§4.4's backpressure
// requirement) and stopping without writing further chunks once the
// carrier observes cancellation (§5).
func (d *Dispatcher) writeChunked(w http.ResponseWriter, ctx context.Context, stream Chunker) {
	defer stream.Close()
	d.flushHeaders(w, ctx)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for {
		if carrier.Cancelled(ctx) {
			return
		}
		chunk, more, err := stream.NextChunk(ctx)
		if err != nil {
			// Headers and status are already on the wire; nothing more
			// can be communicated than truncating the body.
			return
		}
		if len(chunk) > 0 {
			if _, writeErr := w.Write(chunk); writeErr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if !more {
			return
		}
	}
}

// writeSequence frames a Sequence result as server-sent-events, encoding
// each yielded value through the Typed Codec (§4.4 framing 2).
func (d *Dispatcher) writeSequence(w http.ResponseWriter, ctx context.Context, seq Sequence) {
	defer seq.Close()
	d.flushHeaders(w, ctx)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for {
		if carrier.Cancelled(ctx) {
			return
		}
		value, more, err := seq.Next(ctx)
		if err != nil {
			writeSSEError(w, err)
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		if !more {
			_, _ = fmt.Fprint(w, "data: {\"__done\": true}\n\n")
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		encoded, encErr := codec.Encode(value, d.CodecOptions)
		if encErr != nil {
			writeSSEError(w, encErr)
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", encoded)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// toCodecValue converts the handful of Go types the failure-mode
// constructors in errors.go actually put in a metadata map ([]string for
// required-role lists, plain ints for counts) into a shape the Typed
// Codec's encoder accepts — it has no generic-slice or generic-map case.
func toCodecValue(v any) any {
	switch t := v.(type) {
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return &codec.Array{Items: items}
	default:
		return v
	}
}

func writeSSEError(w http.ResponseWriter, err error) {
	var richErr *goerrors.Error
	payload := map[string]any{"message": err.Error(), "textCode": core.ServiceErrorOperationFailed}
	if goerrors.As(err, &richErr) && richErr != nil {
		if richErr.TextCode != "" {
			payload["textCode"] = richErr.TextCode
		}
		if richErr.Message != "" {
			payload["message"] = richErr.Message
		}
	}
	encoded, encErr := json.Marshal(map[string]any{"__error": payload})
	if encErr != nil {
		_, _ = fmt.Fprint(w, "data: {\"__error\": {\"textCode\": \"internal\"}}\n\n")
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", encoded)
}

// writeError renders a failed call as a Typed-Codec-encoded JSON error
// body (§4.4's "handler throw before first byte" failure mode), choosing
// the HTTP status from the error's rich category/code when available.
func (d *Dispatcher) writeError(w http.ResponseWriter, ctx context.Context, err error) {
	var richErr *goerrors.Error
	status := http.StatusInternalServerError
	textCode := core.ServiceErrorInternal
	message := "internal error"
	var metadata map[string]any
	if goerrors.As(err, &richErr) && richErr != nil {
		if richErr.Code != 0 {
			status = richErr.Code
		}
		if richErr.TextCode != "" {
			textCode = richErr.TextCode
		}
		if richErr.Message != "" {
			message = richErr.Message
		}
		metadata = richErr.Metadata
	} else if err != nil {
		message = err.Error()
	}

	errBody := codec.NewObject().Set("textCode", textCode).Set("message", message)
	if len(metadata) > 0 {
		metaObj := codec.NewObject()
		for k, v := range metadata {
			metaObj.Set(k, toCodecValue(v))
		}
		errBody.Set("metadata", metaObj)
	}
	body := codec.NewObject().Set("error", errBody)
	encoded, encErr := codec.Encode(body, d.CodecOptions)
	d.flushHeaders(w, ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr != nil {
		_, _ = w.Write([]byte(`{"error":{"textCode":"internal","message":"failed to encode error body"}}`))
		return
	}
	_, _ = w.Write(encoded)
}
