package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// HandlerFunc is the uniform shape every routable method must satisfy,
// whether registered manually or discovered via reflection. args holds
// the Typed-Codec-decoded request arguments in call order.
type HandlerFunc func(ctx context.Context, args []any) (any, error)

// MethodSpec is one entry in the dispatcher's routing table: the HTTP
// verb it answers to, the roles a principal must hold to invoke it, the
// minimum argument count the caller must supply, and the handler itself.
// Whether the method streams is not stored here — it falls out of the
// handler's return value implementing Chunker or Sequence (see
// framing.go) rather than being declared up front.
type MethodSpec struct {
	Verb          string
	RequiredRoles []string
	MinArgs       int
	Handler       HandlerFunc
}

// verbPrefixes is checked in this fixed order so a longer prefix never
// loses to a shorter one that happens to also match (none currently do,
// but the order is made explicit rather than left to map iteration).
var verbPrefixes = []string{"get", "post", "put", "delete", "patch"}

// ParseMethodName derives the HTTP verb and client-visible path segment
// from a Go method name following the "<verb><Name>_" convention: a
// trailing underscore marks the symbol as a routable endpoint (legal
// Go-identifier syntax, reused here as the routability marker), and a
// recognized verb prefix selects the HTTP method. Names without a
// recognized prefix default to POST, keyed by the whole lowercased name.
func ParseMethodName(name string) (verb, path string, ok bool) {
	if !strings.HasSuffix(name, "_") {
		return "", "", false
	}
	trimmed := strings.TrimSuffix(name, "_")
	if trimmed == "" {
		return "", "", false
	}
	lower := strings.ToLower(trimmed)
	for _, prefix := range verbPrefixes {
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			return strings.ToUpper(prefix), lower[len(prefix):], true
		}
	}
	return "POST", lower, true
}

// Registry holds the handler-name -> method-name -> MethodSpec routing
// table. It is safe for concurrent Register/RegisterStruct calls and
// concurrent lookups (the Dispatcher looks up a route per request).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]map[string]MethodSpec
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]map[string]MethodSpec{}}
}

// Register adds one method under handlerName. It is the manual escape
// hatch for handlers that don't fit the reflection-based convention.
func (r *Registry) Register(handlerName, methodName string, spec MethodSpec) error {
	if handlerName == "" || methodName == "" {
		return fmt.Errorf("dispatch: handler and method name required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("dispatch: handler func required for %s/%s", handlerName, methodName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	methods, ok := r.handlers[handlerName]
	if !ok {
		methods = map[string]MethodSpec{}
		r.handlers[handlerName] = methods
	}
	methods[methodName] = spec
	return nil
}

// RegisterStruct enumerates target's exported methods via reflection,
// registering every one whose name ends in "_" under handlerName. roles
// maps a method's path segment (the value ParseMethodName returns, not
// the raw Go method name) to the roles required to invoke it; a path
// absent from roles requires none.
//
// Each qualifying method is bound (reflect.Value.Method, not
// MethodByName, so unexported receivers still resolve the right
// function pointer) and type-asserted against HandlerFunc. A method
// whose signature doesn't match is skipped rather than erroring, since
// a struct may legitimately carry helper methods that happen to end in
// an underscore for unrelated reasons.
func RegisterStruct(r *Registry, handlerName string, target any, roles map[string][]string) error {
	if target == nil {
		return fmt.Errorf("dispatch: target required for handler %s", handlerName)
	}
	val := reflect.ValueOf(target)
	typ := val.Type()
	registered := 0
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !strings.HasSuffix(method.Name, "_") {
			continue
		}
		verb, path, ok := ParseMethodName(method.Name)
		if !ok {
			continue
		}
		fn, ok := val.Method(i).Interface().(func(context.Context, []any) (any, error))
		if !ok {
			continue
		}
		spec := MethodSpec{
			Verb:          verb,
			RequiredRoles: roles[path],
			Handler:       HandlerFunc(fn),
		}
		if err := r.Register(handlerName, path, spec); err != nil {
			return err
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("dispatch: no routable methods found on handler %s", handlerName)
	}
	return nil
}

// Lookup returns the spec registered for handlerName/methodName.
func (r *Registry) Lookup(handlerName, methodName string) (MethodSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods, ok := r.handlers[handlerName]
	if !ok {
		return MethodSpec{}, false
	}
	spec, ok := methods[methodName]
	return spec, ok
}

// HasHandler reports whether any method has been registered under
// handlerName, regardless of method name.
func (r *Registry) HasHandler(handlerName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[handlerName]
	return ok
}
