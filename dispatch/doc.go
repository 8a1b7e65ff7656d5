// Package dispatch implements the Method Dispatcher: it maps an incoming
// HTTP request to a registered handler method, decodes its arguments
// through the Typed Codec, invokes it inside a Context Carrier scope, and
// frames its result as a scalar JSON body, a byte stream, or a
// server-sent-events sequence.
package dispatch
