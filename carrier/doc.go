// Package carrier binds the {principal, request_ref, response_headers}
// triple to a request's logical task lineage using context.Context — the
// host runtime's native task-local-scope mechanism, which already
// propagates across suspensions (blocking calls, channel receives) and
// across goroutines spawned with the same ctx. The Dispatcher enters the
// scope once per request; everything invoked from within it, including a
// lazily-driven sequence's later elements and any background helper the
// handler spawns with the same context, observes the same triple.
package carrier
