// Package trace records what a check run is doing: driver phases, per-component
// checks and, at debug level, single rule invocations.
//
// Enable it from the command line:
//
//	tplcheck check --trace=- --trace-level=detail ./bundles
//
// Tracers:
//
//   - Nop: tracing disabled
//   - StreamTracer: writes text or NDJSON as events arrive
//   - RingTracer: keeps the last N events for crash dumps
//   - MultiTracer: fans out to several tracers
//
// Levels map to scopes: phase shows driver and pass events, detail adds
// components, debug adds nodes. At error level nothing is streamed and the ring
// is only dumped when the process panics.
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "check", 0)
//	defer span.End("")
package trace
