// Package trace records what a run is doing: spans for the run, each
// pipeline stage, and every script, plus optional heartbeats to tell a
// stalled fetch from a busy one.
//
// # Usage
//
//	jsxhost run --trace=- --trace-level=detail index.html
//
// # Tracers
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when a run fails
//   - MultiTracer: combines multiple tracers
//
// # Levels and scopes
//
// LevelPhase emits ScopeRun and ScopeStage spans (the run, discovery and
// every fetch); LevelDetail adds the transform and execute spans of each
// script (ScopeScript). LevelError records like LevelPhase into the ring
// only.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	ctx, span := trace.BeginCtx(ctx, trace.ScopeStage, "fetch")
//	span.WithExtra("url", u)
//	defer span.End("")
package trace
