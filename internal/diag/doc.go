// Package diag defines the diagnostic model shared by the loader pipeline.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for the failures a run can
//     produce: fetch failures, transform (syntax) failures, execution failures
//     and run-level notices such as the non-production advisory.
//   - Offer light-weight utilities (Reporter, Bag) so producers can emit
//     diagnostics without coupling to storage or rendering.
//
// # Scope
//
// Package diag does not format or print anything. Rendering lives in
// internal/diagfmt; the pipeline decides which failures abort a run.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error.
//   - Code – compact numeric identifier with a stable string form (FET4001).
//   - Message – the original error text, kept short.
//   - Primary – span into the script source the failure points at. Fetch
//     failures have no source and carry the zero span.
//   - Notes – optional secondary messages (e.g. "script #3 skipped").
//
// Phases use a Reporter. ReportBuilder chains WithNote before Emit, and
// BagReporter aggregates into a Bag that supports sorting and deduplication.
package diag
