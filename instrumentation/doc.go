// Package instrumentation provides OpenTelemetry metrics and tracing for the
// grant engine and its storage backends.
//
// Instrumentation is optional: when disabled (or when no instance is wired),
// no-op providers are used and recording has zero overhead. Metric
// instruments cover the grant flows (codes issued and exchanged, tokens
// issued, refreshed, and revoked, grant failures by error code) and storage
// (operation counts, durations, and entity counts).
package instrumentation
