/*
Package observability provides tools for monitoring the patchbay engine.

Metrics turns engine lifecycle hooks into Prometheus collectors served from
its own registry. InitTracing installs an OpenTelemetry tracer provider that
exports the per-frame spans recorded by the evaluator.
*/
package observability
