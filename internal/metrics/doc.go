// Package metrics provides the observability hooks for pipeline runs.
//
// Components receive a Recorder. NoopRecorder is the default so call sites
// never need nil checks; PrometheusRecorder is wired in by the daemon when a
// metrics address is configured, and HTTPHandler exposes its registry.
package metrics
