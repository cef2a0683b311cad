// Package daemon wires the long-running build orchestrator: a trigger
// watcher feeding a single run worker, the run-completed fan-out to history,
// metrics and notifications, a retention scheduler and an optional HTTP
// endpoint for metrics and status.
package daemon
