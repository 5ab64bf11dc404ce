// Package oteladapters provides OpenTelemetry adapters for the store observability interfaces.
// The circulation coordinator and the postgres engine both accept them through their
// WithLogger, WithContextualLogger, WithMetrics and WithTracing options.
package oteladapters
