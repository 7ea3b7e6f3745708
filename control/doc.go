// Package control
// Author: momentics <momentics@gmail.com>
//
// Metrics, configuration, hot-reload, and debug introspection for rings.
//
// Provides concurrent-safe state handling primitives including:
//   - Prometheus ring metrics fed by core/concurrency observers
//   - viper-backed configuration with change listeners
//   - Named debug probes and ring state dumps
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
