// Package store provides SQLite-backed durable storage for RDF datasets.
//
// The store keeps one table of quads with an insertion sequence:
//   - Insert is idempotent: a quad already present is skipped and keeps
//     its original position
//   - Every lookup is a parameterized query ordered by seq, so hydrating
//     from a View is as deterministic as hydrating from rdf.Memory
//   - Terms are stored component-wise (kind, value, datatype, language),
//     never as serialized N-Quads strings
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks, 5 seconds unless WithBusyTimeout is given
package store
