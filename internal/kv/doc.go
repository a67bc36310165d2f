// Package kv stores RDF datasets in Badger.
//
// Terms are interned in a dictionary that assigns each distinct term a
// uint64 id. Every quad is written under four permuted index keys
// (SPOG, POGS, OSPG, GSPO) built from those ids, plus one entry keyed by
// its insertion sequence number. Lookups scan the index whose key order
// binds the longest prefix of the requested components and return
// matches in insertion order, so hydration over a DB sees the same
// ordering as over an in-memory dataset holding the same quads.
package kv
