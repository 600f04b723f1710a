// Package hindex implements heuristic secondary indexes over columnar data
// stripes, used by a query engine to prune unnecessary reads before scan.
//
// Two index flavors are provided:
//
//   - btree.Index: an ordered key -> positional-token store answering
//     equality and between lookups in key order.
//   - bitmap.Index: a key -> compressed row-position bitmap store answering
//     equality lookups within one column batch.
//
// Both are build-once, read-many: a mutable staging phase is frozen into an
// immutable disk-backed structure on first read or serialize, and the
// persisted byte stream can be reopened read-only with Deserialize.
//
// partition.Writer assembles one consolidated btree index per logical
// partition from many concurrent per-stripe contributions, deduplicating
// file identity through a symbol table.
package hindex
