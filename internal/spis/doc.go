// Package spis implements the homework-list engine: dated task and
// announcement entries, the always-sorted collection, per-entry expiry
// timers and the snapshot/restore protocol against a blob sink.
package spis
