// Package storage persists an audit trail of list mutations.
//
// Two drivers exist: an append-only JSON Lines file and an optional
// SQLite database behind the "sqlite" build tag.
package storage
