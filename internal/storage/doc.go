// Package storage persists the monitored-service registry and the singleton
// monitor settings row.
//
// Uniqueness of service names and the single settings row are enforced by
// the schema; every conditional write is one statement (ON CONFLICT), never a
// read followed by a write.
package storage
