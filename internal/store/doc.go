// Package store persists named rules.
//
// Three backends implement Store:
//   - MemoryStore: process-local map, for development and tests
//   - SQLiteStore: single-file database (modernc.org/sqlite)
//   - RedisStore: shared storage for several engine instances
//
// Every backend guarantees that a rule name, once saved, is never silently
// overwritten: a second Save with the same name fails with ErrDuplicateName,
// including when two Saves race.
package store
