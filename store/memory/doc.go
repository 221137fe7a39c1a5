// Package memory implements store.Store entirely in process memory.
// It is safe for concurrent use and intended for tests, examples, and
// single-node operation where durability across restarts is not
// required.
package memory
