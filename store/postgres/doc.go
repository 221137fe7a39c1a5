// Package postgres implements store.Store over PostgreSQL using the
// uptrace/bun ORM with pgdriver/pgdialect. Adapted from job/workflow-run
// tables to the workflow instance / step execution / compensation
// record schema this package persists.
package postgres
