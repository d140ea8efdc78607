// Package aggregates implements the learning aggregates on top of the table repos.
//
// Each write runs inside one transaction that the aggregate opens itself. Course
// structure edits and enrollment progress recomputation share that transaction,
// so a removed item never leaves a stale percentage behind.
package aggregates
