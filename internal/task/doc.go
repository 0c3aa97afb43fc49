// Package task manages background job queuing, processing, and lifecycle.
// A Queue accepts heterogeneous long-running jobs (link resolution, command
// rendering), runs them on a fixed pool of worker goroutines, tracks every
// task through pending -> processing -> completed | failed | cancelled, and
// answers status and cancel requests while workers mutate the same records.
//
// Task state lives in memory only; it is lost when the process exits or is
// replaced by a restart.
package task
