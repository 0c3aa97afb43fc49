// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings needed by the task queue, the restart orchestrator
// and the HTTP admin API while keeping configuration details separate from
// business logic.
package config
