// Package auth issues and validates the bearer tokens that protect the admin
// API, and verifies the admin password they are exchanged for.
package auth
