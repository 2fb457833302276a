// Package repositories persists local client state in sqlite.
//
// The session store keeps the API cookies and the "logged in" hint per API
// base URL so a session survives process restarts. Export history records
// every feed export written by the CLI.
package repositories
