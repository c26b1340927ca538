// Package runner executes spyspec check files against recordings.
//
// It provides functionality for:
//   - Loading a recording from a JSON file or the SQLite store
//   - Running before/after hooks and waiting for a recording to appear
//   - Resolving {{variables}} from .env files, config and the check file
//   - Evaluating each check through the assertion registry
//   - Name, tag, only and skip filtering, and bail on first failure
package runner
