// Package actions issues the HTTP requests of each resource and dispatches
// their results. Stale responses, failures and 401s are settled on the loop
// in that order of precedence: 401, then staleness, then error.
package actions
