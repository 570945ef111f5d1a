package store

import (
	"maps"

	"github.com/cuemby/zerocon/pkg/action"
)

// ResetPolicy decides whether replacing prev with next sends the page back
// to 0.
type ResetPolicy interface {
	ShouldReset(prev, next action.Filter) bool
}

// ResetPolicyFunc adapts a function to ResetPolicy
type ResetPolicyFunc func(prev, next action.Filter) bool

// ShouldReset implements ResetPolicy
func (f ResetPolicyFunc) ShouldReset(prev, next action.Filter) bool {
	return f(prev, next)
}

// FilterResetKey resets when the filter is hidden, when criteria appear on
// an empty filter, or when the value under key changes.
func FilterResetKey(key string) ResetPolicy {
	return ResetPolicyFunc(func(prev, next action.Filter) bool {
		switch {
		case prev != nil && next == nil:
			return true
		case prev.Empty() && next != nil:
			return true
		case prev != nil && next != nil:
			return prev[key] != next[key]
		}
		return false
	})
}

// FilterResetQuery resets whenever the query parameters the filter
// produces differ.
var FilterResetQuery ResetPolicy = ResetPolicyFunc(func(prev, next action.Filter) bool {
	return !maps.Equal(prev.Criteria(), next.Criteria())
})

// Reset policy names accepted in configuration
const (
	PolicyKey   = "key"
	PolicyQuery = "query"
)

// PolicyFor returns the policy named by name. The key policy uses key as
// the identity field.
func PolicyFor(name, key string) ResetPolicy {
	if name == PolicyQuery {
		return FilterResetQuery
	}
	return FilterResetKey(key)
}
