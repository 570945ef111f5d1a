// Package action defines the messages carried by the dispatchers.
package action

import (
	"maps"
	"slices"
	"strings"
)

// Resource names one server-mirrored collection. It is the namespace of
// every action type string ("node.sync").
type Resource string

const (
	ResourceNode        Resource = "node"
	ResourceService     Resource = "service"
	ResourceCertificate Resource = "certificate"
	ResourceAuthority   Resource = "authority"
	ResourcePolicy      Resource = "policy"
	ResourceCheck       Resource = "check"
	ResourceAlert       Resource = "alert"
	ResourceSecret      Resource = "secret"
	ResourceLog         Resource = "log"
	ResourceUser        Resource = "user"
	ResourceEndpoint    Resource = "endpoint"
	ResourceAudit       Resource = "audit"
	ResourceSession     Resource = "session"
	ResourceDevice      Resource = "device"
	ResourceSSHCert     Resource = "sshcertificate"
	ResourceSettings    Resource = "settings"
	ResourceCompletion  Resource = "completion"

	// ResourceGlobal addresses every store (used by reset).
	ResourceGlobal Resource = "global"
)

// Resources lists every mirrored resource in display order.
var Resources = []Resource{
	ResourceNode,
	ResourceService,
	ResourceCertificate,
	ResourceAuthority,
	ResourcePolicy,
	ResourceCheck,
	ResourceAlert,
	ResourceSecret,
	ResourceLog,
	ResourceUser,
	ResourceEndpoint,
	ResourceAudit,
	ResourceSession,
	ResourceDevice,
	ResourceSSHCert,
	ResourceSettings,
	ResourceCompletion,
}

// Kind is the closed set of transitions a store understands.
type Kind string

const (
	KindSync     Kind = "sync"
	KindTraverse Kind = "traverse"
	KindFilter   Kind = "filter"
	KindChange   Kind = "change"
	KindReset    Kind = "reset"
)

func (k Kind) valid() bool {
	switch k {
	case KindSync, KindTraverse, KindFilter, KindChange, KindReset:
		return true
	}
	return false
}

// Action is an immutable message delivered by a dispatcher.
type Action struct {
	Resource Resource
	Kind     Kind
	Data     any

	// raw holds the original type string of an action that could not be
	// parsed into Resource and Kind. unparsed marks those, since raw may be
	// empty.
	raw      string
	unparsed bool
}

// Type returns the namespaced type string, e.g. "node.sync".
func (a Action) Type() string {
	if a.unparsed {
		return a.raw
	}
	return string(a.Resource) + "." + string(a.Kind)
}

// Known reports whether the action carries a recognised kind.
func (a Action) Known() bool {
	return !a.unparsed && a.Kind.valid()
}

// Targets reports whether the action is addressed to r.
func (a Action) Targets(r Resource) bool {
	return a.Resource == r || a.Resource == ResourceGlobal
}

// Parse splits a type string such as "certificate.change". Strings that do
// not name a known kind are returned as raw actions with ok false.
func Parse(typ string) (Action, bool) {
	res, kind, found := strings.Cut(typ, ".")
	if !found || res == "" || !Kind(kind).valid() {
		return Action{raw: typ, unparsed: true}, false
	}
	return Action{Resource: Resource(res), Kind: Kind(kind)}, true
}

// SyncData carries a server page of entities.
type SyncData[T any] struct {
	Items []T
	Count int
	// Owner scopes the page to a parent entity (the user of an audit list).
	Owner string
}

// TraverseData carries the requested page index.
type TraverseData struct {
	Page int
}

// FilterData carries the replacement filter.
type FilterData struct {
	Filter Filter
}

// ObjectData carries a single-document snapshot.
type ObjectData[T any] struct {
	Value T
}

// Sync builds a sync action.
func Sync[T any](r Resource, items []T, count int) Action {
	return Action{Resource: r, Kind: KindSync, Data: SyncData[T]{Items: items, Count: count}}
}

// SyncOwned builds a sync action scoped to owner.
func SyncOwned[T any](r Resource, owner string, items []T, count int) Action {
	return Action{Resource: r, Kind: KindSync, Data: SyncData[T]{Items: items, Count: count, Owner: owner}}
}

// SyncObject builds a sync action for a single-document resource.
func SyncObject[T any](r Resource, value T) Action {
	return Action{Resource: r, Kind: KindSync, Data: ObjectData[T]{Value: value}}
}

// Traverse builds a traverse action.
func Traverse(r Resource, page int) Action {
	return Action{Resource: r, Kind: KindTraverse, Data: TraverseData{Page: page}}
}

// FilterBy builds a filter action. A nil filter hides the filter.
func FilterBy(r Resource, f Filter) Action {
	return Action{Resource: r, Kind: KindFilter, Data: FilterData{Filter: f.Clone()}}
}

// Change builds the change notification pushed by the server.
func Change(r Resource) Action {
	return Action{Resource: r, Kind: KindChange}
}

// Reset builds a reset action. Use ResourceGlobal to reset every store.
func Reset(r Resource) Action {
	return Action{Resource: r, Kind: KindReset}
}

// Filter holds query criteria in three states: nil (filter hidden), empty
// (shown without criteria) and populated.
type Filter map[string]string

// Clone copies f, preserving the nil and empty states.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	out := make(Filter, len(f))
	maps.Copy(out, f)
	return out
}

// Empty reports whether f has no criteria. A nil filter is empty.
func (f Filter) Empty() bool {
	return len(f) == 0
}

// Criteria returns the non-empty entries, which are the fields sent as
// query parameters.
func (f Filter) Criteria() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Keys returns the filter keys in sorted order.
func (f Filter) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}
